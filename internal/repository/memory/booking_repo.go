// internal/repository/memory/booking_repo.go
package memory

import (
	"context"
	"fmt"
	"slices"

	"dispatch-console/internal/domain/booking"
	xerrors "dispatch-console/internal/pkg/errors"
)

// transitions lists the statuses each status may move to
var transitions = map[booking.Status][]booking.Status{
	booking.StatusPending:    {booking.StatusAccepted, booking.StatusCancelled},
	booking.StatusAccepted:   {booking.StatusInProgress, booking.StatusCancelled},
	booking.StatusInProgress: {booking.StatusCompleted, booking.StatusCancelled},
}

type BookingRepository struct {
	db *DB
}

func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create stores a new booking
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	if b.ID == "" {
		b.ID = newID()
	}
	if b.Status == "" {
		b.Status = booking.StatusPending
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.db.Now()
	}
	b.UpdatedAt = b.CreatedAt
	return r.db.bookings.insert(b.ID, b)
}

// FindByID retrieves a booking by ID
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*booking.Booking, error) {
	return r.db.bookings.get(id)
}

// List retrieves bookings matching the filters, newest first
func (r *BookingRepository) List(ctx context.Context, f booking.ListFilters) *booking.ListResponse {
	rows := r.db.bookings.list(func(b *booking.Booking) bool {
		if f.Status != "" && string(b.Status) != f.Status {
			return false
		}
		if f.CustomerID != "" && b.CustomerID != f.CustomerID {
			return false
		}
		if f.DriverID != "" && b.DriverID != f.DriverID {
			return false
		}
		if f.From != nil && b.CreatedAt.Before(*f.From) {
			return false
		}
		// To is a calendar day and includes the whole day
		if f.To != nil && !b.CreatedAt.Before(f.To.AddDate(0, 0, 1)) {
			return false
		}
		return true
	})
	items, p := paginate(rows, f.Page, f.PageSize)
	return &booking.ListResponse{
		Bookings:   items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}

// UpdateStatus moves a booking along its lifecycle
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status booking.Status) (*booking.Booking, error) {
	return r.db.bookings.update(id, func(b *booking.Booking) error {
		if !slices.Contains(transitions[b.Status], status) {
			return fmt.Errorf("booking %s cannot move from %s to %s: %w", id, b.Status, status, xerrors.ErrInvalidTransition)
		}
		if status == booking.StatusAccepted && b.DriverID == "" {
			return fmt.Errorf("booking %s has no driver: %w", id, xerrors.ErrInvalidTransition)
		}
		now := r.db.Now()
		b.Status = status
		b.UpdatedAt = now
		switch status {
		case booking.StatusCompleted:
			b.CompletedAt = &now
		case booking.StatusCancelled:
			b.CancelledAt = &now
		}
		return nil
	})
}

// Cancel cancels an open booking with a reason
func (r *BookingRepository) Cancel(ctx context.Context, id, reason string) (*booking.Booking, error) {
	return r.db.bookings.update(id, func(b *booking.Booking) error {
		if b.IsFinal() {
			return fmt.Errorf("booking %s is %s: %w", id, b.Status, xerrors.ErrInvalidTransition)
		}
		now := r.db.Now()
		b.Status = booking.StatusCancelled
		b.CancelReason = reason
		b.CancelledAt = &now
		b.UpdatedAt = now
		return nil
	})
}

// AssignDriver attaches a driver to a booking that has not started
func (r *BookingRepository) AssignDriver(ctx context.Context, id, driverID string) (*booking.Booking, error) {
	return r.db.bookings.update(id, func(b *booking.Booking) error {
		if b.Status != booking.StatusPending && b.Status != booking.StatusAccepted {
			return fmt.Errorf("booking %s is %s: %w", id, b.Status, xerrors.ErrInvalidTransition)
		}
		b.DriverID = driverID
		b.Status = booking.StatusAccepted
		b.UpdatedAt = r.db.Now()
		return nil
	})
}

// Stats summarises all bookings
func (r *BookingRepository) Stats(ctx context.Context) *booking.Stats {
	var s booking.Stats
	for _, b := range r.db.bookings.list(nil) {
		s.Total++
		switch b.Status {
		case booking.StatusPending:
			s.Pending++
		case booking.StatusAccepted, booking.StatusInProgress:
			s.Active++
		case booking.StatusCompleted:
			s.Completed++
			s.Revenue += b.Fare
		case booking.StatusCancelled:
			s.Cancelled++
		}
	}
	if s.Completed > 0 {
		s.AverageFare = s.Revenue / float64(s.Completed)
	}
	return &s
}

// All returns every booking, newest first
func (r *BookingRepository) All(ctx context.Context) []booking.Booking {
	return r.db.bookings.list(nil)
}
