// internal/service/booking/booking.go
package booking

import (
	"context"

	"dispatch-console/internal/domain/booking"
	"dispatch-console/internal/pkg/validation"
	"dispatch-console/internal/service"

	"go.uber.org/zap"
)

const bookingsPath = "/api/admin/bookings"

type BookingService struct {
	api    service.API
	logger *zap.Logger
}

func NewBookingService(api service.API, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		api:    api,
		logger: logger,
	}
}

// ListBookings retrieves bookings with filters
func (s *BookingService) ListBookings(ctx context.Context, filters booking.ListFilters) (*booking.ListResponse, error) {
	if err := validation.Struct(filters); err != nil {
		return nil, err
	}

	var out booking.ListResponse
	if err := s.api.Get(ctx, bookingsPath, filters.Query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBooking retrieves a booking by ID
func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}

	var out booking.Booking
	if err := s.api.Get(ctx, bookingsPath+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus moves a booking through its lifecycle. The backend rejects
// transitions out of a final state.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, status booking.Status) (*booking.Booking, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	req := booking.UpdateStatusRequest{Status: status}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out booking.Booking
	if err := s.api.Patch(ctx, bookingsPath+"/"+id+"/status", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, id, reason string) (*booking.Booking, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	req := booking.CancelRequest{Reason: reason}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out booking.Booking
	if err := s.api.Post(ctx, bookingsPath+"/"+id+"/cancel", req, &out); err != nil {
		return nil, err
	}
	s.logger.Info("booking cancelled", zap.String("booking_id", id))
	return &out, nil
}

// AssignDriver dispatches a driver to a pending booking
func (s *BookingService) AssignDriver(ctx context.Context, id, driverID string) (*booking.Booking, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	if err := validation.ID(driverID); err != nil {
		return nil, err
	}

	var out booking.Booking
	if err := s.api.Post(ctx, bookingsPath+"/"+id+"/assign", booking.AssignDriverRequest{DriverID: driverID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BookingService) GetStats(ctx context.Context) (*booking.Stats, error) {
	var out booking.Stats
	if err := s.api.Get(ctx, bookingsPath+"/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
