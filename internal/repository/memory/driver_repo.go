// internal/repository/memory/driver_repo.go
package memory

import (
	"context"
	"fmt"
	"strings"

	"dispatch-console/internal/domain/driver"
	xerrors "dispatch-console/internal/pkg/errors"
)

type DriverRepository struct {
	db *DB
}

func NewDriverRepository(db *DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// Create stores a new driver
func (r *DriverRepository) Create(ctx context.Context, d *driver.Driver) error {
	now := r.db.Now()
	if d.ID == "" {
		d.ID = newID()
	}
	if d.Status == "" {
		d.Status = driver.StatusPending
	}
	if d.VerificationStatus == "" {
		d.VerificationStatus = driver.VerificationPending
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	return r.db.drivers.insert(d.ID, d)
}

// FindByID retrieves a driver by ID
func (r *DriverRepository) FindByID(ctx context.Context, id string) (*driver.Driver, error) {
	return r.db.drivers.get(id)
}

// List retrieves drivers matching the filters, newest first
func (r *DriverRepository) List(ctx context.Context, f driver.ListFilters) *driver.ListResponse {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	rows := r.db.drivers.list(func(d *driver.Driver) bool {
		if f.Status != "" && string(d.Status) != f.Status {
			return false
		}
		if f.VerificationStatus != "" && string(d.VerificationStatus) != f.VerificationStatus {
			return false
		}
		return search == "" || matches(search, d.FullName, d.Email, d.Phone)
	})
	items, p := paginate(rows, f.Page, f.PageSize)
	return &driver.ListResponse{
		Drivers:    items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}

// Update applies a partial profile update
func (r *DriverRepository) Update(ctx context.Context, id string, req *driver.UpdateDriverRequest) (*driver.Driver, error) {
	return r.db.drivers.update(id, func(d *driver.Driver) error {
		if req.FullName != nil {
			d.FullName = *req.FullName
		}
		if req.Email != nil {
			d.Email = *req.Email
		}
		if req.Phone != nil {
			d.Phone = *req.Phone
		}
		if req.Vehicle != nil {
			v := *req.Vehicle
			d.Vehicle = &v
		}
		d.UpdatedAt = r.db.Now()
		return nil
	})
}

// Verify records the verification decision. Approval activates a pending
// driver.
func (r *DriverRepository) Verify(ctx context.Context, id string, approved bool) (*driver.Driver, error) {
	return r.db.drivers.update(id, func(d *driver.Driver) error {
		now := r.db.Now()
		if approved {
			d.VerificationStatus = driver.VerificationApproved
			d.VerifiedAt = &now
			if d.Status == driver.StatusPending {
				d.Status = driver.StatusActive
			}
		} else {
			d.VerificationStatus = driver.VerificationRejected
			d.VerifiedAt = nil
		}
		for i := range d.Documents {
			d.Documents[i].Status = d.VerificationStatus
		}
		d.UpdatedAt = now
		return nil
	})
}

// Suspend takes a driver off the platform
func (r *DriverRepository) Suspend(ctx context.Context, id, reason string) (*driver.Driver, error) {
	return r.db.drivers.update(id, func(d *driver.Driver) error {
		if d.IsSuspended() {
			return fmt.Errorf("driver already suspended: %w", xerrors.ErrInvalidTransition)
		}
		d.Status = driver.StatusSuspended
		d.SuspensionReason = reason
		d.Location = nil
		d.UpdatedAt = r.db.Now()
		return nil
	})
}

// Activate lifts a suspension. Unverified drivers cannot be activated.
func (r *DriverRepository) Activate(ctx context.Context, id string) (*driver.Driver, error) {
	return r.db.drivers.update(id, func(d *driver.Driver) error {
		if d.VerificationStatus != driver.VerificationApproved {
			return fmt.Errorf("driver is not verified: %w", xerrors.ErrInvalidTransition)
		}
		d.Status = driver.StatusActive
		d.SuspensionReason = ""
		d.UpdatedAt = r.db.Now()
		return nil
	})
}

// Delete removes a driver
func (r *DriverRepository) Delete(ctx context.Context, id string) error {
	return r.db.drivers.delete(id)
}

// AddDocument attaches an uploaded verification document
func (r *DriverRepository) AddDocument(ctx context.Context, id string, doc driver.Document) (*driver.Document, error) {
	var added driver.Document
	_, err := r.db.drivers.update(id, func(d *driver.Driver) error {
		now := r.db.Now()
		doc.ID = newID()
		doc.Status = driver.VerificationPending
		doc.UploadedAt = now
		d.Documents = append(d.Documents, doc)
		d.UpdatedAt = now
		added = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// UpdateLocation stores a driver's latest position
func (r *DriverRepository) UpdateLocation(ctx context.Context, loc driver.Location) (*driver.Driver, error) {
	return r.db.drivers.update(loc.DriverID, func(d *driver.Driver) error {
		if loc.UpdatedAt.IsZero() {
			loc.UpdatedAt = r.db.Now()
		}
		d.Location = &loc
		return nil
	})
}

// Locations returns the last position of every online driver
func (r *DriverRepository) Locations(ctx context.Context) []driver.Location {
	rows := r.db.drivers.list(func(d *driver.Driver) bool {
		return d.Status == driver.StatusOnline && d.Location != nil
	})
	out := make([]driver.Location, 0, len(rows))
	for _, d := range rows {
		loc := *d.Location
		loc.DriverID = d.ID
		out = append(out, loc)
	}
	return out
}

// Count returns the number of drivers with the given status, or all drivers
// when status is empty
func (r *DriverRepository) Count(ctx context.Context, status driver.Status) int64 {
	return r.db.drivers.count(func(d *driver.Driver) bool {
		return status == "" || d.Status == status
	})
}

// All returns every driver, newest first
func (r *DriverRepository) All(ctx context.Context) []driver.Driver {
	return r.db.drivers.list(nil)
}

// --- Helper functions ---

func matches(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
