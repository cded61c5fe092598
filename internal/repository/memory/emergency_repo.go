// internal/repository/memory/emergency_repo.go
package memory

import (
	"context"
	"fmt"

	"dispatch-console/internal/domain/emergency"
	xerrors "dispatch-console/internal/pkg/errors"
)

type EmergencyRepository struct {
	db *DB
}

func NewEmergencyRepository(db *DB) *EmergencyRepository {
	return &EmergencyRepository{db: db}
}

// Create raises a new alert
func (r *EmergencyRepository) Create(ctx context.Context, a *emergency.Alert) error {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.Status == "" {
		a.Status = emergency.StatusActive
	}
	if a.Severity == "" {
		a.Severity = emergency.SeverityHigh
	}
	a.CreatedAt = r.db.Now()
	return r.db.alerts.insert(a.ID, a)
}

// FindByID retrieves an alert by ID
func (r *EmergencyRepository) FindByID(ctx context.Context, id string) (*emergency.Alert, error) {
	return r.db.alerts.get(id)
}

// List retrieves alerts matching the filters, newest first
func (r *EmergencyRepository) List(ctx context.Context, f emergency.ListFilters) *emergency.ListResponse {
	rows := r.db.alerts.list(func(a *emergency.Alert) bool {
		if f.Status != "" && string(a.Status) != f.Status {
			return false
		}
		return f.Severity == "" || string(a.Severity) == f.Severity
	})
	items, p := paginate(rows, f.Page, f.PageSize)
	return &emergency.ListResponse{Alerts: items, Total: p.Total}
}

// Active returns every alert that is not resolved
func (r *EmergencyRepository) Active(ctx context.Context) []emergency.Alert {
	return r.db.alerts.list(func(a *emergency.Alert) bool { return a.IsOpen() })
}

// Acknowledge marks an active alert as being handled by adminID
func (r *EmergencyRepository) Acknowledge(ctx context.Context, id, adminID, notes string) (*emergency.Alert, error) {
	return r.db.alerts.update(id, func(a *emergency.Alert) error {
		if a.Status != emergency.StatusActive {
			return fmt.Errorf("alert %s is %s: %w", id, a.Status, xerrors.ErrInvalidTransition)
		}
		now := r.db.Now()
		a.Status = emergency.StatusAcknowledged
		a.AcknowledgedAt = &now
		a.HandledBy = adminID
		a.Notes = notes
		return nil
	})
}

// Resolve closes an open alert
func (r *EmergencyRepository) Resolve(ctx context.Context, id, adminID, resolution string) (*emergency.Alert, error) {
	return r.db.alerts.update(id, func(a *emergency.Alert) error {
		if !a.IsOpen() {
			return fmt.Errorf("alert %s already resolved: %w", id, xerrors.ErrInvalidTransition)
		}
		now := r.db.Now()
		a.Status = emergency.StatusResolved
		a.Resolution = resolution
		a.ResolvedAt = &now
		if a.HandledBy == "" {
			a.HandledBy = adminID
		}
		return nil
	})
}

// Escalate hands an open alert to an outside responder
func (r *EmergencyRepository) Escalate(ctx context.Context, id, adminID string, req *emergency.EscalateRequest) (*emergency.Alert, error) {
	return r.db.alerts.update(id, func(a *emergency.Alert) error {
		if !a.IsOpen() {
			return fmt.Errorf("alert %s already resolved: %w", id, xerrors.ErrInvalidTransition)
		}
		a.Status = emergency.StatusEscalated
		a.EscalatedTo = req.To
		if req.Reason != "" {
			a.Notes = req.Reason
		}
		a.HandledBy = adminID
		return nil
	})
}

// CountOpen returns the number of unresolved alerts
func (r *EmergencyRepository) CountOpen(ctx context.Context) int64 {
	return r.db.alerts.count(func(a *emergency.Alert) bool { return a.IsOpen() })
}
