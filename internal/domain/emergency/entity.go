// internal/domain/emergency/entity.go
package emergency

import "time"

type Status string
type Severity string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusEscalated    Status = "escalated"
	StatusResolved     Status = "resolved"

	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is an emergency raised by a driver or rider during a trip
type Alert struct {
	ID             string     `json:"id"`
	BookingID      string     `json:"booking_id,omitempty"`
	DriverID       string     `json:"driver_id,omitempty"`
	CustomerID     string     `json:"customer_id,omitempty"`
	ReportedBy     string     `json:"reported_by"` // driver, customer, system
	Type           string     `json:"type"`        // sos, accident, harassment, medical
	Severity       Severity   `json:"severity"`
	Status         Status     `json:"status"`
	Lat            float64    `json:"lat"`
	Lng            float64    `json:"lng"`
	Description    string     `json:"description,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Resolution     string     `json:"resolution,omitempty"`
	EscalatedTo    string     `json:"escalated_to,omitempty"`
	HandledBy      string     `json:"handled_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func (a *Alert) IsOpen() bool {
	return a.Status != StatusResolved
}
