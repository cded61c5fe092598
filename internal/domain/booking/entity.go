// internal/domain/booking/entity.go
package booking

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Place is a pickup or drop-off point
type Place struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type Booking struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id"`
	DriverID      string     `json:"driver_id,omitempty"`
	Status        Status     `json:"status"`
	Pickup        Place      `json:"pickup"`
	Dropoff       Place      `json:"dropoff"`
	Fare          float64    `json:"fare"`
	DistanceKm    float64    `json:"distance_km"`
	PaymentMethod string     `json:"payment_method"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

// IsFinal reports whether the booking can no longer change status.
func (b *Booking) IsFinal() bool {
	return b.Status == StatusCompleted || b.Status == StatusCancelled
}

type Stats struct {
	Total       int64   `json:"total"`
	Pending     int64   `json:"pending"`
	Active      int64   `json:"active"`
	Completed   int64   `json:"completed"`
	Cancelled   int64   `json:"cancelled"`
	Revenue     float64 `json:"revenue"`
	AverageFare float64 `json:"average_fare"`
}
