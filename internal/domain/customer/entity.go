// internal/domain/customer/entity.go
package customer

import "time"

type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

type Customer struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Status        Status    `json:"status"`
	BlockReason   string    `json:"block_reason,omitempty"`
	Rating        float64   `json:"rating"`
	TotalBookings int64     `json:"total_bookings"`
	TotalSpent    float64   `json:"total_spent"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CustomerStats struct {
	TotalCustomers   int64 `json:"total_customers"`
	ActiveCustomers  int64 `json:"active_customers"`
	BlockedCustomers int64 `json:"blocked_customers"`
	NewThisMonth     int64 `json:"new_this_month"`
}
