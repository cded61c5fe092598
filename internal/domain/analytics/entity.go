// internal/domain/analytics/entity.go
package analytics

import (
	"net/url"
	"time"
)

// Dashboard is the console landing summary
type Dashboard struct {
	TotalDrivers      int64     `json:"total_drivers"`
	OnlineDrivers     int64     `json:"online_drivers"`
	PendingDrivers    int64     `json:"pending_drivers"`
	TotalCustomers    int64     `json:"total_customers"`
	TotalBookings     int64     `json:"total_bookings"`
	ActiveBookings    int64     `json:"active_bookings"`
	CompletedToday    int64     `json:"completed_today"`
	RevenueToday      float64   `json:"revenue_today"`
	ActiveEmergencies int64     `json:"active_emergencies"`
	OpenTickets       int64     `json:"open_tickets"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Range selects a reporting window
type Range struct {
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Interval string `form:"interval" binding:"omitempty,oneof=day week month"`
}

func (r Range) Query() url.Values {
	q := url.Values{}
	if r.From != "" {
		q.Set("from", r.From)
	}
	if r.To != "" {
		q.Set("to", r.To)
	}
	if r.Interval != "" {
		q.Set("interval", r.Interval)
	}
	return q
}

type RevenuePoint struct {
	Period   string  `json:"period"`
	Revenue  float64 `json:"revenue"`
	Bookings int64   `json:"bookings"`
}

type RevenueReport struct {
	Total  float64        `json:"total"`
	Points []RevenuePoint `json:"points"`
}

type TrendPoint struct {
	Period    string `json:"period"`
	Created   int64  `json:"created"`
	Completed int64  `json:"completed"`
	Cancelled int64  `json:"cancelled"`
}

type BookingTrends struct {
	Points []TrendPoint `json:"points"`
}

type DriverPerformance struct {
	DriverID       string  `json:"driver_id"`
	FullName       string  `json:"full_name"`
	Trips          int64   `json:"trips"`
	Rating         float64 `json:"rating"`
	Earnings       float64 `json:"earnings"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

type DriverPerformanceReport struct {
	Drivers []DriverPerformance `json:"drivers"`
}
