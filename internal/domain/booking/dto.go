// internal/domain/booking/dto.go
package booking

import (
	"net/url"
	"strconv"
	"time"
)

type ListFilters struct {
	Status     string     `form:"status" binding:"omitempty,oneof=pending accepted in_progress completed cancelled"`
	CustomerID string     `form:"customer_id" binding:"max=128"`
	DriverID   string     `form:"driver_id" binding:"max=128"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (f ListFilters) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.CustomerID != "" {
		q.Set("customer_id", f.CustomerID)
	}
	if f.DriverID != "" {
		q.Set("driver_id", f.DriverID)
	}
	if f.From != nil {
		q.Set("from", f.From.Format("2006-01-02"))
	}
	if f.To != nil {
		q.Set("to", f.To.Format("2006-01-02"))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	return q
}

type ListResponse struct {
	Bookings   []Booking `json:"bookings"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=pending accepted in_progress completed cancelled"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type AssignDriverRequest struct {
	DriverID string `json:"driver_id" binding:"required,max=128"`
}
