// internal/domain/customer/dto.go
package customer

import (
	"net/url"
	"strconv"
)

type UpdateCustomerRequest struct {
	FullName *string `json:"full_name,omitempty" binding:"omitempty,max=255"`
	Phone    *string `json:"phone,omitempty" binding:"omitempty,e164"`
	Email    *string `json:"email,omitempty" binding:"omitempty,email,max=255"`
}

type BlockRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type CustomerListFilters struct {
	Status   string `form:"status" binding:"omitempty,oneof=active blocked"`
	Search   string `form:"search" binding:"max=100"` // Search by name, phone, email
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (f CustomerListFilters) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	return q
}

type CustomerListResponse struct {
	Customers  []Customer `json:"customers"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
