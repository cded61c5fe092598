// internal/domain/driver/dto.go
package driver

import (
	"net/url"
	"strconv"
)

type ListFilters struct {
	Status             string `form:"status" binding:"omitempty,oneof=pending active online offline suspended"`
	VerificationStatus string `form:"verification_status" binding:"omitempty,oneof=pending approved rejected"`
	Search             string `form:"search" binding:"max=100"`
	Page               int    `form:"page" binding:"omitempty,min=1"`
	PageSize           int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Query encodes the filters as request parameters, skipping zero values.
func (f ListFilters) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.VerificationStatus != "" {
		q.Set("verification_status", f.VerificationStatus)
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

type ListResponse struct {
	Drivers    []Driver `json:"drivers"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
}

type UpdateDriverRequest struct {
	FullName *string  `json:"full_name,omitempty" binding:"omitempty,min=2,max=255"`
	Email    *string  `json:"email,omitempty" binding:"omitempty,email,max=255"`
	Phone    *string  `json:"phone,omitempty" binding:"omitempty,e164"`
	Vehicle  *Vehicle `json:"vehicle,omitempty"`
}

type VerifyRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes,omitempty" binding:"max=1000"`
}

type SuspendRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type LocationsResponse struct {
	Locations []Location `json:"locations"`
}
