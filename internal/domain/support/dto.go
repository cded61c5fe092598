// internal/domain/support/dto.go
package support

import (
	"net/url"
	"strconv"
)

type ListFilters struct {
	Status     string `form:"status" binding:"omitempty,oneof=open in_progress resolved closed"`
	Priority   string `form:"priority" binding:"omitempty,oneof=low medium high urgent"`
	AssignedTo string `form:"assigned_to" binding:"max=128"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (f ListFilters) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	if f.AssignedTo != "" {
		q.Set("assigned_to", f.AssignedTo)
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
	Tickets    []Ticket `json:"tickets"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
}

type ReplyRequest struct {
	Message string `json:"message" binding:"required,max=5000"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=open in_progress resolved closed"`
}

type AssignRequest struct {
	AdminID string `json:"admin_id" binding:"required,max=128"`
}
