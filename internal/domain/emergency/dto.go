// internal/domain/emergency/dto.go
package emergency

import (
	"net/url"
	"strconv"
)

type ListFilters struct {
	Status   string `form:"status" binding:"omitempty,oneof=active acknowledged escalated resolved"`
	Severity string `form:"severity" binding:"omitempty,oneof=low medium high critical"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (f ListFilters) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Severity != "" {
		q.Set("severity", f.Severity)
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
	Alerts []Alert `json:"alerts"`
	Total  int64   `json:"total"`
}

type AcknowledgeRequest struct {
	Notes string `json:"notes,omitempty" binding:"max=1000"`
}

type ResolveRequest struct {
	Resolution string `json:"resolution" binding:"required,max=2000"`
}

type EscalateRequest struct {
	To     string `json:"to" binding:"required,oneof=police ambulance fire supervisor"`
	Reason string `json:"reason,omitempty" binding:"max=1000"`
}
