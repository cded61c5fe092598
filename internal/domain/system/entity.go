// internal/domain/system/entity.go
package system

import (
	"net/url"
	"strconv"
	"time"
)

type Health struct {
	Status    string                   `json:"status"` // healthy, degraded, down
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Services  map[string]ServiceHealth `json:"services"`
	CheckedAt time.Time                `json:"checked_at"`
}

type ServiceHealth struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

type Metrics struct {
	ActiveConnections int64     `json:"active_connections"`
	RequestsPerMinute float64   `json:"requests_per_minute"`
	ErrorRate         float64   `json:"error_rate"`
	AvgLatencyMs      float64   `json:"avg_latency_ms"`
	MemoryMB          float64   `json:"memory_mb"`
	Goroutines        int       `json:"goroutines"`
	CollectedAt       time.Time `json:"collected_at"`
}

type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Service   string         `json:"service"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

type LogFilters struct {
	Level   string `form:"level" binding:"omitempty,oneof=debug info warn error"`
	Service string `form:"service" binding:"max=64"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

func (f LogFilters) Query() url.Values {
	q := url.Values{}
	if f.Level != "" {
		q.Set("level", f.Level)
	}
	if f.Service != "" {
		q.Set("service", f.Service)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

type LogsResponse struct {
	Logs []LogEntry `json:"logs"`
}
