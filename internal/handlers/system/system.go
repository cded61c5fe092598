// internal/handlers/system/system.go
package system

import (
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dispatch-console/internal/domain/system"
	wstypes "dispatch-console/internal/domain/websocket"
	"dispatch-console/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zapcore"
)

// Version is reported by the health endpoint
var Version = "dev"

// Connections reports live realtime connections
type Connections interface {
	TotalClients() int
	RoomSize(room string) int
}

type SystemHandler struct {
	hub     Connections
	logs    *LogBuffer
	stats   *RequestStats
	started time.Time
	now     func() time.Time
}

func NewSystemHandler(hub Connections, logs *LogBuffer, stats *RequestStats, now func() time.Time) *SystemHandler {
	if now == nil {
		now = time.Now
	}
	return &SystemHandler{
		hub:     hub,
		logs:    logs,
		stats:   stats,
		started: now(),
		now:     now,
	}
}

// GetHealth reports the status of the backend's components
func (h *SystemHandler) GetHealth(c *gin.Context) {
	now := h.now()
	health := system.Health{
		Status:  "healthy",
		Version: Version,
		Uptime:  now.Sub(h.started).Truncate(time.Second).String(),
		Services: map[string]system.ServiceHealth{
			"api":      {Status: "healthy"},
			"database": {Status: "healthy", Message: "in-memory"},
			"realtime": {Status: "healthy", Message: "admins online: " + strconv.Itoa(h.hub.RoomSize(wstypes.RoomAdmins))},
		},
		CheckedAt: now.UTC(),
	}
	if rate := h.stats.ErrorRate(); rate > 0.5 {
		health.Status = "degraded"
		health.Services["api"] = system.ServiceHealth{Status: "degraded", Message: "high error rate"}
	}

	response.Success(c, http.StatusOK, "health retrieved", health)
}

// GetMetrics reports runtime and request metrics
func (h *SystemHandler) GetMetrics(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := h.now()
	minutes := now.Sub(h.started).Minutes()
	if minutes < 1 {
		minutes = 1
	}

	metrics := system.Metrics{
		ActiveConnections: int64(h.hub.TotalClients()),
		RequestsPerMinute: float64(h.stats.Requests()) / minutes,
		ErrorRate:         h.stats.ErrorRate(),
		AvgLatencyMs:      h.stats.AvgLatencyMs(),
		MemoryMB:          float64(mem.Alloc) / (1 << 20),
		Goroutines:        runtime.NumGoroutine(),
		CollectedAt:       now.UTC(),
	}
	response.Success(c, http.StatusOK, "metrics retrieved", metrics)
}

// GetLogs returns recent log entries, newest first
func (h *SystemHandler) GetLogs(c *gin.Context) {
	var filters system.LogFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, err)
		return
	}
	if filters.Limit == 0 {
		filters.Limit = 100
	}

	response.Success(c, http.StatusOK, "logs retrieved", system.LogsResponse{Logs: h.logs.Query(filters)})
}

// ========== Request stats ==========

// RequestStats counts requests for the metrics endpoint
type RequestStats struct {
	requests  atomic.Int64
	errors    atomic.Int64
	latencyNs atomic.Int64
}

func NewRequestStats() *RequestStats {
	return &RequestStats{}
}

// Middleware records every request's status and latency
func (s *RequestStats) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.requests.Add(1)
		s.latencyNs.Add(int64(time.Since(start)))
		if c.Writer.Status() >= 500 {
			s.errors.Add(1)
		}
	}
}

func (s *RequestStats) Requests() int64 {
	return s.requests.Load()
}

func (s *RequestStats) ErrorRate() float64 {
	n := s.requests.Load()
	if n == 0 {
		return 0
	}
	return float64(s.errors.Load()) / float64(n)
}

func (s *RequestStats) AvgLatencyMs() float64 {
	n := s.requests.Load()
	if n == 0 {
		return 0
	}
	return float64(s.latencyNs.Load()) / float64(n) / float64(time.Millisecond)
}

// ========== Log buffer ==========

// LogBuffer keeps the most recent log entries in a ring. Attach it to a
// logger with zap.Hooks(buf.Hook).
type LogBuffer struct {
	mu      sync.Mutex
	entries []system.LogEntry
	next    int
	full    bool
}

func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 500
	}
	return &LogBuffer{entries: make([]system.LogEntry, size)}
}

// Hook records one log entry
func (b *LogBuffer) Hook(e zapcore.Entry) error {
	service := e.LoggerName
	if service == "" {
		service = "mockbackend"
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = system.LogEntry{
		Timestamp: e.Time.UTC(),
		Level:     e.Level.String(),
		Service:   service,
		Message:   e.Message,
	}
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	return nil
}

// Query returns matching entries, newest first
func (b *LogBuffer) Query(f system.LogFilters) []system.LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.next
	if b.full {
		n = len(b.entries)
	}
	out := make([]system.LogEntry, 0, min(n, max(f.Limit, 0)))
	for i := 0; i < n; i++ {
		idx := (b.next - 1 - i + len(b.entries)) % len(b.entries)
		e := b.entries[idx]
		if f.Level != "" && e.Level != f.Level {
			continue
		}
		if f.Service != "" && !strings.EqualFold(e.Service, f.Service) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
