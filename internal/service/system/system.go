// internal/service/system/system.go
package system

import (
	"context"

	"dispatch-console/internal/cache"
	"dispatch-console/internal/domain/system"
	"dispatch-console/internal/pkg/validation"
	"dispatch-console/internal/service"

	"go.uber.org/zap"
)

const (
	systemPath  = "/api/admin/system"
	healthPath  = systemPath + "/health"
	metricsPath = systemPath + "/metrics"
)

// SystemService reports backend health. Health and metrics are cached for
// the cache's TTL; logs are always fetched.
type SystemService struct {
	api    service.API
	cache  *cache.Cache
	logger *zap.Logger
}

func NewSystemService(api service.API, c *cache.Cache, logger *zap.Logger) *SystemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.New(cache.NewMemoryBackend(), 0, logger)
	}
	return &SystemService{
		api:    api,
		cache:  c,
		logger: logger,
	}
}

func (s *SystemService) GetHealth(ctx context.Context) (*system.Health, error) {
	out, err := cache.Remember(ctx, s.cache, healthPath, func(ctx context.Context) (system.Health, error) {
		var h system.Health
		err := s.api.Get(ctx, healthPath, nil, &h)
		return h, err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SystemService) GetMetrics(ctx context.Context) (*system.Metrics, error) {
	out, err := cache.Remember(ctx, s.cache, metricsPath, func(ctx context.Context) (system.Metrics, error) {
		var m system.Metrics
		err := s.api.Get(ctx, metricsPath, nil, &m)
		return m, err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLogs returns recent backend log entries, newest first
func (s *SystemService) GetLogs(ctx context.Context, filters system.LogFilters) ([]system.LogEntry, error) {
	if err := validation.Struct(filters); err != nil {
		return nil, err
	}

	var out system.LogsResponse
	if err := s.api.Get(ctx, systemPath+"/logs", filters.Query(), &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

// ClearCache forces the next health and metrics calls to hit the backend
func (s *SystemService) ClearCache(ctx context.Context) {
	s.cache.Invalidate(ctx, systemPath)
}
