// internal/service/analytics/analytics.go
package analytics

import (
	"context"

	"dispatch-console/internal/domain/analytics"
	"dispatch-console/internal/pkg/validation"
	"dispatch-console/internal/service"
)

const analyticsPath = "/api/admin/analytics"

type AnalyticsService struct {
	api service.API
}

func NewAnalyticsService(api service.API) *AnalyticsService {
	return &AnalyticsService{api: api}
}

func (s *AnalyticsService) GetDashboard(ctx context.Context) (*analytics.Dashboard, error) {
	var out analytics.Dashboard
	if err := s.api.Get(ctx, analyticsPath+"/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AnalyticsService) GetRevenue(ctx context.Context, rng analytics.Range) (*analytics.RevenueReport, error) {
	var out analytics.RevenueReport
	if err := s.report(ctx, "/revenue", rng, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AnalyticsService) GetBookingTrends(ctx context.Context, rng analytics.Range) (*analytics.BookingTrends, error) {
	var out analytics.BookingTrends
	if err := s.report(ctx, "/bookings", rng, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AnalyticsService) GetDriverPerformance(ctx context.Context, rng analytics.Range) (*analytics.DriverPerformanceReport, error) {
	var out analytics.DriverPerformanceReport
	if err := s.report(ctx, "/drivers", rng, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AnalyticsService) report(ctx context.Context, path string, rng analytics.Range, out any) error {
	if err := validation.Struct(rng); err != nil {
		return err
	}
	return s.api.Get(ctx, analyticsPath+path, rng.Query(), out)
}
