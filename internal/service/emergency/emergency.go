// internal/service/emergency/emergency.go
package emergency

import (
	"context"

	"dispatch-console/internal/domain/emergency"
	"dispatch-console/internal/pkg/validation"
	"dispatch-console/internal/service"

	"go.uber.org/zap"
)

const emergenciesPath = "/api/admin/emergencies"

type EmergencyService struct {
	api    service.API
	logger *zap.Logger
}

func NewEmergencyService(api service.API, logger *zap.Logger) *EmergencyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmergencyService{
		api:    api,
		logger: logger,
	}
}

func (s *EmergencyService) ListEmergencies(ctx context.Context, filters emergency.ListFilters) (*emergency.ListResponse, error) {
	if err := validation.Struct(filters); err != nil {
		return nil, err
	}

	var out emergency.ListResponse
	if err := s.api.Get(ctx, emergenciesPath, filters.Query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetActive returns every unresolved alert
func (s *EmergencyService) GetActive(ctx context.Context) ([]emergency.Alert, error) {
	var out emergency.ListResponse
	if err := s.api.Get(ctx, emergenciesPath+"/active", nil, &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

func (s *EmergencyService) GetEmergency(ctx context.Context, id string) (*emergency.Alert, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}

	var out emergency.Alert
	if err := s.api.Get(ctx, emergenciesPath+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *EmergencyService) Acknowledge(ctx context.Context, id, notes string) (*emergency.Alert, error) {
	return s.act(ctx, id, "/acknowledge", emergency.AcknowledgeRequest{Notes: notes})
}

func (s *EmergencyService) Resolve(ctx context.Context, id, resolution string) (*emergency.Alert, error) {
	return s.act(ctx, id, "/resolve", emergency.ResolveRequest{Resolution: resolution})
}

// Escalate hands an alert to police, ambulance, fire or a supervisor
func (s *EmergencyService) Escalate(ctx context.Context, id string, req emergency.EscalateRequest) (*emergency.Alert, error) {
	return s.act(ctx, id, "/escalate", req)
}

// --- Helper functions ---

func (s *EmergencyService) act(ctx context.Context, id, action string, req any) (*emergency.Alert, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out emergency.Alert
	if err := s.api.Post(ctx, emergenciesPath+"/"+id+action, req, &out); err != nil {
		return nil, err
	}
	s.logger.Info("emergency updated", zap.String("alert_id", id), zap.String("action", action))
	return &out, nil
}
