// internal/service/settings/settings.go
package settings

import (
	"context"

	"dispatch-console/internal/domain/settings"
	"dispatch-console/internal/pkg/validation"
	"dispatch-console/internal/service"

	"go.uber.org/zap"
)

const settingsPath = "/api/admin/settings"

type SettingsService struct {
	api    service.API
	logger *zap.Logger
}

func NewSettingsService(api service.API, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		api:    api,
		logger: logger,
	}
}

func (s *SettingsService) GetSettings(ctx context.Context) (*settings.Settings, error) {
	var out settings.Settings
	if err := s.api.Get(ctx, settingsPath, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSettings applies a partial update. Only super admins may call it.
func (s *SettingsService) UpdateSettings(ctx context.Context, req *settings.UpdateSettingsRequest) (*settings.Settings, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out settings.Settings
	if err := s.api.Put(ctx, settingsPath, req, &out); err != nil {
		return nil, err
	}
	s.logger.Info("settings updated", zap.String("by", out.UpdatedBy))
	return &out, nil
}
