// internal/repository/memory/settings_repo.go
package memory

import (
	"context"

	"dispatch-console/internal/domain/settings"
)

// DefaultSettings is the platform configuration a fresh backend starts with
func DefaultSettings() settings.Settings {
	return settings.Settings{
		BaseFare:        150,
		PerKmRate:       45,
		PerMinuteRate:   5,
		SurgeMultiplier: 1,
		CommissionRate:  0.2,
		CancellationFee: 100,
		SupportEmail:    "support@example.com",
		SupportPhone:    "+254700000000",
	}
}

type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the current settings
func (r *SettingsRepository) Get(ctx context.Context) *settings.Settings {
	r.db.settingsMu.RLock()
	defer r.db.settingsMu.RUnlock()
	s := r.db.settings
	return &s
}

// Update applies a partial update on behalf of adminID
func (r *SettingsRepository) Update(ctx context.Context, req *settings.UpdateSettingsRequest, adminID string) *settings.Settings {
	r.db.settingsMu.Lock()
	defer r.db.settingsMu.Unlock()
	req.Apply(&r.db.settings)
	r.db.settings.UpdatedAt = r.db.Now()
	r.db.settings.UpdatedBy = adminID
	s := r.db.settings
	return &s
}
