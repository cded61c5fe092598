// internal/domain/settings/entity.go
package settings

import "time"

// Settings is the platform-wide configuration editable from the console.
type Settings struct {
	BaseFare        float64   `json:"base_fare"`
	PerKmRate       float64   `json:"per_km_rate"`
	PerMinuteRate   float64   `json:"per_minute_rate"`
	SurgeMultiplier float64   `json:"surge_multiplier"`
	CommissionRate  float64   `json:"commission_rate"`
	CancellationFee float64   `json:"cancellation_fee"`
	SupportEmail    string    `json:"support_email"`
	SupportPhone    string    `json:"support_phone"`
	MaintenanceMode bool      `json:"maintenance_mode"`
	UpdatedAt       time.Time `json:"updated_at"`
	UpdatedBy       string    `json:"updated_by,omitempty"`
}

// UpdateSettingsRequest changes only the fields it carries
type UpdateSettingsRequest struct {
	BaseFare        *float64 `json:"base_fare,omitempty" binding:"omitempty,gte=0"`
	PerKmRate       *float64 `json:"per_km_rate,omitempty" binding:"omitempty,gte=0"`
	PerMinuteRate   *float64 `json:"per_minute_rate,omitempty" binding:"omitempty,gte=0"`
	SurgeMultiplier *float64 `json:"surge_multiplier,omitempty" binding:"omitempty,gte=1,lte=5"`
	CommissionRate  *float64 `json:"commission_rate,omitempty" binding:"omitempty,gte=0,lte=1"`
	CancellationFee *float64 `json:"cancellation_fee,omitempty" binding:"omitempty,gte=0"`
	SupportEmail    *string  `json:"support_email,omitempty" binding:"omitempty,email"`
	SupportPhone    *string  `json:"support_phone,omitempty" binding:"omitempty,e164"`
	MaintenanceMode *bool    `json:"maintenance_mode,omitempty"`
}

// Apply copies the set fields onto s.
func (r *UpdateSettingsRequest) Apply(s *Settings) {
	if r.BaseFare != nil {
		s.BaseFare = *r.BaseFare
	}
	if r.PerKmRate != nil {
		s.PerKmRate = *r.PerKmRate
	}
	if r.PerMinuteRate != nil {
		s.PerMinuteRate = *r.PerMinuteRate
	}
	if r.SurgeMultiplier != nil {
		s.SurgeMultiplier = *r.SurgeMultiplier
	}
	if r.CommissionRate != nil {
		s.CommissionRate = *r.CommissionRate
	}
	if r.CancellationFee != nil {
		s.CancellationFee = *r.CancellationFee
	}
	if r.SupportEmail != nil {
		s.SupportEmail = *r.SupportEmail
	}
	if r.SupportPhone != nil {
		s.SupportPhone = *r.SupportPhone
	}
	if r.MaintenanceMode != nil {
		s.MaintenanceMode = *r.MaintenanceMode
	}
}
