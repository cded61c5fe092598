// internal/domain/admin/repository.go
package admin

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a *Admin) error
	Update(ctx context.Context, a *Admin) error
	// Authentication
	FindByEmail(ctx context.Context, email string) (*Admin, error)
	FindByUID(ctx context.Context, uid string) (*Admin, error)
	UpdateLastLogin(ctx context.Context, uid string, at time.Time) error
}
