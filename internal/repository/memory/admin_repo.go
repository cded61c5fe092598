// internal/repository/memory/admin_repo.go
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dispatch-console/internal/domain/admin"
	"dispatch-console/internal/domain/auth"
	xerrors "dispatch-console/internal/pkg/errors"
)

// adminRecord keeps the password hash, which admin.Admin hides from JSON.
type adminRecord struct {
	Admin        admin.Admin `json:"admin"`
	PasswordHash string      `json:"password_hash"`
}

type AdminRepository struct {
	db *DB
}

func NewAdminRepository(db *DB) *AdminRepository {
	return &AdminRepository{db: db}
}

var _ admin.Repository = (*AdminRepository)(nil)

// Create stores a new admin, assigning a UID when missing
func (r *AdminRepository) Create(ctx context.Context, a *admin.Admin) error {
	if _, err := r.FindByEmail(ctx, a.Email); err == nil {
		return fmt.Errorf("admin %s: %w", a.Email, xerrors.ErrConflict)
	}
	now := r.db.Now()
	if a.UID == "" {
		a.UID = newID()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.CreatedAt = now
	a.UpdatedAt = now
	return r.db.admins.insert(a.UID, &adminRecord{Admin: *a, PasswordHash: a.PasswordHash})
}

// Update replaces the stored admin
func (r *AdminRepository) Update(ctx context.Context, a *admin.Admin) error {
	_, err := r.db.admins.update(a.UID, func(rec *adminRecord) error {
		a.UpdatedAt = r.db.Now()
		rec.Admin = *a
		if a.PasswordHash != "" {
			rec.PasswordHash = a.PasswordHash
		}
		return nil
	})
	return err
}

// FindByEmail retrieves an admin by email, case-insensitively
func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	rows := r.db.admins.list(func(rec *adminRecord) bool {
		return rec.Admin.Email == email
	})
	if len(rows) == 0 {
		return nil, xerrors.ErrNotFound
	}
	return rows[0].restore(), nil
}

// FindByUID retrieves an admin by UID
func (r *AdminRepository) FindByUID(ctx context.Context, uid string) (*admin.Admin, error) {
	rec, err := r.db.admins.get(uid)
	if err != nil {
		return nil, err
	}
	return rec.restore(), nil
}

// UpdateLastLogin stamps a successful sign-in
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, uid string, at time.Time) error {
	_, err := r.db.admins.update(uid, func(rec *adminRecord) error {
		at := at.UTC()
		rec.Admin.LastLogin = &at
		return nil
	})
	return err
}

func (rec adminRecord) restore() *admin.Admin {
	a := rec.Admin
	a.PasswordHash = rec.PasswordHash
	return &a
}

// ========== Refresh grants ==========

type grantRecord struct {
	Grant auth.RefreshGrant `json:"grant"`
	Token string            `json:"token"`
}

type GrantRepository struct {
	db *DB
}

func NewGrantRepository(db *DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Create stores a refresh grant keyed by its token
func (r *GrantRepository) Create(ctx context.Context, g *auth.RefreshGrant) error {
	return r.db.grants.insert(g.Token, &grantRecord{Grant: *g, Token: g.Token})
}

// Consume removes and returns a grant. A grant can be consumed once.
func (r *GrantRepository) Consume(ctx context.Context, token string) (*auth.RefreshGrant, error) {
	rec, err := r.db.grants.get(token)
	if err != nil {
		return nil, err
	}
	if err := r.db.grants.delete(token); err != nil {
		return nil, err
	}
	g := rec.Grant
	g.Token = rec.Token
	if !g.ExpiresAt.IsZero() && r.db.Now().After(g.ExpiresAt) {
		return nil, fmt.Errorf("refresh grant expired: %w", xerrors.ErrNotFound)
	}
	return &g, nil
}

// RevokeAll deletes every grant issued to uid
func (r *GrantRepository) RevokeAll(ctx context.Context, uid string) int {
	rows := r.db.grants.list(func(rec *grantRecord) bool { return rec.Grant.UID == uid })
	for _, rec := range rows {
		_ = r.db.grants.delete(rec.Token)
	}
	return len(rows)
}

// ========== Password resets ==========

type resetRecord struct {
	Reset auth.PasswordReset `json:"reset"`
	Code  string             `json:"code"`
}

type ResetRepository struct {
	db *DB
}

func NewResetRepository(db *DB) *ResetRepository {
	return &ResetRepository{db: db}
}

// Create records a reset request, replacing any earlier one for the email
func (r *ResetRepository) Create(ctx context.Context, p *auth.PasswordReset) error {
	email := strings.ToLower(p.Email)
	_ = r.db.resets.delete(email)
	return r.db.resets.insert(email, &resetRecord{Reset: *p, Code: p.Code})
}

// FindByEmail retrieves the pending reset for an email
func (r *ResetRepository) FindByEmail(ctx context.Context, email string) (*auth.PasswordReset, error) {
	rec, err := r.db.resets.get(strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	p := rec.Reset
	p.Code = rec.Code
	return &p, nil
}
