package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	xerrors "dispatch-console/internal/pkg/errors"

	"go.uber.org/zap"
)

// Storage keys. The legacy keys held plaintext values in older console
// builds and are only ever deleted.
const (
	KeySession  = "admin_session"
	KeyUser     = "admin_user"
	KeyIdentity = "admin_identity"
)

var legacyKeys = []string{"authToken", "adminToken", "user", "tokenExpiry", "refreshToken"}

const backendTimeout = 5 * time.Second

// Store is the encrypted token store. It owns the Session: token metadata
// and the user profile are sealed separately, and an in-memory copy keeps
// GetToken off the backend. Failures are logged, never returned, except for
// a caller handing in a session that breaks the token+user invariant.
type Store struct {
	backend Backend
	cipher  Cipher
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	current *Session
	loaded  bool
}

type Option func(*Store)

// WithNowFunc overrides the clock used for expiry checks.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(backend Backend, cipher Cipher, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		cipher:  cipher,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTokenData persists a session. Token and user are both required.
func (s *Store) SetTokenData(sess *Session) error {
	if sess == nil || sess.Token == "" || sess.User == nil {
		s.logger.Error("refusing to store incomplete session")
		return xerrors.ErrInvalidSession
	}

	stored := sess.clone()
	stored.ExpiresAt = stored.ExpiresAt.UTC()
	if stored.ExpiresAt.IsZero() {
		stored.ExpiresAt = s.now().Add(DefaultTTL).UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = stored
	s.loaded = true
	s.persistLocked(stored)
	return nil
}

// GetTokenData returns the current session, or nil when there is none, it
// cannot be decrypted, or it has expired.
func (s *Store) GetTokenData() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.currentLocked()
	if sess == nil {
		return nil
	}
	return sess.clone()
}

// GetToken returns the bearer token or "".
func (s *Store) GetToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.currentLocked(); sess != nil {
		return sess.Token
	}
	return ""
}

// GetCurrentUser returns the signed-in profile or nil.
func (s *Store) GetCurrentUser() *UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.currentLocked(); sess != nil {
		return sess.User.clone()
	}
	return nil
}

// IsAuthenticated reports whether an unexpired session exists.
func (s *Store) IsAuthenticated() bool {
	return s.GetToken() != ""
}

// UpdateToken swaps the token of the existing session. A nil expiry gives
// the new token DefaultTTL.
func (s *Store) UpdateToken(token string, expiry *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.currentLocked()
	if sess == nil || token == "" {
		s.logger.Warn("token update without a session, ignoring")
		return xerrors.ErrInvalidSession
	}

	sess.Token = token
	if expiry != nil {
		sess.ExpiresAt = expiry.UTC()
	} else {
		sess.ExpiresAt = s.now().Add(DefaultTTL).UTC()
	}
	s.persistLocked(sess)
	return nil
}

// UpdateUser replaces the profile of the existing session.
func (s *Store) UpdateUser(user *UserProfile) error {
	if user == nil {
		return xerrors.ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.currentLocked()
	if sess == nil {
		return xerrors.ErrInvalidSession
	}
	sess.User = user.clone()
	s.persistLocked(sess)
	return nil
}

// ClearTokenData removes the session, the profile and any legacy keys.
func (s *Store) ClearTokenData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Reload drops the in-memory copy so the next read goes to the backend.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.loaded = false
}

// ---------- identity credential ----------

func (s *Store) SaveIdentity(cred *IdentityCredential) {
	if cred == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	if err := s.writeSealed(ctx, KeyIdentity, cred); err != nil {
		s.logger.Error("failed to store identity credential", zap.Error(err))
		return
	}
	s.logger.Debug("identity credential stored", zap.String("uid", cred.UID))
}

func (s *Store) LoadIdentity() *IdentityCredential {
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	var cred IdentityCredential
	found, err := s.readSealed(ctx, KeyIdentity, &cred)
	if err != nil {
		s.logger.Warn("discarding unreadable identity credential", zap.Error(err))
		s.deleteKeys(ctx, KeyIdentity)
		return nil
	}
	if !found || cred.RefreshToken == "" {
		return nil
	}
	return &cred
}

func (s *Store) ClearIdentity() {
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	s.deleteKeys(ctx, KeyIdentity)
}

// ---------- internals (s.mu held) ----------

func (s *Store) currentLocked() *Session {
	if !s.loaded {
		s.current = s.loadLocked()
		s.loaded = true
	}
	if s.current == nil {
		return nil
	}
	if !s.now().Before(s.current.ExpiresAt) {
		s.logger.Info("stored session expired, clearing",
			zap.Time("expires_at", s.current.ExpiresAt),
		)
		s.clearLocked()
		return nil
	}
	return s.current
}

func (s *Store) loadLocked() *Session {
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	var meta tokenMeta
	metaFound, metaErr := s.readSealed(ctx, KeySession, &meta)
	var user UserProfile
	userFound, userErr := s.readSealed(ctx, KeyUser, &user)

	if !metaFound && !userFound && metaErr == nil && userErr == nil {
		return nil
	}
	if err := errors.Join(metaErr, userErr); err != nil || !metaFound || !userFound || meta.Token == "" {
		s.logger.Warn("stored session unreadable or incomplete, clearing", zap.Error(err))
		s.deleteKeys(ctx, s.sessionKeys()...)
		return nil
	}

	return &Session{
		Token:     meta.Token,
		ExpiresAt: meta.ExpiresAt.UTC(),
		User:      user.clone(),
	}
}

func (s *Store) persistLocked(sess *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	meta := tokenMeta{Token: sess.Token, ExpiresAt: sess.ExpiresAt, StoredAt: s.now().UTC()}
	if err := s.writeSealed(ctx, KeySession, meta); err != nil {
		s.logger.Error("failed to store session token", zap.Error(err))
		return
	}
	if err := s.writeSealed(ctx, KeyUser, sess.User); err != nil {
		s.logger.Error("failed to store user profile", zap.Error(err))
		return
	}
	s.logger.Info("session stored",
		zap.String("user_id", sess.User.ID),
		zap.Time("expires_at", sess.ExpiresAt),
	)
}

func (s *Store) clearLocked() {
	s.current = nil
	s.loaded = true

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	s.deleteKeys(ctx, s.sessionKeys()...)
	s.logger.Info("session cleared")
}

func (s *Store) sessionKeys() []string {
	return append([]string{KeySession, KeyUser}, legacyKeys...)
}

func (s *Store) deleteKeys(ctx context.Context, keys ...string) {
	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.logger.Error("failed to delete stored keys", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *Store) writeSealed(ctx context.Context, key string, v any) error {
	plain, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	sealed, err := s.cipher.Seal(plain)
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	encoded := base64.StdEncoding.EncodeToString(sealed)
	return s.backend.Set(ctx, key, []byte(encoded))
}

// readSealed reports found=false with a nil error when the key is absent.
func (s *Store) readSealed(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	sealed, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", xerrors.ErrDecrypt, key, err)
	}
	plain, err := s.cipher.Open(sealed)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", xerrors.ErrDecrypt, key, err)
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", xerrors.ErrDecrypt, key, err)
	}
	return true, nil
}
