// internal/console/console.go
package console

import (
	"context"
	"fmt"
	"strings"

	"dispatch-console/internal/apiclient"
	"dispatch-console/internal/cache"
	"dispatch-console/internal/config"
	"dispatch-console/internal/db"
	"dispatch-console/internal/identity"
	"dispatch-console/internal/pkg/session"
	"dispatch-console/internal/pkg/validation"
	"dispatch-console/internal/realtime"
	analyticsUsecase "dispatch-console/internal/service/analytics"
	authUsecase "dispatch-console/internal/service/auth"
	bookingUsecase "dispatch-console/internal/service/booking"
	customerUsecase "dispatch-console/internal/service/customer"
	driverUsecase "dispatch-console/internal/service/driver"
	emergencyUsecase "dispatch-console/internal/service/emergency"
	settingsUsecase "dispatch-console/internal/service/settings"
	supportUsecase "dispatch-console/internal/service/support"
	systemUsecase "dispatch-console/internal/service/system"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Console is the assembled admin client: token store, identity, REST and
// realtime clients, and the domain services on top of them.
type Console struct {
	Store    *session.Store
	Identity *identity.Client
	API      *apiclient.Client
	// Realtime is nil when no socket URL is configured.
	Realtime *realtime.Client

	Auth      *authUsecase.AuthService
	Drivers   *driverUsecase.DriverService
	Customers *customerUsecase.CustomerService
	Bookings  *bookingUsecase.BookingService
	Alerts    *emergencyUsecase.EmergencyService
	Support   *supportUsecase.SupportService
	Analytics *analyticsUsecase.AnalyticsService
	Settings  *settingsUsecase.SettingsService
	System    *systemUsecase.SystemService

	cfg         config.AppConfig
	responses   *cache.Cache
	redis       *redis.Client
	unsubscribe func()
	logger      *zap.Logger
}

// New builds a console from cfg. Configuration warnings are logged; a
// missing backend URL is fatal.
func New(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Console, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		logger.Warn(w)
	}
	if err != nil {
		return nil, err
	}

	c := &Console{cfg: cfg, logger: logger}

	// ----- Redis -----
	if cfg.StoreBackend == "redis" || cfg.CacheBackend == "redis" {
		c.redis, err = db.NewRedisClient(ctx, db.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	// ----- Token Store -----
	c.Store, err = c.newStore()
	if err != nil {
		c.Close()
		return nil, err
	}

	// ----- Identity -----
	c.Identity = identity.NewClient(identity.Config{
		APIKey:       cfg.Identity.APIKey,
		ProjectID:    cfg.Identity.ProjectID,
		APIBase:      cfg.Identity.APIBase,
		TokenBase:    cfg.Identity.TokenBase,
		VerifyTokens: cfg.Identity.VerifyTokens,
	}, c.Store, logger.Named("identity"))

	// ----- API & Realtime -----
	c.API = apiclient.NewClient(apiclient.Config{
		BaseURL:      cfg.APIBaseURL,
		ExchangePath: cfg.ExchangePath,
		Timeout:      cfg.RequestTimeout,
		RefreshEvery: cfg.RefreshEvery,
	}, c.Store, c.Identity, logger.Named("api"),
		apiclient.WithUploadTypes(validation.DocumentTypes...),
		apiclient.OnSessionExpired(c.sessionEnded),
	)
	if cfg.SocketURL != "" {
		c.Realtime = realtime.NewClient(realtime.Config{URL: cfg.SocketURL}, c.Store, logger.Named("realtime"))
	}
	c.unsubscribe = c.Identity.OnAuthStateChanged(c.syncProfile)

	// ----- Services -----
	c.responses = cache.New(c.newCacheBackend(), cfg.CacheTTL, logger.Named("cache"),
		cache.WithScope(c.currentUserID))

	c.Auth = authUsecase.NewAuthService(c.Identity, c.API, c.Store, logger)
	c.Drivers = driverUsecase.NewDriverService(c.API, c.responses, logger)
	c.Customers = customerUsecase.NewCustomerService(c.API, logger)
	c.Bookings = bookingUsecase.NewBookingService(c.API, logger)
	c.Alerts = emergencyUsecase.NewEmergencyService(c.API, logger)
	c.Support = supportUsecase.NewSupportService(c.API, logger)
	c.Analytics = analyticsUsecase.NewAnalyticsService(c.API)
	c.Settings = settingsUsecase.NewSettingsService(c.API, logger)
	c.System = systemUsecase.NewSystemService(c.API, c.responses, logger)

	return c, nil
}

// Login signs in and, when realtime is configured, connects it. A realtime
// failure does not fail the login; the client keeps retrying on its own.
func (c *Console) Login(ctx context.Context, email, password string) (*session.UserProfile, error) {
	user, err := c.Auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.connectRealtime(ctx)
	return user, nil
}

// Logout ends the session everywhere and drops cached responses
func (c *Console) Logout(ctx context.Context) {
	c.disconnectRealtime()
	c.responses.Purge(ctx)
	c.Auth.Logout(ctx)
}

// Start resumes a stored session: realtime connects and the session is kept
// warm until ctx ends.
func (c *Console) Start(ctx context.Context) {
	if !c.Store.IsAuthenticated() {
		return
	}
	c.connectRealtime(ctx)
	c.API.StartAutoRefresh(ctx)
}

// Close releases connections held by the console
func (c *Console) Close() error {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.disconnectRealtime()
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

// --- Helper functions ---

func (c *Console) newStore() (*session.Store, error) {
	var cipher session.Cipher
	var err error
	if c.cfg.StorePassphrase != "" {
		cipher, err = session.NewPassphraseCipher(c.cfg.StorePassphrase, 0)
	} else {
		cipher, err = session.NewFingerprintCipher(session.HostFingerprint())
	}
	if err != nil {
		return nil, fmt.Errorf("token store cipher: %w", err)
	}

	var backend session.Backend
	switch c.cfg.StoreBackend {
	case "redis":
		backend = session.NewRedisBackend(c.redis, "console", 0)
	case "memory":
		backend = session.NewMemoryBackend()
	default:
		fb, err := session.NewFileBackend(c.cfg.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("token store: %w", err)
		}
		backend = fb
	}
	return session.NewStore(backend, cipher, session.WithLogger(c.logger.Named("store"))), nil
}

func (c *Console) newCacheBackend() cache.Backend {
	if c.cfg.CacheBackend == "redis" && c.redis != nil {
		return cache.NewRedisBackend(c.redis, "console:cache")
	}
	return cache.NewMemoryBackend()
}

// syncProfile keeps the stored profile in step with the identity session
func (c *Console) syncProfile(user *identity.User) {
	if user == nil {
		// notifications are async; a later sign-in may already be current
		if c.Identity.CurrentUser() != nil {
			return
		}
		c.Store.ClearTokenData()
		c.disconnectRealtime()
		return
	}
	cur := c.Store.GetCurrentUser()
	if cur == nil || !strings.EqualFold(cur.Email, user.Email) || user.DisplayName == "" || cur.DisplayName == user.DisplayName {
		return
	}
	cur.DisplayName = user.DisplayName
	if err := c.Store.UpdateUser(cur); err != nil {
		c.logger.Warn("failed to update stored profile", zap.Error(err))
	}
}

func (c *Console) currentUserID() string {
	if u := c.Store.GetCurrentUser(); u != nil && c.Store.IsAuthenticated() {
		return u.ID
	}
	return ""
}

// sessionEnded runs when the API client gives up on the session
func (c *Console) sessionEnded() {
	c.disconnectRealtime()
	c.responses.Purge(context.Background())
}

func (c *Console) connectRealtime(ctx context.Context) {
	if c.Realtime == nil {
		return
	}
	if err := c.Realtime.Connect(ctx); err != nil {
		c.logger.Warn("realtime connect failed", zap.Error(err))
	}
}

func (c *Console) disconnectRealtime() {
	if c.Realtime != nil {
		c.Realtime.Disconnect()
	}
}
