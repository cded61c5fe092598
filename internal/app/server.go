// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dispatch-console/internal/config"
	"dispatch-console/internal/domain/admin"
	analyticsHandler "dispatch-console/internal/handlers/analytics"
	authHandler "dispatch-console/internal/handlers/auth"
	bookingHandler "dispatch-console/internal/handlers/booking"
	customerHandler "dispatch-console/internal/handlers/customer"
	driverHandler "dispatch-console/internal/handlers/driver"
	emergencyHandler "dispatch-console/internal/handlers/emergency"
	identityHandler "dispatch-console/internal/handlers/identity"
	settingsHandler "dispatch-console/internal/handlers/settings"
	supportHandler "dispatch-console/internal/handlers/support"
	systemHandler "dispatch-console/internal/handlers/system"
	wsHandler "dispatch-console/internal/handlers/websocket"
	"dispatch-console/internal/middleware"
	"dispatch-console/internal/pkg/jwt"
	"dispatch-console/internal/repository/memory"
	"dispatch-console/internal/websocket"
	wsHandlers "dispatch-console/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// SessionIssuer and SessionAudience identify mock session tokens.
	SessionIssuer   = "dispatch-mock"
	SessionAudience = "dispatch-console"
	SessionTTL      = time.Hour

	defaultProjectID = "dispatch-mock"
	shutdownTimeout  = 5 * time.Second
)

// Server is the mock admin backend: identity emulator, REST API and
// realtime hub over an in-memory store.
type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	hub    *websocket.Hub
	db     *memory.DB
	logger *zap.Logger
}

// Options tweak a server for tests
type Options struct {
	Now  func() time.Time
	Logs *systemHandler.LogBuffer
}

func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger, opts Options) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Logs == nil {
		opts.Logs = systemHandler.NewLogBuffer(0)
	}
	projectID := cfg.Identity.ProjectID
	if projectID == "" {
		projectID = defaultProjectID
	}
	if cfg.MockJWTSecret == "" {
		return nil, fmt.Errorf("mock JWT secret is required")
	}

	// ----- Store -----
	store := memory.NewDB(opts.Now)
	if cfg.MockSeed {
		if _, err := memory.SeedAdmin(ctx, store, admin.CreateAdminRequest{
			Email:       cfg.MockAdminEmail,
			Password:    cfg.MockAdminPassword,
			DisplayName: "Super Administrator",
		}); err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		if err := memory.SeedFixtures(ctx, store); err != nil {
			return nil, fmt.Errorf("seed fixtures: %w", err)
		}
		logger.Info("seeded mock data", zap.String("admin", cfg.MockAdminEmail))
	}

	// ----- Tokens -----
	secret := []byte(cfg.MockJWTSecret)
	idSecret := []byte(cfg.MockJWTSecret + ":identity")
	issuer := identityHandler.IssuerFor(projectID)

	sessions := jwt.NewGenerator(secret, SessionIssuer, SessionAudience, SessionTTL)
	sessionVerifier := jwt.NewVerifier(secret, SessionIssuer, SessionAudience)
	idTokens := jwt.NewGenerator(idSecret, issuer, projectID, identityHandler.IDTokenTTL)
	idVerifier := jwt.NewVerifier(idSecret, issuer, projectID)
	if opts.Now != nil {
		sessions = sessions.WithNow(opts.Now)
		sessionVerifier = sessionVerifier.WithNow(opts.Now)
		idTokens = idTokens.WithNow(opts.Now)
		idVerifier = idVerifier.WithNow(opts.Now)
	}

	// ----- Repositories -----
	admins := memory.NewAdminRepository(store)
	drivers := memory.NewDriverRepository(store)
	customers := memory.NewCustomerRepository(store)
	bookings := memory.NewBookingRepository(store)
	alerts := memory.NewEmergencyRepository(store)
	tickets := memory.NewSupportRepository(store)
	platform := memory.NewSettingsRepository(store)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(sessionVerifier, logger.Named("hub"))
	hub.RegisterHandler(wsHandlers.NewBroadcastHandler(hub))
	hub.RegisterHandler(wsHandlers.NewSupportHandler(hub, tickets))

	// ----- Handlers -----
	stats := systemHandler.NewRequestStats()
	handlers := &Handlers{
		IdentityHandler:  identityHandler.NewIdentityHandler(store, idTokens, idVerifier, cfg.Identity.APIKey, logger.Named("identity")),
		AuthHandler:      authHandler.NewAuthHandler(admins, idVerifier, sessions, logger),
		DriverHandler:    driverHandler.NewDriverHandler(drivers, hub, logger),
		CustomerHandler:  customerHandler.NewCustomerHandler(customers, bookings, logger),
		BookingHandler:   bookingHandler.NewBookingHandler(bookings, drivers, hub, logger),
		EmergencyHandler: emergencyHandler.NewEmergencyHandler(alerts, hub, logger),
		SupportHandler:   supportHandler.NewSupportHandler(tickets, hub, logger),
		AnalyticsHandler: analyticsHandler.NewAnalyticsHandler(store),
		SettingsHandler:  settingsHandler.NewSettingsHandler(platform, hub, logger),
		SystemHandler:    systemHandler.NewSystemHandler(hub, opts.Logs, stats, opts.Now),
		WSHandler:        wsHandler.NewWebSocketHandler(hub, logger.Named("ws")),
		AuthMiddleware:   middleware.NewAuthMiddleware(sessionVerifier),
	}

	// ----- Router -----
	engine := gin.New()
	engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger.Named("http")),
		middleware.CORSMiddleware(),
		stats.Middleware(),
	)
	SetupRouter(engine, logger, handlers)

	return &Server{
		cfg:    cfg,
		engine: engine,
		hub:    hub,
		db:     store,
		logger: logger,
	}, nil
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the realtime hub
func (s *Server) Hub() *websocket.Hub {
	return s.hub
}

// DB returns the backing store
func (s *Server) DB() *memory.DB {
	return s.db
}

// Start runs the hub and serves HTTP until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              s.cfg.MockAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock backend listening", zap.String("addr", s.cfg.MockAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.cfg.MockAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down mock backend")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// closing the hub first sends going-away frames to realtime clients
	stopHub()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
