// internal/app/router.go
package app

import (
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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	IdentityHandler  *identityHandler.IdentityHandler
	AuthHandler      *authHandler.AuthHandler
	DriverHandler    *driverHandler.DriverHandler
	CustomerHandler  *customerHandler.CustomerHandler
	BookingHandler   *bookingHandler.BookingHandler
	EmergencyHandler *emergencyHandler.EmergencyHandler
	SupportHandler   *supportHandler.SupportHandler
	AnalyticsHandler *analyticsHandler.AnalyticsHandler
	SettingsHandler  *settingsHandler.SettingsHandler
	SystemHandler    *systemHandler.SystemHandler
	WSHandler        *wsHandler.WebSocketHandler
	AuthMiddleware   *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	// ==================== Health Check ====================
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": systemHandler.Version})
	})

	// ==================== Identity Emulator ====================
	r.POST("/identity/v1/*action", h.IdentityHandler.Handle)

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	api := r.Group("/api")

	// ==================== Session Exchange ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/verify-token", h.AuthHandler.VerifyToken)
	}

	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.GET("/me", h.AuthHandler.Me)
	}

	// ==================== ADMIN ROUTES ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.Auth())

	// Drivers
	drivers := admin.Group("/drivers")
	drivers.Use(h.AuthMiddleware.RequirePermission("drivers:read"))
	{
		writeDrivers := h.AuthMiddleware.RequirePermission("drivers:write")

		drivers.GET("", h.DriverHandler.ListDrivers)
		drivers.GET("/locations", h.DriverHandler.GetLocations)
		drivers.GET("/:id", h.DriverHandler.GetDriver)
		drivers.PUT("/:id", writeDrivers, h.DriverHandler.UpdateDriver)
		drivers.DELETE("/:id", writeDrivers, h.DriverHandler.DeleteDriver)

		// Status management
		drivers.POST("/:id/verify", writeDrivers, h.DriverHandler.VerifyDriver)
		drivers.POST("/:id/suspend", writeDrivers, h.DriverHandler.SuspendDriver)
		drivers.POST("/:id/activate", writeDrivers, h.DriverHandler.ActivateDriver)

		// Documents
		drivers.POST("/:id/documents", writeDrivers, h.DriverHandler.UploadDocument)
	}

	// Customers
	customers := admin.Group("/customers")
	customers.Use(h.AuthMiddleware.RequirePermission("customers:read"))
	{
		writeCustomers := h.AuthMiddleware.RequirePermission("customers:write")

		customers.GET("", h.CustomerHandler.ListCustomers)
		customers.GET("/stats", h.CustomerHandler.GetCustomerStats)
		customers.GET("/:id", h.CustomerHandler.GetCustomer)
		customers.GET("/:id/bookings", h.CustomerHandler.GetCustomerBookings)
		customers.PUT("/:id", writeCustomers, h.CustomerHandler.UpdateCustomer)
		customers.DELETE("/:id", writeCustomers, h.CustomerHandler.DeleteCustomer)

		// Status management
		customers.POST("/:id/block", writeCustomers, h.CustomerHandler.BlockCustomer)
		customers.POST("/:id/unblock", writeCustomers, h.CustomerHandler.UnblockCustomer)
	}

	// Bookings
	bookings := admin.Group("/bookings")
	bookings.Use(h.AuthMiddleware.RequirePermission("bookings:read"))
	{
		writeBookings := h.AuthMiddleware.RequirePermission("bookings:write")

		bookings.GET("", h.BookingHandler.ListBookings)
		bookings.GET("/stats", h.BookingHandler.GetStats)
		bookings.GET("/:id", h.BookingHandler.GetBooking)
		bookings.PATCH("/:id/status", writeBookings, h.BookingHandler.UpdateStatus)
		bookings.POST("/:id/cancel", writeBookings, h.BookingHandler.CancelBooking)
		bookings.POST("/:id/assign", writeBookings, h.BookingHandler.AssignDriver)
	}

	// Emergencies
	emergencies := admin.Group("/emergencies")
	emergencies.Use(h.AuthMiddleware.RequirePermission("emergencies:read"))
	{
		writeEmergencies := h.AuthMiddleware.RequirePermission("emergencies:write")

		emergencies.GET("", h.EmergencyHandler.ListEmergencies)
		emergencies.GET("/active", h.EmergencyHandler.GetActive)
		emergencies.GET("/:id", h.EmergencyHandler.GetEmergency)
		emergencies.POST("/:id/acknowledge", writeEmergencies, h.EmergencyHandler.Acknowledge)
		emergencies.POST("/:id/resolve", writeEmergencies, h.EmergencyHandler.Resolve)
		emergencies.POST("/:id/escalate", writeEmergencies, h.EmergencyHandler.Escalate)
	}

	// Support
	tickets := admin.Group("/support/tickets")
	tickets.Use(h.AuthMiddleware.RequirePermission("support:read"))
	{
		writeSupport := h.AuthMiddleware.RequirePermission("support:write")

		tickets.GET("", h.SupportHandler.ListTickets)
		tickets.GET("/:id", h.SupportHandler.GetTicket)
		tickets.POST("/:id/reply", writeSupport, h.SupportHandler.Reply)
		tickets.PATCH("/:id/status", writeSupport, h.SupportHandler.UpdateStatus)
		tickets.POST("/:id/assign", writeSupport, h.SupportHandler.AssignTicket)
	}

	// Analytics
	analytics := admin.Group("/analytics")
	analytics.Use(h.AuthMiddleware.RequirePermission("analytics:read"))
	{
		analytics.GET("/dashboard", h.AnalyticsHandler.GetDashboard)
		analytics.GET("/revenue", h.AnalyticsHandler.GetRevenue)
		analytics.GET("/bookings", h.AnalyticsHandler.GetBookingTrends)
		analytics.GET("/drivers", h.AnalyticsHandler.GetDriverPerformance)
	}

	// Settings: anyone may read, super admins write
	admin.GET("/settings", h.SettingsHandler.GetSettings)
	admin.PUT("/settings", h.AuthMiddleware.RequireRole("super_admin"), h.SettingsHandler.UpdateSettings)

	// System
	sys := admin.Group("/system")
	{
		sys.GET("/health", h.SystemHandler.GetHealth)
		sys.GET("/metrics", h.SystemHandler.GetMetrics)
		sys.GET("/logs", h.SystemHandler.GetLogs)
		sys.GET("/ws-stats", h.WSHandler.GetStats)
		sys.POST("/users/:id/disconnect", h.AuthMiddleware.RequireRole("super_admin"), h.WSHandler.DisconnectUser)
	}

	logger.Debug("routes registered", zap.Int("count", len(r.Routes())))
}
