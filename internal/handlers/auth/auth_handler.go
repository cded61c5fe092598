// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"dispatch-console/internal/domain/auth"
	"dispatch-console/internal/middleware"
	"dispatch-console/internal/pkg/jwt"
	"dispatch-console/internal/pkg/response"
	"dispatch-console/internal/repository/memory"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	admins   *memory.AdminRepository
	ids      *jwt.Verifier
	sessions *jwt.Generator
	logger   *zap.Logger
}

func NewAuthHandler(admins *memory.AdminRepository, ids *jwt.Verifier, sessions *jwt.Generator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		admins:   admins,
		ids:      ids,
		sessions: sessions,
		logger:   logger,
	}
}

// ========== Session exchange ==========

// VerifyToken exchanges an identity token for a backend session token
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req auth.VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	claims, err := h.ids.Verify(req.IDToken)
	if err != nil {
		h.logger.Warn("identity token rejected", zap.String("ip", c.ClientIP()), zap.Error(err))
		response.Error(c, http.StatusUnauthorized, "INVALID_ID_TOKEN", "invalid or expired identity token")
		return
	}

	ctx := c.Request.Context()
	a, err := h.admins.FindByUID(ctx, claims.Subject)
	if err != nil {
		response.Forbidden(c, "account is not a console administrator")
		return
	}
	if a.Disabled {
		response.Forbidden(c, "account disabled")
		return
	}

	token, jti, expiresAt, err := h.sessions.Generate(jwt.Subject{
		ID:          a.UID,
		Email:       a.Email,
		Name:        a.DisplayName,
		Role:        a.Role,
		Permissions: a.Permissions,
		UserType:    "admin",
	})
	if err != nil {
		h.logger.Error("failed to sign session token", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create session")
		return
	}

	now := expiresAt.Add(-h.sessions.Ttl)
	if err := h.admins.UpdateLastLogin(ctx, a.UID, now); err != nil {
		h.logger.Warn("failed to record last login", zap.String("uid", a.UID), zap.Error(err))
	} else {
		a.LastLogin = &now
	}

	h.logger.Info("session issued",
		zap.String("uid", a.UID),
		zap.String("jti", jti),
		zap.Time("expires_at", expiresAt),
	)

	response.Success(c, http.StatusOK, "Token verified", auth.SessionResponse{
		Token:     token,
		ExpiresIn: int64(h.sessions.Ttl.Seconds()),
		ExpiresAt: &expiresAt,
		User:      a.Profile(),
	})
}

// Me returns the authenticated administrator's profile
func (h *AuthHandler) Me(c *gin.Context) {
	a, err := h.admins.FindByUID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Profile retrieved", a.Profile())
}
