// internal/handlers/identity/identity.go
package identity

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dispatch-console/internal/domain/admin"
	"dispatch-console/internal/domain/auth"
	xerrors "dispatch-console/internal/pkg/errors"
	"dispatch-console/internal/pkg/jwt"
	"dispatch-console/internal/repository/memory"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	// IDTokenTTL matches the hosted provider's one-hour identity tokens.
	IDTokenTTL      = time.Hour
	refreshGrantTTL = 30 * 24 * time.Hour
	minPasswordLen  = 6
)

// IssuerFor is the identity token issuer for a project
func IssuerFor(projectID string) string {
	return "https://securetoken.google.com/" + projectID
}

// IdentityHandler emulates the identity provider's REST API closely enough
// for the console's identity client to run against it unchanged.
type IdentityHandler struct {
	admins *memory.AdminRepository
	grants *memory.GrantRepository
	resets *memory.ResetRepository
	tokens *jwt.Generator
	ids    *jwt.Verifier
	apiKey string
	now    func() time.Time
	logger *zap.Logger
}

func NewIdentityHandler(
	db *memory.DB,
	tokens *jwt.Generator,
	ids *jwt.Verifier,
	apiKey string,
	logger *zap.Logger,
) *IdentityHandler {
	return &IdentityHandler{
		admins: memory.NewAdminRepository(db),
		grants: memory.NewGrantRepository(db),
		resets: memory.NewResetRepository(db),
		tokens: tokens,
		ids:    ids,
		apiKey: apiKey,
		now:    db.Now,
		logger: logger,
	}
}

// Handle dispatches on the action path segment. Provider method names
// contain a colon, which gin cannot route as a literal.
func (h *IdentityHandler) Handle(c *gin.Context) {
	if h.apiKey != "" && c.Query("key") != h.apiKey {
		providerError(c, http.StatusBadRequest, "API_KEY_INVALID")
		return
	}

	switch strings.TrimPrefix(c.Param("action"), "/") {
	case "accounts:signInWithPassword":
		h.signIn(c)
	case "accounts:signUp":
		h.signUp(c)
	case "accounts:update":
		h.update(c)
	case "accounts:sendOobCode":
		h.sendOOBCode(c)
	case "token":
		h.refresh(c)
	default:
		providerError(c, http.StatusNotFound, "UNKNOWN_METHOD")
	}
}

// ========== Accounts ==========

func (h *IdentityHandler) signIn(c *gin.Context) {
	var req auth.PasswordSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		providerError(c, http.StatusBadRequest, "INVALID_EMAIL")
		return
	}

	ctx := c.Request.Context()
	a, err := h.admins.FindByEmail(ctx, req.Email)
	if err != nil || !memory.CheckPassword(a.PasswordHash, req.Password) {
		h.logger.Warn("identity sign in rejected", zap.String("email", req.Email))
		providerError(c, http.StatusBadRequest, "INVALID_LOGIN_CREDENTIALS")
		return
	}
	if a.Disabled {
		providerError(c, http.StatusBadRequest, "USER_DISABLED")
		return
	}

	resp, err := h.issue(ctx, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *IdentityHandler) signUp(c *gin.Context) {
	var req auth.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		providerError(c, http.StatusBadRequest, "MISSING_PASSWORD")
		return
	}
	if len(req.Password) < minPasswordLen {
		providerError(c, http.StatusBadRequest, "WEAK_PASSWORD : Password should be at least 6 characters")
		return
	}

	ctx := c.Request.Context()
	hash, err := memory.HashPassword(req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	a := &admin.Admin{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         admin.RoleSupport,
		Permissions:  append([]string(nil), admin.DefaultPermissions...),
	}
	if err := h.admins.Create(ctx, a); err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			providerError(c, http.StatusBadRequest, "EMAIL_EXISTS")
			return
		}
		h.fail(c, err)
		return
	}
	h.logger.Info("identity account created", zap.String("uid", a.UID), zap.String("email", a.Email))

	resp, err := h.issue(ctx, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *IdentityHandler) update(c *gin.Context) {
	var req auth.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		providerError(c, http.StatusBadRequest, "INVALID_ID_TOKEN")
		return
	}

	ctx := c.Request.Context()
	claims, err := h.ids.Verify(req.IDToken)
	if err != nil {
		providerError(c, http.StatusBadRequest, "INVALID_ID_TOKEN")
		return
	}
	a, err := h.admins.FindByUID(ctx, claims.Subject)
	if err != nil {
		providerError(c, http.StatusBadRequest, "USER_NOT_FOUND")
		return
	}

	a.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := h.admins.Update(ctx, a); err != nil {
		h.fail(c, err)
		return
	}

	resp := auth.AccountResponse{LocalID: a.UID, Email: a.Email, DisplayName: a.DisplayName}
	if req.ReturnSecureToken {
		issued, err := h.issue(ctx, a)
		if err != nil {
			h.fail(c, err)
			return
		}
		resp = *issued
	}
	c.JSON(http.StatusOK, resp)
}

func (h *IdentityHandler) sendOOBCode(c *gin.Context) {
	var req auth.OOBCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RequestType != "PASSWORD_RESET" {
		providerError(c, http.StatusBadRequest, "INVALID_REQ_TYPE")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.admins.FindByEmail(ctx, req.Email); err != nil {
		providerError(c, http.StatusBadRequest, "EMAIL_NOT_FOUND")
		return
	}
	reset := &auth.PasswordReset{
		Email:       req.Email,
		Code:        ulid.Make().String(),
		RequestedAt: h.now(),
	}
	if err := h.resets.Create(ctx, reset); err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("password reset requested", zap.String("email", req.Email))
	c.JSON(http.StatusOK, gin.H{"email": req.Email})
}

// ========== Secure token ==========

// refresh serves the refresh_token grant. Grants rotate on every use.
func (h *IdentityHandler) refresh(c *gin.Context) {
	if c.PostForm("grant_type") != "refresh_token" {
		providerError(c, http.StatusBadRequest, "INVALID_GRANT_TYPE")
		return
	}

	ctx := c.Request.Context()
	grant, err := h.grants.Consume(ctx, c.PostForm("refresh_token"))
	if err != nil {
		providerError(c, http.StatusBadRequest, "INVALID_REFRESH_TOKEN")
		return
	}
	a, err := h.admins.FindByUID(ctx, grant.UID)
	if err != nil {
		providerError(c, http.StatusBadRequest, "USER_NOT_FOUND")
		return
	}
	if a.Disabled {
		providerError(c, http.StatusBadRequest, "USER_DISABLED")
		return
	}

	issued, err := h.issue(ctx, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, auth.TokenResponse{
		AccessToken:  issued.IDToken,
		IDToken:      issued.IDToken,
		RefreshToken: issued.RefreshToken,
		ExpiresIn:    issued.ExpiresIn,
		TokenType:    "Bearer",
		UserID:       a.UID,
	})
}

// --- Helper functions ---

// issue mints an identity token and a fresh refresh grant
func (h *IdentityHandler) issue(ctx context.Context, a *admin.Admin) (*auth.AccountResponse, error) {
	idToken, _, _, err := h.tokens.Generate(jwt.Subject{
		ID:          a.UID,
		Email:       a.Email,
		Name:        a.DisplayName,
		Role:        a.Role,
		Permissions: a.Permissions,
		UserType:    "admin",
	})
	if err != nil {
		return nil, err
	}

	now := h.now()
	grant := &auth.RefreshGrant{
		Token:     ulid.Make().String(),
		UID:       a.UID,
		IssuedAt:  now,
		ExpiresAt: now.Add(refreshGrantTTL),
	}
	if err := h.grants.Create(ctx, grant); err != nil {
		return nil, err
	}

	return &auth.AccountResponse{
		LocalID:      a.UID,
		Email:        a.Email,
		DisplayName:  a.DisplayName,
		IDToken:      idToken,
		RefreshToken: grant.Token,
		ExpiresIn:    strconv.Itoa(int(h.tokens.Ttl.Seconds())),
	}, nil
}

func (h *IdentityHandler) fail(c *gin.Context, err error) {
	h.logger.Error("identity emulator failure", zap.Error(err))
	providerError(c, http.StatusInternalServerError, "INTERNAL_ERROR")
}

func providerError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, auth.ProviderError{
		Error: auth.ProviderErrorBody{Code: status, Message: message},
	})
}
