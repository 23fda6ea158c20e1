package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexuscrm/forcemapper/internal/domain/security"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"go.uber.org/zap"
)

// Authenticator opens a remote session for a username and password
type Authenticator func(ctx context.Context, username, password string) (*security.SecurityContext, error)

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler handles login and logout
type AuthHandler struct {
	logger        *zap.Logger
	store         security.Store
	authenticator Authenticator
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(logger *zap.Logger, store security.Store, authenticator Authenticator) *AuthHandler {
	return &AuthHandler{logger: logger, store: store, authenticator: authenticator}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !BindJSON(c, h.logger, &req) {
		return
	}

	sc, err := h.authenticator(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn("🔐 Login failed", zap.String("user", req.Username), zap.Error(err))
		RespondAppError(c, h.logger, errors.NewValidationError("credentials", err.Error()))
		return
	}
	if err := h.store.Save(c.Writer, c.Request, sc); err != nil {
		RespondAppError(c, h.logger, errors.NewInternalError("failed to store session", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    gin.H{"userName": sc.UserName, "orgId": sc.OrgID},
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.store.Clear(c.Writer, c.Request); err != nil {
		RespondAppError(c, h.logger, errors.NewInternalError("failed to clear session", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
