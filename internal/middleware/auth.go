package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/pkg/logger"
	"github.com/pjecz/hercules/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing the *models.CurrentUser.
	ContextUserKey = "currentUser"
	// SessionCookie carries the session token for browser clients.
	SessionCookie = "session"
	// APIKeyHeader authenticates API key users.
	APIKeyHeader = "X-Api-Key"
)

// Authenticator resolves credentials into the current user.
type Authenticator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
	AuthenticateAPIKey(ctx context.Context, key string) (*models.Usuario, error)
	CurrentUser(ctx context.Context, usuarioID int64) (*models.CurrentUser, error)
}

// LoginRequired loads the current user from a bearer token, the session cookie
// or an API key. Any failure answers 403 with the same body as a permission denial.
func LoginRequired(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		usuarioID, ok := resolveUsuarioID(c, auth)
		if !ok {
			response.Forbidden(c)
			return
		}
		user, err := auth.CurrentUser(c.Request.Context(), usuarioID)
		if err != nil {
			response.Forbidden(c)
			return
		}
		c.Set(ContextUserKey, user)
		c.Set(logger.UsuarioIDKey, user.ID)
		c.Next()
	}
}

func resolveUsuarioID(c *gin.Context, auth Authenticator) (int64, bool) {
	if token := bearerToken(c); token != "" {
		return claimsID(auth, token)
	}
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return claimsID(auth, token)
	}
	if key := strings.TrimSpace(c.GetHeader(APIKeyHeader)); key != "" {
		u, err := auth.AuthenticateAPIKey(c.Request.Context(), key)
		if err != nil {
			return 0, false
		}
		return u.ID, true
	}
	return 0, false
}

func claimsID(auth Authenticator, token string) (int64, bool) {
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return 0, false
	}
	return claims.UsuarioID, true
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CurrentUser returns the user set by LoginRequired, nil outside protected routes.
func CurrentUser(c *gin.Context) *models.CurrentUser {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.CurrentUser)
	return user
}
