package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/fishin/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	SessionEmail(token string) (string, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
}

func NewAuthMiddleware(tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// TokenFromHeader returns the last whitespace-separated segment of an
// Authorization header value, so any scheme ("Bearer", "Token", none) works.
func TokenFromHeader(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) == 0 {
		return "", false
	}
	return parts[len(parts)-1], true
}

// TokenErrorCode maps a decode failure to the error code sent to clients.
func TokenErrorCode(err error) string {
	if errors.Is(err, auth.ErrExpired) {
		return "token_expired"
	}
	return "invalid_token"
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := TokenFromHeader(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing Authorization header",
				},
			})
			return
		}

		email, err := m.tokens.SessionEmail(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    TokenErrorCode(err),
					"message": "Invalid or expired token",
				},
			})
			return
		}

		c.Set(CtxEmail, email)

		c.Next()
	}
}

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxEmail)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok && email != ""
}
