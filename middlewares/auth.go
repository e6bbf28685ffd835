package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/andrei-assa/fda-gpt/logger"
)

// UserIDKey is the gin context key holding the authenticated user's id.
const UserIDKey = "user_id"

var ErrInvalidToken = errors.New("invalid token")

type AuthMiddleware struct {
	secret []byte
	log    *logger.Logger
}

func NewAuthMiddleware(secret string, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), log: log.With("middleware", "AuthMiddleware")}
}

// RequireAuth rejects requests without a valid HS256 bearer token with a
// plain-text 401. On success the user id is stored under UserIDKey.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := am.ParseToken(extractToken(c))
		if err != nil {
			am.log.Debug("Rejected request", "path", c.Request.URL.Path, "error", err)
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.String(http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// ParseToken validates tokenString and returns its user id, taken from the
// "sub" claim or, failing that, "user_id".
func (am *AuthMiddleware) ParseToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("%w: missing", ErrInvalidToken)
	}
	if len(am.secret) == 0 {
		return "", fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	for _, key := range []string{"sub", "user_id"} {
		if id, ok := claims[key].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no user id claim", ErrInvalidToken)
}

// UserID returns the id RequireAuth stored, or "".
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return c.Query("token")
}
