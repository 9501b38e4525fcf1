// Package middleware provides the Gin middleware stack for the scan API:
// JWT verification, request logging, and panic recovery.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stackhaven/marketscan/internal/config"
)

// Authentication errors
var (
	ErrAuthHeaderMissing = errors.New("authorization header is required")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrTokenVerification = errors.New("failed to verify token")
	ErrInsufficientRole  = errors.New("insufficient role permissions")
)

// Claims are the token claims the scan API cares about. Tokens are issued by
// the marketplace identity service; this service only verifies them.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies bearer tokens issued by the marketplace identity
// service.
type AuthMiddleware struct {
	secret   []byte
	issuer   string
	audience string
}

// NewAuthMiddleware creates an AuthMiddleware from the auth configuration.
func NewAuthMiddleware(cfg config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// RequireAuthentication rejects requests without a valid bearer token.
func (m *AuthMiddleware) RequireAuthentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.verify(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		c.Set("subject", claims.Subject)
		c.Set("roles", claims.Roles)
		c.Next()
	}
}

// RequireRole ensures the verified token carries at least one of the given
// roles. Must run after RequireAuthentication.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("roles")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		tokenRoles, ok := value.([]string)
		if ok {
			for _, have := range tokenRoles {
				for _, want := range roles {
					if have == want {
						c.Next()
						return
					}
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": fmt.Sprintf("access denied: requires one of these roles: %s", strings.Join(roles, ", ")),
		})
	}
}

func (m *AuthMiddleware) verify(c *gin.Context) (*Claims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, ErrAuthHeaderMissing
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, ErrInvalidAuthHeader
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		options = append(options, jwt.WithAudience(m.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenVerification, err)
	}
	if !token.Valid {
		return nil, ErrTokenVerification
	}

	return claims, nil
}

// Subject extracts the verified token subject from the request context.
func Subject(c *gin.Context) (string, error) {
	value, exists := c.Get("subject")
	if !exists {
		return "", errors.New("subject not found in context")
	}
	subject, ok := value.(string)
	if !ok {
		return "", errors.New("subject in context has invalid type")
	}
	return subject, nil
}
