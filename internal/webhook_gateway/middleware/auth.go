package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DonorIDKey is the key used to store the authenticated donor's external
	// id in the context
	DonorIDKey = "donor_id"

	// RoleKey is the key used to store the authenticated caller's role
	RoleKey = "role"

	// RoleAdmin marks operator tokens allowed to trigger reconciliation
	RoleAdmin = "admin"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// IdentityClaims are the claims issued by the platform's identity provider.
// Subject carries the donor's external id.
type IdentityClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Auth validates the bearer token on donor-facing endpoints and stores the
// caller's identity in the context
func Auth(logger *slog.Logger, secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := validateBearer(c, secret, issuer)
		if err != nil {
			logger.Warn("Rejected unauthenticated request",
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c)
			return
		}

		c.Set(DonorIDKey, claims.Subject)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireAdmin validates the bearer token and additionally requires the admin
// role. Used for the reconciliation trigger.
func RequireAdmin(logger *slog.Logger, secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := validateBearer(c, secret, issuer)
		if err != nil {
			logger.Warn("Rejected unauthenticated admin request",
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c)
			return
		}

		if claims.Role != RoleAdmin {
			logger.Warn("Rejected non-admin caller on admin endpoint",
				"path", c.Request.URL.Path,
				"subject", claims.Subject,
				"role", claims.Role,
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Admin role required",
				},
			})
			return
		}

		c.Set(DonorIDKey, claims.Subject)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// GetDonorID retrieves the authenticated donor's external id from the context
func GetDonorID(c *gin.Context) string {
	if id, exists := c.Get(DonorIDKey); exists {
		if donorID, ok := id.(string); ok {
			return donorID
		}
	}
	return ""
}

func validateBearer(c *gin.Context, secret, issuer string) (*IdentityClaims, error) {
	header := c.GetHeader("Authorization")
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return nil, errors.New("missing bearer token")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&IdentityClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": "Valid bearer token required",
		},
	})
}
