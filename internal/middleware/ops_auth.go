package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"akx-gateway/internal/config"
	"akx-gateway/internal/handlers"
)

// OpsAuthMiddleware guards the operator API with the JWT issued by the
// ops login endpoint.
type OpsAuthMiddleware struct {
	cfg    config.OpsConfig
	logger *logrus.Logger
}

// NewOpsAuthMiddleware creates the operator auth middleware.
func NewOpsAuthMiddleware(cfg config.OpsConfig, logger *logrus.Logger) *OpsAuthMiddleware {
	return &OpsAuthMiddleware{cfg: cfg, logger: logger}
}

// RequireOps validates the Bearer token on operator routes.
func (a *OpsAuthMiddleware) RequireOps() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			a.logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Warn("ops auth failed: missing bearer token")

			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authentication required",
				"message": "Authorization header must be in format: Bearer <token>",
				"code":    "MISSING_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims := &handlers.OpsClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			a.logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"error":  fmt.Sprint(err),
			}).Warn("ops auth failed: invalid token")

			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid or expired token",
				"message": "The operator token is invalid or expired",
				"code":    "INVALID_TOKEN",
			})
			c.Abort()
			return
		}

		c.Set("ops_username", claims.Username)
		c.Next()
	}
}
