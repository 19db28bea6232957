package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"akx-gateway/internal/config"
	"akx-gateway/internal/services"
)

// OpsHandler exposes the operator surface: login and out-of-band
// callback requeue. Requeue is the only reconciliation path for orders
// whose automatic delivery budget is exhausted.
type OpsHandler struct {
	cfg        config.OpsConfig
	dispatcher *services.CallbackDispatcher
	logger     *logrus.Logger
}

// NewOpsHandler creates the operator API handler.
func NewOpsHandler(cfg config.OpsConfig, dispatcher *services.CallbackDispatcher, logger *logrus.Logger) *OpsHandler {
	return &OpsHandler{cfg: cfg, dispatcher: dispatcher, logger: logger}
}

// OpsClaims are the JWT claims of an operator session.
type OpsClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type opsLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code"`
}

// Login handles POST /api/v1/ops/login: bcrypt password check plus a
// TOTP second factor when configured, then issues a short-lived JWT.
func (h *OpsHandler) Login(c *gin.Context) {
	var req opsLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", err.Error())
		return
	}

	if h.cfg.Username == "" || h.cfg.PasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Ops access not configured",
			"message": "Operator credentials are not configured on this instance",
			"code":    "OPS_NOT_CONFIGURED",
		})
		return
	}

	if req.Username != h.cfg.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.cfg.PasswordHash), []byte(req.Password)) != nil {
		h.logger.WithField("username", req.Username).Warn("ops login rejected: bad credentials")
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid credentials",
			"message": "Username or password incorrect",
			"code":    "INVALID_CREDENTIALS",
		})
		return
	}

	if h.cfg.TOTPSecret != "" {
		if !totp.Validate(req.TOTPCode, h.cfg.TOTPSecret) {
			h.logger.WithField("username", req.Username).Warn("ops login rejected: bad TOTP code")
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid TOTP code",
				"message": "The one-time code is missing or incorrect",
				"code":    "INVALID_TOTP",
			})
			return
		}
	}

	ttl := time.Duration(h.cfg.TokenTTLMinutes) * time.Minute
	claims := OpsClaims{
		Username: req.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Issuer:    "akx-gateway",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		h.logger.Errorf("failed to sign ops token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal error",
			"message": "Failed to issue token",
			"code":    services.CodeInternalError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token":      token,
			"expires_in": int(ttl.Seconds()),
		},
	})
}

// RequeueCallback handles POST /api/v1/ops/callbacks/:order_no/requeue.
// Only callbacks in the failed state can be re-armed.
func (h *OpsHandler) RequeueCallback(c *gin.Context) {
	orderNo := c.Param("order_no")

	err := h.dispatcher.Requeue(c.Request.Context(), orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "No requeueable callback",
				"message": "Order not found or its callback is not in the failed state",
				"code":    "CALLBACK_NOT_REQUEUEABLE",
			})
			return
		}
		h.logger.WithField("order_no", orderNo).Errorf("callback requeue failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal error",
			"message": "Failed to requeue callback",
			"code":    services.CodeInternalError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order_no": orderNo,
			"status":   "requeued",
		},
	})
}
