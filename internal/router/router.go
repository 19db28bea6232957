package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"akx-gateway/internal/config"
	"akx-gateway/internal/handlers"
	"akx-gateway/internal/middleware"
)

// SetupRouter wires the gateway HTTP surface: merchant payment API,
// operator API and the health/metrics endpoints.
func SetupRouter(cfg config.Config, paymentHandler *handlers.PaymentHandler, opsHandler *handlers.OpsHandler, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	// ============ Health Check ============
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "akx-gateway",
		})
	})

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ Merchant Payment API ============
	payment := r.Group("/api/v1/payment")
	{
		payment.POST("/deposit/create", paymentHandler.CreateDeposit)
		payment.POST("/withdraw/create", paymentHandler.CreateWithdraw)
		payment.POST("/order/query", paymentHandler.QueryOrder)
	}

	// ============ Operator API ============
	opsAuth := middleware.NewOpsAuthMiddleware(cfg.Ops, logger)
	ops := r.Group("/api/v1/ops")
	{
		ops.POST("/login", opsHandler.Login)

		protected := ops.Group("")
		protected.Use(opsAuth.RequireOps())
		{
			protected.POST("/callbacks/:order_no/requeue", opsHandler.RequeueCallback)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Endpoint not found",
			"message": "Check documentation for available /api/v1 endpoints",
			"code":    "NOT_FOUND",
		})
	})

	return r
}
