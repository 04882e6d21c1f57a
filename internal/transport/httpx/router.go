package httpx

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	JWTSecret string
}

// NewRouter builds the HTTP API. Checkout and the gateway confirmation
// endpoint are reachable without a token, order reads work for guests and
// owners, everything else is admin-only.
func NewRouter(cfg RouterConfig, orders *OrderHandler, payments *PaymentHandler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	pub := r.Group("/api/v1")
	pub.Use(AuthOptional(cfg.JWTSecret, log))
	{
		pub.POST("/orders", orders.Create)
		pub.GET("/orders/:id", orders.Get)
		pub.GET("/orders/number/:number", orders.GetByNumber)
		pub.GET("/orders/:id/payments", payments.ListByOrder)
		pub.POST("/payments/confirm", payments.Confirm)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthRequired(cfg.JWTSecret, log))
	{
		auth.GET("/orders", orders.List)
	}

	admin := r.Group("/api/v1/admin")
	admin.Use(AuthRequired(cfg.JWTSecret, log), RequireAdmin())
	{
		admin.PATCH("/orders/:id/status", orders.UpdateStatus)
		admin.POST("/orders/:id/recalculate", orders.Recalculate)
		admin.DELETE("/orders/:id", orders.Delete)

		admin.PATCH("/order-items/:id", orders.UpdateItem)
		admin.POST("/order-items/:id/refund", orders.RefundItem)
		admin.DELETE("/order-items/:id", orders.DeleteItem)

		admin.POST("/payments", payments.Create)
		admin.GET("/payments/:id", payments.Get)
		admin.POST("/payments/:id/charge", payments.Charge)
		admin.POST("/payments/:id/refund", payments.Refund)
		admin.POST("/payments/:id/retry", payments.Retry)
		admin.DELETE("/payments/:id", payments.Delete)
		admin.GET("/payments/due-retries", payments.DueRetries)
	}

	return r
}
