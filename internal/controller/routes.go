package controller

import (
	"net/http"

	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/middleware"
	"storefront-checkout/internal/service"

	"github.com/gin-gonic/gin"
)

type RouterParams struct {
	Log      *logger.Logger
	Auth     *service.AuthService
	Checkout *CheckoutController
	Webhook  *WebhookController
	Orders   *OrderController
	// Opcionales
	WebSocket gin.HandlerFunc
	Metrics   http.Handler
}

func NewRouter(p RouterParams) *gin.Engine {
	if p.Log == nil {
		p.Log = logger.Nop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(p.Log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if p.Metrics != nil {
		r.GET("/metrics", gin.WrapH(p.Metrics))
	}
	if p.WebSocket != nil {
		r.GET("/ws", p.WebSocket)
	}

	// Rutas públicas
	r.POST("/checkout/prepare", middleware.OptionalAuth(p.Auth), p.Checkout.Prepare)
	r.POST("/webhooks/stripe", p.Webhook.Stripe)

	// Rutas protegidas (requieren token)
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(p.Auth))

	auth.GET("/orders/session/:sessionId", p.Orders.GetBySession)
	auth.GET("/orders/mine", p.Orders.GetMyOrders)
	auth.GET("/orders/all", middleware.AdminOnly(), p.Orders.GetAllOrders)
	auth.GET("/orders/:orderId", p.Orders.GetByID)

	// Rutas admin
	admin := auth.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/orders/status/:status", p.Orders.GetAllOrdersByStatus)

	return r
}
