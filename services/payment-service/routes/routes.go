package routes

import (
	"github.com/gin-gonic/gin"
	commonmw "github.com/yashrajoria/tailoring-backend/services/common/middleware"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/controllers"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/middleware"
)

type Controllers struct {
	Webhook     *controllers.WebhookController
	Checkout    *controllers.CheckoutController
	Measurement *controllers.MeasurementController
	Order       *controllers.OrderController
}

// RegisterRoutes wires the public API. The Stripe webhook authenticates by
// signature, everything else by the gateway's X-User-ID header.
func RegisterRoutes(r *gin.Engine, c Controllers, readLimiter *commonmw.RateLimiter) {
	// Stripe webhook (no auth)
	r.POST("/stripe/webhook", c.Webhook.StripeWebhook)

	api := r.Group("/")
	api.Use(middleware.AuthMiddleware())

	api.POST("/checkout/sessions", c.Checkout.CreateSession)

	api.POST("/measurements/sessions", c.Measurement.CreateSession)
	api.PUT("/measurements/sessions/:id", c.Measurement.SubmitManual)

	reads := api.Group("/")
	if readLimiter != nil {
		reads.Use(commonmw.RateLimit(readLimiter))
	}
	reads.GET("/measurements/sessions/:id", c.Measurement.GetSession)
	reads.GET("/orders", c.Order.ListOrders)
	reads.GET("/orders/:id", c.Order.GetOrder)
	reads.GET("/vendors/:vendorId/orders", c.Order.ListVendorOrders)
}
