package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/aryanpatel/gameden-booking/internal/config"
	"github.com/aryanpatel/gameden-booking/internal/handler"
	"github.com/aryanpatel/gameden-booking/internal/middleware"
)

// RegisterRoutes wires every endpoint of the payment pipeline onto the
// provided Echo instance.  The JSON POST endpoints share a Redis token
// bucket keyed by client IP and route; the webhook and callback are left
// unlimited because their traffic originates from the gateway, which reacts
// badly to 429s (retry storms on the webhook, broken redirects on the
// callback).
func RegisterRoutes(e *echo.Echo, p *handler.PaymentHandler, w *handler.WebhookHandler, cb *handler.CallbackHandler, rdb *redis.Client) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	// Client-facing payment endpoints.  Any of these may be retried by the
	// booking page; idempotency is handled below the handler layer.
	e.POST("/create-order", p.CreateOrder, limiter)
	e.POST("/verify-payment", p.VerifyPayment, limiter)
	e.POST("/create-booking-from-payment", p.CreateBookingFromPayment, limiter)

	// Gateway-facing endpoints.
	e.POST("/webhook", w.HandleWebhook)
	e.GET("/callback", cb.HandleCallback)
	e.POST("/callback", cb.HandleCallback)
}
