package routes

import (
	"github.com/labstack/echo/v4"
)

// RegisterSubscriptionRoutes sets up checkout, billing portal and the
// payment provider webhooks
func RegisterSubscriptionRoutes(e *echo.Echo, auth echo.MiddlewareFunc, ctrl Controllers) {
	e.GET("/api/subscriptions/plans", ctrl.Subscription.Plans)

	s := e.Group("/api/subscriptions", auth)
	s.POST("/checkout", ctrl.Subscription.Checkout)
	s.POST("/portal", ctrl.Subscription.Portal)
	s.GET("/me", ctrl.Subscription.Mine)

	// signatures are verified by the handlers
	e.POST("/webhooks/stripe", ctrl.Subscription.StripeWebhook)
	e.POST("/webhooks/apple", ctrl.Subscription.AppleWebhook)
}
