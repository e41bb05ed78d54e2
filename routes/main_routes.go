package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/controllers"
	"github.com/mansamusa/marketplace_backend/middleware"
)

// Controllers groups every HTTP handler set
type Controllers struct {
	Auth         *controllers.AuthController
	Business     *controllers.BusinessController
	QR           *controllers.QRController
	Loyalty      *controllers.LoyaltyController
	Referral     *controllers.ReferralController
	Subscription *controllers.SubscriptionController
	Sponsorship  *controllers.SponsorshipController
	Review       *controllers.ReviewController
	Challenge    *controllers.ChallengeController
	FeatureFlag  *controllers.FeatureFlagController
	Account      *controllers.AccountController
	Notification *controllers.NotificationController
	TTS          *controllers.TTSController
	Public       *controllers.PublicController
	WebSocket    echo.HandlerFunc
}

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, jwt *middleware.JWTManager, ctrl Controllers) {
	auth := jwt.Middleware()

	RegisterPublicRoutes(e, ctrl)
	RegisterAuthRoutes(e, auth, ctrl.Auth)
	RegisterBusinessRoutes(e, auth, ctrl)
	RegisterUserRoutes(e, auth, ctrl)
	RegisterNotificationRoutes(e, auth, ctrl.Notification)
	RegisterSalesRoutes(e, auth, ctrl.Referral)
	RegisterSubscriptionRoutes(e, auth, ctrl)
	RegisterAdminRoutes(e, auth, ctrl)
}

// RegisterPublicRoutes sets up unauthenticated endpoints
func RegisterPublicRoutes(e *echo.Echo, ctrl Controllers) {
	e.GET("/", ctrl.Public.Root)
	e.GET("/health", ctrl.Public.Health)
	e.GET("/sitemap.xml", ctrl.Public.Sitemap)
	RegisterFileRoutes(e)

	// token is checked by the handler, from the query or an AUTH message
	e.GET("/ws", ctrl.WebSocket)

	e.GET("/api/sponsors", ctrl.Sponsorship.ListActive)
	e.GET("/api/sponsors/tiers", ctrl.Sponsorship.Tiers)
	e.GET("/api/rewards", ctrl.Loyalty.ListRewards)
}
