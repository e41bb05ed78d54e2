package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/middleware"
	"github.com/mansamusa/marketplace_backend/models"
)

// RegisterUserRoutes sets up all user-related protected routes
func RegisterUserRoutes(e *echo.Echo, auth echo.MiddlewareFunc, ctrl Controllers) {
	r := e.Group("/api", auth)

	// Loyalty and karma
	r.GET("/loyalty/summary", ctrl.Loyalty.Summary)
	r.GET("/loyalty/transactions", ctrl.Loyalty.Transactions)
	r.GET("/karma", ctrl.Loyalty.Karma)

	// Rewards and redemptions
	manager := middleware.RequireUserType(models.UserTypeBusiness, models.UserTypeAdmin)
	r.POST("/rewards", ctrl.Loyalty.CreateReward, manager)
	r.PUT("/rewards/:id", ctrl.Loyalty.UpdateReward, manager)
	r.POST("/rewards/:id/redeem", ctrl.Loyalty.Redeem)
	r.GET("/redemptions", ctrl.Loyalty.Redemptions)
	r.POST("/redemptions/:code/use", ctrl.Loyalty.UseRedemption, manager)

	// Challenges
	r.GET("/challenges", ctrl.Challenge.Active)
	r.POST("/challenges/:id/join", ctrl.Challenge.Join)

	// Sponsors
	sponsor := middleware.RequireUserType(models.UserTypeSponsor)
	r.POST("/sponsors", ctrl.Sponsorship.Create, sponsor)
	r.GET("/sponsors/me", ctrl.Sponsorship.Mine, sponsor)
	r.PUT("/sponsors/me/featured", ctrl.Sponsorship.SetFeatured, sponsor)

	// Flags, speech and account
	r.GET("/flags", ctrl.FeatureFlag.Evaluate)
	r.POST("/tts", ctrl.TTS.Speak)
	r.DELETE("/account", ctrl.Account.DeleteAccount)
}
