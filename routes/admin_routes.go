package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/middleware"
	"github.com/mansamusa/marketplace_backend/models"
)

// RegisterAdminRoutes sets up the admin-only routes
func RegisterAdminRoutes(e *echo.Echo, auth echo.MiddlewareFunc, ctrl Controllers) {
	a := e.Group("/api/admin", auth, middleware.RequireUserType(models.UserTypeAdmin))

	a.POST("/users/:id/points", ctrl.Loyalty.AdjustPoints)

	// Business verification
	a.GET("/verifications", ctrl.Business.PendingVerifications)
	a.POST("/verifications/:id/decision", ctrl.Business.DecideVerification)

	// Sales agents
	a.GET("/agents", ctrl.Referral.Applications)
	a.POST("/agents/:id/approve", ctrl.Referral.Approve)
	a.POST("/agents/:id/reject", ctrl.Referral.Reject)
	a.POST("/agents/:id/payout", ctrl.Referral.ProcessPayout)

	a.POST("/challenges", ctrl.Challenge.Create)

	// Feature flags
	a.GET("/flags", ctrl.FeatureFlag.List)
	a.PUT("/flags", ctrl.FeatureFlag.Save)
	a.DELETE("/flags/:key", ctrl.FeatureFlag.Delete)
}
