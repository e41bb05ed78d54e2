package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/controllers"
	"github.com/mansamusa/marketplace_backend/middleware"
	"github.com/mansamusa/marketplace_backend/models"
)

// RegisterSalesRoutes sets up the sales agent routes
func RegisterSalesRoutes(e *echo.Echo, auth echo.MiddlewareFunc, rc *controllers.ReferralController) {
	a := e.Group("/api/agents", auth)
	a.POST("/apply", rc.Apply)

	agent := middleware.RequireUserType(models.UserTypeAgent)
	a.GET("/me/dashboard", rc.Dashboard, agent)
	a.PUT("/me/connect-account", rc.SetConnectAccount, agent)
}
