package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/controllers"
)

// RegisterAuthRoutes sets up signup, login and session routes
func RegisterAuthRoutes(e *echo.Echo, auth echo.MiddlewareFunc, ac *controllers.AuthController) {
	a := e.Group("/api/auth")
	a.POST("/signup", ac.Signup)
	a.POST("/login", ac.Login)

	a.GET("/me", ac.Me, auth)
	a.POST("/logout", ac.Logout, auth)
	a.PUT("/fcm-token", ac.SetFCMToken, auth)
}
