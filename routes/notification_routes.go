package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/controllers"
)

// RegisterNotificationRoutes sets up the in-app notification routes
func RegisterNotificationRoutes(e *echo.Echo, auth echo.MiddlewareFunc, nc *controllers.NotificationController) {
	n := e.Group("/api/notifications", auth)
	n.GET("", nc.GetNotifications)
	n.POST("/:id/read", nc.MarkRead)
}
