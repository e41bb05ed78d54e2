package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/middleware"
	"github.com/mansamusa/marketplace_backend/models"
)

// RegisterBusinessRoutes sets up the directory, business management, QR
// code and review routes
func RegisterBusinessRoutes(e *echo.Echo, auth echo.MiddlewareFunc, ctrl Controllers) {
	owner := middleware.RequireUserType(models.UserTypeBusiness, models.UserTypeAdmin)

	// Public directory
	e.GET("/api/businesses", ctrl.Business.List)
	e.GET("/api/businesses/:id", ctrl.Business.Get)
	e.GET("/api/businesses/:id/reviews", ctrl.Review.GetReviewsByBusiness)

	// the group shares its prefix with the public directory, so auth is
	// attached per route
	b := e.Group("/api/businesses")
	b.GET("/mine", ctrl.Business.Mine, auth, owner)
	b.POST("", ctrl.Business.Create, auth, owner)
	b.PUT("/:id", ctrl.Business.Update, auth, owner)
	b.POST("/:id/logo", ctrl.Business.UploadLogo, auth, owner)
	b.POST("/:id/verification", ctrl.Business.SubmitVerification, auth, owner)
	b.POST("/:id/qr", ctrl.QR.Create, auth, owner)
	b.GET("/:id/qr", ctrl.QR.List, auth, owner)
	b.POST("/:id/reviews", ctrl.Review.CreateReview, auth)

	q := e.Group("/api/qr", auth)
	q.POST("/scan", ctrl.QR.Scan, middleware.RequireUserType(models.UserTypeCustomer))
	q.GET("/:id/image", ctrl.QR.Image, owner)
	q.DELETE("/:id", ctrl.QR.Deactivate, owner)

	e.POST("/api/reviews/:id/reply", ctrl.Review.PostReviewReply, auth, owner)
}
