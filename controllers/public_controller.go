// controllers/public_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// PublicController serves the unauthenticated utility endpoints
type PublicController struct {
	sitemap *services.SitemapService
	db      Pinger
}

func NewPublicController(sitemap *services.SitemapService, db Pinger) *PublicController {
	return &PublicController{sitemap: sitemap, db: db}
}

func (pc *PublicController) Root(c echo.Context) error {
	return respondOK(c, "Mansa Musa Marketplace API", nil)
}

// Health checks the database connection
func (pc *PublicController) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	data := map[string]string{"time": time.Now().UTC().Format(time.RFC3339)}
	if err := pc.db.Ping(ctx); err != nil {
		data["database"] = "unreachable"
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "unhealthy",
			Data:    data,
		})
	}
	data["database"] = "ok"
	return respondOK(c, "healthy", data)
}

func (pc *PublicController) Sitemap(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	body, err := pc.sitemap.Render(ctx)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=3600")
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, body)
}
