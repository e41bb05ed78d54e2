// controllers/common.go
package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/middleware"
	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

const requestTimeout = 15 * time.Second

// requestContext bounds a handler's work by the request and a timeout
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// currentActor reads the authenticated caller set by the JWT middleware
func currentActor(c echo.Context) (services.Actor, error) {
	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return services.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return services.Actor{ID: userID, UserType: middleware.ExtractUserType(c)}, nil
}

// bindAndValidate decodes the body into req and runs its validate tags
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Validation failed: "+err.Error())
	}
	return nil
}

// objectIDParam parses a path parameter as an ObjectID
func objectIDParam(c echo.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// pageParams reads ?page and ?limit; the service clamps them
func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return page, limit
}

func respondOK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

func respondCreated(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// HTTPErrorHandler renders errors that escape handlers and middleware in
// the standard response envelope
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		respondError(c, err)
		return
	}
	message := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok {
		message = m
	}
	if c.Request().Method == http.MethodHead {
		c.NoContent(he.Code)
		return
	}
	c.JSON(he.Code, models.Response{
		Status:  he.Code,
		Message: message,
	})
}

// respondError maps service errors to HTTP responses
func respondError(c echo.Context, err error) error {
	var cooldown *services.CooldownError
	if errors.As(err, &cooldown) {
		return c.JSON(http.StatusTooManyRequests, models.Response{
			Status:  http.StatusTooManyRequests,
			Message: services.ErrScanCooldown.Error(),
			Data:    map[string]interface{}{"nextEligibleAt": cooldown.NextEligibleAt},
		})
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, services.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found"
	case errors.Is(err, services.ErrForbidden):
		status, message = http.StatusForbidden, "You are not allowed to perform this action"
	case errors.Is(err, services.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrInvalidSignature):
		status, message = http.StatusBadRequest, "Invalid signature"
	case errors.Is(err, services.ErrNotConfigured):
		status, message = http.StatusServiceUnavailable, "This feature is not available"
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrAlreadyUsed),
		errors.Is(err, services.ErrAlreadyReviewed),
		errors.Is(err, services.ErrAlreadyReplied),
		errors.Is(err, services.ErrAlreadyJoined):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInsufficientPoints),
		errors.Is(err, services.ErrRewardUnavailable),
		errors.Is(err, services.ErrOutOfStock),
		errors.Is(err, services.ErrQRCodeInactive),
		errors.Is(err, services.ErrQRCodeExpired),
		errors.Is(err, services.ErrScanLimitReached),
		errors.Is(err, services.ErrBelowPayoutMinimum),
		errors.Is(err, services.ErrAgentNotActive),
		errors.Is(err, services.ErrChallengeClosed),
		errors.Is(err, services.ErrFeaturedOverflow):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrScanCooldown):
		status, message = http.StatusTooManyRequests, err.Error()
	default:
		log.Printf("Unhandled error on %s %s: %v", c.Request().Method, c.Path(), err)
	}

	return c.JSON(status, models.Response{
		Status:  status,
		Message: message,
	})
}
