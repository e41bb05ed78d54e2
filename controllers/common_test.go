package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.Response {
	t.Helper()
	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load user: %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrInvalidSignature, http.StatusBadRequest},
		{services.ErrNotConfigured, http.StatusServiceUnavailable},
		{services.ErrConflict, http.StatusConflict},
		{services.ErrAlreadyReviewed, http.StatusConflict},
		{services.ErrAlreadyJoined, http.StatusConflict},
		{services.ErrInsufficientPoints, http.StatusBadRequest},
		{services.ErrFeaturedOverflow, http.StatusBadRequest},
		{services.ErrBelowPayoutMinimum, http.StatusBadRequest},
		{services.ErrScanCooldown, http.StatusTooManyRequests},
		{errors.New("mongo exploded"), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, respondError(c, tc.err))
			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, tc.want, decodeResponse(t, rec).Status)
		})
	}

	t.Run("internal errors are not leaked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, respondError(c, errors.New("dial tcp 10.0.0.5:27017: refused")))
		assert.Equal(t, "Internal server error", decodeResponse(t, rec).Message)
	})

	t.Run("cooldown carries the next eligible time", func(t *testing.T) {
		next := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/qr/scan", nil), rec)
		require.NoError(t, respondError(c, &services.CooldownError{NextEligibleAt: next}))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		data, ok := decodeResponse(t, rec).Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "2025-06-02T12:00:00Z", data["nextEligibleAt"])
	})
}

func TestHTTPErrorHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Match([]string{http.MethodGet, http.MethodHead}, "/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	})
	e.GET("/service", func(c echo.Context) error {
		return services.ErrForbidden
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id", decodeResponse(t, rec).Message)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeResponse(t, rec).Status)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/service", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/boom", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Body.String())
}
