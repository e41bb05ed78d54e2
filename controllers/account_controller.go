package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/middleware"
	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type AccountController struct {
	accounts *services.AccountService
	jwt      *middleware.JWTManager
}

func NewAccountController(accounts *services.AccountService, jwt *middleware.JWTManager) *AccountController {
	return &AccountController{accounts: accounts, jwt: jwt}
}

// DeleteAccount removes the caller's data. Partial failures are reported
// with the names of the failed steps.
func (ac *AccountController) DeleteAccount(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := ac.accounts.Delete(ctx, actor)
	if err != nil {
		return respondError(c, err)
	}
	if !report.OK() {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Account deletion partially failed",
			Data:    report,
		})
	}

	if token, expiry := middleware.RawToken(c); token != "" {
		ac.jwt.BlacklistToken(token, expiry)
	}
	return respondOK(c, "Account deleted successfully", report)
}
