// controllers/auth_controller.go
package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/middleware"
	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type AuthController struct {
	auth *services.AuthService
	jwt  *middleware.JWTManager
}

func NewAuthController(auth *services.AuthService, jwt *middleware.JWTManager) *AuthController {
	return &AuthController{auth: auth, jwt: jwt}
}

// Signup creates an account and returns a token
func (ac *AuthController) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := ac.auth.Signup(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "User registered successfully", resp)
}

func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := ac.auth.Login(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Login successful", resp)
}

// Logout invalidates the bearer token until it expires
func (ac *AuthController) Logout(c echo.Context) error {
	token, expiry := middleware.RawToken(c)
	if token != "" {
		ac.jwt.BlacklistToken(token, expiry)
	}
	return respondOK(c, "Logged out successfully", nil)
}

func (ac *AuthController) Me(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := ac.auth.Me(ctx, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Profile retrieved successfully", user)
}

// SetFCMToken registers the device token used for push notifications
func (ac *AuthController) SetFCMToken(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.FCMTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ac.auth.SetFCMToken(ctx, actor.ID, req.Token); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "FCM token updated successfully", nil)
}
