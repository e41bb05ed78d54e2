package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type FeatureFlagController struct {
	flags *services.FeatureFlagService
}

func NewFeatureFlagController(flags *services.FeatureFlagService) *FeatureFlagController {
	return &FeatureFlagController{flags: flags}
}

// Evaluate returns every flag's value for the caller
func (fc *FeatureFlagController) Evaluate(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	values, err := fc.flags.Evaluate(ctx, actor.ID.Hex())
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Flags evaluated successfully", values)
}

func (fc *FeatureFlagController) List(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	flags, err := fc.flags.List(ctx, actor)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Flags retrieved successfully", flags)
}

func (fc *FeatureFlagController) Save(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.FeatureFlagRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	flag, err := fc.flags.Save(ctx, actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Flag saved successfully", flag)
}

func (fc *FeatureFlagController) Delete(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := fc.flags.Delete(ctx, actor, c.Param("key")); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Flag deleted successfully", nil)
}
