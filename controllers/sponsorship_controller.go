// controllers/sponsorship_controller.go
package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type SponsorshipController struct {
	sponsors *services.SponsorService
}

func NewSponsorshipController(sponsors *services.SponsorService) *SponsorshipController {
	return &SponsorshipController{sponsors: sponsors}
}

func (sc *SponsorshipController) Tiers(c echo.Context) error {
	return respondOK(c, "Sponsor tiers retrieved successfully", services.SponsorTiers)
}

// ListActive is the public sponsor wall
func (sc *SponsorshipController) ListActive(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	sponsors, err := sc.sponsors.ListActive(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Sponsors retrieved successfully", sponsors)
}

func (sc *SponsorshipController) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.SponsorRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := sc.sponsors.Create(ctx, actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Sponsor profile created, complete checkout to activate", map[string]interface{}{
		"sponsor": profile,
		"plan":    services.SponsorPlan(profile.Tier),
	})
}

func (sc *SponsorshipController) Mine(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := sc.sponsors.Mine(ctx, actor)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Sponsor profile retrieved successfully", profile)
}

func (sc *SponsorshipController) SetFeatured(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.FeaturedBusinessesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := sc.sponsors.SetFeatured(ctx, actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Featured businesses updated successfully", profile)
}
