package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type ChallengeController struct {
	challenges *services.ChallengeService
}

func NewChallengeController(challenges *services.ChallengeService) *ChallengeController {
	return &ChallengeController{challenges: challenges}
}

func (cc *ChallengeController) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.ChallengeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	challenge, err := cc.challenges.Create(ctx, actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Challenge created successfully", challenge)
}

func (cc *ChallengeController) Join(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	participation, err := cc.challenges.Join(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Challenge joined successfully", participation)
}

// Active lists running challenges with the caller's progress
func (cc *ChallengeController) Active(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	views, err := cc.challenges.Active(ctx, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Challenges retrieved successfully", views)
}
