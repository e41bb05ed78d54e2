// controllers/referral_controller.go
package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

// ReferralController serves sales agents and their commissions
type ReferralController struct {
	referrals *services.ReferralService
}

func NewReferralController(referrals *services.ReferralService) *ReferralController {
	return &ReferralController{referrals: referrals}
}

func (rc *ReferralController) Apply(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.AgentApplication
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	agent, err := rc.referrals.Apply(ctx, actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Application submitted successfully", agent)
}

// Applications lists agents, filtered by ?status
func (rc *ReferralController) Applications(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	agents, err := rc.referrals.Applications(ctx, actor, c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Applications retrieved successfully", agents)
}

func (rc *ReferralController) Approve(c echo.Context) error {
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

	agent, err := rc.referrals.Approve(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Agent approved successfully", agent)
}

func (rc *ReferralController) Reject(c echo.Context) error {
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

	if err := rc.referrals.Reject(ctx, actor, id); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Agent application rejected", nil)
}

// SetConnectAccount stores the agent's Stripe Connect account for payouts
func (rc *ReferralController) SetConnectAccount(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.ConnectAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := rc.referrals.SetConnectAccount(ctx, actor, req); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Payout account updated successfully", nil)
}

func (rc *ReferralController) ProcessPayout(c echo.Context) error {
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

	payout, err := rc.referrals.ProcessPayout(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Payout processed successfully", payout)
}

func (rc *ReferralController) Dashboard(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	dashboard, err := rc.referrals.Dashboard(ctx, actor)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Dashboard retrieved successfully", dashboard)
}
