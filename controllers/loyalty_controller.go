// controllers/loyalty_controller.go
package controllers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

// LoyaltyController serves points, rewards, redemptions and karma
type LoyaltyController struct {
	loyalty *services.LoyaltyService
	karma   *services.KarmaService
}

func NewLoyaltyController(loyalty *services.LoyaltyService, karma *services.KarmaService) *LoyaltyController {
	return &LoyaltyController{loyalty: loyalty, karma: karma}
}

func (lc *LoyaltyController) Summary(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	summary, err := lc.loyalty.Summary(ctx, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Loyalty summary retrieved successfully", summary)
}

func (lc *LoyaltyController) Transactions(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	page, limit := pageParams(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := lc.loyalty.Transactions(ctx, actor.ID, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Transactions retrieved successfully", result)
}

// AdjustPoints lets an admin correct a user's balance
func (lc *LoyaltyController) AdjustPoints(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	userID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	var req models.PointsAdjustmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := lc.loyalty.Adjust(ctx, actor, userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Points adjusted successfully", map[string]interface{}{
		"userId": user.ID,
		"points": user.Points,
	})
}

// ListRewards lists active rewards, optionally for one business
func (lc *LoyaltyController) ListRewards(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	rewards, err := lc.loyalty.ListRewards(ctx, c.QueryParam("businessId"))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Rewards retrieved successfully", rewards)
}

func (lc *LoyaltyController) CreateReward(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.RewardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reward, err := lc.loyalty.CreateReward(ctx, actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Reward created successfully", reward)
}

func (lc *LoyaltyController) UpdateReward(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	var req models.RewardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reward, err := lc.loyalty.UpdateReward(ctx, actor, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Reward updated successfully", reward)
}

func (lc *LoyaltyController) Redeem(c echo.Context) error {
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

	redemption, err := lc.loyalty.Redeem(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Reward redeemed successfully", redemption)
}

// UseRedemption is called by the business when the customer presents a code
func (lc *LoyaltyController) UseRedemption(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	redemption, err := lc.loyalty.UseRedemption(ctx, actor, strings.ToUpper(c.Param("code")))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Redemption marked as used", redemption)
}

func (lc *LoyaltyController) Redemptions(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	redemptions, err := lc.loyalty.Redemptions(ctx, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Redemptions retrieved successfully", redemptions)
}

// Karma returns the caller's karma and decay countdown
func (lc *LoyaltyController) Karma(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	status, err := lc.karma.Status(ctx, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Karma retrieved successfully", status)
}
