// controllers/review_controller.go
package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

// CreateReview adds the caller's review of a business
func (rc *ReviewController) CreateReview(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	businessID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	var req models.ReviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := rc.reviews.Create(ctx, actor, businessID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Review created successfully", review)
}

func (rc *ReviewController) GetReviewsByBusiness(c echo.Context) error {
	businessID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	page, limit := pageParams(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := rc.reviews.ListForBusiness(ctx, businessID, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Reviews retrieved successfully", result)
}

// PostReviewReply lets the business owner answer a review once
func (rc *ReviewController) PostReviewReply(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	reviewID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	var req models.ReplyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := rc.reviews.Reply(ctx, actor, reviewID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Reply posted successfully", review)
}
