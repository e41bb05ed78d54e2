package services

import (
	"context"
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/utils"
)

type ReviewService struct {
	reviews    ReviewStore
	businesses BusinessStore
	users      UserStore
	karma      *KarmaService
	activity   ActivityRecorder

	Now func() time.Time
}

func NewReviewService(reviews ReviewStore, businesses BusinessStore, users UserStore, karma *KarmaService, activity ActivityRecorder) *ReviewService {
	return &ReviewService{
		reviews:    reviews,
		businesses: businesses,
		users:      users,
		karma:      karma,
		activity:   activity,
		Now:        systemNow,
	}
}

// Create posts the user's one review of a business and refreshes its rating
func (s *ReviewService) Create(ctx context.Context, actor Actor, businessID primitive.ObjectID, req models.ReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, invalid("rating must be between 1 and 5")
	}
	business, err := s.businesses.FindByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if business.OwnerID == actor.ID {
		return nil, invalid("owners cannot review their own business")
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	review := &models.Review{
		BusinessID: business.ID,
		UserID:     actor.ID,
		Username:   user.FullName,
		Rating:     req.Rating,
		Comment:    utils.SanitizeInput(req.Comment),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.reviews.Insert(ctx, review); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}

	if err := s.refreshRating(ctx, business.ID); err != nil {
		logIfErr(err, "Failed to refresh rating of business %s", business.ID.Hex())
	}
	logIfErr(s.karma.Reward(ctx, actor.ID, KarmaForReview, "review posted"), "Failed to award review karma to user %s", actor.ID.Hex())
	if s.activity != nil {
		logIfErr(s.activity.RecordActivity(ctx, actor.ID, models.ActivityReview), "Failed to record review activity for user %s", actor.ID.Hex())
	}
	return review, nil
}

func (s *ReviewService) refreshRating(ctx context.Context, businessID primitive.ObjectID) error {
	avg, count, err := s.reviews.RatingStats(ctx, businessID)
	if err != nil {
		return err
	}
	return s.businesses.SetRating(ctx, businessID, math.Round(avg*10)/10, count)
}

func (s *ReviewService) ListForBusiness(ctx context.Context, businessID primitive.ObjectID, page, limit int) (*models.Page, error) {
	skip, size := pageBounds(page, limit)
	items, total, err := s.reviews.ListByBusiness(ctx, businessID, skip, size)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Review{}
	}
	return &models.Page{Items: items, Total: total, Page: int(skip/size) + 1, Limit: int(size)}, nil
}

// Reply lets the business owner answer a review once
func (s *ReviewService) Reply(ctx context.Context, actor Actor, reviewID primitive.ObjectID, req models.ReplyRequest) (*models.Review, error) {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if _, err := ownedBusiness(ctx, s.businesses, actor, review.BusinessID); err != nil {
		return nil, err
	}
	if review.Reply != nil {
		return nil, ErrAlreadyReplied
	}
	reply := models.ReviewReply{Text: utils.SanitizeInput(req.Text), CreatedAt: s.Now()}
	ok, err := s.reviews.SetReply(ctx, review.ID, reply)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyReplied
	}
	review.Reply = &reply
	return review, nil
}

// RefreshRatings recomputes the rating of every business the user reviewed
func (s *ReviewService) RefreshRatings(ctx context.Context, businessIDs []primitive.ObjectID) {
	for _, id := range businessIDs {
		logIfErr(s.refreshRating(ctx, id), "Failed to refresh rating of business %s", id.Hex())
	}
}
