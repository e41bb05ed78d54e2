package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/utils"
)

// ActivityRecorder advances challenges when a user does something that
// counts toward them
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, userID primitive.ObjectID, activityType string) error
}

type ChallengeService struct {
	challenges     ChallengeStore
	participations ParticipationStore
	loyalty        *LoyaltyService
	karma          *KarmaService
	notifier       Notifier

	Now func() time.Time
}

func NewChallengeService(challenges ChallengeStore, participations ParticipationStore, loyalty *LoyaltyService,
	karma *KarmaService, notifier Notifier) *ChallengeService {
	return &ChallengeService{
		challenges:     challenges,
		participations: participations,
		loyalty:        loyalty,
		karma:          karma,
		notifier:       orNopNotifier(notifier),
		Now:            systemNow,
	}
}

func (s *ChallengeService) Create(ctx context.Context, actor Actor, req models.ChallengeRequest) (*models.Challenge, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, invalid("endsAt must be after startsAt")
	}
	challenge := &models.Challenge{
		Title:        utils.SanitizeInput(req.Title),
		Description:  utils.SanitizeInput(req.Description),
		ActivityType: req.ActivityType,
		TargetCount:  req.TargetCount,
		RewardPoints: req.RewardPoints,
		StartsAt:     req.StartsAt.UTC(),
		EndsAt:       req.EndsAt.UTC(),
		CreatedAt:    s.Now(),
	}
	if err := s.challenges.Insert(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

func running(c *models.Challenge, at time.Time) bool {
	return !at.Before(c.StartsAt) && at.Before(c.EndsAt)
}

// Join enrolls a user in a running challenge, once
func (s *ChallengeService) Join(ctx context.Context, actor Actor, challengeID primitive.ObjectID) (*models.ChallengeParticipation, error) {
	challenge, err := s.challenges.FindByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if !running(challenge, now) {
		return nil, ErrChallengeClosed
	}
	p := &models.ChallengeParticipation{
		ChallengeID:  challenge.ID,
		UserID:       actor.ID,
		ActivityType: challenge.ActivityType,
		JoinedAt:     now,
	}
	if err := s.participations.Insert(ctx, p); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrAlreadyJoined
		}
		return nil, err
	}
	return p, nil
}

// Active lists running challenges with the caller's progress
func (s *ChallengeService) Active(ctx context.Context, userID primitive.ObjectID) ([]models.ChallengeView, error) {
	challenges, err := s.challenges.ListActive(ctx, s.Now())
	if err != nil {
		return nil, err
	}
	joined, err := s.participations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byChallenge := make(map[primitive.ObjectID]models.ChallengeParticipation, len(joined))
	for _, p := range joined {
		byChallenge[p.ChallengeID] = p
	}

	views := make([]models.ChallengeView, 0, len(challenges))
	for _, c := range challenges {
		view := models.ChallengeView{Challenge: c}
		if p, ok := byChallenge[c.ID]; ok {
			view.Joined = true
			view.Progress = p.Progress
			view.Completed = p.Completed
		}
		views = append(views, view)
	}
	return views, nil
}

// RecordActivity advances every open participation of the given type whose
// challenge is still running and completes those that reach their target
func (s *ChallengeService) RecordActivity(ctx context.Context, userID primitive.ObjectID, activityType string) error {
	open, err := s.participations.ListOpen(ctx, userID, activityType)
	if err != nil {
		return err
	}
	now := s.Now()
	for _, p := range open {
		challenge, err := s.challenges.FindByID(ctx, p.ChallengeID)
		if err != nil {
			logIfErr(err, "Failed to load challenge %s", p.ChallengeID.Hex())
			continue
		}
		if !running(challenge, now) {
			continue
		}
		updated, err := s.participations.IncrementProgress(ctx, p.ID)
		if err != nil {
			logIfErr(err, "Failed to advance challenge %s for user %s", challenge.ID.Hex(), userID.Hex())
			continue
		}
		if updated.Progress >= challenge.TargetCount {
			s.complete(ctx, challenge, updated, now)
		}
	}
	return nil
}

func (s *ChallengeService) complete(ctx context.Context, challenge *models.Challenge, p *models.ChallengeParticipation, at time.Time) {
	ok, err := s.participations.Complete(ctx, p.ID, at)
	if err != nil || !ok {
		logIfErr(err, "Failed to complete challenge %s", challenge.ID.Hex())
		return
	}
	_, err = s.loyalty.Credit(ctx, p.UserID, nil, models.TxBonus, challenge.RewardPoints,
		"Challenge completed: "+challenge.Title, challenge.ID.Hex())
	logIfErr(err, "Failed to award challenge points to user %s", p.UserID.Hex())
	logIfErr(s.karma.Reward(ctx, p.UserID, KarmaForChallenge, "challenge completed"),
		"Failed to award challenge karma to user %s", p.UserID.Hex())

	s.notifier.Notify(ctx, p.UserID, models.NotificationChallengeDone, "Challenge complete",
		fmt.Sprintf("You finished %s and earned %d points", challenge.Title, challenge.RewardPoints),
		map[string]interface{}{"challengeId": challenge.ID.Hex()})
}
