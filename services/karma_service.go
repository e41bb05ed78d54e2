package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
)

// Karma awards per activity
const (
	KarmaForScan      = 1
	KarmaForReview    = 2
	KarmaForReferral  = 5
	KarmaForChallenge = 10
)

// Decay schedule
const (
	KarmaGracePeriod   = 30 * 24 * time.Hour
	KarmaDecayInterval = 7 * 24 * time.Hour
	KarmaDecayRate     = 0.05
)

type KarmaService struct {
	users  UserStore
	events KarmaEventStore

	Now func() time.Time
}

func NewKarmaService(users UserStore, events KarmaEventStore) *KarmaService {
	return &KarmaService{users: users, events: events, Now: systemNow}
}

// Reward adds karma and marks the user active
func (s *KarmaService) Reward(ctx context.Context, userID primitive.ObjectID, delta int, reason string) error {
	if delta <= 0 {
		return invalid("karma delta must be positive")
	}
	now := s.Now()
	if _, err := s.users.AddKarma(ctx, userID, delta, now); err != nil {
		return err
	}
	logIfErr(s.events.Insert(ctx, &models.KarmaEvent{UserID: userID, Delta: delta, Reason: reason, CreatedAt: now}),
		"Failed to record karma event for user %s", userID.Hex())
	return nil
}

// decayLoss is the karma lost in one decay step
func decayLoss(karma int) int {
	if karma <= 0 {
		return 0
	}
	loss := int(float64(karma) * KarmaDecayRate)
	if loss < 1 {
		loss = 1
	}
	return loss
}

// nextDecayAt is the first decay after the grace period, then one per interval
func nextDecayAt(user *models.User) time.Time {
	if user.KarmaLastDecayAt != nil && user.KarmaLastDecayAt.After(user.KarmaLastActivityAt) {
		return user.KarmaLastDecayAt.Add(KarmaDecayInterval)
	}
	return user.KarmaLastActivityAt.Add(KarmaGracePeriod)
}

// Status feeds the decay countdown
func (s *KarmaService) Status(ctx context.Context, userID primitive.ObjectID) (*models.KarmaStatus, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := nextDecayAt(user)
	remaining := int64(next.Sub(s.Now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &models.KarmaStatus{
		Karma:             user.Karma,
		LastActivityAt:    user.KarmaLastActivityAt,
		NextDecayAt:       next,
		SecondsUntilDecay: remaining,
		ProjectedLoss:     decayLoss(user.Karma),
	}, nil
}

// ApplyDecay applies every decay step that has come due, catching up on
// steps missed while the job was not running. It returns the number of
// users whose karma decayed.
func (s *KarmaService) ApplyDecay(ctx context.Context) (int, error) {
	now := s.Now()
	cutoff := now.Add(-KarmaGracePeriod)
	candidates, err := s.users.ListKarmaDecayCandidates(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	decayed := 0
	for i := range candidates {
		user := &candidates[i]
		karma, total := user.Karma, 0
		due := nextDecayAt(user)
		var last time.Time
		for !due.After(now) && karma > 0 {
			loss := decayLoss(karma)
			karma -= loss
			total += loss
			last = due
			due = due.Add(KarmaDecayInterval)
		}
		if total == 0 {
			continue
		}
		applied, err := s.users.DecayKarma(ctx, user.ID, total, last, cutoff)
		if err != nil {
			logIfErr(err, "Failed to decay karma for user %s", user.ID.Hex())
			continue
		}
		if !applied {
			// active again since the candidates were listed
			continue
		}
		logIfErr(s.events.Insert(ctx, &models.KarmaEvent{UserID: user.ID, Delta: -total, Reason: "inactivity decay", CreatedAt: now}),
			"Failed to record karma decay for user %s", user.ID.Hex())
		decayed++
	}
	return decayed, nil
}
