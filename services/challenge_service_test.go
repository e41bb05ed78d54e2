package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansamusa/marketplace_backend/models"
)

type challengeFixture struct {
	*loyaltyFixture
	svc            *ChallengeService
	challenges     *fakeChallenges
	participations *fakeParticipations
}

func newChallengeFixture() *challengeFixture {
	lf := newLoyaltyFixture()
	f := &challengeFixture{
		loyaltyFixture: lf,
		challenges:     newFakeChallenges(),
		participations: newFakeParticipations(),
	}
	karma := NewKarmaService(lf.users, &fakeKarmaEvents{})
	karma.Now = lf.clock.Now
	f.svc = NewChallengeService(f.challenges, f.participations, lf.svc, karma, lf.notifier)
	f.svc.Now = lf.clock.Now
	return f
}

func (f *challengeFixture) create(t *testing.T, activity string, target int) *models.Challenge {
	t.Helper()
	now := f.clock.Now()
	c, err := f.svc.Create(context.Background(), adminActor, models.ChallengeRequest{
		Title:        "Visit three Black-owned shops",
		ActivityType: activity,
		TargetCount:  target,
		RewardPoints: 100,
		StartsAt:     now.Add(-time.Hour),
		EndsAt:       now.Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return c
}

func TestChallengeService_Create(t *testing.T) {
	f := newChallengeFixture()
	now := f.clock.Now()

	_, err := f.svc.Create(context.Background(), Actor{UserType: models.UserTypeCustomer}, models.ChallengeRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Create(context.Background(), adminActor, models.ChallengeRequest{
		Title: "Backwards", ActivityType: models.ActivityReview, TargetCount: 1, RewardPoints: 5,
		StartsAt: now, EndsAt: now.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChallengeService_Join(t *testing.T) {
	ctx := context.Background()
	f := newChallengeFixture()
	u := f.users.add(models.User{})
	c := f.create(t, models.ActivityCheckin, 3)

	_, err := f.svc.Join(ctx, Actor{ID: u.ID}, c.ID)
	require.NoError(t, err)

	_, err = f.svc.Join(ctx, Actor{ID: u.ID}, c.ID)
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	f.clock.Advance(8 * 24 * time.Hour)
	other := f.users.add(models.User{})
	_, err = f.svc.Join(ctx, Actor{ID: other.ID}, c.ID)
	assert.ErrorIs(t, err, ErrChallengeClosed)
}

func TestChallengeService_RecordActivity(t *testing.T) {
	ctx := context.Background()
	f := newChallengeFixture()
	u := f.users.add(models.User{})
	checkins := f.create(t, models.ActivityCheckin, 2)
	reviews := f.create(t, models.ActivityReview, 1)
	for _, c := range []*models.Challenge{checkins, reviews} {
		_, err := f.svc.Join(ctx, Actor{ID: u.ID}, c.ID)
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.RecordActivity(ctx, u.ID, models.ActivityCheckin))
	assert.Equal(t, 0, f.users.get(u.ID).Points)

	require.NoError(t, f.svc.RecordActivity(ctx, u.ID, models.ActivityCheckin))
	stored := f.users.get(u.ID)
	assert.Equal(t, 100, stored.Points)
	assert.Equal(t, KarmaForChallenge, stored.Karma)
	assert.Contains(t, f.notifier.types(), models.NotificationChallengeDone)

	// completed participations stop counting
	require.NoError(t, f.svc.RecordActivity(ctx, u.ID, models.ActivityCheckin))
	assert.Equal(t, 100, f.users.get(u.ID).Points)

	views, err := f.svc.Active(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.True(t, v.Joined)
		if v.ID == checkins.ID {
			assert.True(t, v.Completed)
			assert.Equal(t, 2, v.Progress)
		} else {
			assert.False(t, v.Completed)
			assert.Zero(t, v.Progress)
		}
	}
}
