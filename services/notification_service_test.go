package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/websocket"
)

func TestNotificationService_Notify(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers()
	store := &fakeNotifications{}
	realtime := &mockRealtime{}
	push := &mockPush{}
	svc := NewNotificationService(store, users, realtime, push)
	svc.Now = newClock().Now

	withToken := users.add(models.User{FCMToken: "fcm-abc"})
	withoutToken := users.add(models.User{})

	svc.Notify(ctx, withToken.ID, models.NotificationPointsAwarded, "Points earned", "You earned 10 points",
		map[string]interface{}{"points": 10})

	require.Len(t, store.rows, 1)
	assert.Equal(t, models.NotificationPointsAwarded, store.rows[0].Type)

	require.Len(t, realtime.sent, 1)
	assert.Equal(t, websocket.MessageTypeNotification, realtime.sent[0].Type)
	assert.Equal(t, "Points earned", realtime.sent[0].Title)

	require.Len(t, push.sent, 1)
	msg := push.sent[0]
	assert.Equal(t, "fcm-abc", msg.Token)
	assert.Equal(t, "10", msg.Data["points"])
	assert.Equal(t, store.rows[0].ID.Hex(), msg.Data["notificationId"])
	assert.Equal(t, "2025-06-01T12:00:00Z", msg.Data["timestamp"])
	assert.Equal(t, 1, *msg.APNS.Payload.Aps.Badge)

	svc.Notify(ctx, withoutToken.ID, models.NotificationPointsAwarded, "t", "m", nil)
	assert.Len(t, store.rows, 2)
	assert.Len(t, push.sent, 1, "users without a device token get no push")

	t.Run("offline users still get stored notifications", func(t *testing.T) {
		realtime.err = websocket.ErrNotConnected
		svc.Notify(ctx, withoutToken.ID, models.NotificationPointsAwarded, "t", "m", nil)
		assert.Len(t, store.rows, 3)
	})

	t.Run("list and mark read", func(t *testing.T) {
		list, err := svc.List(ctx, withoutToken.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)

		assert.ErrorIs(t, svc.MarkRead(ctx, Actor{ID: withToken.ID}, list[0].ID), ErrNotFound)
		require.NoError(t, svc.MarkRead(ctx, Actor{ID: withoutToken.ID}, list[0].ID))
		list, err = svc.List(ctx, withoutToken.ID)
		require.NoError(t, err)
		assert.True(t, list[0].IsRead)
	})
}

func TestNotificationService_NoChannels(t *testing.T) {
	store := &fakeNotifications{}
	svc := NewNotificationService(store, newFakeUsers(), nil, nil)
	u := newFakeUsers().add(models.User{})
	svc.Notify(context.Background(), u.ID, models.NotificationPointsAwarded, "t", "m", nil)
	assert.Len(t, store.rows, 1)
}
