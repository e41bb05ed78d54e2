package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/websocket"
)

const notificationListLimit = 50

// RealtimeSender pushes a message to a user's open WebSocket connections
type RealtimeSender interface {
	SendToUser(userID primitive.ObjectID, notification websocket.Notification) error
}

// PushSender sends an FCM message
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NotificationService stores in-app notifications and fans them out over
// WebSocket and FCM
type NotificationService struct {
	notifications NotificationStore
	users         UserStore
	realtime      RealtimeSender
	push          PushSender

	Now func() time.Time
}

// NewNotificationService accepts nil realtime and push senders
func NewNotificationService(notifications NotificationStore, users UserStore, realtime RealtimeSender, push PushSender) *NotificationService {
	if push == nil {
		log.Println("Firebase messaging not configured; push notifications disabled")
	}
	return &NotificationService{
		notifications: notifications,
		users:         users,
		realtime:      realtime,
		push:          push,
		Now:           systemNow,
	}
}

// Notify never returns an error; failed channels are logged
func (s *NotificationService) Notify(ctx context.Context, userID primitive.ObjectID, notifType, title, message string, data map[string]interface{}) {
	n := &models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		CreatedAt: s.Now(),
	}
	if err := s.notifications.Insert(ctx, n); err != nil {
		log.Printf("Failed to store notification for user %s: %v", userID.Hex(), err)
	}

	if s.realtime != nil {
		err := s.realtime.SendToUser(userID, websocket.Notification{
			Type:    websocket.MessageTypeNotification,
			Title:   title,
			Message: message,
			Data:    n,
		})
		if err != nil && err != websocket.ErrNotConnected {
			log.Printf("Failed to send realtime notification to user %s: %v", userID.Hex(), err)
		}
	}

	if s.push != nil {
		if err := s.sendPush(ctx, userID, n); err != nil {
			log.Printf("Failed to send push notification to user %s: %v", userID.Hex(), err)
		}
	}
}

func (s *NotificationService) sendPush(ctx context.Context, userID primitive.ObjectID, n *models.Notification) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.FCMToken == "" {
		return nil
	}

	payload := map[string]string{
		"type":      n.Type,
		"timestamp": n.CreatedAt.Format(time.RFC3339),
	}
	if !n.ID.IsZero() {
		payload["notificationId"] = n.ID.Hex()
	}
	for key, value := range n.Data {
		payload[key] = fmt.Sprint(value)
	}

	badge := 1
	msg := &messaging.Message{
		Token: user.FCMToken,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: payload,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "mansamusa_fcm_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: n.Title,
						Body:  n.Message,
					},
					Sound: "default",
					Badge: &badge,
				},
			},
		},
	}
	_, err = s.push.Send(ctx, msg)
	return err
}

// List returns the latest notifications of a user
func (s *NotificationService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, notificationListLimit)
}

// MarkRead only touches the caller's own notifications
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	return s.notifications.MarkRead(ctx, id, actor.ID)
}
