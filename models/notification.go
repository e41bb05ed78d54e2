package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationPointsAwarded    = "points_awarded"
	NotificationRewardRedeemed   = "reward_redeemed"
	NotificationCommissionEarned = "commission_earned"
	NotificationPayoutSent       = "payout_sent"
	NotificationChallengeDone    = "challenge_completed"
	NotificationSubscription     = "subscription_updated"
	NotificationVerification     = "verification_updated"
)

// Notification model
type Notification struct {
	ID        primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID     `json:"userId" bson:"userId"`
	Title     string                 `json:"title" bson:"title"`
	Message   string                 `json:"message" bson:"message"`
	Type      string                 `json:"type" bson:"type"`
	Data      map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`
	IsRead    bool                   `json:"isRead" bson:"isRead"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
}
