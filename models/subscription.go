package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subscription audiences
const (
	AudienceCustomer = "customer"
	AudienceBusiness = "business"
	AudienceSponsor  = "sponsor"
)

// Subscription sources
const (
	SourceStripe = "stripe"
	SourceApple  = "apple"
)

// Subscription statuses
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
	SubscriptionExpired  = "expired"
	SubscriptionRevoked  = "revoked"
	SubscriptionPending  = "pending"
)

// TierFree is the tier of anyone without a live subscription
const TierFree = "free"

// Subscription is a paid plan held by a user for themselves, one of their
// businesses, or their sponsor profile
type Subscription struct {
	ID                primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID            primitive.ObjectID  `json:"userId" bson:"userId"`
	Audience          string              `json:"audience" bson:"audience"`
	TargetID          *primitive.ObjectID `json:"targetId,omitempty" bson:"targetId,omitempty"`
	Plan              string              `json:"plan" bson:"plan"`
	Tier              string              `json:"tier" bson:"tier"`
	Source            string              `json:"source" bson:"source"`
	ExternalID        string              `json:"externalId" bson:"externalId"`
	CustomerID        string              `json:"-" bson:"customerId,omitempty"`
	Status            string              `json:"status" bson:"status"`
	CurrentPeriodEnd  time.Time           `json:"currentPeriodEnd" bson:"currentPeriodEnd"`
	CancelAtPeriodEnd bool                `json:"cancelAtPeriodEnd" bson:"cancelAtPeriodEnd"`
	CreatedAt         time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// CheckoutRequest is the body of POST /api/subscriptions/checkout
type CheckoutRequest struct {
	Plan       string `json:"plan" validate:"required"`
	BusinessID string `json:"businessId,omitempty"`
}

// CheckoutResponse carries the hosted checkout URL
type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// SubscriptionOverview is returned by GET /api/subscriptions/me
type SubscriptionOverview struct {
	Tier          string         `json:"tier"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// ProcessedEvent marks a webhook event as handled
type ProcessedEvent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Source      string             `bson:"source"`
	EventID     string             `bson:"eventId"`
	ProcessedAt time.Time          `bson:"processedAt"`
}

// AppleNotificationRequest is the body Apple posts to the webhook
type AppleNotificationRequest struct {
	SignedPayload string `json:"signedPayload" validate:"required"`
}
