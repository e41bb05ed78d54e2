// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User types
const (
	UserTypeCustomer = "customer"
	UserTypeBusiness = "business"
	UserTypeAgent    = "agent"
	UserTypeSponsor  = "sponsor"
	UserTypeAdmin    = "admin"
)

// User model
type User struct {
	ID                  primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Email               string              `json:"email" bson:"email"`
	Password            string              `json:"password,omitempty" bson:"password"`
	FullName            string              `json:"fullName" bson:"fullName"`
	UserType            string              `json:"userType" bson:"userType"`
	Phone               string              `json:"phone,omitempty" bson:"phone,omitempty"`
	IsActive            bool                `json:"isActive" bson:"isActive"`
	Points              int                 `json:"points" bson:"points"`
	LifetimePoints      int                 `json:"lifetimePoints" bson:"lifetimePoints"`
	LoyaltyTier         string              `json:"loyaltyTier" bson:"loyaltyTier"`
	Karma               int                 `json:"karma" bson:"karma"`
	KarmaLastActivityAt time.Time           `json:"karmaLastActivityAt" bson:"karmaLastActivityAt"`
	KarmaLastDecayAt    *time.Time          `json:"karmaLastDecayAt,omitempty" bson:"karmaLastDecayAt,omitempty"`
	ReferralCode        string              `json:"referralCode,omitempty" bson:"referralCode,omitempty"`
	ReferredBy          *primitive.ObjectID `json:"referredBy,omitempty" bson:"referredBy,omitempty"`
	SubscriptionTier    string              `json:"subscriptionTier" bson:"subscriptionTier"`
	StripeCustomerID    string              `json:"-" bson:"stripeCustomerId,omitempty"`
	AppAccountToken     string              `json:"appAccountToken,omitempty" bson:"appAccountToken,omitempty"`
	FCMToken            string              `json:"-" bson:"fcmToken,omitempty"`
	CreatedAt           time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// SignupRequest is the body of POST /api/auth/signup
type SignupRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FullName     string `json:"fullName" validate:"required"`
	UserType     string `json:"userType" validate:"required,oneof=customer business agent sponsor"`
	Phone        string `json:"phone,omitempty"`
	ReferralCode string `json:"referralCode,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned on signup and login
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type FCMTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// PointsAdjustmentRequest is used by admins to correct balances
type PointsAdjustmentRequest struct {
	Points int    `json:"points" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}
