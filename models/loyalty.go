package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction types
const (
	TxEarn   = "earn"
	TxBonus  = "bonus"
	TxRedeem = "redeem"
	TxRefund = "refund"
	TxAdjust = "adjust"
)

// Transaction is a single entry of the loyalty points ledger
type Transaction struct {
	ID           primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID       primitive.ObjectID  `json:"userId" bson:"userId"`
	BusinessID   *primitive.ObjectID `json:"businessId,omitempty" bson:"businessId,omitempty"`
	Type         string              `json:"type" bson:"type"`
	Points       int                 `json:"points" bson:"points"`
	BalanceAfter int                 `json:"balanceAfter" bson:"balanceAfter"`
	Description  string              `json:"description" bson:"description"`
	ReferenceID  string              `json:"referenceId,omitempty" bson:"referenceId,omitempty"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
}

// Reward is something customers can redeem points for
type Reward struct {
	ID          primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	BusinessID  *primitive.ObjectID `json:"businessId,omitempty" bson:"businessId,omitempty"`
	Title       string              `json:"title" bson:"title"`
	Description string              `json:"description" bson:"description"`
	PointsCost  int                 `json:"pointsCost" bson:"pointsCost"`
	Stock       int                 `json:"stock" bson:"stock"` // -1 means unlimited
	IsActive    bool                `json:"isActive" bson:"isActive"`
	ExpiresAt   *time.Time          `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	CreatedBy   primitive.ObjectID  `json:"createdBy" bson:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// RewardRequest is the body for creating or updating a reward
type RewardRequest struct {
	BusinessID  string     `json:"businessId,omitempty"`
	Title       string     `json:"title" validate:"required,max=120"`
	Description string     `json:"description" validate:"max=1000"`
	PointsCost  int        `json:"pointsCost" validate:"required,min=1"`
	Stock       *int       `json:"stock,omitempty" validate:"omitempty,gte=-1"`
	IsActive    *bool      `json:"isActive,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Redemption statuses
const (
	RedemptionIssued = "issued"
	RedemptionUsed   = "used"
)

// Redemption is a reward claimed by a customer
type Redemption struct {
	ID         primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID     primitive.ObjectID  `json:"userId" bson:"userId"`
	RewardID   primitive.ObjectID  `json:"rewardId" bson:"rewardId"`
	BusinessID *primitive.ObjectID `json:"businessId,omitempty" bson:"businessId,omitempty"`
	Code       string              `json:"code" bson:"code"`
	PointsUsed int                 `json:"pointsUsed" bson:"pointsUsed"`
	Status     string              `json:"status" bson:"status"`
	UsedAt     *time.Time          `json:"usedAt,omitempty" bson:"usedAt,omitempty"`
	CreatedAt  time.Time           `json:"createdAt" bson:"createdAt"`
}

// LoyaltySummary is the customer's points dashboard
type LoyaltySummary struct {
	Balance        int     `json:"balance"`
	LifetimePoints int     `json:"lifetimePoints"`
	Tier           string  `json:"tier"`
	Multiplier     float64 `json:"multiplier"`
	NextTier       string  `json:"nextTier,omitempty"`
	PointsToNext   int     `json:"pointsToNext"`
	Progress       float64 `json:"progress"`
}
