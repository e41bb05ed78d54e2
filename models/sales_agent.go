package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Agent statuses
const (
	AgentPending  = "pending"
	AgentActive   = "active"
	AgentRejected = "rejected"
)

// SalesAgent refers businesses to the marketplace for commission
type SalesAgent struct {
	ID              primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID          primitive.ObjectID  `json:"userId" bson:"userId"`
	FullName        string              `json:"fullName" bson:"fullName"`
	Email           string              `json:"email" bson:"email"`
	Phone           string              `json:"phone" bson:"phone"`
	Status          string              `json:"status" bson:"status"`
	ReferralCode    string              `json:"referralCode,omitempty" bson:"referralCode,omitempty"`
	RecruitedBy     *primitive.ObjectID `json:"recruitedBy,omitempty" bson:"recruitedBy,omitempty"`
	StripeAccountID string              `json:"stripeAccountId,omitempty" bson:"stripeAccountId,omitempty"`
	ApprovedAt      *time.Time          `json:"approvedAt,omitempty" bson:"approvedAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// AgentApplication is the body of POST /api/agents/apply
type AgentApplication struct {
	FullName      string `json:"fullName" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	RecruiterCode string `json:"recruiterCode,omitempty"`
}

type ConnectAccountRequest struct {
	StripeAccountID string `json:"stripeAccountId" validate:"required,startswith=acct_"`
}

// Business referral statuses
const (
	ReferralPending = "pending"
	ReferralActive  = "active"
)

// BusinessReferral links a business to the agent who brought it in
type BusinessReferral struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AgentID     primitive.ObjectID `json:"agentId" bson:"agentId"`
	BusinessID  primitive.ObjectID `json:"businessId" bson:"businessId"`
	Status      string             `json:"status" bson:"status"`
	ReferredAt  time.Time          `json:"referredAt" bson:"referredAt"`
	ActivatedAt *time.Time         `json:"activatedAt,omitempty" bson:"activatedAt,omitempty"`
}

// Commission kinds
const (
	CommissionDirect           = "direct"
	CommissionOverride         = "override"
	CommissionRecruitmentBonus = "recruitment_bonus"
)

// Commission statuses
const (
	CommissionStatusPending    = "pending"
	CommissionStatusProcessing = "processing" // claimed by an open payout
	CommissionStatusPaid       = "paid"
)

// Commission is an amount owed to an agent. Amounts are in cents.
type Commission struct {
	ID          primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	AgentID     primitive.ObjectID  `json:"agentId" bson:"agentId"`
	BusinessID  primitive.ObjectID  `json:"businessId" bson:"businessId"`
	InvoiceID   string              `json:"invoiceId" bson:"invoiceId"`
	Kind        string              `json:"kind" bson:"kind"`
	BaseCents   int64               `json:"baseCents" bson:"baseCents"`
	Rate        float64             `json:"rate" bson:"rate"`
	AmountCents int64               `json:"amountCents" bson:"amountCents"`
	Status      string              `json:"status" bson:"status"`
	PayoutID    *primitive.ObjectID `json:"payoutId,omitempty" bson:"payoutId,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
	PaidAt      *time.Time          `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
}

// Payout statuses
const (
	PayoutPending   = "pending"
	PayoutCompleted = "completed"
	PayoutFailed    = "failed"
)

// Payout groups the commissions paid to an agent in one transfer
type Payout struct {
	ID            primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	AgentID       primitive.ObjectID   `json:"agentId" bson:"agentId"`
	AmountCents   int64                `json:"amountCents" bson:"amountCents"`
	CommissionIDs []primitive.ObjectID `json:"commissionIds" bson:"commissionIds"`
	Status        string               `json:"status" bson:"status"`
	Method        string               `json:"method" bson:"method"` // stripe_connect or manual
	TransferID    string               `json:"transferId,omitempty" bson:"transferId,omitempty"`
	CreatedAt     time.Time            `json:"createdAt" bson:"createdAt"`
	CompletedAt   *time.Time           `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// AgentDashboard summarizes an agent's book of business
type AgentDashboard struct {
	Agent           SalesAgent         `json:"agent"`
	Tier            string             `json:"tier"`
	CommissionRate  float64            `json:"commissionRate"`
	ActiveReferrals int                `json:"activeReferrals"`
	Referrals       []BusinessReferral `json:"referrals"`
	PendingCents    int64              `json:"pendingCents"`
	PaidCents       int64              `json:"paidCents"`
	TeamSize        int                `json:"teamSize"`
	NextTier        string             `json:"nextTier,omitempty"`
	ReferralsToNext int                `json:"referralsToNext"`
}
