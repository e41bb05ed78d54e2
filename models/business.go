package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Verification statuses
const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// Business is a listed Black-owned business
type Business struct {
	ID               primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	OwnerID          primitive.ObjectID `json:"ownerId" bson:"ownerId"`
	Name             string             `json:"name" bson:"name"`
	Slug             string             `json:"slug" bson:"slug"`
	Description      string             `json:"description" bson:"description"`
	Category         string             `json:"category" bson:"category"`
	Address          string             `json:"address" bson:"address"`
	City             string             `json:"city" bson:"city"`
	State            string             `json:"state" bson:"state"`
	ZipCode          string             `json:"zipCode" bson:"zipCode"`
	Phone            string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Website          string             `json:"website,omitempty" bson:"website,omitempty"`
	Email            string             `json:"email,omitempty" bson:"email,omitempty"`
	Lat              float64            `json:"lat" bson:"lat"`
	Lng              float64            `json:"lng" bson:"lng"`
	LogoURL          string             `json:"logoUrl,omitempty" bson:"logoUrl,omitempty"`
	IsVerified       bool               `json:"isVerified" bson:"isVerified"`
	IsActive         bool               `json:"isActive" bson:"isActive"`
	AverageRating    float64            `json:"averageRating" bson:"averageRating"`
	ReviewCount      int                `json:"reviewCount" bson:"reviewCount"`
	SubscriptionTier string             `json:"subscriptionTier" bson:"subscriptionTier"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// BusinessRequest is the body for creating or updating a business
type BusinessRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description" validate:"max=5000"`
	Category    string  `json:"category" validate:"required"`
	Address     string  `json:"address"`
	City        string  `json:"city" validate:"required"`
	State       string  `json:"state"`
	ZipCode     string  `json:"zipCode"`
	Phone       string  `json:"phone,omitempty"`
	Website     string  `json:"website,omitempty" validate:"omitempty,url"`
	Email       string  `json:"email,omitempty" validate:"omitempty,email"`
	Lat         float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng         float64 `json:"lng" validate:"gte=-180,lte=180"`
	AgentCode   string  `json:"agentCode,omitempty"`
}

// BusinessFilter narrows a directory listing
type BusinessFilter struct {
	Category string
	City     string
	Query    string
	Skip     int64
	Limit    int64
}

// BusinessVerification is an ownership verification submission
type BusinessVerification struct {
	ID              primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	BusinessID      primitive.ObjectID  `json:"businessId" bson:"businessId"`
	SubmittedBy     primitive.ObjectID  `json:"submittedBy" bson:"submittedBy"`
	BusinessLicense string              `json:"businessLicense" bson:"businessLicense"`
	TaxID           string              `json:"taxId" bson:"taxId"`
	OwnershipDocURL string              `json:"ownershipDocUrl" bson:"ownershipDocUrl"`
	Status          string              `json:"status" bson:"status"`
	AdminNotes      string              `json:"adminNotes,omitempty" bson:"adminNotes,omitempty"`
	ReviewedBy      *primitive.ObjectID `json:"reviewedBy,omitempty" bson:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time          `json:"reviewedAt,omitempty" bson:"reviewedAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
}

type VerificationRequest struct {
	BusinessLicense string `json:"businessLicense" validate:"required"`
	TaxID           string `json:"taxId" validate:"required"`
	OwnershipDocURL string `json:"ownershipDocUrl" validate:"required,url"`
}

type VerificationDecision struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes,omitempty"`
}
