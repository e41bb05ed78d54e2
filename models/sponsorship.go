package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sponsor tiers
const (
	SponsorBronze   = "bronze"
	SponsorSilver   = "silver"
	SponsorGold     = "gold"
	SponsorPlatinum = "platinum"
)

// Sponsor statuses
const (
	SponsorStatusPending = "pending"
	SponsorStatusActive  = "active"
	SponsorStatusLapsed  = "lapsed"
)

// SponsorTier describes a corporate sponsorship level
type SponsorTier struct {
	Name              string   `json:"name"`
	MonthlyPriceCents int64    `json:"monthlyPriceCents"`
	FeaturedLimit     int      `json:"featuredLimit"`
	Placement         string   `json:"placement"`
	Benefits          []string `json:"benefits"`
	Rank              int      `json:"rank"`
}

// SponsorProfile is a corporate sponsor
type SponsorProfile struct {
	ID                  primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	UserID              primitive.ObjectID   `json:"userId" bson:"userId"`
	CompanyName         string               `json:"companyName" bson:"companyName"`
	LogoURL             string               `json:"logoUrl,omitempty" bson:"logoUrl,omitempty"`
	Website             string               `json:"website,omitempty" bson:"website,omitempty"`
	ContactEmail        string               `json:"contactEmail" bson:"contactEmail"`
	Tier                string               `json:"tier" bson:"tier"`
	Status              string               `json:"status" bson:"status"`
	FeaturedBusinessIDs []primitive.ObjectID `json:"featuredBusinessIds" bson:"featuredBusinessIds"`
	CreatedAt           time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// SponsorRequest is the body of POST /api/sponsors
type SponsorRequest struct {
	CompanyName  string `json:"companyName" validate:"required"`
	LogoURL      string `json:"logoUrl,omitempty" validate:"omitempty,url"`
	Website      string `json:"website,omitempty" validate:"omitempty,url"`
	ContactEmail string `json:"contactEmail" validate:"required,email"`
	Tier         string `json:"tier" validate:"required,oneof=bronze silver gold platinum"`
}

type FeaturedBusinessesRequest struct {
	BusinessIDs []string `json:"businessIds"`
}
