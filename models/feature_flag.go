package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeatureFlag gates a feature behind a percentage rollout
type FeatureFlag struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Key               string             `json:"key" bson:"key"`
	Description       string             `json:"description" bson:"description"`
	Enabled           bool               `json:"enabled" bson:"enabled"`
	RolloutPercentage int                `json:"rolloutPercentage" bson:"rolloutPercentage"`
	AllowUserIDs      []string           `json:"allowUserIds,omitempty" bson:"allowUserIds,omitempty"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type FeatureFlagRequest struct {
	Key               string   `json:"key" validate:"required"`
	Description       string   `json:"description"`
	Enabled           bool     `json:"enabled"`
	RolloutPercentage int      `json:"rolloutPercentage" validate:"gte=0,lte=100"`
	AllowUserIDs      []string `json:"allowUserIds,omitempty"`
}
