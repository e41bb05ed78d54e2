package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KarmaEvent records a karma change
type KarmaEvent struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Delta     int                `json:"delta" bson:"delta"`
	Reason    string             `json:"reason" bson:"reason"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// KarmaStatus feeds the decay countdown
type KarmaStatus struct {
	Karma             int       `json:"karma"`
	LastActivityAt    time.Time `json:"lastActivityAt"`
	NextDecayAt       time.Time `json:"nextDecayAt"`
	SecondsUntilDecay int64     `json:"secondsUntilDecay"`
	ProjectedLoss     int       `json:"projectedLoss"`
}
