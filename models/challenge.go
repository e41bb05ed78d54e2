package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Challenge activity types
const (
	ActivityCheckin  = "checkin"
	ActivityReview   = "review"
	ActivityReferral = "referral"
)

// Challenge is a time-boxed goal that awards bonus points
type Challenge struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title        string             `json:"title" bson:"title"`
	Description  string             `json:"description" bson:"description"`
	ActivityType string             `json:"activityType" bson:"activityType"`
	TargetCount  int                `json:"targetCount" bson:"targetCount"`
	RewardPoints int                `json:"rewardPoints" bson:"rewardPoints"`
	StartsAt     time.Time          `json:"startsAt" bson:"startsAt"`
	EndsAt       time.Time          `json:"endsAt" bson:"endsAt"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

type ChallengeRequest struct {
	Title        string    `json:"title" validate:"required"`
	Description  string    `json:"description"`
	ActivityType string    `json:"activityType" validate:"required,oneof=checkin review referral"`
	TargetCount  int       `json:"targetCount" validate:"required,min=1"`
	RewardPoints int       `json:"rewardPoints" validate:"required,min=1"`
	StartsAt     time.Time `json:"startsAt" validate:"required"`
	EndsAt       time.Time `json:"endsAt" validate:"required,gtfield=StartsAt"`
}

// ChallengeParticipation tracks one user's progress in one challenge
type ChallengeParticipation struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ChallengeID  primitive.ObjectID `json:"challengeId" bson:"challengeId"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId"`
	ActivityType string             `json:"activityType" bson:"activityType"`
	Progress     int                `json:"progress" bson:"progress"`
	Completed    bool               `json:"completed" bson:"completed"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	JoinedAt     time.Time          `json:"joinedAt" bson:"joinedAt"`
}

// ChallengeView is a challenge with the caller's progress
type ChallengeView struct {
	Challenge
	Joined    bool `json:"joined"`
	Progress  int  `json:"progress"`
	Completed bool `json:"completed"`
}
