package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mansamusa/marketplace_backend/models"
)

type ChallengeRepository struct {
	collection *mongo.Collection
}

func NewChallengeRepository(db *mongo.Database) *ChallengeRepository {
	return &ChallengeRepository{collection: db.Collection(ChallengesCollection)}
}

func (r *ChallengeRepository) Insert(ctx context.Context, c *models.Challenge) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, c)
	return mapErr(err)
}

func (r *ChallengeRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Challenge, error) {
	var c models.Challenge
	if err := findOne(ctx, r.collection, bson.M{"_id": id}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChallengeRepository) ListActive(ctx context.Context, at time.Time) ([]models.Challenge, error) {
	return findAll[models.Challenge](ctx, r.collection, bson.M{
		"startsAt": bson.M{"$lte": at},
		"endsAt":   bson.M{"$gt": at},
	}, options.Find().SetSort(bson.D{{Key: "endsAt", Value: 1}}))
}

type ParticipationRepository struct {
	collection *mongo.Collection
}

func NewParticipationRepository(db *mongo.Database) *ParticipationRepository {
	return &ParticipationRepository{collection: db.Collection(ParticipationsCollection)}
}

// Insert relies on the unique (challengeId, userId) index
func (r *ParticipationRepository) Insert(ctx context.Context, p *models.ChallengeParticipation) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, p)
	return mapErr(err)
}

func (r *ParticipationRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.ChallengeParticipation, error) {
	return findAll[models.ChallengeParticipation](ctx, r.collection, bson.M{"userId": userID})
}

func (r *ParticipationRepository) ListOpen(ctx context.Context, userID primitive.ObjectID, activityType string) ([]models.ChallengeParticipation, error) {
	return findAll[models.ChallengeParticipation](ctx, r.collection, bson.M{
		"userId":       userID,
		"activityType": activityType,
		"completed":    false,
	})
}

func (r *ParticipationRepository) IncrementProgress(ctx context.Context, id primitive.ObjectID) (*models.ChallengeParticipation, error) {
	var p models.ChallengeParticipation
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "completed": false},
		bson.M{"$inc": bson.M{"progress": 1}},
		after()).Decode(&p)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *ParticipationRepository) Complete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "completed": false},
		bson.M{"$set": bson.M{"completed": true, "completedAt": at}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *ParticipationRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"userId": userID})
}
