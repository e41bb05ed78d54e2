package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{collection: db.Collection(NotificationsCollection)}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, n)
	return mapErr(err)
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	return findAll[models.Notification](ctx, r.collection, bson.M{"userId": userID}, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit))
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"userId": userID})
}

type FeatureFlagRepository struct {
	collection *mongo.Collection
}

func NewFeatureFlagRepository(db *mongo.Database) *FeatureFlagRepository {
	return &FeatureFlagRepository{collection: db.Collection(FeatureFlagsCollection)}
}

// Upsert keys on the flag key
func (r *FeatureFlagRepository) Upsert(ctx context.Context, f *models.FeatureFlag) error {
	update := bson.M{"$set": bson.M{
		"description":       f.Description,
		"enabled":           f.Enabled,
		"rolloutPercentage": f.RolloutPercentage,
		"allowUserIds":      f.AllowUserIDs,
		"updatedAt":         f.UpdatedAt,
	}}
	var saved models.FeatureFlag
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"key": f.Key}, update, after().SetUpsert(true)).Decode(&saved)
	if err != nil {
		return mapErr(err)
	}
	f.ID = saved.ID
	return nil
}

func (r *FeatureFlagRepository) List(ctx context.Context) ([]models.FeatureFlag, error) {
	return findAll[models.FeatureFlag](ctx, r.collection, bson.M{},
		options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
}

func (r *FeatureFlagRepository) Delete(ctx context.Context, key string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}
