package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mansamusa/marketplace_backend/models"
)

type ReviewRepository struct {
	collection *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{collection: db.Collection(ReviewsCollection)}
}

// Insert relies on the unique (userId, businessId) index
func (r *ReviewRepository) Insert(ctx context.Context, review *models.Review) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, review)
	return mapErr(err)
}

func (r *ReviewRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	var review models.Review
	if err := findOne(ctx, r.collection, bson.M{"_id": id}, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) ListByBusiness(ctx context.Context, businessID primitive.ObjectID, skip, limit int64) ([]models.Review, int64, error) {
	filter := bson.M{"businessId": businessID}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := findAll[models.Review](ctx, r.collection, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ReviewRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Review, error) {
	return findAll[models.Review](ctx, r.collection, bson.M{"userId": userID})
}

// SetReply only writes a reply to a review that has none
func (r *ReviewRepository) SetReply(ctx context.Context, id primitive.ObjectID, reply models.ReviewReply) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "reply": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"reply": reply, "updatedAt": reply.CreatedAt}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *ReviewRepository) RatingStats(ctx context.Context, businessID primitive.ObjectID) (float64, int, error) {
	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"businessId": businessID}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Average float64 `bson:"average"`
		Count   int     `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Average, rows[0].Count, nil
}

func (r *ReviewRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"userId": userID})
}
