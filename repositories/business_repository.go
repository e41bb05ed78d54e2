package repositories

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type BusinessRepository struct {
	collection *mongo.Collection
}

func NewBusinessRepository(db *mongo.Database) *BusinessRepository {
	return &BusinessRepository{collection: db.Collection(BusinessesCollection)}
}

func (r *BusinessRepository) Insert(ctx context.Context, b *models.Business) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, b)
	return mapErr(err)
}

func (r *BusinessRepository) Update(ctx context.Context, b *models.Business) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": b.ID}, b)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *BusinessRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error) {
	var b models.Business
	if err := findOne(ctx, r.collection, bson.M{"_id": id}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BusinessRepository) FindBySlug(ctx context.Context, slug string) (*models.Business, error) {
	var b models.Business
	if err := findOne(ctx, r.collection, bson.M{"slug": slug}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BusinessRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	return n > 0, err
}

func directoryFilter(f models.BusinessFilter) bson.M {
	filter := bson.M{"isActive": true}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.City != "" {
		filter["city"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.City) + "$", "$options": "i"}
	}
	if f.Query != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Query), "$options": "i"}
	}
	return filter
}

// List pages through active businesses, paid tiers first, then by rating
func (r *BusinessRepository) List(ctx context.Context, f models.BusinessFilter) ([]models.Business, int64, error) {
	filter := directoryFilter(f)
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.M{
			"featuredRank": bson.M{"$switch": bson.M{
				"branches": bson.A{
					bson.M{"case": bson.M{"$eq": bson.A{"$subscriptionTier", "premium"}}, "then": 2},
					bson.M{"case": bson.M{"$eq": bson.A{"$subscriptionTier", "starter"}}, "then": 1},
				},
				"default": 0,
			}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "featuredRank", Value: -1},
			{Key: "averageRating", Value: -1},
			{Key: "reviewCount", Value: -1},
			{Key: "name", Value: 1},
		}}},
		{{Key: "$skip", Value: f.Skip}},
		{{Key: "$limit", Value: f.Limit}},
		{{Key: "$project", Value: bson.M{"featuredRank": 0}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	items := []models.Business{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *BusinessRepository) ListActive(ctx context.Context) ([]models.Business, error) {
	return findAll[models.Business](ctx, r.collection, bson.M{"isActive": true},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
}

func (r *BusinessRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Business, error) {
	return findAll[models.Business](ctx, r.collection, bson.M{"ownerId": ownerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *BusinessRepository) SetRating(ctx context.Context, id primitive.ObjectID, average float64, count int) error {
	return updateByID(ctx, r.collection, id, bson.M{"averageRating": average, "reviewCount": count, "updatedAt": time.Now().UTC()})
}

func (r *BusinessRepository) SetVerified(ctx context.Context, id primitive.ObjectID, verified bool) error {
	return updateByID(ctx, r.collection, id, bson.M{"isVerified": verified, "updatedAt": time.Now().UTC()})
}

func (r *BusinessRepository) SetSubscriptionTier(ctx context.Context, id primitive.ObjectID, tier string) error {
	return updateByID(ctx, r.collection, id, bson.M{"subscriptionTier": tier, "updatedAt": time.Now().UTC()})
}

func (r *BusinessRepository) SetLogo(ctx context.Context, id primitive.ObjectID, url string) error {
	return updateByID(ctx, r.collection, id, bson.M{"logoUrl": url, "updatedAt": time.Now().UTC()})
}

func (r *BusinessRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

type VerificationRepository struct {
	collection *mongo.Collection
}

func NewVerificationRepository(db *mongo.Database) *VerificationRepository {
	return &VerificationRepository{collection: db.Collection(VerificationsCollection)}
}

func (r *VerificationRepository) Insert(ctx context.Context, v *models.BusinessVerification) error {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, v)
	return mapErr(err)
}

func (r *VerificationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.BusinessVerification, error) {
	var v models.BusinessVerification
	if err := findOne(ctx, r.collection, bson.M{"_id": id}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VerificationRepository) ListPending(ctx context.Context) ([]models.BusinessVerification, error) {
	return findAll[models.BusinessVerification](ctx, r.collection, bson.M{"status": models.VerificationPending},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// Decide only moves a pending submission
func (r *VerificationRepository) Decide(ctx context.Context, id primitive.ObjectID, status, notes string, reviewer primitive.ObjectID, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.VerificationPending},
		bson.M{"$set": bson.M{
			"status":     status,
			"adminNotes": notes,
			"reviewedBy": reviewer,
			"reviewedAt": at,
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.ErrConflict
	}
	return nil
}
