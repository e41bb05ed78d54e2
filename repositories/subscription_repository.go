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

var liveStatuses = bson.A{models.SubscriptionActive, models.SubscriptionTrialing, models.SubscriptionPastDue}

type SubscriptionRepository struct {
	collection *mongo.Collection
}

func NewSubscriptionRepository(db *mongo.Database) *SubscriptionRepository {
	return &SubscriptionRepository{collection: db.Collection(SubscriptionsCollection)}
}

// Upsert keeps the original id and createdAt of an existing subscription
func (r *SubscriptionRepository) Upsert(ctx context.Context, s *models.Subscription) error {
	filter := bson.M{"source": s.Source, "externalId": s.ExternalID}
	set := bson.M{
		"userId":            s.UserID,
		"audience":          s.Audience,
		"plan":              s.Plan,
		"tier":              s.Tier,
		"status":            s.Status,
		"currentPeriodEnd":  s.CurrentPeriodEnd,
		"cancelAtPeriodEnd": s.CancelAtPeriodEnd,
		"updatedAt":         s.UpdatedAt,
	}
	if s.TargetID != nil {
		set["targetId"] = s.TargetID
	}
	if s.CustomerID != "" {
		set["customerId"] = s.CustomerID
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.UpdatedAt
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"createdAt": createdAt},
	}

	var saved models.Subscription
	err := r.collection.FindOneAndUpdate(ctx, filter, update, after().SetUpsert(true)).Decode(&saved)
	if err != nil {
		return mapErr(err)
	}
	s.ID = saved.ID
	s.CreatedAt = saved.CreatedAt
	return nil
}

func (r *SubscriptionRepository) FindByExternalID(ctx context.Context, source, externalID string) (*models.Subscription, error) {
	var s models.Subscription
	if err := findOne(ctx, r.collection, bson.M{"source": source, "externalId": externalID}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Subscription, error) {
	return findAll[models.Subscription](ctx, r.collection, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// ListByTarget finds what pays for a customer (by user) or for a business
// or sponsor profile (by target)
func (r *SubscriptionRepository) ListByTarget(ctx context.Context, audience string, userID primitive.ObjectID, targetID *primitive.ObjectID) ([]models.Subscription, error) {
	filter := bson.M{"audience": audience}
	if targetID != nil {
		filter["targetId"] = *targetID
	} else {
		filter["userId"] = userID
	}
	return findAll[models.Subscription](ctx, r.collection, filter)
}

func (r *SubscriptionRepository) ListLapsed(ctx context.Context, cutoff time.Time) ([]models.Subscription, error) {
	return findAll[models.Subscription](ctx, r.collection, bson.M{
		"status":           bson.M{"$in": liveStatuses},
		"currentPeriodEnd": bson.M{"$lt": cutoff},
	})
}

func (r *SubscriptionRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status string, at time.Time) error {
	return updateByID(ctx, r.collection, id, bson.M{"status": status, "updatedAt": at})
}

func (r *SubscriptionRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"userId": userID})
}

type ProcessedEventRepository struct {
	collection *mongo.Collection
}

func NewProcessedEventRepository(db *mongo.Database) *ProcessedEventRepository {
	return &ProcessedEventRepository{collection: db.Collection(ProcessedEventsCollection)}
}

// MarkProcessed relies on the unique (source, eventId) index
func (r *ProcessedEventRepository) MarkProcessed(ctx context.Context, source, eventID string, at time.Time) (bool, error) {
	_, err := r.collection.InsertOne(ctx, models.ProcessedEvent{
		ID:          primitive.NewObjectID(),
		Source:      source,
		EventID:     eventID,
		ProcessedAt: at,
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ProcessedEventRepository) Forget(ctx context.Context, source, eventID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"source": source, "eventId": eventID})
	return err
}

type SponsorRepository struct {
	collection *mongo.Collection
}

func NewSponsorRepository(db *mongo.Database) *SponsorRepository {
	return &SponsorRepository{collection: db.Collection(SponsorsCollection)}
}

func (r *SponsorRepository) Insert(ctx context.Context, s *models.SponsorProfile) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, s)
	return mapErr(err)
}

func (r *SponsorRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.SponsorProfile, error) {
	var s models.SponsorProfile
	if err := findOne(ctx, r.collection, bson.M{"_id": id}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SponsorRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.SponsorProfile, error) {
	var s models.SponsorProfile
	if err := findOne(ctx, r.collection, bson.M{"userId": userID}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SponsorRepository) ListActive(ctx context.Context) ([]models.SponsorProfile, error) {
	return findAll[models.SponsorProfile](ctx, r.collection, bson.M{"status": models.SponsorStatusActive})
}

func (r *SponsorRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status, tier string, at time.Time) error {
	return updateByID(ctx, r.collection, id, bson.M{"status": status, "tier": tier, "updatedAt": at})
}

func (r *SponsorRepository) SetFeatured(ctx context.Context, id primitive.ObjectID, businessIDs []primitive.ObjectID, at time.Time) error {
	return updateByID(ctx, r.collection, id, bson.M{"featuredBusinessIds": businessIDs, "updatedAt": at})
}

func (r *SponsorRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"userId": userID})
}
