package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection(UsersCollection),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, user)
	return mapErr(err)
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, r.collection, bson.M{"_id": id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, r.collection, bson.M{"email": email}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, r.collection, bson.M{"referralCode": code}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByAppAccountToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, r.collection, bson.M{"appAccountToken": token}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByStripeCustomer(ctx context.Context, customerID string) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, r.collection, bson.M{"stripeCustomerId": customerID}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AdjustPoints applies the change in a single conditional update so
// concurrent debits cannot overdraw the balance
func (r *UserRepository) AdjustPoints(ctx context.Context, id primitive.ObjectID, delta, lifetimeDelta int) (*models.User, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["points"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"points": delta, "lifetimePoints": lifetimeDelta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	var user models.User
	err := r.collection.FindOneAndUpdate(ctx, filter, update, after()).Decode(&user)
	if err == mongo.ErrNoDocuments && delta < 0 {
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, services.ErrInsufficientPoints
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (r *UserRepository) SetLoyaltyTier(ctx context.Context, id primitive.ObjectID, tier string) error {
	return updateByID(ctx, r.collection, id, bson.M{"loyaltyTier": tier, "updatedAt": time.Now().UTC()})
}

func (r *UserRepository) AddKarma(ctx context.Context, id primitive.ObjectID, delta int, at time.Time) (*models.User, error) {
	update := bson.M{
		"$inc": bson.M{"karma": delta},
		"$set": bson.M{"karmaLastActivityAt": at, "updatedAt": at},
	}
	var user models.User
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, after()).Decode(&user); err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

// DecayKarma subtracts loss with a floor of zero. A user active again since
// listing no longer matches.
func (r *UserRepository) DecayKarma(ctx context.Context, id primitive.ObjectID, loss int, at, inactiveSince time.Time) (bool, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"karma":            bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$karma", loss}}}},
			"karmaLastDecayAt": at,
		}}},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{
		"_id":                 id,
		"karmaLastActivityAt": bson.M{"$lte": inactiveSince},
	}, pipeline)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *UserRepository) ListKarmaDecayCandidates(ctx context.Context, inactiveSince time.Time) ([]models.User, error) {
	return findAll[models.User](ctx, r.collection, bson.M{
		"karma":               bson.M{"$gt": 0},
		"karmaLastActivityAt": bson.M{"$lte": inactiveSince},
	})
}

func (r *UserRepository) SetSubscriptionTier(ctx context.Context, id primitive.ObjectID, tier string) error {
	return updateByID(ctx, r.collection, id, bson.M{"subscriptionTier": tier, "updatedAt": time.Now().UTC()})
}

func (r *UserRepository) SetStripeCustomer(ctx context.Context, id primitive.ObjectID, customerID string) error {
	return updateByID(ctx, r.collection, id, bson.M{"stripeCustomerId": customerID, "updatedAt": time.Now().UTC()})
}

func (r *UserRepository) SetFCMToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return updateByID(ctx, r.collection, id, bson.M{"fcmToken": token, "updatedAt": time.Now().UTC()})
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
