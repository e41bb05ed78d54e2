package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mansamusa/marketplace_backend/services"
)

// Collection names
const (
	UsersCollection             = "users"
	BusinessesCollection        = "businesses"
	VerificationsCollection     = "business_verifications"
	QRCodesCollection           = "qr_codes"
	QRScansCollection           = "qr_scans"
	TransactionsCollection      = "transactions"
	RewardsCollection           = "rewards"
	RedemptionsCollection       = "redemptions"
	KarmaEventsCollection       = "karma_events"
	SalesAgentsCollection       = "sales_agents"
	BusinessReferralsCollection = "business_referrals"
	CommissionsCollection       = "commissions"
	PayoutsCollection           = "payouts"
	SubscriptionsCollection     = "subscriptions"
	ProcessedEventsCollection   = "processed_events"
	SponsorsCollection          = "sponsors"
	ReviewsCollection           = "reviews"
	ChallengesCollection        = "challenges"
	ParticipationsCollection    = "challenge_participations"
	FeatureFlagsCollection      = "feature_flags"
	NotificationsCollection     = "notifications"
)

// mapErr translates driver errors into the service sentinels
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return services.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return services.ErrConflict
	}
	return err
}

func findOne(ctx context.Context, coll *mongo.Collection, filter interface{}, out interface{}) error {
	return mapErr(coll.FindOne(ctx, filter).Decode(out))
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// updateByID sets fields on one document and fails with ErrNotFound when
// nothing matched
func updateByID(ctx context.Context, coll *mongo.Collection, id interface{}, set bson.M) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

func deleteMany(ctx context.Context, coll *mongo.Collection, filter interface{}) error {
	_, err := coll.DeleteMany(ctx, filter)
	return err
}

// after makes FindOneAndUpdate return the updated document
func after() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
