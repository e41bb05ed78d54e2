package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type LedgerRepository struct {
	collection *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{collection: db.Collection(TransactionsCollection)}
}

func (r *LedgerRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, tx)
	return mapErr(err)
}

func (r *LedgerRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Transaction, int64, error) {
	filter := bson.M{"userId": userID}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := findAll[models.Transaction](ctx, r.collection, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *LedgerRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"userId": userID})
}

type RewardRepository struct {
	collection *mongo.Collection
}

func NewRewardRepository(db *mongo.Database) *RewardRepository {
	return &RewardRepository{collection: db.Collection(RewardsCollection)}
}

func (r *RewardRepository) Insert(ctx context.Context, reward *models.Reward) error {
	if reward.ID.IsZero() {
		reward.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, reward)
	return mapErr(err)
}

func (r *RewardRepository) Update(ctx context.Context, reward *models.Reward) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": reward.ID}, reward)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *RewardRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Reward, error) {
	var reward models.Reward
	if err := findOne(ctx, r.collection, bson.M{"_id": id}, &reward); err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *RewardRepository) List(ctx context.Context, businessID *primitive.ObjectID, activeOnly bool) ([]models.Reward, error) {
	filter := bson.M{}
	if businessID != nil {
		filter["businessId"] = *businessID
	}
	if activeOnly {
		filter["isActive"] = true
		filter["stock"] = bson.M{"$ne": 0}
	}
	return findAll[models.Reward](ctx, r.collection, filter,
		options.Find().SetSort(bson.D{{Key: "pointsCost", Value: 1}}))
}

// TakeStock decrements positive stock; -1 is unlimited and never changes
func (r *RewardRepository) TakeStock(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"stock": -1}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		return false, err
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id, "stock": -1})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReturnStock only touches limited stock (stock >= 0)
func (r *RewardRepository) ReturnStock(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": 0}},
		bson.M{"$inc": bson.M{"stock": 1}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	return err
}

func (r *RewardRepository) DeleteByBusiness(ctx context.Context, businessID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"businessId": businessID})
}

type RedemptionRepository struct {
	collection *mongo.Collection
}

func NewRedemptionRepository(db *mongo.Database) *RedemptionRepository {
	return &RedemptionRepository{collection: db.Collection(RedemptionsCollection)}
}

func (r *RedemptionRepository) Insert(ctx context.Context, redemption *models.Redemption) error {
	if redemption.ID.IsZero() {
		redemption.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, redemption)
	return mapErr(err)
}

func (r *RedemptionRepository) FindByCode(ctx context.Context, code string) (*models.Redemption, error) {
	var redemption models.Redemption
	if err := findOne(ctx, r.collection, bson.M{"code": code}, &redemption); err != nil {
		return nil, err
	}
	return &redemption, nil
}

// MarkUsed flips an issued redemption to used exactly once
func (r *RedemptionRepository) MarkUsed(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RedemptionIssued},
		bson.M{"$set": bson.M{"status": models.RedemptionUsed, "usedAt": at}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *RedemptionRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Redemption, error) {
	return findAll[models.Redemption](ctx, r.collection, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *RedemptionRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"userId": userID})
}

type KarmaEventRepository struct {
	collection *mongo.Collection
}

func NewKarmaEventRepository(db *mongo.Database) *KarmaEventRepository {
	return &KarmaEventRepository{collection: db.Collection(KarmaEventsCollection)}
}

func (r *KarmaEventRepository) Insert(ctx context.Context, e *models.KarmaEvent) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, e)
	return mapErr(err)
}

func (r *KarmaEventRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"userId": userID})
}
