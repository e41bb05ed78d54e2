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

type AgentRepository struct {
	collection *mongo.Collection
}

func NewAgentRepository(db *mongo.Database) *AgentRepository {
	return &AgentRepository{collection: db.Collection(SalesAgentsCollection)}
}

func (r *AgentRepository) Insert(ctx context.Context, a *models.SalesAgent) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, a)
	return mapErr(err)
}

func (r *AgentRepository) find(ctx context.Context, filter bson.M) (*models.SalesAgent, error) {
	var a models.SalesAgent
	if err := findOne(ctx, r.collection, filter, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AgentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.SalesAgent, error) {
	return r.find(ctx, bson.M{"_id": id})
}

func (r *AgentRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.SalesAgent, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *AgentRepository) FindByCode(ctx context.Context, code string) (*models.SalesAgent, error) {
	return r.find(ctx, bson.M{"referralCode": code})
}

func (r *AgentRepository) ListByStatus(ctx context.Context, status string) ([]models.SalesAgent, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return findAll[models.SalesAgent](ctx, r.collection, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *AgentRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status, code string, at time.Time) error {
	set := bson.M{"status": status, "updatedAt": at}
	if code != "" {
		set["referralCode"] = code
	}
	if status == models.AgentActive {
		set["approvedAt"] = at
	}
	return updateByID(ctx, r.collection, id, set)
}

func (r *AgentRepository) SetConnectAccount(ctx context.Context, id primitive.ObjectID, accountID string) error {
	return updateByID(ctx, r.collection, id, bson.M{"stripeAccountId": accountID, "updatedAt": time.Now().UTC()})
}

func (r *AgentRepository) CountRecruits(ctx context.Context, recruiterID primitive.ObjectID) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"recruitedBy": recruiterID, "status": models.AgentActive})
	return int(n), err
}

func (r *AgentRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"userId": userID})
}

type BusinessReferralRepository struct {
	collection *mongo.Collection
}

func NewBusinessReferralRepository(db *mongo.Database) *BusinessReferralRepository {
	return &BusinessReferralRepository{collection: db.Collection(BusinessReferralsCollection)}
}

func (r *BusinessReferralRepository) Insert(ctx context.Context, ref *models.BusinessReferral) error {
	if ref.ID.IsZero() {
		ref.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, ref)
	return mapErr(err)
}

func (r *BusinessReferralRepository) FindByBusiness(ctx context.Context, businessID primitive.ObjectID) (*models.BusinessReferral, error) {
	var ref models.BusinessReferral
	if err := findOne(ctx, r.collection, bson.M{"businessId": businessID}, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *BusinessReferralRepository) ListByAgent(ctx context.Context, agentID primitive.ObjectID) ([]models.BusinessReferral, error) {
	return findAll[models.BusinessReferral](ctx, r.collection, bson.M{"agentId": agentID},
		options.Find().SetSort(bson.D{{Key: "referredAt", Value: -1}}))
}

func (r *BusinessReferralRepository) CountActive(ctx context.Context, agentID primitive.ObjectID) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"agentId": agentID, "status": models.ReferralActive})
	return int(n), err
}

func (r *BusinessReferralRepository) Activate(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ReferralPending},
		bson.M{"$set": bson.M{"status": models.ReferralActive, "activatedAt": at}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

type CommissionRepository struct {
	collection *mongo.Collection
}

func NewCommissionRepository(db *mongo.Database) *CommissionRepository {
	return &CommissionRepository{collection: db.Collection(CommissionsCollection)}
}

// Insert relies on the unique (invoiceId, agentId, kind) index
func (r *CommissionRepository) Insert(ctx context.Context, c *models.Commission) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, c)
	return mapErr(err)
}

func (r *CommissionRepository) ListPending(ctx context.Context, agentID primitive.ObjectID) ([]models.Commission, error) {
	return findAll[models.Commission](ctx, r.collection,
		bson.M{"agentId": agentID, "status": models.CommissionStatusPending},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *CommissionRepository) Claim(ctx context.Context, ids []primitive.ObjectID, payoutID primitive.ObjectID) (int, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": models.CommissionStatusPending},
		bson.M{"$set": bson.M{"status": models.CommissionStatusProcessing, "payoutId": payoutID}})
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

func (r *CommissionRepository) Settle(ctx context.Context, payoutID primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"payoutId": payoutID, "status": models.CommissionStatusProcessing},
		bson.M{"$set": bson.M{"status": models.CommissionStatusPaid, "paidAt": at}})
	return err
}

func (r *CommissionRepository) Release(ctx context.Context, payoutID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"payoutId": payoutID, "status": models.CommissionStatusProcessing},
		bson.M{
			"$set":   bson.M{"status": models.CommissionStatusPending},
			"$unset": bson.M{"payoutId": ""},
		})
	return err
}

func (r *CommissionRepository) Totals(ctx context.Context, agentID primitive.ObjectID) (int64, int64, error) {
	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"agentId": agentID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "total": bson.M{"$sum": "$amountCents"}}}},
	})
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Total  int64  `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	var pending, paid int64
	for _, row := range rows {
		switch row.Status {
		case models.CommissionStatusPending, models.CommissionStatusProcessing:
			pending += row.Total
		case models.CommissionStatusPaid:
			paid = row.Total
		}
	}
	return pending, paid, nil
}

type PayoutRepository struct {
	collection *mongo.Collection
}

func NewPayoutRepository(db *mongo.Database) *PayoutRepository {
	return &PayoutRepository{collection: db.Collection(PayoutsCollection)}
}

func (r *PayoutRepository) Insert(ctx context.Context, p *models.Payout) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, p)
	return mapErr(err)
}

func (r *PayoutRepository) FindOpen(ctx context.Context, agentID primitive.ObjectID) (*models.Payout, error) {
	var p models.Payout
	if err := findOne(ctx, r.collection, bson.M{"agentId": agentID, "status": models.PayoutPending}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PayoutRepository) Complete(ctx context.Context, id primitive.ObjectID, method, transferID string, at time.Time) error {
	return updateByID(ctx, r.collection, id, bson.M{
		"status":      models.PayoutCompleted,
		"method":      method,
		"transferId":  transferID,
		"completedAt": at,
	})
}

func (r *PayoutRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return updateByID(ctx, r.collection, id, bson.M{"status": status})
}
