package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mansamusa/marketplace_backend/models"
)

type QRCodeRepository struct {
	collection *mongo.Collection
}

func NewQRCodeRepository(db *mongo.Database) *QRCodeRepository {
	return &QRCodeRepository{collection: db.Collection(QRCodesCollection)}
}

func (r *QRCodeRepository) Insert(ctx context.Context, qr *models.QRCode) error {
	if qr.ID.IsZero() {
		qr.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, qr)
	return mapErr(err)
}

func (r *QRCodeRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.QRCode, error) {
	var qr models.QRCode
	if err := findOne(ctx, r.collection, bson.M{"_id": id}, &qr); err != nil {
		return nil, err
	}
	return &qr, nil
}

func (r *QRCodeRepository) FindByToken(ctx context.Context, token string) (*models.QRCode, error) {
	var qr models.QRCode
	if err := findOne(ctx, r.collection, bson.M{"token": token}, &qr); err != nil {
		return nil, err
	}
	return &qr, nil
}

func (r *QRCodeRepository) ListByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]models.QRCode, error) {
	return findAll[models.QRCode](ctx, r.collection, bson.M{"businessId": businessID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *QRCodeRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	return updateByID(ctx, r.collection, id, bson.M{"isActive": active, "updatedAt": time.Now().UTC()})
}

// IncrementScanCount only counts while scanCount is under a non-zero limit
func (r *QRCodeRepository) IncrementScanCount(ctx context.Context, id primitive.ObjectID, limit int) (bool, error) {
	filter := bson.M{"_id": id}
	if limit > 0 {
		filter["scanCount"] = bson.M{"$lt": limit}
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"scanCount": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *QRCodeRepository) DecrementScanCount(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "scanCount": bson.M{"$gt": 0}}, bson.M{
		"$inc": bson.M{"scanCount": -1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}

func (r *QRCodeRepository) DeleteByBusiness(ctx context.Context, businessID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"businessId": businessID})
}

type ScanRepository struct {
	collection *mongo.Collection
}

func NewScanRepository(db *mongo.Database) *ScanRepository {
	return &ScanRepository{collection: db.Collection(QRScansCollection)}
}

func (r *ScanRepository) Insert(ctx context.Context, scan *models.QRScan) error {
	if scan.ID.IsZero() {
		scan.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, scan)
	return mapErr(err)
}

func (r *ScanRepository) LastScan(ctx context.Context, userID, businessID primitive.ObjectID) (*models.QRScan, error) {
	var scan models.QRScan
	err := r.collection.FindOne(ctx,
		bson.M{"userId": userID, "businessId": businessID},
		options.FindOne().SetSort(bson.D{{Key: "scannedAt", Value: -1}}),
	).Decode(&scan)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &scan, nil
}

func (r *ScanRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *ScanRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return deleteMany(ctx, r.collection, bson.M{"userId": userID})
}
