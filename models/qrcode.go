package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QR code types
const (
	QRCodeCheckin  = "checkin"
	QRCodeLoyalty  = "loyalty"
	QRCodeDiscount = "discount"
)

// QRCode is a printable code a business displays for customers to scan
type QRCode struct {
	ID                 primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	BusinessID         primitive.ObjectID `json:"businessId" bson:"businessId"`
	Token              string             `json:"token" bson:"token"`
	CodeType           string             `json:"codeType" bson:"codeType"`
	PointsValue        int                `json:"pointsValue" bson:"pointsValue"`
	DiscountPercentage float64            `json:"discountPercentage" bson:"discountPercentage"`
	ScanLimit          int                `json:"scanLimit" bson:"scanLimit"` // 0 means unlimited
	ScanCount          int                `json:"scanCount" bson:"scanCount"`
	IsActive           bool               `json:"isActive" bson:"isActive"`
	ExpiresAt          *time.Time         `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// QRCodeRequest is the body for creating a QR code
type QRCodeRequest struct {
	CodeType           string     `json:"codeType" validate:"required,oneof=checkin loyalty discount"`
	PointsValue        int        `json:"pointsValue" validate:"omitempty,min=1,max=1000"`
	DiscountPercentage float64    `json:"discountPercentage" validate:"gte=0,lte=100"`
	ScanLimit          int        `json:"scanLimit" validate:"gte=0"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
}

// QRScan records a single successful scan
type QRScan struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	QRCodeID      primitive.ObjectID `json:"qrCodeId" bson:"qrCodeId"`
	BusinessID    primitive.ObjectID `json:"businessId" bson:"businessId"`
	UserID        primitive.ObjectID `json:"userId" bson:"userId"`
	PointsAwarded int                `json:"pointsAwarded" bson:"pointsAwarded"`
	BonusPoints   int                `json:"bonusPoints" bson:"bonusPoints"`
	ScannedAt     time.Time          `json:"scannedAt" bson:"scannedAt"`
}

type ScanRequest struct {
	Token string `json:"token" validate:"required"`
}

// ScanResult is returned to the customer after a scan
type ScanResult struct {
	PointsAwarded      int       `json:"pointsAwarded"`
	BonusPoints        int       `json:"bonusPoints"`
	NewBalance         int       `json:"newBalance"`
	Tier               string    `json:"tier"`
	DiscountPercentage float64   `json:"discountPercentage"`
	BusinessName       string    `json:"businessName"`
	NextEligibleAt     time.Time `json:"nextEligibleAt"`
}
