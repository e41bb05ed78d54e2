package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"math"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
)

const (
	ScanCooldown    = 24 * time.Hour
	FirstVisitBonus = 25
	DefaultQRPoints = 10
	qrImageSize     = 300
)

type QRService struct {
	codes      QRCodeStore
	scans      ScanStore
	businesses BusinessStore
	users      UserStore
	loyalty    *LoyaltyService
	karma      *KarmaService
	activity   ActivityRecorder
	locker     Locker
	notifier   Notifier
	tracker    Tracker
	siteURL    string

	Now func() time.Time
}

type QRServiceConfig struct {
	Codes      QRCodeStore
	Scans      ScanStore
	Businesses BusinessStore
	Users      UserStore
	Loyalty    *LoyaltyService
	Karma      *KarmaService
	Activity   ActivityRecorder
	Locker     Locker // optional
	Notifier   Notifier
	Tracker    Tracker
	SiteURL    string
}

func NewQRService(cfg QRServiceConfig) *QRService {
	return &QRService{
		codes:      cfg.Codes,
		scans:      cfg.Scans,
		businesses: cfg.Businesses,
		users:      cfg.Users,
		loyalty:    cfg.Loyalty,
		karma:      cfg.Karma,
		activity:   cfg.Activity,
		locker:     cfg.Locker,
		notifier:   orNopNotifier(cfg.Notifier),
		tracker:    orNopTracker(cfg.Tracker),
		siteURL:    strings.TrimRight(cfg.SiteURL, "/"),
		Now:        systemNow,
	}
}

// Create issues a new QR code for a business the actor owns
func (s *QRService) Create(ctx context.Context, actor Actor, businessID primitive.ObjectID, req models.QRCodeRequest) (*models.QRCode, error) {
	if _, err := ownedBusiness(ctx, s.businesses, actor, businessID); err != nil {
		return nil, err
	}
	now := s.Now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, invalid("expiresAt must be in the future")
	}
	points := req.PointsValue
	if points == 0 {
		points = DefaultQRPoints
	}
	if points < 1 || points > 1000 {
		return nil, invalid("pointsValue must be between 1 and 1000")
	}
	if req.CodeType == models.QRCodeDiscount && req.DiscountPercentage <= 0 {
		return nil, invalid("discount codes need a discountPercentage")
	}

	code := &models.QRCode{
		BusinessID:         businessID,
		Token:              uuid.New().String(),
		CodeType:           req.CodeType,
		PointsValue:        points,
		DiscountPercentage: req.DiscountPercentage,
		ScanLimit:          req.ScanLimit,
		IsActive:           true,
		ExpiresAt:          req.ExpiresAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.codes.Insert(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

func (s *QRService) List(ctx context.Context, actor Actor, businessID primitive.ObjectID) ([]models.QRCode, error) {
	if _, err := ownedBusiness(ctx, s.businesses, actor, businessID); err != nil {
		return nil, err
	}
	return s.codes.ListByBusiness(ctx, businessID)
}

// Deactivate stops a code from awarding points
func (s *QRService) Deactivate(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	code, err := s.codes.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ownedBusiness(ctx, s.businesses, actor, code.BusinessID); err != nil {
		return err
	}
	return s.codes.SetActive(ctx, id, false)
}

// ScanURL is the link encoded into the printed code
func (s *QRService) ScanURL(token string) string {
	return fmt.Sprintf("%s/scan/%s", s.siteURL, token)
}

// Image renders the code as a PNG
func (s *QRService) Image(ctx context.Context, actor Actor, id primitive.ObjectID) ([]byte, error) {
	code, err := s.codes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := ownedBusiness(ctx, s.businesses, actor, code.BusinessID); err != nil {
		return nil, err
	}
	return RenderQR(s.ScanURL(code.Token), qrImageSize)
}

// ImageDataURL returns the PNG as a base64 data URL
func (s *QRService) ImageDataURL(ctx context.Context, actor Actor, id primitive.ObjectID) (string, error) {
	img, err := s.Image(ctx, actor, id)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img), nil
}

// RenderQR encodes content as a size x size PNG
func RenderQR(content string, size int) ([]byte, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("generate qr code: %w", err)
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("scale qr code: %w", err)
	}
	buffer := new(bytes.Buffer)
	if err := png.Encode(buffer, code); err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return buffer.Bytes(), nil
}

func scanLockKey(userID, businessID primitive.ObjectID) string {
	return "scan:" + userID.Hex() + ":" + businessID.Hex()
}

// Scan awards points for a customer scanning a business's code. A customer
// earns at most once per business per ScanCooldown.
func (s *QRService) Scan(ctx context.Context, actor Actor, token string) (*models.ScanResult, error) {
	code, err := s.codes.FindByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	now := s.Now()
	switch {
	case !code.IsActive:
		return nil, ErrQRCodeInactive
	case code.ExpiresAt != nil && !code.ExpiresAt.After(now):
		return nil, ErrQRCodeExpired
	case code.ScanLimit > 0 && code.ScanCount >= code.ScanLimit:
		return nil, ErrScanLimitReached
	}

	business, err := s.businesses.FindByID(ctx, code.BusinessID)
	if err != nil {
		return nil, err
	}
	if !business.IsActive {
		return nil, ErrQRCodeInactive
	}
	if business.OwnerID == actor.ID {
		return nil, ErrForbidden
	}

	last, err := s.scans.LastScan(ctx, actor.ID, business.ID)
	if err != nil {
		return nil, err
	}
	if last != nil && now.Before(last.ScannedAt.Add(ScanCooldown)) {
		return nil, &CooldownError{NextEligibleAt: last.ScannedAt.Add(ScanCooldown)}
	}

	// Take the cooldown lock; Redis being down falls back to the last-scan check
	key := scanLockKey(actor.ID, business.ID)
	locked := false
	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, key, ScanCooldown)
		switch {
		case err != nil:
			logIfErr(err, "Scan lock unavailable for %s", key)
		case !ok:
			return nil, &CooldownError{NextEligibleAt: now.Add(ScanCooldown)}
		default:
			locked = true
		}
	}
	release := func() {
		if locked {
			logIfErr(s.locker.Release(ctx, key), "Failed to release scan lock %s", key)
		}
	}

	// Count the scan against the code's limit
	counted, err := s.codes.IncrementScanCount(ctx, code.ID, code.ScanLimit)
	if err != nil {
		release()
		return nil, err
	}
	if !counted {
		release()
		return nil, ErrScanLimitReached
	}
	uncount := func() {
		logIfErr(s.codes.DecrementScanCount(ctx, code.ID), "Failed to give back scan of qr code %s", code.ID.Hex())
		release()
	}

	// Points scale with the customer's tier; the first visit earns a bonus
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		uncount()
		return nil, err
	}
	points := int(math.Round(float64(code.PointsValue) * MultiplierFor(user)))
	bonus := 0
	if last == nil {
		bonus = FirstVisitBonus
	}

	// Record the scan; it drives the cooldown when Redis is unavailable
	scan := &models.QRScan{
		QRCodeID:      code.ID,
		BusinessID:    business.ID,
		UserID:        actor.ID,
		PointsAwarded: points,
		BonusPoints:   bonus,
		ScannedAt:     now,
	}
	if err := s.scans.Insert(ctx, scan); err != nil {
		uncount()
		return nil, err
	}

	// Credit the ledger; a failed credit undoes the scan so the customer can retry
	ref := code.ID.Hex()
	user, err = s.loyalty.Credit(ctx, actor.ID, &business.ID, models.TxEarn, points, "Check-in at "+business.Name, ref)
	if err != nil {
		logIfErr(s.scans.Delete(ctx, scan.ID), "Failed to remove unawarded scan %s", scan.ID.Hex())
		uncount()
		return nil, err
	}
	if bonus > 0 {
		bonusUser, err := s.loyalty.Credit(ctx, actor.ID, &business.ID, models.TxBonus, bonus, "First visit to "+business.Name, ref)
		if err != nil {
			logIfErr(err, "Failed to award first visit bonus to user %s", actor.ID.Hex())
			bonus = 0
		} else {
			user = bonusUser
		}
	}

	// Side effects below never fail the scan
	logIfErr(s.karma.Reward(ctx, actor.ID, KarmaForScan, "qr scan"), "Failed to award scan karma to user %s", actor.ID.Hex())
	if s.activity != nil {
		logIfErr(s.activity.RecordActivity(ctx, actor.ID, models.ActivityCheckin), "Failed to record check-in for user %s", actor.ID.Hex())
	}

	s.tracker.Track(actor.ID.Hex(), "qr_scanned", map[string]interface{}{
		"business_id": business.ID.Hex(),
		"code_type":   code.CodeType,
		"points":      points,
		"bonus":       bonus,
	})
	s.notifier.Notify(ctx, actor.ID, models.NotificationPointsAwarded, "Points earned",
		fmt.Sprintf("You earned %d points at %s", points+bonus, business.Name),
		map[string]interface{}{"businessId": business.ID.Hex(), "points": points + bonus})

	return &models.ScanResult{
		PointsAwarded:      points,
		BonusPoints:        bonus,
		NewBalance:         user.Points,
		Tier:               user.LoyaltyTier,
		DiscountPercentage: code.DiscountPercentage,
		BusinessName:       business.Name,
		NextEligibleAt:     now.Add(ScanCooldown),
	}, nil
}
