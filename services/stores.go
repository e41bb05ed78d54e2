package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
)

// Stores are implemented by the Mongo repositories. Lookups return
// ErrNotFound when nothing matches; inserts return ErrConflict on a
// unique index violation.

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	FindByAppAccountToken(ctx context.Context, token string) (*models.User, error)
	FindByStripeCustomer(ctx context.Context, customerID string) (*models.User, error)
	// AdjustPoints adds delta to the balance and lifetimeDelta to lifetime
	// points. A negative delta only applies while the balance covers it,
	// otherwise ErrInsufficientPoints.
	AdjustPoints(ctx context.Context, id primitive.ObjectID, delta, lifetimeDelta int) (*models.User, error)
	SetLoyaltyTier(ctx context.Context, id primitive.ObjectID, tier string) error
	AddKarma(ctx context.Context, id primitive.ObjectID, delta int, at time.Time) (*models.User, error)
	// DecayKarma only applies while the user is still inactive since
	// inactiveSince and reports whether it did.
	DecayKarma(ctx context.Context, id primitive.ObjectID, loss int, at, inactiveSince time.Time) (bool, error)
	ListKarmaDecayCandidates(ctx context.Context, inactiveSince time.Time) ([]models.User, error)
	SetSubscriptionTier(ctx context.Context, id primitive.ObjectID, tier string) error
	SetStripeCustomer(ctx context.Context, id primitive.ObjectID, customerID string) error
	SetFCMToken(ctx context.Context, id primitive.ObjectID, token string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type BusinessStore interface {
	Insert(ctx context.Context, b *models.Business) error
	Update(ctx context.Context, b *models.Business) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error)
	FindBySlug(ctx context.Context, slug string) (*models.Business, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter models.BusinessFilter) ([]models.Business, int64, error)
	ListActive(ctx context.Context) ([]models.Business, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Business, error)
	SetRating(ctx context.Context, id primitive.ObjectID, average float64, count int) error
	SetVerified(ctx context.Context, id primitive.ObjectID, verified bool) error
	SetSubscriptionTier(ctx context.Context, id primitive.ObjectID, tier string) error
	SetLogo(ctx context.Context, id primitive.ObjectID, url string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type VerificationStore interface {
	Insert(ctx context.Context, v *models.BusinessVerification) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.BusinessVerification, error)
	ListPending(ctx context.Context) ([]models.BusinessVerification, error)
	Decide(ctx context.Context, id primitive.ObjectID, status, notes string, reviewer primitive.ObjectID, at time.Time) error
}

type QRCodeStore interface {
	Insert(ctx context.Context, qr *models.QRCode) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.QRCode, error)
	FindByToken(ctx context.Context, token string) (*models.QRCode, error)
	ListByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]models.QRCode, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	// IncrementScanCount bumps the counter unless the limit (0 = none) is
	// already reached; it reports whether the increment happened.
	IncrementScanCount(ctx context.Context, id primitive.ObjectID, limit int) (bool, error)
	// DecrementScanCount gives back a counted scan that was not awarded.
	DecrementScanCount(ctx context.Context, id primitive.ObjectID) error
	DeleteByBusiness(ctx context.Context, businessID primitive.ObjectID) error
}

type ScanStore interface {
	Insert(ctx context.Context, scan *models.QRScan) error
	// LastScan returns nil, nil when the user never scanned at the business.
	LastScan(ctx context.Context, userID, businessID primitive.ObjectID) (*models.QRScan, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type LedgerStore interface {
	Insert(ctx context.Context, tx *models.Transaction) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Transaction, int64, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type RewardStore interface {
	Insert(ctx context.Context, r *models.Reward) error
	Update(ctx context.Context, r *models.Reward) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Reward, error)
	List(ctx context.Context, businessID *primitive.ObjectID, activeOnly bool) ([]models.Reward, error)
	// TakeStock decrements a limited stock if any is left; unlimited
	// rewards always succeed.
	TakeStock(ctx context.Context, id primitive.ObjectID) (bool, error)
	// ReturnStock puts back a unit taken by TakeStock; unlimited rewards
	// are left alone.
	ReturnStock(ctx context.Context, id primitive.ObjectID) error
	DeleteByBusiness(ctx context.Context, businessID primitive.ObjectID) error
}

type RedemptionStore interface {
	Insert(ctx context.Context, r *models.Redemption) error
	FindByCode(ctx context.Context, code string) (*models.Redemption, error)
	MarkUsed(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Redemption, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type KarmaEventStore interface {
	Insert(ctx context.Context, e *models.KarmaEvent) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type AgentStore interface {
	Insert(ctx context.Context, a *models.SalesAgent) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.SalesAgent, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.SalesAgent, error)
	FindByCode(ctx context.Context, code string) (*models.SalesAgent, error)
	ListByStatus(ctx context.Context, status string) ([]models.SalesAgent, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status, code string, at time.Time) error
	SetConnectAccount(ctx context.Context, id primitive.ObjectID, accountID string) error
	CountRecruits(ctx context.Context, recruiterID primitive.ObjectID) (int, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type BusinessReferralStore interface {
	Insert(ctx context.Context, r *models.BusinessReferral) error
	FindByBusiness(ctx context.Context, businessID primitive.ObjectID) (*models.BusinessReferral, error)
	ListByAgent(ctx context.Context, agentID primitive.ObjectID) ([]models.BusinessReferral, error)
	CountActive(ctx context.Context, agentID primitive.ObjectID) (int, error)
	// Activate moves a pending referral to active and reports whether this
	// call did it.
	Activate(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
}

type CommissionStore interface {
	Insert(ctx context.Context, c *models.Commission) error
	ListPending(ctx context.Context, agentID primitive.ObjectID) ([]models.Commission, error)
	// Claim moves pending commissions to processing under payoutID and
	// reports how many it took.
	Claim(ctx context.Context, ids []primitive.ObjectID, payoutID primitive.ObjectID) (int, error)
	// Settle marks the commissions claimed by payoutID paid.
	Settle(ctx context.Context, payoutID primitive.ObjectID, at time.Time) error
	// Release returns the commissions claimed by payoutID to pending.
	Release(ctx context.Context, payoutID primitive.ObjectID) error
	// Totals counts processing commissions as pending.
	Totals(ctx context.Context, agentID primitive.ObjectID) (pendingCents, paidCents int64, err error)
}

type PayoutStore interface {
	Insert(ctx context.Context, p *models.Payout) error
	// FindOpen returns the agent's pending payout or ErrNotFound.
	FindOpen(ctx context.Context, agentID primitive.ObjectID) (*models.Payout, error)
	Complete(ctx context.Context, id primitive.ObjectID, method, transferID string, at time.Time) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
}

type SubscriptionStore interface {
	// Upsert keys on (source, externalId).
	Upsert(ctx context.Context, s *models.Subscription) error
	FindByExternalID(ctx context.Context, source, externalID string) (*models.Subscription, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Subscription, error)
	ListByTarget(ctx context.Context, audience string, userID primitive.ObjectID, targetID *primitive.ObjectID) ([]models.Subscription, error)
	// ListLapsed returns live subscriptions whose period ended before cutoff.
	ListLapsed(ctx context.Context, cutoff time.Time) ([]models.Subscription, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string, at time.Time) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type ProcessedEventStore interface {
	// MarkProcessed reports false when the event was already recorded.
	MarkProcessed(ctx context.Context, source, eventID string, at time.Time) (bool, error)
	Forget(ctx context.Context, source, eventID string) error
}

type SponsorStore interface {
	Insert(ctx context.Context, s *models.SponsorProfile) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.SponsorProfile, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.SponsorProfile, error)
	ListActive(ctx context.Context) ([]models.SponsorProfile, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status, tier string, at time.Time) error
	SetFeatured(ctx context.Context, id primitive.ObjectID, businessIDs []primitive.ObjectID, at time.Time) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type ReviewStore interface {
	Insert(ctx context.Context, r *models.Review) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	ListByBusiness(ctx context.Context, businessID primitive.ObjectID, skip, limit int64) ([]models.Review, int64, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Review, error)
	SetReply(ctx context.Context, id primitive.ObjectID, reply models.ReviewReply) (bool, error)
	RatingStats(ctx context.Context, businessID primitive.ObjectID) (average float64, count int, err error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type ChallengeStore interface {
	Insert(ctx context.Context, c *models.Challenge) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Challenge, error)
	ListActive(ctx context.Context, at time.Time) ([]models.Challenge, error)
}

type ParticipationStore interface {
	Insert(ctx context.Context, p *models.ChallengeParticipation) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.ChallengeParticipation, error)
	ListOpen(ctx context.Context, userID primitive.ObjectID, activityType string) ([]models.ChallengeParticipation, error)
	IncrementProgress(ctx context.Context, id primitive.ObjectID) (*models.ChallengeParticipation, error)
	// Complete flips completed once and reports whether this call did it.
	Complete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type FeatureFlagStore interface {
	Upsert(ctx context.Context, f *models.FeatureFlag) error
	List(ctx context.Context) ([]models.FeatureFlag, error)
	Delete(ctx context.Context, key string) error
}

type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

// Locker takes short-lived exclusive keys
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Cache stores opaque bytes with an expiry
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
