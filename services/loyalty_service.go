package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/utils"
)

// LoyaltyTier is a customer level reached through lifetime points
type LoyaltyTier struct {
	Name       string  `json:"name"`
	MinPoints  int     `json:"minPoints"`
	Multiplier float64 `json:"multiplier"`
}

// LoyaltyTiers is ordered by MinPoints
var LoyaltyTiers = []LoyaltyTier{
	{Name: "bronze", MinPoints: 0, Multiplier: 1.0},
	{Name: "silver", MinPoints: 500, Multiplier: 1.25},
	{Name: "gold", MinPoints: 2000, Multiplier: 1.5},
	{Name: "platinum", MinPoints: 5000, Multiplier: 2.0},
}

// PremiumMultiplierBonus is added to the tier multiplier of paying customers
const PremiumMultiplierBonus = 0.25

// TierForLifetime returns the tier for a lifetime point total and the next
// tier, nil at the top
func TierForLifetime(lifetime int) (LoyaltyTier, *LoyaltyTier) {
	current := LoyaltyTiers[0]
	var next *LoyaltyTier
	for i := range LoyaltyTiers {
		if lifetime >= LoyaltyTiers[i].MinPoints {
			current = LoyaltyTiers[i]
			next = nil
			if i+1 < len(LoyaltyTiers) {
				next = &LoyaltyTiers[i+1]
			}
		}
	}
	return current, next
}

// MultiplierFor returns the earning multiplier of a user
func MultiplierFor(user *models.User) float64 {
	tier, _ := TierForLifetime(user.LifetimePoints)
	m := tier.Multiplier
	if user.SubscriptionTier != "" && user.SubscriptionTier != models.TierFree {
		m += PremiumMultiplierBonus
	}
	return m
}

const redemptionCodeAttempts = 3

type LoyaltyService struct {
	users       UserStore
	ledger      LedgerStore
	rewards     RewardStore
	redemptions RedemptionStore
	businesses  BusinessStore
	notifier    Notifier
	tracker     Tracker

	Now func() time.Time
}

func NewLoyaltyService(users UserStore, ledger LedgerStore, rewards RewardStore, redemptions RedemptionStore,
	businesses BusinessStore, notifier Notifier, tracker Tracker) *LoyaltyService {
	return &LoyaltyService{
		users:       users,
		ledger:      ledger,
		rewards:     rewards,
		redemptions: redemptions,
		businesses:  businesses,
		notifier:    orNopNotifier(notifier),
		tracker:     orNopTracker(tracker),
		Now:         systemNow,
	}
}

// Credit adds points to a user's balance and records the ledger entry.
// Refunds do not count toward lifetime points.
func (s *LoyaltyService) Credit(ctx context.Context, userID primitive.ObjectID, businessID *primitive.ObjectID,
	txType string, points int, description, reference string) (*models.User, error) {
	if points <= 0 {
		return nil, invalid("points must be positive")
	}
	lifetime := points
	if txType == models.TxRefund || txType == models.TxAdjust {
		lifetime = 0
	}
	user, err := s.users.AdjustPoints(ctx, userID, points, lifetime)
	if err != nil {
		return nil, err
	}
	s.syncTier(ctx, user)
	s.record(ctx, user, businessID, txType, points, description, reference)
	return user, nil
}

// Debit removes points; the balance never goes negative
func (s *LoyaltyService) Debit(ctx context.Context, userID primitive.ObjectID, businessID *primitive.ObjectID,
	txType string, points int, description, reference string) (*models.User, error) {
	if points <= 0 {
		return nil, invalid("points must be positive")
	}
	user, err := s.users.AdjustPoints(ctx, userID, -points, 0)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user, businessID, txType, -points, description, reference)
	return user, nil
}

// Adjust applies an admin correction in either direction
func (s *LoyaltyService) Adjust(ctx context.Context, actor Actor, userID primitive.ObjectID, req models.PointsAdjustmentRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	reason := "Adjustment: " + req.Reason
	switch {
	case req.Points > 0:
		return s.Credit(ctx, userID, nil, models.TxAdjust, req.Points, reason, actor.ID.Hex())
	case req.Points < 0:
		return s.Debit(ctx, userID, nil, models.TxAdjust, -req.Points, reason, actor.ID.Hex())
	}
	return nil, invalid("points must not be zero")
}

func (s *LoyaltyService) syncTier(ctx context.Context, user *models.User) {
	tier, _ := TierForLifetime(user.LifetimePoints)
	if tier.Name == user.LoyaltyTier {
		return
	}
	if err := s.users.SetLoyaltyTier(ctx, user.ID, tier.Name); err != nil {
		logIfErr(err, "Failed to update loyalty tier for user %s", user.ID.Hex())
		return
	}
	user.LoyaltyTier = tier.Name
}

func (s *LoyaltyService) record(ctx context.Context, user *models.User, businessID *primitive.ObjectID,
	txType string, points int, description, reference string) {
	tx := &models.Transaction{
		UserID:       user.ID,
		BusinessID:   businessID,
		Type:         txType,
		Points:       points,
		BalanceAfter: user.Points,
		Description:  description,
		ReferenceID:  reference,
		CreatedAt:    s.Now(),
	}
	// the balance is already committed; a missing ledger row is logged, not fatal
	logIfErr(s.ledger.Insert(ctx, tx), "Failed to record %s transaction for user %s", txType, user.ID.Hex())
}

// Summary returns balance, tier and progress toward the next tier
func (s *LoyaltyService) Summary(ctx context.Context, userID primitive.ObjectID) (*models.LoyaltySummary, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	tier, next := TierForLifetime(user.LifetimePoints)
	summary := &models.LoyaltySummary{
		Balance:        user.Points,
		LifetimePoints: user.LifetimePoints,
		Tier:           tier.Name,
		Multiplier:     MultiplierFor(user),
		Progress:       1,
	}
	if next != nil {
		summary.NextTier = next.Name
		summary.PointsToNext = next.MinPoints - user.LifetimePoints
		summary.Progress = float64(user.LifetimePoints-tier.MinPoints) / float64(next.MinPoints-tier.MinPoints)
	}
	return summary, nil
}

// Transactions pages through a user's ledger, newest first
func (s *LoyaltyService) Transactions(ctx context.Context, userID primitive.ObjectID, page, limit int) (*models.Page, error) {
	skip, size := pageBounds(page, limit)
	items, total, err := s.ledger.ListByUser(ctx, userID, skip, size)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Transaction{}
	}
	return &models.Page{Items: items, Total: total, Page: int(skip/size) + 1, Limit: int(size)}, nil
}

// canManageReward checks business ownership, or admin for platform rewards
func (s *LoyaltyService) canManageReward(ctx context.Context, actor Actor, businessID *primitive.ObjectID) error {
	if actor.IsAdmin() {
		return nil
	}
	if businessID == nil {
		return ErrForbidden
	}
	_, err := ownedBusiness(ctx, s.businesses, actor, *businessID)
	return err
}

func (s *LoyaltyService) CreateReward(ctx context.Context, actor Actor, req models.RewardRequest) (*models.Reward, error) {
	var businessID *primitive.ObjectID
	if req.BusinessID != "" {
		id, err := parseObjectID(req.BusinessID, "businessId")
		if err != nil {
			return nil, err
		}
		businessID = &id
	}
	if err := s.canManageReward(ctx, actor, businessID); err != nil {
		return nil, err
	}

	now := s.Now()
	reward := &models.Reward{
		BusinessID:  businessID,
		Title:       utils.SanitizeInput(req.Title),
		Description: utils.SanitizeInput(req.Description),
		PointsCost:  req.PointsCost,
		Stock:       -1,
		IsActive:    true,
		ExpiresAt:   req.ExpiresAt,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Stock != nil {
		reward.Stock = *req.Stock
	}
	if req.IsActive != nil {
		reward.IsActive = *req.IsActive
	}
	if err := s.rewards.Insert(ctx, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

func (s *LoyaltyService) UpdateReward(ctx context.Context, actor Actor, id primitive.ObjectID, req models.RewardRequest) (*models.Reward, error) {
	reward, err := s.rewards.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canManageReward(ctx, actor, reward.BusinessID); err != nil {
		return nil, err
	}

	reward.Title = utils.SanitizeInput(req.Title)
	reward.Description = utils.SanitizeInput(req.Description)
	reward.PointsCost = req.PointsCost
	reward.ExpiresAt = req.ExpiresAt
	if req.Stock != nil {
		reward.Stock = *req.Stock
	}
	if req.IsActive != nil {
		reward.IsActive = *req.IsActive
	}
	reward.UpdatedAt = s.Now()
	if err := s.rewards.Update(ctx, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// ListRewards returns redeemable rewards, optionally for one business
func (s *LoyaltyService) ListRewards(ctx context.Context, businessID string) ([]models.Reward, error) {
	var filter *primitive.ObjectID
	if businessID != "" {
		id, err := parseObjectID(businessID, "businessId")
		if err != nil {
			return nil, err
		}
		filter = &id
	}
	rewards, err := s.rewards.List(ctx, filter, true)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	available := make([]models.Reward, 0, len(rewards))
	for _, r := range rewards {
		if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
			continue
		}
		available = append(available, r)
	}
	return available, nil
}

// Redeem exchanges points for a reward and issues a redemption code
func (s *LoyaltyService) Redeem(ctx context.Context, actor Actor, rewardID primitive.ObjectID) (*models.Redemption, error) {
	reward, err := s.rewards.FindByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if !reward.IsActive || (reward.ExpiresAt != nil && !reward.ExpiresAt.After(now)) {
		return nil, ErrRewardUnavailable
	}
	if reward.Stock == 0 {
		return nil, ErrOutOfStock
	}

	// Take the points first; the debit fails when the balance is short
	ref := reward.ID.Hex()
	user, err := s.Debit(ctx, actor.ID, reward.BusinessID, models.TxRedeem, reward.PointsCost, "Redeemed: "+reward.Title, ref)
	if err != nil {
		return nil, err
	}

	refund := func(reason string) {
		_, err := s.Credit(ctx, actor.ID, reward.BusinessID, models.TxRefund, reward.PointsCost, reason, ref)
		logIfErr(err, "Failed to refund %d points to user %s", reward.PointsCost, actor.ID.Hex())
	}

	// Claim a unit of stock, refunding if someone else got the last one
	ok, err := s.rewards.TakeStock(ctx, reward.ID)
	if err != nil {
		refund("Refund: redemption failed")
		return nil, err
	}
	if !ok {
		refund("Refund: " + reward.Title + " out of stock")
		return nil, ErrOutOfStock
	}

	// Issue the code, retrying on the rare collision
	redemption := &models.Redemption{
		UserID:     actor.ID,
		RewardID:   reward.ID,
		BusinessID: reward.BusinessID,
		PointsUsed: reward.PointsCost,
		Status:     models.RedemptionIssued,
		CreatedAt:  now,
	}
	for attempt := 0; ; attempt++ {
		redemption.Code, err = utils.GenerateRedemptionCode()
		if err == nil {
			err = s.redemptions.Insert(ctx, redemption)
		}
		if err == nil || !errors.Is(err, ErrConflict) || attempt+1 >= redemptionCodeAttempts {
			break
		}
	}
	if err != nil {
		refund("Refund: redemption failed")
		logIfErr(s.rewards.ReturnStock(ctx, reward.ID), "Failed to return stock to reward %s", reward.ID.Hex())
		return nil, fmt.Errorf("issue redemption: %w", err)
	}

	s.tracker.Track(actor.ID.Hex(), "reward_redeemed", map[string]interface{}{
		"reward_id":   reward.ID.Hex(),
		"points_cost": reward.PointsCost,
		"balance":     user.Points,
	})
	s.notifier.Notify(ctx, actor.ID, models.NotificationRewardRedeemed, "Reward redeemed",
		fmt.Sprintf("Show code %s to claim %s", redemption.Code, reward.Title),
		map[string]interface{}{"code": redemption.Code, "rewardId": reward.ID.Hex()})
	return redemption, nil
}

// UseRedemption marks an issued code as used at the counter
func (s *LoyaltyService) UseRedemption(ctx context.Context, actor Actor, code string) (*models.Redemption, error) {
	redemption, err := s.redemptions.FindByCode(ctx, utils.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if redemption.BusinessID != nil {
		if _, err := ownedBusiness(ctx, s.businesses, actor, *redemption.BusinessID); err != nil {
			return nil, err
		}
	} else if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if redemption.Status == models.RedemptionUsed {
		return nil, ErrAlreadyUsed
	}

	now := s.Now()
	ok, err := s.redemptions.MarkUsed(ctx, redemption.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyUsed
	}
	redemption.Status = models.RedemptionUsed
	redemption.UsedAt = &now
	return redemption, nil
}

// Redemptions lists the codes a user has been issued
func (s *LoyaltyService) Redemptions(ctx context.Context, userID primitive.ObjectID) ([]models.Redemption, error) {
	return s.redemptions.ListByUser(ctx, userID)
}
