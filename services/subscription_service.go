package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
)

// SubscriptionGracePeriod keeps a lapsed subscription's tier while a
// renewal is retried
const SubscriptionGracePeriod = 3 * 24 * time.Hour

// Plan is a purchasable subscription
type Plan struct {
	Name     string `json:"name"`
	Audience string `json:"audience"`
	Tier     string `json:"tier"`
	PriceID  string `json:"-"`
}

// Plan names
const (
	PlanCustomerPremium = "premium"
	PlanBusinessStarter = "business_starter"
	PlanBusinessPremium = "business_premium"
)

// SponsorPlan is the plan name of a sponsor tier
func SponsorPlan(tier string) string { return "sponsor_" + tier }

// DefaultPlans builds the plan catalogue; priceIDs maps plan name to the
// Stripe price
func DefaultPlans(priceIDs map[string]string) map[string]Plan {
	plans := map[string]Plan{
		PlanCustomerPremium: {Name: PlanCustomerPremium, Audience: models.AudienceCustomer, Tier: "premium"},
		PlanBusinessStarter: {Name: PlanBusinessStarter, Audience: models.AudienceBusiness, Tier: "starter"},
		PlanBusinessPremium: {Name: PlanBusinessPremium, Audience: models.AudienceBusiness, Tier: "premium"},
	}
	for _, t := range SponsorTiers {
		name := SponsorPlan(t.Name)
		plans[name] = Plan{Name: name, Audience: models.AudienceSponsor, Tier: t.Name}
	}
	for name, plan := range plans {
		plan.PriceID = priceIDs[name]
		plans[name] = plan
	}
	return plans
}

var tierRank = map[string]int{
	models.TierFree:        0,
	"starter":              1,
	"premium":              2,
	models.SponsorBronze:   1,
	models.SponsorSilver:   2,
	models.SponsorGold:     3,
	models.SponsorPlatinum: 4,
}

type SubscriptionService struct {
	subs       SubscriptionStore
	events     ProcessedEventStore
	users      UserStore
	businesses BusinessStore
	sponsors   SponsorStore
	gateway    PaymentGateway
	apple      AppleVerifier
	referrals  *ReferralService
	notifier   Notifier
	tracker    Tracker

	plans         map[string]Plan
	appleProducts map[string]string
	siteURL       string

	Now func() time.Time
}

type SubscriptionServiceConfig struct {
	Subscriptions   SubscriptionStore
	ProcessedEvents ProcessedEventStore
	Users           UserStore
	Businesses      BusinessStore
	Sponsors        SponsorStore
	Gateway         PaymentGateway // optional
	Apple           AppleVerifier  // optional
	Referrals       *ReferralService
	Notifier        Notifier
	Tracker         Tracker
	Plans           map[string]Plan
	// AppleProducts maps App Store product IDs to plan names
	AppleProducts map[string]string
	SiteURL       string
}

func NewSubscriptionService(cfg SubscriptionServiceConfig) *SubscriptionService {
	return &SubscriptionService{
		subs:          cfg.Subscriptions,
		events:        cfg.ProcessedEvents,
		users:         cfg.Users,
		businesses:    cfg.Businesses,
		sponsors:      cfg.Sponsors,
		gateway:       cfg.Gateway,
		apple:         cfg.Apple,
		referrals:     cfg.Referrals,
		notifier:      orNopNotifier(cfg.Notifier),
		tracker:       orNopTracker(cfg.Tracker),
		plans:         cfg.Plans,
		appleProducts: cfg.AppleProducts,
		siteURL:       strings.TrimRight(cfg.SiteURL, "/"),
		Now:           systemNow,
	}
}

// Plans lists the purchasable plans
func (s *SubscriptionService) Plans() []Plan {
	out := make([]Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	return out
}

// CreateCheckout starts a hosted checkout for a plan
func (s *SubscriptionService) CreateCheckout(ctx context.Context, actor Actor, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	plan, ok := s.plans[req.Plan]
	if !ok {
		return nil, invalid("unknown plan %q", req.Plan)
	}
	if s.gateway == nil || plan.PriceID == "" {
		return nil, ErrNotConfigured
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{"userId": user.ID.Hex(), "plan": plan.Name}
	switch plan.Audience {
	case models.AudienceBusiness:
		businessID, err := parseObjectID(req.BusinessID, "businessId")
		if err != nil {
			return nil, err
		}
		if _, err := ownedBusiness(ctx, s.businesses, actor, businessID); err != nil {
			return nil, err
		}
		metadata["targetId"] = businessID.Hex()
	case models.AudienceSponsor:
		sponsor, err := s.sponsors.FindByUserID(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("create a sponsor profile first")
			}
			return nil, err
		}
		metadata["targetId"] = sponsor.ID.Hex()
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		PriceID:           plan.PriceID,
		CustomerID:        user.StripeCustomerID,
		CustomerEmail:     user.Email,
		ClientReferenceID: user.ID.Hex(),
		SuccessURL:        s.siteURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         s.siteURL + "/subscription/cancelled",
		Metadata:          metadata,
	})
	if err != nil {
		return nil, err
	}
	return &models.CheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}

// CreatePortal returns a billing portal link for the user's customer
func (s *SubscriptionService) CreatePortal(ctx context.Context, actor Actor) (string, error) {
	if s.gateway == nil {
		return "", ErrNotConfigured
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == "" {
		return "", invalid("no billing account on file")
	}
	return s.gateway.CreatePortalSession(ctx, user.StripeCustomerID, s.siteURL+"/account")
}

// ForUser lists a user's subscriptions and effective tier
func (s *SubscriptionService) ForUser(ctx context.Context, userID primitive.ObjectID) (*models.SubscriptionOverview, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	tier := user.SubscriptionTier
	if tier == "" {
		tier = models.TierFree
	}
	return &models.SubscriptionOverview{Tier: tier, Subscriptions: subs}, nil
}

// HandleStripeWebhook verifies and applies a Stripe event at most once
func (s *SubscriptionService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return ErrNotConfigured
	}
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	return s.once(ctx, models.SourceStripe, event.ID, func() error {
		return s.applyStripeEvent(ctx, event)
	})
}

// once runs apply unless the event was already processed; a failed apply
// is forgotten so the sender's retry can process it again
func (s *SubscriptionService) once(ctx context.Context, source, eventID string, apply func() error) error {
	if eventID == "" {
		return apply()
	}
	first, err := s.events.MarkProcessed(ctx, source, eventID, s.Now())
	if err != nil {
		return err
	}
	if !first {
		log.Printf("Skipping already processed %s event %s", source, eventID)
		return nil
	}
	if err := apply(); err != nil {
		logIfErr(s.events.Forget(ctx, source, eventID), "Failed to forget %s event %s", source, eventID)
		return err
	}
	return nil
}

func (s *SubscriptionService) applyStripeEvent(ctx context.Context, ev *BillingEvent) error {
	switch ev.Type {
	case StripeCheckoutCompleted:
		return s.checkoutCompleted(ctx, ev)
	case StripeSubscriptionCreated, StripeSubscriptionUpdated, StripeSubscriptionDeleted:
		return s.subscriptionChanged(ctx, ev)
	case StripeInvoicePaid:
		return s.invoicePaid(ctx, ev)
	}
	return nil
}

func (s *SubscriptionService) checkoutCompleted(ctx context.Context, ev *BillingEvent) error {
	if ev.SubscriptionID == "" {
		return nil
	}
	ref := ev.ClientReferenceID
	if ref == "" {
		ref = ev.Metadata["userId"]
	}
	userID, err := parseObjectID(ref, "client_reference_id")
	if err != nil {
		return err
	}
	if ev.CustomerID != "" {
		logIfErr(s.users.SetStripeCustomer(ctx, userID, ev.CustomerID), "Failed to store Stripe customer for user %s", ref)
	}

	now := s.Now()
	sub, err := s.subs.FindByExternalID(ctx, models.SourceStripe, ev.SubscriptionID)
	switch {
	case errors.Is(err, ErrNotFound):
		// the subscription events fill in the real period end
		sub = &models.Subscription{
			Source:           models.SourceStripe,
			ExternalID:       ev.SubscriptionID,
			Status:           models.SubscriptionActive,
			CurrentPeriodEnd: now.AddDate(0, 1, 0),
			CreatedAt:        now,
		}
	case err != nil:
		return err
	}
	sub.UserID = userID
	sub.CustomerID = ev.CustomerID
	if err := s.applyPlan(sub, ev.Metadata["plan"], ev.Metadata["targetId"]); err != nil {
		return err
	}
	sub.UpdatedAt = now
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return err
	}

	s.tracker.Track(userID.Hex(), "subscription_activated", map[string]interface{}{"plan": sub.Plan, "source": sub.Source})
	s.notifier.Notify(ctx, userID, models.NotificationSubscription, "Subscription active",
		fmt.Sprintf("Your %s plan is now active", sub.Plan), map[string]interface{}{"plan": sub.Plan})
	_, err = s.Reconcile(ctx, sub)
	return err
}

func (s *SubscriptionService) subscriptionChanged(ctx context.Context, ev *BillingEvent) error {
	now := s.Now()
	sub, err := s.subs.FindByExternalID(ctx, models.SourceStripe, ev.SubscriptionID)
	switch {
	case errors.Is(err, ErrNotFound):
		userID, perr := parseObjectID(ev.Metadata["userId"], "metadata.userId")
		if perr != nil {
			log.Printf("Ignoring Stripe subscription %s without a user", ev.SubscriptionID)
			return nil
		}
		sub = &models.Subscription{
			UserID:     userID,
			Source:     models.SourceStripe,
			ExternalID: ev.SubscriptionID,
			CustomerID: ev.CustomerID,
			CreatedAt:  now,
		}
		if err := s.applyPlan(sub, ev.Metadata["plan"], ev.Metadata["targetId"]); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	if plan := s.planForPrice(ev.PriceID); plan != nil && plan.Audience == sub.Audience {
		sub.Plan = plan.Name
		sub.Tier = plan.Tier
	}
	sub.Status = ev.Status
	sub.CancelAtPeriodEnd = ev.CancelAtPeriodEnd
	if !ev.CurrentPeriodEnd.IsZero() {
		sub.CurrentPeriodEnd = ev.CurrentPeriodEnd
	}
	sub.UpdatedAt = now
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return err
	}
	_, err = s.Reconcile(ctx, sub)
	return err
}

func (s *SubscriptionService) invoicePaid(ctx context.Context, ev *BillingEvent) error {
	if ev.SubscriptionID == "" {
		return nil
	}
	sub, err := s.subs.FindByExternalID(ctx, models.SourceStripe, ev.SubscriptionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// checkout.session.completed has not landed yet; Stripe retries
			return fmt.Errorf("invoice %s for unknown subscription %s: %w", ev.InvoiceID, ev.SubscriptionID, err)
		}
		return err
	}
	sub.Status = models.SubscriptionActive
	if ev.CurrentPeriodEnd.After(sub.CurrentPeriodEnd) {
		sub.CurrentPeriodEnd = ev.CurrentPeriodEnd
	}
	sub.UpdatedAt = s.Now()
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return err
	}
	if _, err := s.Reconcile(ctx, sub); err != nil {
		return err
	}
	if sub.Audience == models.AudienceBusiness && sub.TargetID != nil && s.referrals != nil {
		return s.referrals.AccrueForInvoice(ctx, *sub.TargetID, ev.InvoiceID, ev.AmountPaidCents)
	}
	return nil
}

func (s *SubscriptionService) applyPlan(sub *models.Subscription, planName, targetHex string) error {
	plan, ok := s.plans[planName]
	if !ok {
		return invalid("unknown plan %q", planName)
	}
	sub.Plan = plan.Name
	sub.Tier = plan.Tier
	sub.Audience = plan.Audience
	sub.TargetID = nil
	if plan.Audience != models.AudienceCustomer {
		target, err := parseObjectID(targetHex, "targetId")
		if err != nil {
			return err
		}
		sub.TargetID = &target
	}
	return nil
}

func (s *SubscriptionService) planForPrice(priceID string) *Plan {
	if priceID == "" {
		return nil
	}
	for _, p := range s.plans {
		if p.PriceID == priceID {
			plan := p
			return &plan
		}
	}
	return nil
}

// HandleAppleNotification verifies and applies an App Store Server
// Notification v2 at most once
func (s *SubscriptionService) HandleAppleNotification(ctx context.Context, signedPayload string) error {
	if s.apple == nil {
		return ErrNotConfigured
	}
	n, err := s.apple.Decode(signedPayload)
	if err != nil {
		return err
	}
	return s.once(ctx, models.SourceApple, n.NotificationUUID, func() error {
		return s.applyAppleNotification(ctx, n)
	})
}

// appleStatus maps a notification to a subscription status; "" leaves the
// subscription unchanged
func appleStatus(notificationType, subtype string) (status string, cancelAtPeriodEnd bool) {
	switch notificationType {
	case "SUBSCRIBED", "DID_RENEW", "OFFER_REDEEMED":
		return models.SubscriptionActive, false
	case "DID_CHANGE_RENEWAL_STATUS":
		return models.SubscriptionActive, subtype == "AUTO_RENEW_DISABLED"
	case "DID_FAIL_TO_RENEW":
		return models.SubscriptionPastDue, false
	case "EXPIRED", "GRACE_PERIOD_EXPIRED":
		return models.SubscriptionExpired, false
	case "REFUND", "REVOKE":
		return models.SubscriptionRevoked, false
	}
	return "", false
}

func (s *SubscriptionService) applyAppleNotification(ctx context.Context, n *AppleNotification) error {
	tx := n.Transaction
	if tx == nil || tx.OriginalTransactionID == "" {
		return nil
	}
	// Types that do not move the status, like CONSUMPTION_REQUEST, are acknowledged
	status, cancelAtPeriodEnd := appleStatus(n.NotificationType, n.Subtype)
	if status == "" {
		return nil
	}

	// Find the subscription, or bind a first purchase to its user through
	// the appAccountToken set at checkout
	now := s.Now()
	sub, err := s.subs.FindByExternalID(ctx, models.SourceApple, tx.OriginalTransactionID)
	switch {
	case errors.Is(err, ErrNotFound):
		if tx.AppAccountToken == "" {
			log.Printf("Ignoring Apple transaction %s without appAccountToken", tx.OriginalTransactionID)
			return nil
		}
		user, err := s.users.FindByAppAccountToken(ctx, strings.ToLower(tx.AppAccountToken))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				log.Printf("No user for Apple appAccountToken on transaction %s", tx.OriginalTransactionID)
				return nil
			}
			return err
		}
		sub = &models.Subscription{
			UserID:     user.ID,
			Source:     models.SourceApple,
			ExternalID: tx.OriginalTransactionID,
			CreatedAt:  now,
		}
	case err != nil:
		return err
	}

	// Unknown product IDs fall back to customer premium
	planName := s.appleProducts[tx.ProductID]
	if planName == "" {
		planName = PlanCustomerPremium
	}
	if err := s.applyPlan(sub, planName, ""); err != nil {
		return err
	}
	sub.Status = status
	sub.CancelAtPeriodEnd = cancelAtPeriodEnd
	if !tx.ExpiresDate.IsZero() {
		sub.CurrentPeriodEnd = tx.ExpiresDate
	}
	sub.UpdatedAt = now
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return err
	}
	if status == models.SubscriptionActive && n.NotificationType == "SUBSCRIBED" {
		s.tracker.Track(sub.UserID.Hex(), "subscription_activated", map[string]interface{}{"plan": sub.Plan, "source": sub.Source})
	}
	// Recompute the tier across every source paying for the same target
	_, err = s.Reconcile(ctx, sub)
	return err
}

// live reports whether a subscription currently grants its tier
func live(sub *models.Subscription, at time.Time) bool {
	switch sub.Status {
	case models.SubscriptionActive, models.SubscriptionTrialing, models.SubscriptionPastDue:
		return at.Before(sub.CurrentPeriodEnd.Add(SubscriptionGracePeriod))
	}
	return false
}

// Reconcile recomputes the effective tier of whatever sub pays for, the
// highest tier among its live subscriptions across sources
func (s *SubscriptionService) Reconcile(ctx context.Context, sub *models.Subscription) (string, error) {
	subs, err := s.subs.ListByTarget(ctx, sub.Audience, sub.UserID, sub.TargetID)
	if err != nil {
		return "", err
	}
	now := s.Now()
	best := models.TierFree
	for i := range subs {
		if live(&subs[i], now) && tierRank[subs[i].Tier] > tierRank[best] {
			best = subs[i].Tier
		}
	}

	switch sub.Audience {
	case models.AudienceCustomer:
		err = s.users.SetSubscriptionTier(ctx, sub.UserID, best)
	case models.AudienceBusiness:
		if sub.TargetID != nil {
			err = s.businesses.SetSubscriptionTier(ctx, *sub.TargetID, best)
		}
	case models.AudienceSponsor:
		if sub.TargetID != nil {
			err = s.reconcileSponsor(ctx, *sub.TargetID, best)
		}
	}
	return best, err
}

func (s *SubscriptionService) reconcileSponsor(ctx context.Context, sponsorID primitive.ObjectID, tier string) error {
	sponsor, err := s.sponsors.FindByID(ctx, sponsorID)
	if err != nil {
		return err
	}
	now := s.Now()
	if tier == models.TierFree {
		if sponsor.Status == models.SponsorStatusActive {
			return s.sponsors.SetStatus(ctx, sponsor.ID, models.SponsorStatusLapsed, sponsor.Tier, now)
		}
		return nil
	}
	if sponsor.Status == models.SponsorStatusActive && sponsor.Tier == tier {
		return nil
	}
	return s.sponsors.SetStatus(ctx, sponsor.ID, models.SponsorStatusActive, tier, now)
}

// ExpireLapsed expires subscriptions whose period ended more than the
// grace period ago and recomputes the affected tiers
func (s *SubscriptionService) ExpireLapsed(ctx context.Context) (int, error) {
	now := s.Now()
	lapsed, err := s.subs.ListLapsed(ctx, now.Add(-SubscriptionGracePeriod))
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range lapsed {
		sub := &lapsed[i]
		if err := s.subs.SetStatus(ctx, sub.ID, models.SubscriptionExpired, now); err != nil {
			logIfErr(err, "Failed to expire subscription %s", sub.ID.Hex())
			continue
		}
		sub.Status = models.SubscriptionExpired
		expired++
		if _, err := s.Reconcile(ctx, sub); err != nil {
			logIfErr(err, "Failed to reconcile tier after expiring subscription %s", sub.ID.Hex())
		}
	}
	return expired, nil
}

// CancelAllForUser cancels the user's live Stripe subscriptions
func (s *SubscriptionService) CancelAllForUser(ctx context.Context, userID primitive.ObjectID) error {
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	now := s.Now()
	var errs []string
	for _, sub := range subs {
		if sub.Source != models.SourceStripe || !live(&sub, now) {
			continue
		}
		if s.gateway == nil {
			return ErrNotConfigured
		}
		if err := s.gateway.CancelSubscription(ctx, sub.ExternalID); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
