package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/utils"
)

// AgentTier sets an agent's commission rate from their active referrals
type AgentTier struct {
	Name         string  `json:"name"`
	MinReferrals int     `json:"minReferrals"`
	Rate         float64 `json:"rate"`
}

var AgentTiers = []AgentTier{
	{Name: "bronze", MinReferrals: 0, Rate: 0.10},
	{Name: "silver", MinReferrals: 10, Rate: 0.15},
	{Name: "gold", MinReferrals: 25, Rate: 0.20},
	{Name: "platinum", MinReferrals: 50, Rate: 0.25},
}

const (
	TeamOverrideRate      = 0.10
	RecruitmentBonusCents = 5000
	CommissionWindowMonth = 24
	MinPayoutCents        = 2500
	agentCodeAttempts     = 3
)

// AgentTierFor returns the tier for a count of active referrals and the
// next tier, nil at the top
func AgentTierFor(activeReferrals int) (AgentTier, *AgentTier) {
	current := AgentTiers[0]
	var next *AgentTier
	for i := range AgentTiers {
		if activeReferrals >= AgentTiers[i].MinReferrals {
			current = AgentTiers[i]
			next = nil
			if i+1 < len(AgentTiers) {
				next = &AgentTiers[i+1]
			}
		}
	}
	return current, next
}

func percentOf(cents int64, rate float64) int64 {
	return int64(math.Round(float64(cents) * rate))
}

type ReferralService struct {
	agents      AgentStore
	referrals   BusinessReferralStore
	commissions CommissionStore
	payouts     PayoutStore
	users       UserStore
	gateway     PaymentGateway
	karma       *KarmaService
	activity    ActivityRecorder
	mailer      Mailer
	notifier    Notifier
	tracker     Tracker

	Now func() time.Time
}

type ReferralServiceConfig struct {
	Agents      AgentStore
	Referrals   BusinessReferralStore
	Commissions CommissionStore
	Payouts     PayoutStore
	Users       UserStore
	Gateway     PaymentGateway // optional, manual payouts without it
	Karma       *KarmaService
	Activity    ActivityRecorder
	Mailer      Mailer
	Notifier    Notifier
	Tracker     Tracker
}

func NewReferralService(cfg ReferralServiceConfig) *ReferralService {
	return &ReferralService{
		agents:      cfg.Agents,
		referrals:   cfg.Referrals,
		commissions: cfg.Commissions,
		payouts:     cfg.Payouts,
		users:       cfg.Users,
		gateway:     cfg.Gateway,
		karma:       cfg.Karma,
		activity:    cfg.Activity,
		mailer:      orNopMailer(cfg.Mailer),
		notifier:    orNopNotifier(cfg.Notifier),
		tracker:     orNopTracker(cfg.Tracker),
		Now:         systemNow,
	}
}

// Apply submits a sales agent application
func (s *ReferralService) Apply(ctx context.Context, actor Actor, req models.AgentApplication) (*models.SalesAgent, error) {
	if _, err := s.agents.FindByUserID(ctx, actor.ID); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	phone, err := utils.SanitizePhone(req.Phone)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}

	now := s.Now()
	agent := &models.SalesAgent{
		UserID:    actor.ID,
		FullName:  utils.SanitizeInput(req.FullName),
		Email:     user.Email,
		Phone:     phone,
		Status:    models.AgentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.RecruiterCode != "" {
		recruiter, err := s.agents.FindByCode(ctx, utils.NormalizeCode(req.RecruiterCode))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("unknown recruiter code")
			}
			return nil, err
		}
		if recruiter.Status != models.AgentActive {
			return nil, invalid("recruiter is not an active agent")
		}
		agent.RecruitedBy = &recruiter.ID
	}
	if err := s.agents.Insert(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *ReferralService) Applications(ctx context.Context, actor Actor, status string) ([]models.SalesAgent, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if status == "" {
		status = models.AgentPending
	}
	return s.agents.ListByStatus(ctx, status)
}

// Approve activates an agent and assigns their MMA code
func (s *ReferralService) Approve(ctx context.Context, actor Actor, agentID primitive.ObjectID) (*models.SalesAgent, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Status == models.AgentActive {
		return agent, nil
	}

	now := s.Now()
	for attempt := 0; ; attempt++ {
		agent.ReferralCode, err = utils.GenerateReferralCode(utils.AgentCode)
		if err == nil {
			err = s.agents.SetStatus(ctx, agent.ID, models.AgentActive, agent.ReferralCode, now)
		}
		if err == nil || !errors.Is(err, ErrConflict) || attempt+1 >= agentCodeAttempts {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	agent.Status = models.AgentActive
	agent.ApprovedAt = &now
	agent.UpdatedAt = now

	s.notifier.Notify(ctx, agent.UserID, models.NotificationVerification, "Agent application approved",
		"Your agent code is "+agent.ReferralCode, map[string]interface{}{"referralCode": agent.ReferralCode})
	return agent, nil
}

func (s *ReferralService) Reject(ctx context.Context, actor Actor, agentID primitive.ObjectID) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		return err
	}
	if agent.Status != models.AgentPending {
		return invalid("only pending applications can be rejected")
	}
	return s.agents.SetStatus(ctx, agent.ID, models.AgentRejected, "", s.Now())
}

// SetConnectAccount stores the agent's Stripe Connect account for payouts
func (s *ReferralService) SetConnectAccount(ctx context.Context, actor Actor, req models.ConnectAccountRequest) error {
	agent, err := s.agents.FindByUserID(ctx, actor.ID)
	if err != nil {
		return err
	}
	return s.agents.SetConnectAccount(ctx, agent.ID, req.StripeAccountID)
}

// AttachBusiness records the agent who referred a business
func (s *ReferralService) AttachBusiness(ctx context.Context, businessID primitive.ObjectID, agentCode string) (*models.BusinessReferral, error) {
	agent, err := s.agents.FindByCode(ctx, utils.NormalizeCode(agentCode))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("unknown agent code")
		}
		return nil, err
	}
	if agent.Status != models.AgentActive {
		return nil, ErrAgentNotActive
	}
	referral := &models.BusinessReferral{
		AgentID:    agent.ID,
		BusinessID: businessID,
		Status:     models.ReferralPending,
		ReferredAt: s.Now(),
	}
	if err := s.referrals.Insert(ctx, referral); err != nil {
		return nil, err
	}
	return referral, nil
}

// AccrueForInvoice books commissions for a paid business subscription
// invoice. Re-delivery of the same invoice books nothing new.
func (s *ReferralService) AccrueForInvoice(ctx context.Context, businessID primitive.ObjectID, invoiceID string, amountCents int64) error {
	if amountCents <= 0 {
		return nil
	}
	referral, err := s.referrals.FindByBusiness(ctx, businessID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	now := s.Now()
	if now.After(referral.ReferredAt.AddDate(0, CommissionWindowMonth, 0)) {
		return nil
	}
	agent, err := s.agents.FindByID(ctx, referral.AgentID)
	if err != nil {
		return err
	}
	if agent.Status != models.AgentActive {
		log.Printf("Skipping commission for inactive agent %s", agent.ID.Hex())
		return nil
	}

	// The referral counts as active for this invoice even while its
	// activation is still pending
	activating := referral.Status == models.ReferralPending
	active, err := s.referrals.CountActive(ctx, agent.ID)
	if err != nil {
		return err
	}
	if activating {
		active++
	}

	// Direct commission at the agent's tier rate
	tier, _ := AgentTierFor(active)
	direct := &models.Commission{
		AgentID:     agent.ID,
		BusinessID:  businessID,
		InvoiceID:   invoiceID,
		Kind:        models.CommissionDirect,
		BaseCents:   amountCents,
		Rate:        tier.Rate,
		AmountCents: percentOf(amountCents, tier.Rate),
	}
	if err := s.book(ctx, agent, direct); err != nil {
		return err
	}

	// Team override and recruitment bonus for the recruiter
	if err := s.bookRecruiterShare(ctx, agent, direct, activating && active == 1); err != nil {
		return err
	}

	// Activate last so a failed booking leaves the referral pending and a
	// redelivered invoice books the same set again
	if !activating {
		return nil
	}
	activated, err := s.referrals.Activate(ctx, referral.ID, now)
	if err != nil {
		return err
	}
	if activated {
		logIfErr(s.karma.Reward(ctx, agent.UserID, KarmaForReferral, "business referral activated"),
			"Failed to award referral karma to agent %s", agent.ID.Hex())
		if s.activity != nil {
			logIfErr(s.activity.RecordActivity(ctx, agent.UserID, models.ActivityReferral),
				"Failed to record referral activity for agent %s", agent.ID.Hex())
		}
	}
	return nil
}

// bookRecruiterShare pays the recruiter an override on direct and, when
// firstReferral is set, the one-time recruitment bonus
func (s *ReferralService) bookRecruiterShare(ctx context.Context, agent *models.SalesAgent, direct *models.Commission, firstReferral bool) error {
	if agent.RecruitedBy == nil {
		return nil
	}
	recruiter, err := s.agents.FindByID(ctx, *agent.RecruitedBy)
	if err != nil {
		logIfErr(err, "Failed to load recruiter of agent %s", agent.ID.Hex())
		return nil
	}
	if recruiter.Status != models.AgentActive {
		return nil
	}
	override := &models.Commission{
		AgentID:     recruiter.ID,
		BusinessID:  direct.BusinessID,
		InvoiceID:   direct.InvoiceID,
		Kind:        models.CommissionOverride,
		BaseCents:   direct.AmountCents,
		Rate:        TeamOverrideRate,
		AmountCents: percentOf(direct.AmountCents, TeamOverrideRate),
	}
	if err := s.book(ctx, recruiter, override); err != nil {
		return err
	}
	if !firstReferral {
		return nil
	}
	// keyed per recruit so it is booked at most once
	bonus := &models.Commission{
		AgentID:     recruiter.ID,
		BusinessID:  direct.BusinessID,
		InvoiceID:   "recruit:" + agent.ID.Hex(),
		Kind:        models.CommissionRecruitmentBonus,
		BaseCents:   RecruitmentBonusCents,
		Rate:        1,
		AmountCents: RecruitmentBonusCents,
	}
	return s.book(ctx, recruiter, bonus)
}

// book inserts a pending commission; an existing one is left alone
func (s *ReferralService) book(ctx context.Context, agent *models.SalesAgent, c *models.Commission) error {
	if c.AmountCents <= 0 {
		return nil
	}
	c.Status = models.CommissionStatusPending
	c.CreatedAt = s.Now()
	if err := s.commissions.Insert(ctx, c); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil
		}
		return err
	}
	s.tracker.Track(agent.UserID.Hex(), "commission_earned", map[string]interface{}{
		"kind":         c.Kind,
		"amount_cents": c.AmountCents,
		"invoice_id":   c.InvoiceID,
	})
	s.notifier.Notify(ctx, agent.UserID, models.NotificationCommissionEarned, "Commission earned",
		fmt.Sprintf("You earned %s (%s)", formatCents(c.AmountCents), c.Kind),
		map[string]interface{}{"amountCents": c.AmountCents, "kind": c.Kind})
	return nil
}

// ProcessPayout pays out every pending commission of an agent. A payout
// left open by a failed attempt is resumed rather than opened again, so the
// transfer reuses its idempotency key.
func (s *ReferralService) ProcessPayout(ctx context.Context, actor Actor, agentID primitive.ObjectID) (*models.Payout, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	payout, err := s.payouts.FindOpen(ctx, agent.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		if payout, err = s.openPayout(ctx, agent); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		log.Printf("Resuming open payout %s for agent %s", payout.ID.Hex(), agent.ID.Hex())
	}

	// Transfer through Stripe Connect when the agent has an account
	if agent.StripeAccountID != "" && s.gateway != nil {
		transferID, err := s.gateway.Transfer(ctx, agent.StripeAccountID, payout.AmountCents, payout.ID.Hex())
		if err != nil {
			s.abandonPayout(ctx, payout)
			return nil, fmt.Errorf("transfer payout: %w", err)
		}
		payout.Method = "stripe_connect"
		payout.TransferID = transferID
	}

	// Settle before completing; an open payout is resumed on the next call
	now := s.Now()
	if err := s.commissions.Settle(ctx, payout.ID, now); err != nil {
		return nil, err
	}
	if err := s.payouts.Complete(ctx, payout.ID, payout.Method, payout.TransferID, now); err != nil {
		return nil, err
	}
	payout.Status = models.PayoutCompleted
	payout.CompletedAt = &now

	message := fmt.Sprintf("A payout of %s has been sent.", formatCents(payout.AmountCents))
	s.notifier.Notify(ctx, agent.UserID, models.NotificationPayoutSent, "Payout sent", message,
		map[string]interface{}{"payoutId": payout.ID.Hex(), "amountCents": payout.AmountCents})
	logIfErr(s.mailer.Send(agent.Email, "Your Mansa Musa Marketplace payout", payoutEmail(agent.FullName, payout.AmountCents, payout.Method)),
		"Failed to email payout to agent %s", agent.ID.Hex())
	return payout, nil
}

// openPayout records a pending payout and claims the agent's pending
// commissions for it
func (s *ReferralService) openPayout(ctx context.Context, agent *models.SalesAgent) (*models.Payout, error) {
	pending, err := s.commissions.ListPending(ctx, agent.ID)
	if err != nil {
		return nil, err
	}
	var total int64
	ids := make([]primitive.ObjectID, 0, len(pending))
	for _, c := range pending {
		total += c.AmountCents
		ids = append(ids, c.ID)
	}
	if total < MinPayoutCents {
		return nil, ErrBelowPayoutMinimum
	}

	payout := &models.Payout{
		ID:            primitive.NewObjectID(),
		AgentID:       agent.ID,
		AmountCents:   total,
		CommissionIDs: ids,
		Status:        models.PayoutPending,
		Method:        "manual",
		CreatedAt:     s.Now(),
	}
	if err := s.payouts.Insert(ctx, payout); err != nil {
		return nil, err
	}
	claimed, err := s.commissions.Claim(ctx, ids, payout.ID)
	if err == nil && claimed != len(ids) {
		err = fmt.Errorf("%w: %d of %d commissions were already claimed", ErrConflict, len(ids)-claimed, len(ids))
	}
	if err != nil {
		s.abandonPayout(ctx, payout)
		return nil, err
	}
	return payout, nil
}

// abandonPayout returns the claimed commissions to pending and closes the payout
func (s *ReferralService) abandonPayout(ctx context.Context, payout *models.Payout) {
	logIfErr(s.commissions.Release(ctx, payout.ID), "Failed to release commissions of payout %s", payout.ID.Hex())
	logIfErr(s.payouts.SetStatus(ctx, payout.ID, models.PayoutFailed), "Failed to close payout %s", payout.ID.Hex())
}

// Dashboard summarizes the calling agent's referrals and earnings
func (s *ReferralService) Dashboard(ctx context.Context, actor Actor) (*models.AgentDashboard, error) {
	agent, err := s.agents.FindByUserID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	referrals, err := s.referrals.ListByAgent(ctx, agent.ID)
	if err != nil {
		return nil, err
	}
	if referrals == nil {
		referrals = []models.BusinessReferral{}
	}
	active := 0
	for _, r := range referrals {
		if r.Status == models.ReferralActive {
			active++
		}
	}
	pendingCents, paidCents, err := s.commissions.Totals(ctx, agent.ID)
	if err != nil {
		return nil, err
	}
	team, err := s.agents.CountRecruits(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	tier, next := AgentTierFor(active)
	dashboard := &models.AgentDashboard{
		Agent:           *agent,
		Tier:            tier.Name,
		CommissionRate:  tier.Rate,
		ActiveReferrals: active,
		Referrals:       referrals,
		PendingCents:    pendingCents,
		PaidCents:       paidCents,
		TeamSize:        team,
	}
	if next != nil {
		dashboard.NextTier = next.Name
		dashboard.ReferralsToNext = next.MinReferrals - active
	}
	return dashboard, nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func payoutEmail(name string, cents int64, method string) string {
	return fmt.Sprintf(`<p>Hi %s,</p>
<p>We sent you a commission payout of <strong>%s</strong> (%s).</p>
<p>Thank you for growing the Mansa Musa Marketplace community.</p>`, name, formatCents(cents), method)
}
