package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeletionStep removes one slice of a user's data
type DeletionStep struct {
	Name string
	Run  func(ctx context.Context, userID primitive.ObjectID) error
}

// DeletionReport lists the steps that failed
type DeletionReport struct {
	UserID      string   `json:"userId"`
	Completed   []string `json:"completedSteps"`
	FailedSteps []string `json:"failedSteps"`
}

func (r *DeletionReport) OK() bool { return len(r.FailedSteps) == 0 }

type AccountService struct {
	users   UserStore
	steps   []DeletionStep
	mailer  Mailer
	tracker Tracker

	Now func() time.Time
}

// NewAccountService runs steps in order on deletion
func NewAccountService(users UserStore, steps []DeletionStep, mailer Mailer, tracker Tracker) *AccountService {
	return &AccountService{
		users:   users,
		steps:   steps,
		mailer:  orNopMailer(mailer),
		tracker: orNopTracker(tracker),
		Now:     systemNow,
	}
}

// Delete runs every step even after a failure and reports which failed.
// The confirmation email goes to the address loaded before deletion.
func (s *AccountService) Delete(ctx context.Context, actor Actor) (*DeletionReport, error) {
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	report := &DeletionReport{UserID: user.ID.Hex(), Completed: []string{}, FailedSteps: []string{}}
	for _, step := range s.steps {
		if err := step.Run(ctx, user.ID); err != nil {
			log.Printf("Account deletion step %s failed for user %s: %v", step.Name, user.ID.Hex(), err)
			report.FailedSteps = append(report.FailedSteps, step.Name)
			continue
		}
		report.Completed = append(report.Completed, step.Name)
	}

	s.tracker.Track(user.ID.Hex(), "account_deleted", map[string]interface{}{
		"failed_steps": len(report.FailedSteps),
	})
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your Mansa Musa Marketplace account and its data have been deleted.</p>
<p>If you did not request this, contact support right away.</p>`, user.FullName)
	logIfErr(s.mailer.Send(user.Email, "Your account has been deleted", body),
		"Failed to send deletion confirmation to user %s", user.ID.Hex())
	return report, nil
}

// AccountStores are the collections holding a user's data
type AccountStores struct {
	Users          UserStore
	Reviews        ReviewStore
	Scans          ScanStore
	Ledger         LedgerStore
	Redemptions    RedemptionStore
	Participations ParticipationStore
	KarmaEvents    KarmaEventStore
	Notifications  NotificationStore
	Subscriptions  SubscriptionStore
	Businesses     BusinessStore
	QRCodes        QRCodeStore
	Rewards        RewardStore
	Agents         AgentStore
	Sponsors       SponsorStore
}

// DeletionSteps is the ordered account deletion cascade. Live Stripe
// subscriptions are cancelled first so billing stops.
func DeletionSteps(st AccountStores, subscriptions *SubscriptionService, reviews *ReviewService) []DeletionStep {
	return []DeletionStep{
		{Name: "stripe_subscriptions", Run: func(ctx context.Context, id primitive.ObjectID) error {
			if subscriptions == nil {
				return nil
			}
			return subscriptions.CancelAllForUser(ctx, id)
		}},
		{Name: "reviews", Run: func(ctx context.Context, id primitive.ObjectID) error {
			mine, err := st.Reviews.ListByUser(ctx, id)
			if err != nil {
				return err
			}
			if err := st.Reviews.DeleteByUser(ctx, id); err != nil {
				return err
			}
			if reviews != nil {
				ids := make([]primitive.ObjectID, 0, len(mine))
				for _, r := range mine {
					ids = append(ids, r.BusinessID)
				}
				reviews.RefreshRatings(ctx, ids)
			}
			return nil
		}},
		{Name: "scans", Run: st.Scans.DeleteByUser},
		{Name: "transactions", Run: st.Ledger.DeleteByUser},
		{Name: "redemptions", Run: st.Redemptions.DeleteByUser},
		{Name: "challenge_participations", Run: st.Participations.DeleteByUser},
		{Name: "karma_events", Run: st.KarmaEvents.DeleteByUser},
		{Name: "notifications", Run: st.Notifications.DeleteByUser},
		{Name: "subscriptions", Run: st.Subscriptions.DeleteByUser},
		{Name: "businesses", Run: func(ctx context.Context, id primitive.ObjectID) error {
			owned, err := st.Businesses.ListByOwner(ctx, id)
			if err != nil {
				return err
			}
			for _, b := range owned {
				if err := st.QRCodes.DeleteByBusiness(ctx, b.ID); err != nil {
					return err
				}
				if err := st.Rewards.DeleteByBusiness(ctx, b.ID); err != nil {
					return err
				}
				if err := st.Businesses.Delete(ctx, b.ID); err != nil {
					return err
				}
			}
			return nil
		}},
		{Name: "sales_agent", Run: st.Agents.DeleteByUser},
		{Name: "sponsor_profile", Run: st.Sponsors.DeleteByUser},
		{Name: "user", Run: st.Users.Delete},
	}
}
