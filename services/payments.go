package services

import (
	"context"
	"time"
)

// Stripe event types the service acts on
const (
	StripeCheckoutCompleted   = "checkout.session.completed"
	StripeSubscriptionCreated = "customer.subscription.created"
	StripeSubscriptionUpdated = "customer.subscription.updated"
	StripeSubscriptionDeleted = "customer.subscription.deleted"
	StripeInvoicePaid         = "invoice.paid"
)

type CheckoutParams struct {
	PriceID           string
	CustomerID        string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// BillingEvent is a verified payment webhook flattened to what the
// subscription and commission logic needs
type BillingEvent struct {
	ID                string
	Type              string
	CustomerID        string
	SubscriptionID    string
	ClientReferenceID string
	Metadata          map[string]string
	Status            string
	PriceID           string
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
	InvoiceID         string
	AmountPaidCents   int64
}

// PaymentGateway is the payment processor
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	Transfer(ctx context.Context, accountID string, amountCents int64, reference string) (string, error)
	ParseWebhook(payload []byte, signature string) (*BillingEvent, error)
}

// AppleTransaction is the decoded signedTransactionInfo of a notification
type AppleTransaction struct {
	TransactionID         string
	OriginalTransactionID string
	ProductID             string
	BundleID              string
	AppAccountToken       string
	ExpiresDate           time.Time
}

// AppleNotification is a verified App Store Server Notification v2
type AppleNotification struct {
	NotificationType string
	Subtype          string
	NotificationUUID string
	Environment      string
	BundleID         string
	Transaction      *AppleTransaction
}

// AppleVerifier checks and decodes App Store signed payloads
type AppleVerifier interface {
	Decode(signedPayload string) (*AppleNotification, error)
}
