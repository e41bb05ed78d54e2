package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/mansamusa/marketplace_backend/models"
)

const testWebhookSecret = "whsec_test_secret"

func signedEvent(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	})
	return signed.Payload, signed.Header
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	g := NewStripeGateway("sk_test_unused", testWebhookSecret)

	t.Run("checkout completed", func(t *testing.T) {
		payload, sig := signedEvent(t, `{
			"id": "evt_checkout",
			"object": "event",
			"type": "checkout.session.completed",
			"data": {"object": {
				"id": "cs_1",
				"object": "checkout.session",
				"client_reference_id": "665f1c2a9e9a434a559a8c0d",
				"customer": "cus_1",
				"subscription": "sub_1",
				"metadata": {"kind": "user"}
			}}
		}`)
		ev, err := g.ParseWebhook(payload, sig)
		require.NoError(t, err)
		assert.Equal(t, "evt_checkout", ev.ID)
		assert.Equal(t, StripeCheckoutCompleted, ev.Type)
		assert.Equal(t, "665f1c2a9e9a434a559a8c0d", ev.ClientReferenceID)
		assert.Equal(t, "cus_1", ev.CustomerID)
		assert.Equal(t, "sub_1", ev.SubscriptionID)
		assert.Equal(t, "user", ev.Metadata["kind"])
	})

	t.Run("subscription updated", func(t *testing.T) {
		payload, sig := signedEvent(t, `{
			"id": "evt_sub",
			"object": "event",
			"type": "customer.subscription.updated",
			"data": {"object": {
				"id": "sub_1",
				"object": "subscription",
				"customer": "cus_1",
				"status": "past_due",
				"cancel_at_period_end": true,
				"current_period_end": 1751371200,
				"items": {"object": "list", "data": [{"id": "si_1", "price": {"id": "price_premium"}}]}
			}}
		}`)
		ev, err := g.ParseWebhook(payload, sig)
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionPastDue, ev.Status)
		assert.True(t, ev.CancelAtPeriodEnd)
		assert.Equal(t, "price_premium", ev.PriceID)
		assert.Equal(t, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), ev.CurrentPeriodEnd)
	})

	t.Run("subscription deleted is canceled", func(t *testing.T) {
		payload, sig := signedEvent(t, `{
			"id": "evt_del",
			"object": "event",
			"type": "customer.subscription.deleted",
			"data": {"object": {"id": "sub_1", "object": "subscription", "status": "active"}}
		}`)
		ev, err := g.ParseWebhook(payload, sig)
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionCanceled, ev.Status)
	})

	t.Run("invoice paid", func(t *testing.T) {
		payload, sig := signedEvent(t, `{
			"id": "evt_inv",
			"object": "event",
			"type": "invoice.paid",
			"data": {"object": {
				"id": "in_1",
				"object": "invoice",
				"amount_paid": 4900,
				"customer": "cus_1",
				"subscription": "sub_1",
				"lines": {"object": "list", "data": [
					{"id": "il_1", "period": {"start": 1748779200, "end": 1751371200}}
				]}
			}}
		}`)
		ev, err := g.ParseWebhook(payload, sig)
		require.NoError(t, err)
		assert.Equal(t, "in_1", ev.InvoiceID)
		assert.Equal(t, int64(4900), ev.AmountPaidCents)
		assert.Equal(t, "sub_1", ev.SubscriptionID)
		assert.Equal(t, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), ev.CurrentPeriodEnd)
	})

	t.Run("bad signature", func(t *testing.T) {
		payload, _ := signedEvent(t, `{"id": "evt_x", "object": "event", "type": "invoice.paid", "data": {"object": {}}}`)
		_, err := g.ParseWebhook(payload, "t=1,v1=deadbeef")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestStripeStatus(t *testing.T) {
	cases := map[string]string{
		"active":             models.SubscriptionActive,
		"trialing":           models.SubscriptionTrialing,
		"past_due":           models.SubscriptionPastDue,
		"unpaid":             models.SubscriptionPastDue,
		"incomplete":         models.SubscriptionPending,
		"incomplete_expired": models.SubscriptionExpired,
		"canceled":           models.SubscriptionCanceled,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, stripeStatus(stripe.SubscriptionStatus(in)))
		})
	}
}
