// controllers/subscription_controller.go
package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

// maxWebhookBody caps webhook payloads read into memory
const maxWebhookBody = 1 << 16

type SubscriptionController struct {
	subscriptions *services.SubscriptionService
}

func NewSubscriptionController(subscriptions *services.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{subscriptions: subscriptions}
}

func (sc *SubscriptionController) Plans(c echo.Context) error {
	return respondOK(c, "Plans retrieved successfully", sc.subscriptions.Plans())
}

// Checkout starts a Stripe Checkout session for a plan
func (sc *SubscriptionController) Checkout(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.CheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, err := sc.subscriptions.CreateCheckout(ctx, actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Checkout session created", session)
}

// Portal returns a Stripe Billing Portal link
func (sc *SubscriptionController) Portal(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	url, err := sc.subscriptions.CreatePortal(ctx, actor)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Portal session created", map[string]string{"url": url})
}

func (sc *SubscriptionController) Mine(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	overview, err := sc.subscriptions.ForUser(ctx, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Subscriptions retrieved successfully", overview)
}

// StripeWebhook verifies and applies a Stripe event. The raw body is
// needed for signature verification.
func (sc *SubscriptionController) StripeWebhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := sc.subscriptions.HandleStripeWebhook(ctx, payload, c.Request().Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			log.Printf("Rejected Stripe webhook: %v", err)
		}
		return respondError(c, err)
	}
	return respondOK(c, "Event received", nil)
}

// AppleWebhook applies an App Store Server Notification
func (sc *SubscriptionController) AppleWebhook(c echo.Context) error {
	var req models.AppleNotificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := sc.subscriptions.HandleAppleNotification(ctx, req.SignedPayload); err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			log.Printf("Rejected App Store notification: %v", err)
		}
		return respondError(c, err)
	}
	return respondOK(c, "Notification received", nil)
}
