package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"

	"lifecoach/internal/logging"
	"lifecoach/internal/repository"
)

// SubscriptionStore flips the per-user subscription flag.
type SubscriptionStore interface {
	SetSubscribed(ctx context.Context, userID int64, subscribed bool) error
}

// CheckoutStarter creates a Stripe checkout session. Indirection exists so
// tests don't hit the Stripe API.
type CheckoutStarter func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// BillingService creates checkout sessions and applies webhook events to the
// user store.
type BillingService struct {
	users       SubscriptionStore
	baseURL     string
	newCheckout CheckoutStarter
}

func NewBillingService(users SubscriptionStore, apiKey, publicBaseURL string) *BillingService {
	stripe.Key = apiKey
	return &BillingService{
		users:       users,
		baseURL:     publicBaseURL,
		newCheckout: session.New,
	}
}

// CheckoutURL creates a subscription-mode checkout session for the user and
// returns its hosted payment page URL. The Telegram user id rides along as
// the client reference so the webhook can find the user again.
func (s *BillingService) CheckoutURL(ctx context.Context, userID int64) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyUSD)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("AI Life Coach Subscription"),
				},
				UnitAmount: stripe.Int64(1000),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(s.baseURL + "/success.html"),
		CancelURL:         stripe.String(s.baseURL + "/cancel.html"),
		ClientReferenceID: stripe.String(strconv.FormatInt(userID, 10)),
	}
	params.Context = ctx

	sess, err := s.newCheckout(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// HandleEvent applies a verified Stripe event to the user store. Unknown
// event types are logged and acknowledged.
func (s *BillingService) HandleEvent(ctx context.Context, event stripe.Event) error {
	log := logging.WithComponent("billing").WithField("event_type", event.Type)

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		userID, err := strconv.ParseInt(sess.ClientReferenceID, 10, 64)
		if err != nil {
			return fmt.Errorf("parse client_reference_id %q: %w", sess.ClientReferenceID, err)
		}
		log.WithField("user_id", userID).Info("checkout session completed")
		return s.setSubscribed(ctx, log, userID, true)

	case "invoice.payment_succeeded":
		log.Info("invoice payment succeeded")
		return nil

	case "customer.subscription.updated":
		sub, userID, err := decodeSubscription(event)
		if err != nil {
			return err
		}
		if userID == 0 {
			log.Warn("subscription event without user_id metadata")
			return nil
		}
		active := sub.Status == stripe.SubscriptionStatusActive
		log.WithFields(logging.Fields{"user_id": userID, "status": sub.Status}).
			Info("subscription updated")
		return s.setSubscribed(ctx, log, userID, active)

	case "customer.subscription.deleted":
		_, userID, err := decodeSubscription(event)
		if err != nil {
			return err
		}
		if userID == 0 {
			log.Warn("subscription event without user_id metadata")
			return nil
		}
		log.WithField("user_id", userID).Info("subscription deleted")
		return s.setSubscribed(ctx, log, userID, false)

	default:
		log.Warn("unhandled event type")
		return nil
	}
}

func (s *BillingService) setSubscribed(ctx context.Context, log *logrus.Entry, userID int64, subscribed bool) error {
	err := s.users.SetSubscribed(ctx, userID, subscribed)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("webhook references unknown user")
		return nil
	}
	return err
}

func decodeSubscription(event stripe.Event) (stripe.Subscription, int64, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return sub, 0, fmt.Errorf("decode subscription: %w", err)
	}
	raw, ok := sub.Metadata["user_id"]
	if !ok || raw == "" {
		return sub, 0, nil
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return sub, 0, fmt.Errorf("parse metadata user_id %q: %w", raw, err)
	}
	return sub, userID, nil
}
