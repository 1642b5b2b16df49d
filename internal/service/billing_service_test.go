package service

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"lifecoach/internal/repository"
)

type fakeSubscriptionStore struct {
	subscribed map[int64]bool
	err        error
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{subscribed: make(map[int64]bool)}
}

func (f *fakeSubscriptionStore) SetSubscribed(_ context.Context, userID int64, subscribed bool) error {
	if f.err != nil {
		return f.err
	}
	f.subscribed[userID] = subscribed
	return nil
}

func newBillingForTest(store SubscriptionStore) *BillingService {
	return &BillingService{
		users:   store,
		baseURL: "https://example.ngrok.io",
	}
}

func stripeEvent(t *testing.T, eventType string, object interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripe.Event{
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleCheckoutCompleted(t *testing.T) {
	store := newFakeSubscriptionStore()
	svc := newBillingForTest(store)

	event := stripeEvent(t, "checkout.session.completed", map[string]string{
		"client_reference_id": "12345",
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.True(t, store.subscribed[12345])
}

func TestHandleCheckoutCompletedBadReference(t *testing.T) {
	svc := newBillingForTest(newFakeSubscriptionStore())

	event := stripeEvent(t, "checkout.session.completed", map[string]string{
		"client_reference_id": "not-a-number",
	})
	require.Error(t, svc.HandleEvent(context.Background(), event))
}

func TestHandleSubscriptionUpdated(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"active", true},
		{"past_due", false},
		{"canceled", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			store := newFakeSubscriptionStore()
			svc := newBillingForTest(store)

			event := stripeEvent(t, "customer.subscription.updated", map[string]interface{}{
				"status":   tt.status,
				"metadata": map[string]string{"user_id": "777"},
			})
			require.NoError(t, svc.HandleEvent(context.Background(), event))

			got, ok := store.subscribed[777]
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleSubscriptionUpdatedWithoutMetadata(t *testing.T) {
	store := newFakeSubscriptionStore()
	svc := newBillingForTest(store)

	event := stripeEvent(t, "customer.subscription.updated", map[string]interface{}{
		"status": "active",
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.Empty(t, store.subscribed)
}

func TestHandleSubscriptionDeleted(t *testing.T) {
	store := newFakeSubscriptionStore()
	store.subscribed[777] = true
	svc := newBillingForTest(store)

	event := stripeEvent(t, "customer.subscription.deleted", map[string]interface{}{
		"status":   "canceled",
		"metadata": map[string]string{"user_id": "777"},
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.False(t, store.subscribed[777])
}

func TestHandleInvoicePaymentSucceededIsNoOp(t *testing.T) {
	store := newFakeSubscriptionStore()
	svc := newBillingForTest(store)

	event := stripeEvent(t, "invoice.payment_succeeded", map[string]string{})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.Empty(t, store.subscribed)
}

func TestHandleUnknownEventIsAcknowledged(t *testing.T) {
	svc := newBillingForTest(newFakeSubscriptionStore())

	event := stripeEvent(t, "charge.refunded", map[string]string{})
	require.NoError(t, svc.HandleEvent(context.Background(), event))
}

func TestHandleEventUnknownUserIsNotAnError(t *testing.T) {
	store := newFakeSubscriptionStore()
	store.err = repository.ErrNotFound
	svc := newBillingForTest(store)

	event := stripeEvent(t, "checkout.session.completed", map[string]string{
		"client_reference_id": "12345",
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))
}

func TestCheckoutURL(t *testing.T) {
	svc := newBillingForTest(newFakeSubscriptionStore())

	var gotParams *stripe.CheckoutSessionParams
	svc.newCheckout = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		gotParams = params
		return &stripe.CheckoutSession{URL: "https://checkout.stripe.com/pay/cs_test"}, nil
	}

	url, err := svc.CheckoutURL(context.Background(), 12345)
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test", url)
	require.NotNil(t, gotParams)
	assert.Equal(t, "subscription", stripe.StringValue(gotParams.Mode))
	assert.Equal(t, strconv.FormatInt(12345, 10), stripe.StringValue(gotParams.ClientReferenceID))
	assert.Equal(t, "https://example.ngrok.io/success.html", stripe.StringValue(gotParams.SuccessURL))
	assert.Equal(t, "https://example.ngrok.io/cancel.html", stripe.StringValue(gotParams.CancelURL))
	require.Len(t, gotParams.LineItems, 1)
	assert.Equal(t, int64(1000), stripe.Int64Value(gotParams.LineItems[0].PriceData.UnitAmount))
}
