package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

const testWebhookSecret = "whsec_test"

// fakeGateway подменяет сетевые вызовы Stripe; подпись проверяется настоящим кодом
type fakeGateway struct {
	*StripeGateway
	customers    int
	checkouts    []string
	customerUser map[string]string
	err          error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		StripeGateway: &StripeGateway{cfg: StripeConfig{WebhookSecret: testWebhookSecret}},
		customerUser:  map[string]string{},
	}
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.customers++
	id := fmt.Sprintf("cus_%d", g.customers)
	g.customerUser[id] = userID
	return id, nil
}

func (g *fakeGateway) CustomerUserID(ctx context.Context, customerID string) (string, error) {
	return g.customerUser[customerID], nil
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, customerID, userID string) (*stripe.CheckoutSession, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.checkouts = append(g.checkouts, customerID)
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil
}

func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventJSON(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2024-06-20","type":%q,"data":{"object":%s}}`, eventType, object))
}

func TestCreateCheckout_ReusesCustomer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	gw := newFakeGateway()
	svc := NewBillingService(env.userRepo, env.auth, gw)

	resp, err := svc.CreateCheckout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_1", resp.URL)
	assert.Equal(t, "cs_1", resp.SessionID)

	_, err = svc.CreateCheckout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.customers)
	assert.Equal(t, []string{"cus_1", "cus_1"}, gw.checkouts)

	stored, err := env.userRepo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cus_1", stored.StripeCustomerID)
}

func TestCreateCheckout_Failure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	gw := newFakeGateway()
	gw.err = errors.New("stripe down")

	_, err := NewBillingService(env.userRepo, env.auth, gw).CreateCheckout(ctx, id)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCheckoutFailed))

	_, err = NewBillingService(env.userRepo, env.auth, NewStripeGateway(StripeConfig{})).CreateCheckout(ctx, id)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCheckoutFailed))
}

func TestHandleWebhook_PlanTransitions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	gw := newFakeGateway()
	svc := NewBillingService(env.userRepo, env.auth, gw)

	completed := eventJSON("checkout.session.completed",
		`{"id":"cs_1","object":"checkout.session","client_reference_id":"a@b.com","customer":"cus_1"}`)
	require.NoError(t, svc.HandleWebhook(ctx, completed, signPayload(completed, testWebhookSecret)))

	user, err := env.auth.CurrentUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, user.Plan)

	deleted := eventJSON("customer.subscription.deleted",
		`{"id":"sub_1","object":"subscription","customer":"cus_1","metadata":{"user_id":"a@b.com"}}`)
	require.NoError(t, svc.HandleWebhook(ctx, deleted, signPayload(deleted, testWebhookSecret)))

	user, err = env.auth.CurrentUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, user.Plan)
}

func TestHandleWebhook_FallsBackToCustomerMetadata(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signUp(t, "a@b.com")
	gw := newFakeGateway()
	gw.customerUser["cus_9"] = id
	svc := NewBillingService(env.userRepo, env.auth, gw)

	completed := eventJSON("checkout.session.completed", `{"id":"cs_1","object":"checkout.session","customer":"cus_9"}`)
	require.NoError(t, svc.HandleWebhook(ctx, completed, signPayload(completed, testWebhookSecret)))

	stored, err := env.userRepo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, stored.Plan)
}

func TestHandleWebhook_RejectsAndIgnores(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signUp(t, "a@b.com")
	svc := NewBillingService(env.userRepo, env.auth, newFakeGateway())

	payload := eventJSON("checkout.session.completed", `{"id":"cs_1","client_reference_id":"a@b.com"}`)
	err := svc.HandleWebhook(ctx, payload, signPayload(payload, "whsec_wrong"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	stored, err := env.userRepo.FindByID(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, stored.Plan)

	other := eventJSON("invoice.paid", `{"id":"in_1","object":"invoice"}`)
	assert.NoError(t, svc.HandleWebhook(ctx, other, signPayload(other, testWebhookSecret)))

	// Неизвестный пользователь - событие принимается без изменений
	ghost := eventJSON("checkout.session.completed", `{"id":"cs_2","client_reference_id":"ghost@b.com"}`)
	assert.NoError(t, svc.HandleWebhook(ctx, ghost, signPayload(ghost, testWebhookSecret)))
}
