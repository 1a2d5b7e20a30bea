package services

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"
)

// ErrBillingNotConfigured - нет ключей или цены Stripe
var ErrBillingNotConfigured = errors.New("billing not configured")

// StripeConfig - ключи и цена подписки Pro
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	FrontendURL   string
}

// PaymentGateway - все, что биллинг делает в Stripe
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	// CustomerUserID читает user_id из metadata клиента
	CustomerUserID(ctx context.Context, customerID string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, userID string) (*stripe.CheckoutSession, error)
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type StripeGateway struct {
	cfg StripeConfig
}

// NewStripeGateway задает глобальный ключ stripe-go
func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	stripe.Key = cfg.SecretKey
	return &StripeGateway{cfg: cfg}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	if g.cfg.SecretKey == "" {
		return "", ErrBillingNotConfigured
	}
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}
	params.Context = ctx

	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (g *StripeGateway) CustomerUserID(ctx context.Context, customerID string) (string, error) {
	if g.cfg.SecretKey == "" {
		return "", ErrBillingNotConfigured
	}
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := customer.Get(customerID, params)
	if err != nil {
		return "", err
	}
	return cust.Metadata["user_id"], nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, customerID, userID string) (*stripe.CheckoutSession, error) {
	frontendURL := strings.TrimRight(g.cfg.FrontendURL, "/")
	if g.cfg.SecretKey == "" || g.cfg.PriceID == "" || frontendURL == "" {
		return nil, ErrBillingNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": userID},
		},
		SuccessURL: stripe.String(frontendURL + "/?checkout=success"),
		CancelURL:  stripe.String(frontendURL + "/?checkout=cancel"),
	}
	params.Context = ctx

	return session.New(params)
}

func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if g.cfg.WebhookSecret == "" {
		return stripe.Event{}, ErrBillingNotConfigured
	}
	return webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
}
