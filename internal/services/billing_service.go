package services

import (
	"context"
	"encoding/json"
	"errors"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/repositories"
	"dreamweaver_backend/internal/services/dto"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/stripe/stripe-go/v79"
)

type BillingService interface {
	CreateCheckout(ctx context.Context, userID string) (*dto.CheckoutResponse, error)
	// HandleWebhook переключает тариф по событиям подписки; прочие события игнорируются
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type BillingServiceImpl struct {
	userRepo    repositories.UserRepository
	authService AuthService
	gateway     PaymentGateway
}

func NewBillingService(userRepo repositories.UserRepository, authService AuthService, gateway PaymentGateway) BillingService {
	return &BillingServiceImpl{
		userRepo:    userRepo,
		authService: authService,
		gateway:     gateway,
	}
}

func (s *BillingServiceImpl) CreateCheckout(ctx context.Context, userID string) (*dto.CheckoutResponse, error) {
	stored, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	customerID, err := s.ensureCustomer(ctx, stored)
	if err != nil {
		logger.CtxWithError(ctx, "Failed to prepare Stripe customer", err, "user_id", userID)
		return nil, apperrors.ErrCheckoutFailed(err)
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, customerID, userID)
	if err != nil {
		logger.CtxWithError(ctx, "Stripe checkout session failed", err, "user_id", userID)
		return nil, apperrors.ErrCheckoutFailed(err)
	}

	logger.CtxInfo(ctx, "Checkout session created", "user_id", userID, "session_id", sess.ID)
	return &dto.CheckoutResponse{URL: sess.URL, SessionID: sess.ID}, nil
}

// ensureCustomer создает клиента Stripe один раз и запоминает его id
func (s *BillingServiceImpl) ensureCustomer(ctx context.Context, user *models.StoredUser) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, user.ID, user.Email)
	if err != nil {
		return "", err
	}

	if _, err := s.userRepo.Update(ctx, user.ID, func(u *models.StoredUser) {
		u.StripeCustomerID = customerID
	}); err != nil {
		return "", err
	}
	return customerID, nil
}

func (s *BillingServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		if errors.Is(err, ErrBillingNotConfigured) {
			return apperrors.InternalError(err)
		}
		logger.CtxWarn(ctx, "Stripe webhook signature failed", "error", err.Error())
		return apperrors.NewBadRequestError("Signature verification failed")
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return apperrors.NewBadRequestError("Invalid session payload")
		}
		userID := sess.ClientReferenceID
		if userID == "" && sess.Customer != nil {
			userID, err = s.userForCustomer(ctx, sess.Customer.ID)
			if err != nil {
				return err
			}
		}
		return s.setPlan(ctx, userID, models.PlanPro, event.ID)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return apperrors.NewBadRequestError("Invalid subscription payload")
		}
		userID := sub.Metadata["user_id"]
		if userID == "" && sub.Customer != nil {
			userID, err = s.userForCustomer(ctx, sub.Customer.ID)
			if err != nil {
				return err
			}
		}
		return s.setPlan(ctx, userID, models.PlanFree, event.ID)

	default:
		logger.CtxDebug(ctx, "Stripe event ignored", "type", string(event.Type))
		return nil
	}
}

func (s *BillingServiceImpl) userForCustomer(ctx context.Context, customerID string) (string, error) {
	userID, err := s.gateway.CustomerUserID(ctx, customerID)
	if err != nil {
		logger.CtxWithError(ctx, "Stripe customer lookup failed", err, "customer_id", customerID)
		return "", apperrors.InternalError(err)
	}
	return userID, nil
}

func (s *BillingServiceImpl) setPlan(ctx context.Context, userID string, plan models.Plan, eventID string) error {
	if userID == "" {
		return apperrors.NewBadRequestError("Event does not reference a user")
	}
	updated, err := s.authService.UpdateUser(ctx, models.User{ID: userID, Plan: plan})
	if err != nil {
		return err
	}
	if updated == nil {
		logger.CtxWarn(ctx, "Stripe event for unknown user", "user_id", userID, "event_id", eventID)
		return nil
	}
	logger.CtxInfo(ctx, "Plan changed", "user_id", userID, "plan", string(plan), "event_id", eventID)
	return nil
}
