package handlers

import (
	"io"
	"net/http"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/services"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody - потолок тела события Stripe
const maxWebhookBody = 65536

type BillingHandler struct {
	*BaseHandler
	billingService services.BillingService
}

func NewBillingHandler(base *BaseHandler, billingService services.BillingService) *BillingHandler {
	return &BillingHandler{
		BaseHandler:    base,
		billingService: billingService,
	}
}

func (h *BillingHandler) RegisterRoutes(g RouteGroups) {
	g.Protected.POST("/billing/checkout", h.CreateCheckout)
	// Stripe не шлет токен, подлинность проверяется подписью
	g.Public.POST("/billing/webhook", h.Webhook)
}

// CreateCheckout - ссылка на оплату подписки Pro
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.billingService.CreateCheckout(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BillingHandler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.CtxWithError(ctx, "Failed to read webhook body", err)
		h.HandleServiceError(c, apperrors.NewBadRequestError("Failed to read request body"))
		return
	}

	if err := h.billingService.HandleWebhook(ctx, payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
