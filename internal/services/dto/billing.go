package dto

// CheckoutResponse - ссылка на оплату Stripe
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}
