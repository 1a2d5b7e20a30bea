package apperrors

import (
	"fmt"
	"net/http"
)

/*
Предопределенные ошибки и фабрики домена DreamWeaver.
Сообщения готовы к показу пользователю.
*/

// --- Auth ---

// ErrDuplicateAccount - аккаунт с таким email уже существует.
var ErrDuplicateAccount = New(
	CodeDuplicateAccount,
	"auth",
	"An account with this email already exists.",
	http.StatusConflict,
)

// ErrInvalidCredentials - неверный email или пароль.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password.",
	http.StatusUnauthorized,
)

// ErrUserNotFound - пользователь не найден.
var ErrUserNotFound = New(
	CodeUserNotFound,
	"auth",
	"User not found.",
	http.StatusNotFound,
)

// ErrWeakPassword - пароль слишком короткий.
var ErrWeakPassword = New(
	CodeWeakPassword,
	"validation",
	"Password is too weak. Minimum 6 characters required.",
	http.StatusBadRequest,
)

// ErrInvalidToken - неверный или просроченный токен.
var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// ErrSessionExpired - токен валиден, но сессия закрыта (logout).
var ErrSessionExpired = New(
	CodeUnauthorized,
	"auth",
	"Your session has ended. Please log in again.",
	http.StatusUnauthorized,
)

// --- Plans ---

// ErrQuotaExceeded - бесплатный лимит снов за месяц исчерпан.
var ErrQuotaExceeded = New(
	CodeQuotaExceeded,
	"subscription",
	"You've reached your monthly limit of free dream analyses. Upgrade to Pro for unlimited analyses.",
	http.StatusPaymentRequired,
)

// ErrUpgradeRequired - функция доступна только на Pro или в триале.
var ErrUpgradeRequired = New(
	CodeUpgradeRequired,
	"subscription",
	"This feature is available on the Pro plan.",
	http.StatusPaymentRequired,
)

// --- Journal ---

// ErrDreamNotFound - сон не найден в журнале пользователя.
var ErrDreamNotFound = New(
	CodeDreamNotFound,
	"journal",
	"Dream not found.",
	http.StatusNotFound,
)

// ErrInvalidAspectRatio - неподдерживаемое соотношение сторон.
var ErrInvalidAspectRatio = New(
	CodeInvalidAspectRatio,
	"art",
	"Unsupported aspect ratio. Use one of 1:1, 16:9, 9:16, 4:3, 3:4.",
	http.StatusBadRequest,
)

// ErrNotEnoughDreams - для отчета нужно минимум 3 проанализированных сна.
func ErrNotEnoughDreams(have int) *AppError {
	return New(
		CodeNotEnoughDreams,
		"insights",
		fmt.Sprintf("You need at least 3 analyzed dreams in this period to generate a report. You have %d.", have),
		http.StatusUnprocessableEntity,
	).WithDetails(map[string]int{"have": have, "need": 3})
}

// --- Oracle ---
// Ошибки внешнего AI-сервиса: детали скрыты, пользователю - предложение повторить.

// ErrAnalysisFailed - анализ сна не удался.
func ErrAnalysisFailed(err error) *AppError {
	return Wrap(err, CodeAnalysisFailed, "analysis",
		"Sorry, we couldn't analyze your dream. Please try again.", http.StatusBadGateway)
}

// ErrConversationFailed - ответ в чате не получен.
func ErrConversationFailed(err error) *AppError {
	return Wrap(err, CodeConversationFailed, "conversation",
		"Sorry, we couldn't get a reply. Please try again.", http.StatusBadGateway)
}

// ErrArtGenerationFailed - изображение не сгенерировано.
func ErrArtGenerationFailed(err error) *AppError {
	return Wrap(err, CodeArtGenerationFailed, "art",
		"Sorry, we couldn't create art for this dream. Please try again.", http.StatusBadGateway)
}

// ErrReportFailed - отчет не сгенерирован.
func ErrReportFailed(err error) *AppError {
	return Wrap(err, CodeReportFailed, "insights",
		"Sorry, we couldn't generate your report. Please try again.", http.StatusBadGateway)
}

// ErrTrendsFailed - глобальные тренды недоступны.
func ErrTrendsFailed(err error) *AppError {
	return Wrap(err, CodeTrendsFailed, "insights",
		"Sorry, we couldn't load global trends. Please try again.", http.StatusBadGateway)
}

// ErrInsightsQueryFailed - запрос к сообществу не удался.
func ErrInsightsQueryFailed(err error) *AppError {
	return Wrap(err, CodeInsightsQueryFailed, "insights",
		"Sorry, we couldn't search community insights. Please try again.", http.StatusBadGateway)
}

// ErrVoiceSessionFailed - голосовая сессия не открылась или оборвалась.
func ErrVoiceSessionFailed(err error) *AppError {
	return Wrap(err, CodeVoiceSessionFailed, "scribe",
		"Sorry, we couldn't start voice capture. Please try again.", http.StatusBadGateway)
}

// --- Billing ---

// ErrCheckoutFailed - Stripe не создал сессию оплаты.
func ErrCheckoutFailed(err error) *AppError {
	return Wrap(err, CodeCheckoutFailed, "billing",
		"Sorry, we couldn't start checkout. Please try again.", http.StatusBadGateway)
}
