package logger

import (
	"context"
	"log/slog"

	"dreamweaver_backend/pkg/contextkeys"
)

// WithRequestID добавляет request ID в context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// WithUserID добавляет user ID в context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextkeys.UserIDKey, userID)
}

// GetRequestID извлекает request ID из context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(contextkeys.RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID извлекает user ID из context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(contextkeys.UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// FromContext создает логгер с request_id и user_id из context
func FromContext(ctx context.Context) *slog.Logger {
	l := GetLogger()
	if ctx == nil {
		return l
	}

	var fields []any
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if userID := GetUserID(ctx); userID != "" {
		fields = append(fields, "user_id", userID)
	}

	if len(fields) > 0 {
		l = l.With(fields...)
	}
	return l
}

// CtxDebug логирует debug с контекстом
func CtxDebug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

// CtxInfo логирует info с контекстом
func CtxInfo(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

// CtxWarn логирует warning с контекстом
func CtxWarn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

// CtxError логирует error с контекстом
func CtxError(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Error(msg, args...)
}

// CtxWithError логирует error с error объектом
func CtxWithError(ctx context.Context, msg string, err error, args ...any) {
	fields := append([]any{"error", err.Error()}, args...)
	FromContext(ctx).Error(msg, fields...)
}
