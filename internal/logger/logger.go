package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	log  *slog.Logger
	once sync.Once
)

// Init инициализирует глобальный логгер
// env: "development" или "production"
func Init(env string) {
	InitWithWriter(env, os.Stdout)
}

// InitWithWriter - то же, что Init, но с произвольным выводом (для тестов)
func InitWithWriter(env string, w io.Writer) {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	}

	var handler slog.Handler
	if env == "development" || env == "test" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	log = slog.New(handler)
	slog.SetDefault(log)
}

// GetLogger возвращает глобальный логгер
func GetLogger() *slog.Logger {
	once.Do(func() {
		if log == nil {
			Init("development")
		}
	})
	return log
}

// Info логирует info сообщение
func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

// Warn логирует warning сообщение
func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

// Error логирует error сообщение
func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Fatal логирует fatal ошибку и завершает программу
func Fatal(msg string, args ...any) {
	GetLogger().Error(msg, args...)
	os.Exit(1)
}

// ============================================
// Специализированные логгеры
// ============================================

// HTTPLog логирует HTTP запрос; уровень зависит от статуса
func HTTPLog(ctx context.Context, method, path string, status int, duration time.Duration, size int, args ...any) {
	fields := append([]any{
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"size_bytes", size,
	}, args...)

	switch {
	case status >= 500:
		CtxError(ctx, "HTTP Server Error", fields...)
	case status >= 400:
		CtxWarn(ctx, "HTTP Client Error", fields...)
	default:
		CtxInfo(ctx, "HTTP Request", fields...)
	}
}

// OracleLog логирует вызов Gemini
func OracleLog(operation, model string, duration time.Duration, err error) {
	fields := []any{
		"operation", operation,
		"model", model,
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Warn("oracle call failed", fields...)
	} else {
		GetLogger().Debug("oracle call", fields...)
	}
}

// StoreLog логирует операцию хранилища
func StoreLog(driver, operation, key string, err error) {
	fields := []any{
		"driver", driver,
		"operation", operation,
		"key", key,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("store operation failed", fields...)
	} else {
		GetLogger().Debug("store operation", fields...)
	}
}
