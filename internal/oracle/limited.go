package oracle

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/metrics"
)

// Limited ограничивает частоту вызовов к модели общим token bucket
// и пишет метрики и логи по каждому вызову.
type Limited struct {
	next    Client
	live    LiveClient
	limiter *rate.Limiter
}

// NewLimited оборачивает клиента; live может быть nil
func NewLimited(next Client, live LiveClient, perSecond float64, burst int) *Limited {
	return &Limited{
		next:    next,
		live:    live,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (l *Limited) GenerateText(ctx context.Context, req *TextRequest) (*TextResponse, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := l.next.GenerateText(ctx, req)
	observe(req.Operation, req.Model, start, err)
	return resp, err
}

func (l *Limited) GenerateImage(ctx context.Context, req *ImageRequest) ([]byte, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	img, err := l.next.GenerateImage(ctx, req)
	observe(req.Operation, req.Model, start, err)
	return img, err
}

func (l *Limited) ConnectLive(ctx context.Context, req *LiveRequest) (LiveStream, error) {
	if l.live == nil {
		return nil, ErrNotConfigured
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	stream, err := l.live.ConnectLive(ctx, req)
	observe("scribe_connect", req.Model, start, err)
	return stream, err
}

func observe(operation, model string, start time.Time, err error) {
	duration := time.Since(start)
	outcome := "ok"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	case err != nil:
		outcome = "error"
	}
	metrics.RecordOracleCall(operation, outcome, duration)
	logger.OracleLog(operation, model, duration, err)
}
