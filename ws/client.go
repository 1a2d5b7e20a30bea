package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/middleware"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/scribe"
	"dreamweaver_backend/internal/services"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Действия клиента
const (
	ActionStart            = "start"
	ActionStop             = "stop"
	ActionEdit             = "edit"
	ActionDiscard          = "discard"
	ActionRetry            = "retry"
	ActionAnalyze          = "analyze"
	ActionPermissionDenied = "permission_denied"
)

// Типы сообщений сервера
const (
	MessageState = "state"
	MessageDream = "dream"
	MessageError = "error"
)

type IncomingWSMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type OutgoingWSMessage struct {
	Type  string              `json:"type"`
	State *scribe.Snapshot    `json:"state,omitempty"`
	Dream *models.Dream       `json:"dream,omitempty"`
	Error *apperrors.AppError `json:"error,omitempty"`
}

type editPayload struct {
	Text string `json:"text"`
}

type analyzePayload struct {
	Mood    models.DreamMood       `json:"mood"`
	Options models.AnalysisOptions `json:"options"`
}

// SubmitLimits - ограничения анализа из голосовой записи, общие с AI маршрутами
type SubmitLimits struct {
	Limiter *middleware.RateLimiter
	Timeout time.Duration
}

// Client - одно подключение голосовой записи
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan OutgoingWSMessage
	Ctx  context.Context

	Manager        *ScribeManager
	JournalService services.JournalService

	session   *scribe.Session
	capture   *socketCapture
	limits    SubmitLimits
	analyzing atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(
	ctx context.Context,
	userID string,
	conn *websocket.Conn,
	manager *ScribeManager,
	journal services.JournalService,
	transcriber scribe.Transcriber,
	limits SubmitLimits,
) *Client {
	ctx, cancel := context.WithCancel(ctx)
	c := &Client{
		ID:             userID,
		Conn:           conn,
		Send:           make(chan OutgoingWSMessage, sendBuffer),
		Ctx:            ctx,
		Manager:        manager,
		JournalService: journal,
		capture:        newSocketCapture(),
		limits:         limits,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
	c.session = scribe.NewSession(c.capture, transcriber, c.sendState)
	return c
}

// Close освобождает микрофон, поток транскрипции и соединение; повторный вызов безопасен
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
		c.session.Close()
		c.capture.close()
		_ = c.Conn.Close()
	})
}

func (c *Client) send(msg OutgoingWSMessage) {
	select {
	case c.Send <- msg:
	case <-c.done:
	}
}

func (c *Client) sendState(snap scribe.Snapshot) {
	c.send(OutgoingWSMessage{Type: MessageState, State: &snap})
}

func (c *Client) sendError(err error) {
	c.send(OutgoingWSMessage{Type: MessageError, Error: toAppError(err)})
}

func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, scribe.ErrInvalidTransition),
		errors.Is(err, scribe.ErrEmptyTranscript),
		errors.Is(err, scribe.ErrClosed):
		return apperrors.NewBadRequestError(err.Error())
	}
	return apperrors.InternalError(err)
}

func (c *Client) readPump() {
	defer func() {
		c.Manager.Unregister(c)
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, msgBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.CtxWithError(c.Ctx, "WebSocket read error", err)
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			// PCM 16kHz mono от браузера
			c.capture.push(msgBytes)
			continue
		}

		var msg IncomingWSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			logger.CtxWarn(c.Ctx, "Failed to parse message", "error", err.Error())
			c.sendError(apperrors.NewBadRequestError("Invalid message"))
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteJSON(msg); err != nil {
				logger.CtxWithError(c.Ctx, "WebSocket write error", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// Централизованный обработчик
func (c *Client) handleMessage(msg IncomingWSMessage) {
	var err error

	switch msg.Action {
	case ActionStart:
		// Start ждет открытия транскрипции, чтение сокета не блокируем
		go func() {
			if err := c.session.Start(c.Ctx); err != nil && !errors.Is(err, scribe.ErrClosed) {
				c.sendError(err)
			}
		}()
		return

	case ActionPermissionDenied:
		err = c.permissionDenied()

	case ActionStop:
		err = c.session.Stop()

	case ActionEdit:
		var payload editPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError(apperrors.NewBadRequestError("Invalid edit payload"))
			return
		}
		err = c.session.Edit(payload.Text)

	case ActionDiscard:
		err = c.session.Discard()

	case ActionRetry:
		err = c.session.Retry()

	case ActionAnalyze:
		err = c.startAnalyze(msg.Data)

	default:
		logger.CtxWarn(c.Ctx, "Unhandled action", "action", msg.Action)
		err = apperrors.NewBadRequestError("Unknown action: " + msg.Action)
	}

	if err != nil {
		c.sendError(err)
	}
}

// permissionDenied - браузер отказал в микрофоне.
// Идущая запись уходит в Error, иначе отказ получает Open новой попытки.
func (c *Client) permissionDenied() error {
	switch c.session.Snapshot().State {
	case scribe.StateRecording:
		c.session.Handle(scribe.Event{Kind: scribe.EventError, Err: scribe.ErrPermissionDenied})
		return apperrors.ErrVoiceSessionFailed(scribe.ErrPermissionDenied)
	case scribe.StateConnecting:
		// ошибку вернет ожидающий Start
		c.session.Handle(scribe.Event{Kind: scribe.EventError, Err: scribe.ErrPermissionDenied})
		return nil
	}

	c.capture.deny()
	err := c.session.Start(c.Ctx)
	// отказ не должен достаться следующему start, если Open не вызывался
	c.capture.allow()
	return err
}

// startAnalyze проверяет запись и запускает анализ вне цикла чтения
func (c *Client) startAnalyze(data json.RawMessage) error {
	var payload analyzePayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return apperrors.NewBadRequestError("Invalid analyze payload")
		}
	}

	snap := c.session.Snapshot()
	if snap.State != scribe.StateStopped {
		return scribe.ErrInvalidTransition
	}
	if strings.TrimSpace(snap.Transcript) == "" {
		return scribe.ErrEmptyTranscript
	}

	if !c.analyzing.CompareAndSwap(false, true) {
		return apperrors.NewBadRequestError("Analysis already in progress")
	}
	if c.limits.Limiter != nil && !c.limits.Limiter.Allow(c.ID) {
		c.analyzing.Store(false)
		logger.CtxWarn(c.Ctx, "Rate limit exceeded", "key", c.ID, "path", "/ws/scribe")
		return apperrors.NewRateLimitedError()
	}

	go func() {
		err := c.analyze(snap.Transcript, payload)
		// флаг снимается до ответа: клиент может сразу повторить
		c.analyzing.Store(false)
		if err != nil && c.Ctx.Err() == nil {
			c.sendError(err)
		}
	}()
	return nil
}

// analyze создает сон из остановленной записи.
// Текст остается в сессии, пока сон не сохранен.
func (c *Client) analyze(text string, payload analyzePayload) error {
	ctx := c.Ctx
	if c.limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.limits.Timeout)
		defer cancel()
	}

	dream, err := c.JournalService.SubmitDream(ctx, c.ID, text, payload.Mood, payload.Options)
	if err != nil {
		return err
	}

	c.send(OutgoingWSMessage{Type: MessageDream, Dream: dream})
	if _, err := c.session.Finish(); err != nil {
		logger.CtxWarn(c.Ctx, "Scribe session changed during analysis", "error", err.Error())
	}
	return nil
}
