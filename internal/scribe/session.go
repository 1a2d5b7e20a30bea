// Package scribe - голосовая запись сна: микрофон -> live транскрипция -> редактируемый текст.
package scribe

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"dreamweaver_backend/internal/oracle"
	"dreamweaver_backend/pkg/apperrors"
)

var (
	ErrPermissionDenied  = errors.New("scribe: microphone permission denied")
	ErrInvalidTransition = errors.New("scribe: action not allowed in current state")
	ErrEmptyTranscript   = errors.New("scribe: transcript is empty")
	ErrClosed            = errors.New("scribe: session closed")
	errStreamClosed      = errors.New("scribe: transcription closed before opening")
)

// resources - микрофон и поток одной попытки записи; освобождаются ровно один раз
type resources struct {
	once   sync.Once
	cancel context.CancelFunc
	audio  AudioStream
	stream oracle.LiveStream
}

func (r *resources) release() {
	r.once.Do(func() {
		r.cancel()
		if r.audio != nil {
			r.audio.Stop()
		}
		if r.stream != nil {
			_ = r.stream.Close()
		}
	})
}

type Session struct {
	capture     AudioCapture
	transcriber Transcriber
	onChange    func(Snapshot)

	mu         sync.Mutex
	state      State
	transcript string
	lastErr    error
	res        *resources
	closed     bool
}

// NewSession; onChange вызывается после каждого перехода, вне блокировки
func NewSession(capture AudioCapture, transcriber Transcriber, onChange func(Snapshot)) *Session {
	if onChange == nil {
		onChange = func(Snapshot) {}
	}
	return &Session{
		capture:     capture,
		transcriber: transcriber,
		onChange:    onChange,
		state:       StateIdle,
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Transcript: s.transcript}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

// Start: Idle/Stopped/Error -> Connecting -> Recording.
// Блокируется до открытия потока транскрипции или ошибки.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateConnecting || s.state == StateRecording {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	pumpCtx, cancel := context.WithCancel(ctx)
	res := &resources{cancel: cancel}
	s.res = res
	s.state = StateConnecting
	s.transcript = ""
	s.lastErr = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onChange(snap)

	audio, err := s.capture.Open(ctx)
	if err != nil {
		s.dispatch(res, Event{Kind: EventError, Err: err})
		return apperrors.ErrVoiceSessionFailed(err)
	}
	if !s.attach(res, func() { res.audio = audio }) {
		audio.Stop()
		return s.abortError()
	}

	stream, err := s.transcriber.Connect(ctx)
	if err != nil {
		s.dispatch(res, Event{Kind: EventError, Err: err})
		return apperrors.ErrVoiceSessionFailed(err)
	}
	if !s.attach(res, func() { res.stream = stream }) {
		_ = stream.Close()
		return s.abortError()
	}

	s.dispatch(res, Event{Kind: EventOpened})
	go s.pumpAudio(pumpCtx, res, audio, stream)
	go s.pumpTranscript(pumpCtx, res, stream)
	return nil
}

// attach сохраняет ресурс, если попытка еще активна
func (s *Session) attach(res *resources, set func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res != res {
		return false
	}
	set()
	return true
}

func (s *Session) abortError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.lastErr != nil {
		return apperrors.ErrVoiceSessionFailed(s.lastErr)
	}
	return apperrors.ErrVoiceSessionFailed(errStreamClosed)
}

// Handle применяет событие к текущей попытке записи
func (s *Session) Handle(ev Event) {
	s.mu.Lock()
	res := s.res
	s.mu.Unlock()
	s.dispatch(res, ev)
}

func (s *Session) dispatch(res *resources, ev Event) {
	s.mu.Lock()
	if s.res != res {
		s.mu.Unlock()
		return
	}
	active := s.state == StateConnecting || s.state == StateRecording

	switch ev.Kind {
	case EventOpened:
		if s.state != StateConnecting {
			s.mu.Unlock()
			return
		}
		s.state = StateRecording
	case EventFragment:
		if s.state != StateRecording || ev.Text == "" {
			s.mu.Unlock()
			return
		}
		// interim и final фрагменты добавляются одинаково
		if s.transcript != "" {
			s.transcript += " "
		}
		s.transcript += ev.Text
	case EventError:
		if !active {
			s.mu.Unlock()
			return
		}
		s.teardownLocked()
		s.state = StateError
		s.lastErr = ev.Err
		if s.lastErr == nil {
			s.lastErr = errors.New("scribe: transcription failed")
		}
	case EventClosed:
		if !active {
			s.mu.Unlock()
			return
		}
		wasRecording := s.state == StateRecording
		s.teardownLocked()
		if wasRecording {
			s.state = StateStopped
		} else {
			s.state = StateError
			s.lastErr = errStreamClosed
		}
	default:
		s.mu.Unlock()
		return
	}

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onChange(snap)
}

// teardownLocked освобождает микрофон и поток до смены состояния
func (s *Session) teardownLocked() {
	if s.res != nil {
		s.res.release()
		s.res = nil
	}
}

// Stop: Recording -> Stopped, текст сохраняется для редактирования
func (s *Session) Stop() error {
	return s.transition(func() error {
		if s.state != StateRecording {
			return ErrInvalidTransition
		}
		s.teardownLocked()
		s.state = StateStopped
		return nil
	})
}

// Edit заменяет текст в Stopped
func (s *Session) Edit(text string) error {
	return s.transition(func() error {
		if s.state != StateStopped {
			return ErrInvalidTransition
		}
		s.transcript = text
		return nil
	})
}

// Discard: Stopped -> Idle
func (s *Session) Discard() error {
	return s.transition(func() error {
		if s.state != StateStopped {
			return ErrInvalidTransition
		}
		s.state = StateIdle
		s.transcript = ""
		s.lastErr = nil
		return nil
	})
}

// Retry: Error -> Idle
func (s *Session) Retry() error {
	return s.transition(func() error {
		if s.state != StateError {
			return ErrInvalidTransition
		}
		s.state = StateIdle
		s.transcript = ""
		s.lastErr = nil
		return nil
	})
}

// Finish: Stopped -> Idle, возвращает текст для создания сна
func (s *Session) Finish() (string, error) {
	var text string
	err := s.transition(func() error {
		if s.state != StateStopped {
			return ErrInvalidTransition
		}
		text = strings.TrimSpace(s.transcript)
		if text == "" {
			return ErrEmptyTranscript
		}
		s.state = StateIdle
		s.transcript = ""
		return nil
	})
	return text, err
}

// Close - освобождение ресурсов из любого состояния; повторный вызов безопасен
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.teardownLocked()
	if s.state == StateConnecting || s.state == StateRecording {
		s.state = StateIdle
	}
}

func (s *Session) transition(fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onChange(snap)
	return nil
}

func (s *Session) pumpAudio(ctx context.Context, res *resources, audio AudioStream, stream oracle.LiveStream) {
	frames := audio.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := stream.SendAudio(frame); err != nil {
				if ctx.Err() == nil {
					s.dispatch(res, Event{Kind: EventError, Err: err})
				}
				return
			}
		}
	}
}

func (s *Session) pumpTranscript(ctx context.Context, res *resources, stream oracle.LiveStream) {
	for {
		frag, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				s.dispatch(res, Event{Kind: EventClosed})
			} else {
				s.dispatch(res, Event{Kind: EventError, Err: err})
			}
			return
		}
		s.dispatch(res, Event{Kind: EventFragment, Text: frag.Text, Final: frag.Final})
	}
}
