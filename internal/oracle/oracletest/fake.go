// Package oracletest - подставные реализации oracle для тестов
package oracletest

import (
	"context"
	"errors"
	"io"
	"sync"

	"dreamweaver_backend/internal/oracle"
)

var ErrScripted = errors.New("oracletest: scripted failure")

// Client записывает запросы и отвечает по функциям-сценариям
type Client struct {
	mu            sync.Mutex
	TextRequests  []*oracle.TextRequest
	ImageRequests []*oracle.ImageRequest

	TextFunc  func(req *oracle.TextRequest) (*oracle.TextResponse, error)
	ImageFunc func(req *oracle.ImageRequest) ([]byte, error)
}

// ReplyText - клиент, всегда отвечающий text
func ReplyText(text string) *Client {
	return &Client{TextFunc: func(*oracle.TextRequest) (*oracle.TextResponse, error) {
		return &oracle.TextResponse{Text: text}, nil
	}}
}

// Failing - клиент, на все отвечающий ошибкой
func Failing() *Client {
	return &Client{
		TextFunc:  func(*oracle.TextRequest) (*oracle.TextResponse, error) { return nil, ErrScripted },
		ImageFunc: func(*oracle.ImageRequest) ([]byte, error) { return nil, ErrScripted },
	}
}

func (c *Client) GenerateText(ctx context.Context, req *oracle.TextRequest) (*oracle.TextResponse, error) {
	c.mu.Lock()
	c.TextRequests = append(c.TextRequests, req)
	fn := c.TextFunc
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, oracle.ErrEmptyResponse
	}
	return fn(req)
}

func (c *Client) GenerateImage(ctx context.Context, req *oracle.ImageRequest) ([]byte, error) {
	c.mu.Lock()
	c.ImageRequests = append(c.ImageRequests, req)
	fn := c.ImageFunc
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, oracle.ErrEmptyResponse
	}
	return fn(req)
}

// LastText - последний текстовый запрос
func (c *Client) LastText() *oracle.TextRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.TextRequests) == 0 {
		return nil
	}
	return c.TextRequests[len(c.TextRequests)-1]
}

// TextCalls - число текстовых запросов
func (c *Client) TextCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.TextRequests)
}

// Stream - поток транскрипции, управляемый тестом через Push/Fail/End
type Stream struct {
	mu         sync.Mutex
	Sent       [][]byte
	closeCalls int
	closed     chan struct{}
	closeOnce  sync.Once
	fragments  chan oracle.Fragment
	failures   chan error
	SendErr    error
}

func NewStream() *Stream {
	return &Stream{
		closed:    make(chan struct{}),
		fragments: make(chan oracle.Fragment, 16),
		failures:  make(chan error, 1),
	}
}

func (s *Stream) SendAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		return s.SendErr
	}
	s.Sent = append(s.Sent, append([]byte(nil), pcm...))
	return nil
}

func (s *Stream) Recv() (oracle.Fragment, error) {
	select {
	case f := <-s.fragments:
		return f, nil
	case err := <-s.failures:
		return oracle.Fragment{}, err
	case <-s.closed:
		return oracle.Fragment{}, io.ErrClosedPipe
	}
}

func (s *Stream) Close() error {
	s.mu.Lock()
	s.closeCalls++
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// Push отдает фрагмент транскрипции
func (s *Stream) Push(text string, final bool) {
	s.fragments <- oracle.Fragment{Text: text, Final: final}
}

// Fail обрывает поток ошибкой
func (s *Stream) Fail(err error) {
	s.failures <- err
}

// End - штатное закрытие со стороны сервера
func (s *Stream) End() {
	s.failures <- io.EOF
}

func (s *Stream) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func (s *Stream) SentFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sent)
}
