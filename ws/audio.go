package ws

import (
	"context"
	"sync"

	"dreamweaver_backend/internal/scribe"
)

// frameBuffer - сколько PCM-кадров ждут отправки в транскрипцию
const frameBuffer = 64

// socketCapture - микрофон браузера: кадры приходят бинарными сообщениями сокета
type socketCapture struct {
	mu      sync.Mutex
	current *socketAudio
	denied  bool
}

func newSocketCapture() *socketCapture {
	return &socketCapture{}
}

// Open начинает новую запись; предыдущая закрывается
func (c *socketCapture) Open(ctx context.Context) (scribe.AudioStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.denied {
		c.denied = false
		return nil, scribe.ErrPermissionDenied
	}
	if c.current != nil {
		c.current.Stop()
	}
	c.current = &socketAudio{frames: make(chan []byte, frameBuffer)}
	return c.current, nil
}

// deny - браузер отказал в доступе, следующий Open вернет ошибку
func (c *socketCapture) deny() {
	c.mu.Lock()
	c.denied = true
	c.mu.Unlock()
}

// allow снимает неиспользованный отказ
func (c *socketCapture) allow() {
	c.mu.Lock()
	c.denied = false
	c.mu.Unlock()
}

// push передает кадр текущей записи; без записи кадр отбрасывается
func (c *socketCapture) push(frame []byte) bool {
	c.mu.Lock()
	audio := c.current
	c.mu.Unlock()
	if audio == nil {
		return false
	}
	return audio.push(frame)
}

func (c *socketCapture) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Stop()
		c.current = nil
	}
}

type socketAudio struct {
	mu      sync.Mutex
	frames  chan []byte
	stopped bool
}

func (a *socketAudio) Frames() <-chan []byte { return a.frames }

func (a *socketAudio) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.stopped {
		a.stopped = true
		close(a.frames)
	}
}

func (a *socketAudio) push(frame []byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return false
	}
	select {
	case a.frames <- frame:
		return true
	default:
		// транскрипция не успевает, кадр теряется
		return false
	}
}
