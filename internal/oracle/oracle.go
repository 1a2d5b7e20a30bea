// Package oracle - граница с внешними AI моделями (Gemini).
// Остальной код зависит только от интерфейсов этого пакета.
package oracle

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse - модель ответила без текста или изображения
	ErrEmptyResponse = errors.New("oracle: empty response")
	// ErrNotConfigured - ключ API не задан
	ErrNotConfigured = errors.New("oracle: GEMINI_API_KEY is not configured")
)

// Роли сообщений в истории
const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Message struct {
	Role string
	Text string
}

// TextRequest - один вызов generateContent
type TextRequest struct {
	Operation         string // метка для метрик и логов
	Model             string
	SystemInstruction string
	Contents          []Message
	// Schema включает JSON режим ответа
	Schema *Schema
	// WebSearch включает grounding через поиск
	WebSearch bool
}

type Source struct {
	URI   string
	Title string
}

type TextResponse struct {
	Text    string
	Sources []Source
}

type ImageRequest struct {
	Operation   string
	Model       string
	Prompt      string
	AspectRatio string
}

// Client - запрос/ответ вызовы модели
type Client interface {
	GenerateText(ctx context.Context, req *TextRequest) (*TextResponse, error)
	// GenerateImage возвращает байты JPEG
	GenerateImage(ctx context.Context, req *ImageRequest) ([]byte, error)
}

// Fragment - кусок потоковой транскрипции
type Fragment struct {
	Text  string
	Final bool
}

// LiveStream - двунаправленный поток транскрипции.
// Recv возвращает io.EOF при штатном закрытии сервером.
type LiveStream interface {
	SendAudio(pcm []byte) error
	Recv() (Fragment, error)
	Close() error
}

type LiveRequest struct {
	Model             string
	SystemInstruction string
}

// LiveClient открывает потоковые сессии
type LiveClient interface {
	ConnectLive(ctx context.Context, req *LiveRequest) (LiveStream, error)
}

// UserText - сообщение пользователя одной строкой
func UserText(text string) []Message {
	return []Message{{Role: RoleUser, Text: text}}
}

// Disabled - клиент без ключа API: на все вызовы ErrNotConfigured
type Disabled struct{}

func (Disabled) GenerateText(ctx context.Context, req *TextRequest) (*TextResponse, error) {
	return nil, ErrNotConfigured
}

func (Disabled) GenerateImage(ctx context.Context, req *ImageRequest) ([]byte, error) {
	return nil, ErrNotConfigured
}

func (Disabled) ConnectLive(ctx context.Context, req *LiveRequest) (LiveStream, error) {
	return nil, ErrNotConfigured
}
