package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"
)

const (
	imageMIMEType = "image/jpeg"
	// audioMIMEType - 16 кГц mono PCM16
	audioMIMEType = "audio/pcm;rate=16000"
)

// GeminiClient - адаптер google.golang.org/genai
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (g *GeminiClient) GenerateText(ctx context.Context, req *TextRequest) (*TextResponse, error) {
	contents := make([]*genai.Content, 0, len(req.Contents))
	for _, m := range req.Contents {
		contents = append(contents, &genai.Content{
			Role:  m.Role,
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenaiSchema(req.Schema)
	}
	if req.WebSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return &TextResponse{Text: text, Sources: groundingSources(resp)}, nil
}

func (g *GeminiClient) GenerateImage(ctx context.Context, req *ImageRequest) ([]byte, error) {
	resp, err := g.client.Models.GenerateImages(ctx, req.Model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: imageMIMEType,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

func (g *GeminiClient) ConnectLive(ctx context.Context, req *LiveRequest) (LiveStream, error) {
	cfg := &genai.LiveConnectConfig{
		ResponseModalities:      []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}

	session, err := g.client.Live.Connect(ctx, req.Model, cfg)
	if err != nil {
		return nil, err
	}
	return &geminiLiveStream{session: session}, nil
}

type geminiLiveStream struct {
	session *genai.Session
}

func (s *geminiLiveStream) SendAudio(pcm []byte) error {
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: audioMIMEType},
	})
}

// Recv пропускает сообщения без транскрипции (аудио ответы модели)
func (s *geminiLiveStream) Recv() (Fragment, error) {
	for {
		msg, err := s.session.Receive()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return Fragment{}, io.EOF
			}
			return Fragment{}, err
		}
		if msg.ServerContent == nil || msg.ServerContent.InputTranscription == nil {
			continue
		}
		if text := msg.ServerContent.InputTranscription.Text; text != "" {
			return Fragment{Text: text, Final: msg.ServerContent.TurnComplete}, nil
		}
	}
}

func (s *geminiLiveStream) Close() error {
	return s.session.Close()
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(s.Type),
		Description: s.Description,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func groundingSources(resp *genai.GenerateContentResponse) []Source {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var sources []Source
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		sources = append(sources, Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return sources
}
