package scribe

import (
	"context"

	"dreamweaver_backend/internal/oracle"
)

// AudioStream - открытый микрофон. Frames закрывается после Stop.
type AudioStream interface {
	Frames() <-chan []byte
	Stop()
}

// AudioCapture запрашивает доступ к микрофону
type AudioCapture interface {
	Open(ctx context.Context) (AudioStream, error)
}

// Transcriber открывает поток транскрипции
type Transcriber interface {
	Connect(ctx context.Context) (oracle.LiveStream, error)
}

// Persona - инструкция модели-писца
const Persona = "You are a dream scribe. Your role is to listen patiently as the user recounts their dream. " +
	"Do not interrupt or ask questions. Your primary goal is to make the user feel comfortable sharing their dream " +
	"while you transcribe it."

// LiveTranscriber - Transcriber поверх oracle.LiveClient
type LiveTranscriber struct {
	Client oracle.LiveClient
	Model  string
}

func (t LiveTranscriber) Connect(ctx context.Context) (oracle.LiveStream, error) {
	return t.Client.ConnectLive(ctx, &oracle.LiveRequest{Model: t.Model, SystemInstruction: Persona})
}
