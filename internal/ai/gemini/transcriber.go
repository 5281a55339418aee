package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/evalia/internal/ai"
	"github.com/spigell/evalia/internal/domain"
)

const (
	defaultAudioMIMEType = "audio/wav"
	noSpeechMarker       = "NO_SPEECH"
)

type partsGenerator interface {
	GenerateFromParts(ctx context.Context, system string, parts ...genai.Part) (string, error)
}

// Transcriber sends recorded answers inline to the model for speech-to-text.
type Transcriber struct {
	generator partsGenerator
	logger    *zap.Logger
}

func NewTranscriber(generator partsGenerator, logger *zap.Logger) *Transcriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcriber{generator: generator, logger: logger}
}

func (t *Transcriber) Transcribe(ctx context.Context, artifact *domain.Artifact) (string, error) {
	if artifact.Empty() {
		return "", errors.New("audio artifact is empty")
	}

	mime := strings.TrimSpace(artifact.MIMEType)
	if mime == "" {
		mime = defaultAudioMIMEType
	}

	raw, err := t.generator.GenerateFromParts(ctx, renderPrompt(transcribePrompt, nil),
		genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: artifact.Data}},
		genai.Part{Text: "Transcribe this interview answer."},
	)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", artifact.ID(), err)
	}

	text := strings.TrimSpace(raw)
	if text == "" || strings.EqualFold(text, noSpeechMarker) {
		return "", ai.ErrEmptyTranscript
	}

	t.logger.Debug("answer transcribed",
		zap.String("artifact", artifact.ID()),
		zap.Int("bytes", len(artifact.Data)),
		zap.Int("chars", len(text)),
	)

	return text, nil
}
