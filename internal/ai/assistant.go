package ai

import (
	"context"
	"errors"

	"github.com/spigell/evalia/internal/domain"
)

var (
	// ErrUnknownDomain is returned when no job domain could be identified.
	ErrUnknownDomain = errors.New("job domain is unknown")
	// ErrEmptyTranscript is returned when the audio contained no recognisable speech.
	ErrEmptyTranscript = errors.New("transcription is empty")
)

// UnknownDomain is the label a classifier produces when it cannot decide.
const UnknownDomain = "Unknown"

// Classifier maps a free-text job description to a short domain label.
type Classifier interface {
	Classify(ctx context.Context, description string) (string, error)
}

// QuestionGenerator produces the ordered questions of one round for a domain.
type QuestionGenerator interface {
	Round() domain.RoundType
	Generate(ctx context.Context, jobDomain string) ([]string, error)
}

// Evaluator scores one answer. jobDomain is empty for the HR round.
type Evaluator interface {
	Round() domain.RoundType
	Evaluate(ctx context.Context, question, answer, jobDomain string) (*domain.Evaluation, error)
}

// Transcriber converts a recorded answer to text.
type Transcriber interface {
	Transcribe(ctx context.Context, artifact *domain.Artifact) (string, error)
}

// Assistant answers follow-up questions about a finished interview.
type Assistant interface {
	Reply(ctx context.Context, results *domain.Results, history []domain.ChatTurn, message string) (string, error)
}
