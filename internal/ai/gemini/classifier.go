package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/evalia/internal/ai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Classifier predicts the job domain of a description. When the primary model
// fails the fallback model is asked once.
type Classifier struct {
	primary  contentGenerator
	fallback contentGenerator
	logger   *zap.Logger
}

func NewClassifier(primary, fallback contentGenerator, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{primary: primary, fallback: fallback, logger: logger}
}

// FallbackModel names the model asked after a primary failure, empty when
// there is none.
func (c *Classifier) FallbackModel() string {
	if c.fallback == nil {
		return ""
	}
	return c.fallback.Model()
}

func (c *Classifier) Classify(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", errors.New("job description must not be empty")
	}
	if c.primary == nil {
		return "", errors.New("classifier has no generator")
	}

	system := renderPrompt(classifyPrompt, nil)

	raw, err := c.primary.GenerateContent(ctx, system, description)
	if err != nil && c.fallback != nil {
		c.logger.Warn("primary model failed, trying fallback",
			zap.String("primary_model", c.primary.Model()),
			zap.String("fallback_model", c.fallback.Model()),
			zap.Error(err),
		)
		raw, err = c.fallback.GenerateContent(ctx, system, description)
	}
	if err != nil {
		return "", fmt.Errorf("classify job description: %w", err)
	}

	label := normalizeLabel(raw)
	c.logger.Debug("classifier output", zap.String("raw", raw), zap.String("label", label))

	if label == "" || strings.EqualFold(label, ai.UnknownDomain) {
		return "", ai.ErrUnknownDomain
	}

	return label, nil
}
