package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/evalia/internal/domain"
)

// Content roles of the Gemini API.
const (
	roleUser  = "user"
	roleModel = "model"
)

type conversationGenerator interface {
	Converse(ctx context.Context, system string, history []*genai.Content, message string) (string, error)
}

// Assistant is the follow-up chat grounded on the interview results.
type Assistant struct {
	generator conversationGenerator
	logger    *zap.Logger
}

func NewAssistant(generator conversationGenerator, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{generator: generator, logger: logger}
}

func (a *Assistant) Reply(ctx context.Context, results *domain.Results, history []domain.ChatTurn, message string) (string, error) {
	if results == nil {
		results = domain.NewResults()
	}

	resultsJSON, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal interview results: %w", err)
	}

	system := renderPrompt(assistantPrompt, map[string]string{
		"DOMAIN":       results.Domain,
		"RESULTS_JSON": string(resultsJSON),
	})

	reply, err := a.generator.Converse(ctx, system, toContents(history), message)
	if err != nil {
		return "", fmt.Errorf("assistant reply: %w", err)
	}

	a.logger.Debug("assistant replied", zap.Int("history", len(history)))

	return reply, nil
}

func toContents(history []domain.ChatTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := roleUser
		if turn.Role == domain.ChatRoleAssistant {
			role = roleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}
	return contents
}
