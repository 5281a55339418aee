package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/evalia/internal/utils"
)

const (
	defaultModel        = "gemini-2.5-flash"
	defaultMaxLogLength = 200
	jsonMIMEType        = "application/json"
	baseRetryDelay      = time.Second
	maxRetryDelay       = 30 * time.Second
)

// sleep is swapped in tests.
var sleep = time.Sleep

var retryAfterRe = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*(ms|s|sec|secs|seconds?)?`)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// GeneratorConfig tunes a Generator.
type GeneratorConfig struct {
	Model        string
	MaxRetries   int
	MaxLogLength int
	// Temperature is applied when positive.
	Temperature float64
}

// Generator wraps the Google GenAI chat API with retries on temporary failures.
type Generator struct {
	chats       chatCreator
	model       string
	maxRetries  int
	maxLogLen   int
	temperature *float32
	// jsonOutput asks the model for an application/json response.
	jsonOutput bool
	logger     *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, cfg GeneratorConfig, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(genaiChats{chats: client.Chats}, cfg, logger), nil
}

func newGenerator(chats chatCreator, cfg GeneratorConfig, logger *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Generator{
		chats:      chats,
		model:      model,
		maxRetries: retries,
		maxLogLen:  maxLogLen,
		logger:     logger,
	}

	if cfg.Temperature > 0 {
		t := float32(cfg.Temperature)
		g.temperature = &t
	}

	return g
}

// WithModel returns a copy of the generator bound to another model. The
// underlying client is shared.
func (g *Generator) WithModel(model string) *Generator {
	clone := *g
	if model = strings.TrimSpace(model); model != "" {
		clone.model = model
	}
	clone.logger = g.logger.With(zap.String("model", clone.model))
	return &clone
}

// WithTemperature returns a copy of the generator using the given sampling temperature.
func (g *Generator) WithTemperature(t float32) *Generator {
	clone := *g
	clone.temperature = &t
	return &clone
}

// WithJSONResponse returns a copy of the generator that requests JSON output.
func (g *Generator) WithJSONResponse() *Generator {
	clone := *g
	clone.jsonOutput = true
	return &clone
}

// Model returns the model name used for requests.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// GenerateContent sends a single message under the provided system instruction
// and returns the textual response.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}
	return g.send(ctx, system, nil, genai.Part{Text: message})
}

// GenerateFromParts sends arbitrary parts (for example inline audio) in one message.
func (g *Generator) GenerateFromParts(ctx context.Context, system string, parts ...genai.Part) (string, error) {
	if len(parts) == 0 {
		return "", errors.New("message parts must not be empty")
	}
	return g.send(ctx, system, nil, parts...)
}

// Converse continues a conversation described by history with a new user message.
func (g *Generator) Converse(ctx context.Context, system string, history []*genai.Content, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}
	return g.send(ctx, system, history, genai.Part{Text: message})
}

func (g *Generator) send(ctx context.Context, system string, history []*genai.Content, parts ...genai.Part) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	config := &genai.GenerateContentConfig{Temperature: g.temperature}
	if g.jsonOutput {
		config.ResponseMIMEType = jsonMIMEType
	}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	g.logger.Debug("gemini request",
		zap.String("model", g.model),
		zap.Int("history", len(history)),
		zap.String("request_preview", utils.TruncateForLog(previewParts(parts), g.maxLogLen)),
	)

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		chat, err := g.chats.Create(ctx, g.model, config, history)
		if err != nil {
			return "", fmt.Errorf("create chat: %w", err)
		}

		resp, err := chat.SendMessage(ctx, parts...)
		if err == nil {
			text, err := responseText(resp)
			if err != nil {
				return "", err
			}
			g.logger.Debug("gemini response",
				zap.String("model", g.model),
				zap.Int("response_length", utf8.RuneCountInString(text)),
				zap.String("response_preview", utils.TruncateForLog(text, g.maxLogLen)),
			)
			return text, nil
		}

		lastErr = err
		delay, retryable := retryDelay(err, attempt)
		if !retryable || attempt == g.maxRetries {
			break
		}

		g.logger.Warn("temporary gemini failure, retrying",
			zap.String("model", g.model),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		sleep(delay)
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("generate content: %w", lastErr)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// retryDelay decides whether err is temporary and how long to wait before the next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	code, message, ok := apiErrorDetails(err)
	if !ok {
		return 0, false
	}

	switch {
	case code == http.StatusTooManyRequests:
		if d, found := parseRetryAfter(message); found {
			if d > maxRetryDelay {
				return 0, false
			}
			return d, true
		}
		return backoff(attempt), true
	case code >= http.StatusInternalServerError:
		return backoff(attempt), true
	default:
		return 0, false
	}
}

func apiErrorDetails(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}

func parseRetryAfter(message string) (time.Duration, bool) {
	match := retryAfterRe.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	if strings.EqualFold(match[2], "ms") {
		return time.Duration(value * float64(time.Millisecond)), true
	}
	return time.Duration(value * float64(time.Second)), true
}

func backoff(attempt int) time.Duration {
	d := baseRetryDelay << (attempt - 1)
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func previewParts(parts []genai.Part) string {
	var builder strings.Builder
	for _, part := range parts {
		if part.Text != "" {
			builder.WriteString(part.Text)
			continue
		}
		if part.InlineData != nil {
			fmt.Fprintf(&builder, "[%s %d bytes]", part.InlineData.MIMEType, len(part.InlineData.Data))
		}
	}
	return builder.String()
}
