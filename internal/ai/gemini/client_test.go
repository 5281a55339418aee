package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model   string
	config  *genai.GenerateContentConfig
	history []*genai.Content
	chat    *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	parts    []genai.Part
}

func (f *fakeChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts = append(f.parts, parts...)
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) enqueueText(model, text string) {
	f.enqueue(model, textResponse(text), nil)
}

func (f *fakeChatCreator) Create(_ context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, history: history, chat: chat})
	return chat, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	original := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = original })
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	noSleep(t)

	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	chats.enqueueText("gemini-pro", "retry ok")

	g := newGenerator(chats, GeneratorConfig{Model: "gemini-pro", MaxRetries: 2}, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}

	for _, call := range chats.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if len(call.chat.parts) != 1 || call.chat.parts[0].Text != "message" {
			t.Fatalf("unexpected chat message: %+v", call.chat.parts)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noSleep(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", nil, tempErr)

	g := newGenerator(chats, GeneratorConfig{Model: "gemini-pro", MaxRetries: 2}, zap.NewNop())

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected wrapped api error, got %v", err)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	g := newGenerator(chats, GeneratorConfig{Model: "gemini-pro", MaxRetries: 3}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := newGenerator(chats, GeneratorConfig{Model: "gemini-pro", MaxRetries: 3}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "", "msg"); err == nil {
		t.Fatal("expected error")
	}
	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
	if chats.calls[0].config.SystemInstruction != nil {
		t.Fatalf("expected no system instruction for empty system prompt")
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", &genai.GenerateContentResponse{}, nil)

	g := newGenerator(chats, GeneratorConfig{Model: "gemini-pro"}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeneratorConversePassesHistory(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueueText("gemini-pro", "answer")

	g := newGenerator(chats, GeneratorConfig{Model: "gemini-pro", Temperature: 0.3}, zap.NewNop())
	history := []*genai.Content{{Role: roleUser, Parts: []*genai.Part{{Text: "hi"}}}}

	if _, err := g.Converse(context.Background(), "sys", history, "next"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := chats.calls[0]
	if len(call.history) != 1 {
		t.Fatalf("expected history to be forwarded, got %d entries", len(call.history))
	}
	if call.config.Temperature == nil || *call.config.Temperature != float32(0.3) {
		t.Fatalf("expected temperature to be set")
	}
}

func TestGeneratorWithModelSharesClient(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueueText("fallback", "ok")

	g := newGenerator(chats, GeneratorConfig{Model: "primary"}, zap.NewNop())
	fallback := g.WithModel("fallback")

	if fallback.Model() != "fallback" || g.Model() != "primary" {
		t.Fatalf("unexpected models: %q %q", g.Model(), fallback.Model())
	}
	if _, err := fallback.GenerateContent(context.Background(), "", "msg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGeneratorWithJSONResponseSetsMIMEType(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueueText("gemini-pro", `{"score": 5, "feedback": "ok"}`)
	chats.enqueueText("gemini-pro", "plain")

	g := newGenerator(chats, GeneratorConfig{Model: "gemini-pro"}, zap.NewNop())

	if _, err := g.WithJSONResponse().GenerateContent(context.Background(), "sys", "msg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := chats.calls[0].config.ResponseMIMEType; got != "application/json" {
		t.Fatalf("expected json response type, got %q", got)
	}
	if got := chats.calls[1].config.ResponseMIMEType; got != "" {
		t.Fatalf("original generator must keep text responses, got %q", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    time.Duration
		found   bool
	}{
		{message: "retry after 60 seconds", want: time.Minute, found: true},
		{message: "Please retry in 2.5s.", want: 2500 * time.Millisecond, found: true},
		{message: "retry in 300ms", want: 300 * time.Millisecond, found: true},
		{message: "quota exhausted", found: false},
	}

	for _, tt := range tests {
		got, found := parseRetryAfter(tt.message)
		if found != tt.found || got != tt.want {
			t.Fatalf("parseRetryAfter(%q) = %v, %v; want %v, %v", tt.message, got, found, tt.want, tt.found)
		}
	}
}
