package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  round  ", Value: "  hr_round  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "round" || fields[0].String != "hr_round" {
		t.Fatalf("unexpected field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	enriched := WithFields(zap.New(core), zap.String("foo", "bar"))
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if got := entries[0].ContextMap()["foo"]; got != "bar" {
		t.Fatalf("expected field to be bar, got %q", got)
	}

	if fallback := WithFields(nil, zap.String("baz", "qux")); fallback == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
}

func TestWithAIFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithAIFields(zap.New(core), "gemini", "model-x").Info("test log")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider field to be gemini, got %q", ctx[FieldProvider])
	}
	if ctx[FieldModel] != "model-x" {
		t.Fatalf("expected model field to be model-x, got %q", ctx[FieldModel])
	}

	if empty := AIFields("", ""); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestSessionFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	zap.New(core).Info("transition", SessionFields("abc", "", 3)...)

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldInterviewID] != "abc" {
		t.Fatalf("unexpected interview id: %v", ctx[FieldInterviewID])
	}
	if _, ok := ctx[FieldRound]; ok {
		t.Fatalf("empty round must be omitted")
	}
	if ctx[FieldQuestionIdx] != int64(3) {
		t.Fatalf("unexpected question idx: %#v", ctx[FieldQuestionIdx])
	}
}
