package questionbank

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spigell/evalia/internal/domain"
)

func TestDefaultBank(t *testing.T) {
	t.Parallel()

	bank, err := Load("")
	if err != nil {
		t.Fatalf("load default bank: %v", err)
	}

	gen, err := NewGenerator(bank, domain.RoundTechnical, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	questions, err := gen.Generate(context.Background(), "backend developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(questions) != 3 || questions[0] != "How would you design a rate limiter for a public HTTP API?" {
		t.Fatalf("unexpected questions: %#v", questions)
	}

	// Backend Developer has no HR set; the default one is used.
	hr, _ := NewGenerator(bank, domain.RoundHR, 0)
	questions, err = hr.Generate(context.Background(), "Backend Developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(questions) != len(bank.Default.HR) {
		t.Fatalf("expected default hr questions, got %#v", questions)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bank.yaml")
	content := `
default:
  hr: ["Why this role?"]
  technical: ["What is a closure?"]
domains:
  Go Developer:
    technical: ["What does the race detector find?"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	bank, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := bank.Questions("Go Developer", domain.RoundTechnical); len(got) != 1 || got[0] != "What does the race detector find?" {
		t.Fatalf("unexpected domain questions: %#v", got)
	}
	if got := bank.Questions("Painter", domain.RoundTechnical); got[0] != "What is a closure?" {
		t.Fatalf("unexpected fallback questions: %#v", got)
	}
}

func TestParseRejectsIncompleteBank(t *testing.T) {
	t.Parallel()

	for _, content := range []string{
		"default:\n  hr: [a]\n",
		"domains: {}\n",
		"default: [",
	} {
		if _, err := Parse([]byte(content)); err == nil {
			t.Fatalf("expected error for %q", content)
		}
	}
}

func TestGeneratorReturnsCopy(t *testing.T) {
	t.Parallel()

	bank := &Bank{Default: Set{HR: []string{"a", "b"}, Technical: []string{"c"}}}
	gen, _ := NewGenerator(bank, domain.RoundHR, 0)

	questions, _ := gen.Generate(context.Background(), "anything")
	questions[0] = "changed"

	if bank.Default.HR[0] != "a" {
		t.Fatal("generator must not expose the bank slice")
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewGenerator(nil, domain.RoundHR, 1); err == nil {
		t.Fatal("expected error for nil bank")
	}
	if _, err := NewGenerator(&Bank{}, domain.RoundType("final"), 1); err == nil {
		t.Fatal("expected error for unknown round")
	}
}
