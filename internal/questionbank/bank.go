// Package questionbank serves interview questions from a YAML file so an
// interview can run without a language model.
package questionbank

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spigell/evalia/internal/domain"
)

//go:embed default.yaml
var defaultBank []byte

// Set lists the questions of both rounds.
type Set struct {
	HR        []string `yaml:"hr"`
	Technical []string `yaml:"technical"`
}

func (s Set) round(round domain.RoundType) []string {
	if round == domain.RoundTechnical {
		return s.Technical
	}
	return s.HR
}

// Bank maps job domains to question sets. Default answers every domain the
// bank does not list, and fills the round a domain leaves empty.
type Bank struct {
	Default Set            `yaml:"default"`
	Domains map[string]Set `yaml:"domains"`
}

// Load reads a bank from path. An empty path loads the built-in bank.
func Load(path string) (*Bank, error) {
	data := defaultBank
	if path = strings.TrimSpace(path); path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read question bank: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes and checks a YAML bank.
func Parse(data []byte) (*Bank, error) {
	var bank Bank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if len(bank.Default.HR) == 0 || len(bank.Default.Technical) == 0 {
		return nil, errors.New("question bank needs default hr and technical questions")
	}
	return &bank, nil
}

// Questions returns the questions for jobDomain, matched case-insensitively.
func (b *Bank) Questions(jobDomain string, round domain.RoundType) []string {
	jobDomain = strings.TrimSpace(jobDomain)
	for name, set := range b.Domains {
		if !strings.EqualFold(strings.TrimSpace(name), jobDomain) {
			continue
		}
		if questions := set.round(round); len(questions) > 0 {
			return questions
		}
		break
	}
	return b.Default.round(round)
}

// Generator adapts a Bank to one interview round.
type Generator struct {
	bank  *Bank
	round domain.RoundType
	count int
}

func NewGenerator(bank *Bank, round domain.RoundType, count int) (*Generator, error) {
	if bank == nil {
		return nil, errors.New("question bank is required")
	}
	if !round.Valid() {
		return nil, fmt.Errorf("unknown round %q", round)
	}
	return &Generator{bank: bank, round: round, count: count}, nil
}

func (g *Generator) Round() domain.RoundType { return g.round }

func (g *Generator) Generate(ctx context.Context, jobDomain string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	questions := g.bank.Questions(jobDomain, g.round)
	if g.count > 0 && len(questions) > g.count {
		questions = questions[:g.count]
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no %s questions for %q", g.round, jobDomain)
	}
	return append([]string(nil), questions...), nil
}
