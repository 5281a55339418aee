package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/evalia/internal/domain"
)

const defaultQuestionCount = 5

// QuestionGenerator asks the model for the questions of one round.
type QuestionGenerator struct {
	generator contentGenerator
	round     domain.RoundType
	count     int
	logger    *zap.Logger
}

func NewQuestionGenerator(generator contentGenerator, round domain.RoundType, count int, logger *zap.Logger) (*QuestionGenerator, error) {
	if !round.Valid() {
		return nil, fmt.Errorf("unknown round %q", round)
	}
	if count <= 0 {
		count = defaultQuestionCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QuestionGenerator{
		generator: generator,
		round:     round,
		count:     count,
		logger:    logger.With(zap.String("round", string(round))),
	}, nil
}

func (q *QuestionGenerator) Round() domain.RoundType { return q.round }

func (q *QuestionGenerator) Generate(ctx context.Context, jobDomain string) ([]string, error) {
	jobDomain = strings.TrimSpace(jobDomain)
	if jobDomain == "" {
		return nil, fmt.Errorf("job domain is required")
	}

	template := hrQuestionsPrompt
	if q.round == domain.RoundTechnical {
		template = techQuestionsPrompt
	}

	system := renderPrompt(template, map[string]string{
		"DOMAIN": jobDomain,
		"COUNT":  itoa(q.count),
	})

	raw, err := q.generator.GenerateContent(ctx, system, "Job domain: "+jobDomain)
	if err != nil {
		return nil, fmt.Errorf("generate %s questions: %w", q.round, err)
	}

	questions, err := parseQuestions(raw, q.count)
	if err != nil {
		return nil, fmt.Errorf("generate %s questions: %w", q.round, err)
	}

	q.logger.Info("questions generated",
		zap.String("domain", jobDomain),
		zap.Int("count", len(questions)),
	)

	return questions, nil
}
