package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/evalia/internal/domain"
)

// Evaluator scores answers of one round.
type Evaluator struct {
	generator contentGenerator
	round     domain.RoundType
	logger    *zap.Logger
}

func NewEvaluator(generator contentGenerator, round domain.RoundType, logger *zap.Logger) (*Evaluator, error) {
	if !round.Valid() {
		return nil, fmt.Errorf("unknown round %q", round)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		generator: generator,
		round:     round,
		logger:    logger.With(zap.String("round", string(round))),
	}, nil
}

func (e *Evaluator) Round() domain.RoundType { return e.round }

func (e *Evaluator) Evaluate(ctx context.Context, question, answer, jobDomain string) (*domain.Evaluation, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return nil, fmt.Errorf("question and answer are required")
	}

	var (
		system  string
		message strings.Builder
	)

	switch e.round {
	case domain.RoundTechnical:
		system = renderPrompt(techEvaluationPrompt, map[string]string{"DOMAIN": jobDomain})
		fmt.Fprintf(&message, "Domain: %s\n", jobDomain)
	default:
		system = renderPrompt(hrEvaluationPrompt, nil)
	}

	fmt.Fprintf(&message, "Question: %s\nAnswer: %s", question, answer)

	raw, err := e.generator.GenerateContent(ctx, system, message.String())
	if err != nil {
		return nil, fmt.Errorf("evaluate %s answer: %w", e.round, err)
	}

	eval, err := parseEvaluation(raw)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s answer: %w", e.round, err)
	}

	e.logger.Debug("answer evaluated", zap.Float64("score", eval.Score))

	return eval, nil
}
