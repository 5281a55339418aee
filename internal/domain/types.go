// Package domain holds the data model shared by the interview orchestrator,
// its collaborators and the reporting surface.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoAudio reports a capture that produced no audio.
var ErrNoAudio = errors.New("no audio captured")

// RoundType identifies one of the two question/answer rounds.
type RoundType string

const (
	RoundHR        RoundType = "hr"
	RoundTechnical RoundType = "technical"
)

// Title returns the human readable name of the round.
func (r RoundType) Title() string {
	switch r {
	case RoundHR:
		return "HR"
	case RoundTechnical:
		return "Technical"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known rounds.
func (r RoundType) Valid() bool {
	return r == RoundHR || r == RoundTechnical
}

// Evaluation is the structured score/feedback record produced for one answer.
type Evaluation struct {
	Score           float64  `json:"score" mapstructure:"score"`
	Feedback        string   `json:"feedback" mapstructure:"feedback"`
	ImprovementTips []string `json:"improvement_tips,omitempty" mapstructure:"improvement_tips"`
	KnowledgeGaps   []string `json:"knowledge_gaps,omitempty" mapstructure:"knowledge_gaps"`
}

// Fraction returns the score as a 0..1 fraction for progress rendering.
func (e *Evaluation) Fraction() float64 {
	if e == nil {
		return 0
	}
	return ClampScore(e.Score) / 10
}

// ClampScore bounds a score to the 0..10 scale.
func ClampScore(score float64) float64 {
	switch {
	case score != score: // NaN
		return 0
	case score < 0:
		return 0
	case score > 10:
		return 10
	default:
		return score
	}
}

// AnswerRecord is a single question with its transcribed answer.
// Evaluation is nil only between transcription and a successful evaluation.
type AnswerRecord struct {
	Question   string      `json:"question"`
	Answer     string      `json:"answer"`
	Evaluation *Evaluation `json:"evaluation"`
}

// GetEvaluation returns the evaluation of the record, nil-safe.
func (a *AnswerRecord) GetEvaluation() *Evaluation {
	if a == nil {
		return nil
	}
	return a.Evaluation
}

// AverageScore is the mean clamped score of the evaluated records. Records
// without an evaluation are skipped; no evaluated record yields 0.
func AverageScore(records []*AnswerRecord) float64 {
	var sum float64
	n := 0
	for _, r := range records {
		if e := r.GetEvaluation(); e != nil {
			sum += ClampScore(e.Score)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Results is the aggregate of one interview. Its JSON form is the persisted
// results file consumed by the report command.
type Results struct {
	Domain        string          `json:"domain"`
	HRQuestions   []string        `json:"hr_questions"`
	TechQuestions []string        `json:"tech_questions"`
	HRResults     []*AnswerRecord `json:"hr_results"`
	TechResults   []*AnswerRecord `json:"tech_results"`
}

// NewResults returns an empty aggregate with non-nil sequences so the
// persisted file always carries arrays instead of nulls.
func NewResults() *Results {
	return &Results{
		HRQuestions:   []string{},
		TechQuestions: []string{},
		HRResults:     []*AnswerRecord{},
		TechResults:   []*AnswerRecord{},
	}
}

// OverallScore averages every evaluated answer of both rounds.
func (r *Results) OverallScore() float64 {
	all := make([]*AnswerRecord, 0, len(r.HRResults)+len(r.TechResults))
	all = append(all, r.HRResults...)
	return AverageScore(append(all, r.TechResults...))
}

// Questions returns the question list of the provided round.
func (r *Results) Questions(round RoundType) []string {
	switch round {
	case RoundHR:
		return r.HRQuestions
	case RoundTechnical:
		return r.TechQuestions
	default:
		return nil
	}
}

// Answers returns the answer records of the provided round.
func (r *Results) Answers(round RoundType) []*AnswerRecord {
	switch round {
	case RoundHR:
		return r.HRResults
	case RoundTechnical:
		return r.TechResults
	default:
		return nil
	}
}

// SetAnswers replaces the answer records of the provided round.
func (r *Results) SetAnswers(round RoundType, records []*AnswerRecord) error {
	switch round {
	case RoundHR:
		r.HRResults = records
	case RoundTechnical:
		r.TechResults = records
	default:
		return fmt.Errorf("unknown round %q", round)
	}
	return nil
}

// Artifact is a recorded answer. The orchestrator treats it as opaque apart
// from presence.
type Artifact struct {
	Round    RoundType
	Index    int
	MIMEType string
	Data     []byte
}

// ID returns the capture identifier in the "<round>_<index>" form.
func (a *Artifact) ID() string {
	if a == nil {
		return ""
	}
	return ArtifactID(a.Round, a.Index)
}

// Empty reports whether the artifact carries no audio.
func (a *Artifact) Empty() bool {
	return a == nil || len(a.Data) == 0
}

// ArtifactID formats the capture identifier for a round/question pair.
func ArtifactID(round RoundType, idx int) string {
	return fmt.Sprintf("%s_%d", strings.ToLower(round.Title()), idx)
}

// ChatRole is the author of a chat turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatTurn is one message of the follow-up conversation.
type ChatTurn struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}
