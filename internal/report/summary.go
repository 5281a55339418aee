// Package report aggregates interview results and renders them as text.
package report

import (
	"github.com/spigell/evalia/internal/domain"
)

// Highlight points at one answer of the interview.
type Highlight struct {
	Round    domain.RoundType
	Question string
	Score    float64
}

// RoundSummary aggregates the answers of one round.
type RoundSummary struct {
	Round     domain.RoundType
	Questions int
	Answered  int
	Evaluated int
	Average   float64
}

// Summary is the aggregate view of an interview.
type Summary struct {
	Domain  string
	Rounds  []RoundSummary
	Overall float64
	Best    *Highlight
	Weakest *Highlight
}

// Summarize computes round averages, the overall score and the strongest and
// weakest evaluated answers. Ties keep the earliest answer.
func Summarize(results *domain.Results) Summary {
	if results == nil {
		results = domain.NewResults()
	}

	s := Summary{Domain: results.Domain, Overall: results.OverallScore()}

	for _, round := range []domain.RoundType{domain.RoundHR, domain.RoundTechnical} {
		answers := results.Answers(round)
		rs := RoundSummary{
			Round:     round,
			Questions: len(results.Questions(round)),
			Answered:  len(answers),
			Average:   domain.AverageScore(answers),
		}

		for _, record := range answers {
			eval := record.GetEvaluation()
			if eval == nil {
				continue
			}
			rs.Evaluated++

			score := domain.ClampScore(eval.Score)
			if s.Best == nil || score > s.Best.Score {
				s.Best = &Highlight{Round: round, Question: record.Question, Score: score}
			}
			if s.Weakest == nil || score < s.Weakest.Score {
				s.Weakest = &Highlight{Round: round, Question: record.Question, Score: score}
			}
		}

		s.Rounds = append(s.Rounds, rs)
	}

	return s
}

// Evaluated reports whether any answer has been scored.
func (s Summary) Evaluated() bool {
	return s.Best != nil
}
