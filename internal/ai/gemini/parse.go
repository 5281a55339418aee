package gemini

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/evalia/internal/domain"
)

var listMarkerRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))
	if json.Valid([]byte(raw)) {
		return raw
	}

	// Prose around the payload: take the outermost object or array.
	start := strings.IndexAny(raw, "{[")
	end := strings.LastIndexAny(raw, "}]")
	if start != -1 && end > start && json.Valid([]byte(raw[start:end+1])) {
		return raw[start : end+1]
	}
	return raw
}

// parseEvaluation decodes the model output into an Evaluation. Numbers given as
// strings and single tips given as a string are accepted.
func parseEvaluation(raw string) (*domain.Evaluation, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse evaluation response: %w", err)
	}

	rawScore, ok := data["score"]
	if !ok {
		return nil, fmt.Errorf("evaluation response has no score")
	}
	score := coerceFloat(rawScore)
	if math.IsNaN(score) {
		return nil, fmt.Errorf("evaluation response has invalid score %v", rawScore)
	}
	data["score"] = score

	var eval domain.Evaluation
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &eval,
	})
	if err != nil {
		return nil, fmt.Errorf("create evaluation decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode evaluation response: %w", err)
	}

	eval.Feedback = strings.TrimSpace(eval.Feedback)
	if eval.Feedback == "" {
		return nil, fmt.Errorf("evaluation response has no feedback")
	}

	eval.Score = domain.ClampScore(eval.Score)
	eval.ImprovementTips = cleanList(eval.ImprovementTips)
	eval.KnowledgeGaps = cleanList(eval.KnowledgeGaps)

	return &eval, nil
}

// parseQuestions accepts either a JSON array of strings, an object with a
// "questions" array, or a plain numbered/bulleted list.
func parseQuestions(raw string, limit int) ([]string, error) {
	cleaned := extractJSON(raw)

	var questions []string
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		var wrapped struct {
			Questions []string `json:"questions"`
		}
		if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil && len(wrapped.Questions) > 0 {
			questions = wrapped.Questions
		} else {
			questions = strings.Split(cleaned, "\n")
		}
	}

	questions = cleanList(questions)
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions found in response")
	}

	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}

	return questions, nil
}

// normalizeLabel reduces the classifier output to a bare domain label.
func normalizeLabel(raw string) string {
	label := strings.TrimSpace(raw)
	if idx := strings.IndexAny(label, "\r\n"); idx != -1 {
		label = label[:idx]
	}
	label = strings.TrimSpace(label)
	label = strings.Trim(label, "\"'`*")
	label = strings.TrimRight(label, ".!,;:")
	return strings.TrimSpace(label)
}

func cleanList(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = listMarkerRe.ReplaceAllString(item, "")
		item = strings.TrimSpace(strings.Trim(strings.TrimSpace(item), "\""))
		if item == "" {
			continue
		}
		result = append(result, item)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		trimmed = strings.TrimSuffix(trimmed, "/10")
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
