package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
	// FieldInterviewID identifies the interview session.
	FieldInterviewID = "interview_id"
	// FieldRound is the current orchestrator round.
	FieldRound = "round"
	// FieldQuestionIdx is the zero-based index of the active question.
	FieldQuestionIdx = "question_idx"
	// FieldSeverity carries severities zap has no level for.
	FieldSeverity = "severity"
)

// SeverityCritical marks an error entry as critical: the session can no
// longer be trusted and must be reset.
var SeverityCritical = zap.String(FieldSeverity, "critical")

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger, defaulting to
// a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// AIFields returns fields describing the AI provider and model. Empty values are skipped.
func AIFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithAIFields attaches the provider and model fields to the logger.
func WithAIFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, AIFields(provider, model)...)
}

// SessionFields describes where in the interview an entry was produced.
func SessionFields(interviewID, round string, questionIdx int) []zap.Field {
	fields := StringFields(
		StringField{Key: FieldInterviewID, Value: interviewID},
		StringField{Key: FieldRound, Value: round},
	)
	return append(fields, zap.Int(FieldQuestionIdx, questionIdx))
}
