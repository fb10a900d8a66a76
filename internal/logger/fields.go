package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared across packages.
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"

	FieldWorkflow = "workflow"
	FieldRunID    = "run_id"
	FieldStage    = "stage"
	FieldUserID   = "user_id"
)

// StringField is a key/value pair that becomes a zap string field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts pairs into zap fields. Keys and values are trimmed;
// pairs left with an empty key or value are dropped.
func StringFields(pairs ...StringField) []zap.Field {
	out := make([]zap.Field, 0, len(pairs))
	for _, pair := range pairs {
		key, value := strings.TrimSpace(pair.Key), strings.TrimSpace(pair.Value)
		if key == "" || value == "" {
			continue
		}
		out = append(out, zap.String(key, value))
	}
	return out
}

// WithFields returns log enriched with fields. A nil log becomes a no-op
// logger.
func WithFields(log *zap.Logger, fields ...zap.Field) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}

// CommonFields describe the AI provider and model behind a call.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields is WithFields with CommonFields.
func WithCommonFields(log *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(log, CommonFields(provider, model)...)
}

// RunFields identify one workflow invocation for a user.
func RunFields(workflow, runID, userID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldWorkflow, Value: workflow},
		StringField{Key: FieldRunID, Value: runID},
		StringField{Key: FieldUserID, Value: userID},
	)
}
