package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldComponent names the engine component emitting the entry.
	FieldComponent = "component"
	// FieldStage names the processing stage (extract, encode, index, match, plan, evidence).
	FieldStage = "stage"
	// FieldRequestID correlates all entries of the same analysis.
	FieldRequestID = "request_id"
	// FieldEncoderModel is the embedding model identifier.
	FieldEncoderModel = "encoder_model"
)

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

// WithFields safely attaches the provided fields to the logger.
// A nil logger is replaced with a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// ComponentFields returns the fields naming a component and, optionally, its encoder model.
func ComponentFields(component, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldComponent, Value: component},
		StringField{Key: FieldEncoderModel, Value: model},
	)
}

// ForComponent attaches the component fields to the provided logger.
func ForComponent(logger *zap.Logger, component, model string) *zap.Logger {
	return WithFields(logger, ComponentFields(component, model)...)
}

// Stage returns the stage field.
func Stage(name string) zap.Field {
	return zap.String(FieldStage, name)
}
