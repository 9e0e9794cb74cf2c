package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed schemas/skills.schema.json
	skillsSchema string
	//go:embed schemas/jobs.schema.json
	jobsSchema string
	//go:embed schemas/learning_map.schema.json
	learningMapSchema string
)

// FieldError represents a single validation error at a specific field.
type FieldError struct {
	Field   string
	Message string
}

// SchemaError lists every structural problem found in a catalog file.
type SchemaError struct {
	Errors []FieldError
}

func (se *SchemaError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:")
	for i, err := range se.Errors {
		fmt.Fprintf(&sb, "\n  %d. %s: %s", i+1, err.Field, err.Message)
	}
	return sb.String()
}

func validateDocument(schema string, document []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		schemaErr.Errors = append(schemaErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return schemaErr
}
