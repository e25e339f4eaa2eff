// Package extract turns unstructured meeting notes into a structured fact
// bundle via the Anthropic API.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sells-group/meeting-agent/internal/model"
)

// Request carries one extraction call.
type Request struct {
	// Notes is the raw meeting notes text.
	Notes string

	// Context is an optional context block (recent calendar events) prepended
	// to the notes.
	Context string

	// Strict tightens the prompt's schema instructions. The orchestrator sets
	// it on the retry after a schema failure.
	Strict bool
}

// Service is the extraction contract.
type Service interface {
	Extract(ctx context.Context, req Request) (*model.ExtractedInfo, error)
}

// SchemaError reports that the model's response did not conform to the
// extraction schema. Partial carries whatever fields did parse; it is never
// nil.
type SchemaError struct {
	Fields  []string
	Partial *model.ExtractedInfo
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("extract: schema validation failed for fields: %s",
		strings.Join(e.Fields, ", "))
}

// IsSchemaError reports whether the error chain contains a SchemaError and
// returns it.
func IsSchemaError(err error) (*SchemaError, bool) {
	var se *SchemaError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
