// Package ai describes the model boundary used by extraction and
// classification. Implementations live in provider subpackages.
package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// ErrSchemaViolation is returned by a generator when the model output cannot
// satisfy the requested schema (empty, truncated or blocked output).
var ErrSchemaViolation = errors.New("generated output violates schema")

// Request is one structured generation call.
type Request struct {
	// Instructions are sent as the system instruction.
	Instructions string
	// Input is the user content.
	Input string
	// Schema constrains the response. Nil means free-form JSON.
	Schema *genai.Schema
	// Temperature overrides the provider default when set.
	Temperature *float32
}

// StructuredGenerator produces a JSON document for a request.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, req Request) (string, error)
	Model() string
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbeddingModel() string
}
