// Package extraction asks the model for the skills of one job posting,
// constrained to a candidate tag set and a fixed output schema.
package extraction

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/ai"
	"github.com/nicolad/nomadically.work/internal/logger"
	"github.com/nicolad/nomadically.work/internal/skills"
	"github.com/nicolad/nomadically.work/internal/utils"
)

//go:embed prompt.md
var instructions string

const (
	defaultMaxLogLength = 200
	maxDescriptionRunes = 20000
	temperature         = float32(0.1)
)

// Request is the input of one extraction.
type Request struct {
	JobID       int64
	Title       string
	Description string
	Candidates  []skills.CanonicalTag
}

// Protocol runs extraction requests against a structured generator.
type Protocol struct {
	generator ai.StructuredGenerator
	logger    *zap.Logger
	maxLogLen int
}

// New creates a Protocol. A non-positive maxLogLength uses the default preview size.
func New(generator ai.StructuredGenerator, log *zap.Logger, maxLogLength int) *Protocol {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Protocol{
		generator: generator,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

// Instructions returns the system instructions sent with every request.
func Instructions() string {
	return strings.TrimSpace(instructions)
}

// BuildInput renders the user content: the allowed tags followed by the posting.
func BuildInput(req Request) string {
	var b strings.Builder
	b.WriteString("ALLOWED TAGS (use ONLY these exact strings): ")
	b.WriteString(strings.Join(skills.Tags(req.Candidates), ", "))
	b.WriteString("\n\nJOB:\n- Title: ")
	b.WriteString(strings.TrimSpace(req.Title))
	b.WriteString("\n- Description: ")
	b.WriteString(utils.TruncateRunes(strings.TrimSpace(req.Description), maxDescriptionRunes))
	return b.String()
}

// Extract sends one generation request and returns the schema-valid items.
// The result still has to pass validation before it is persisted.
func (p *Protocol) Extract(ctx context.Context, req Request) ([]skills.Extracted, error) {
	if p.generator == nil {
		return nil, errors.New("extraction generator is not configured")
	}

	input := BuildInput(req)
	t := temperature
	log := p.logger.With(zap.Int64(logger.FieldJobID, req.JobID))

	log.Debug("extraction request",
		zap.Int("candidates", len(req.Candidates)),
		zap.Int("input_length", utf8.RuneCountInString(input)),
	)

	raw, err := p.generator.GenerateStructured(ctx, ai.Request{
		Instructions: Instructions(),
		Input:        input,
		Schema:       Schema(),
		Temperature:  &t,
	})
	if err != nil {
		if errors.Is(err, ai.ErrSchemaViolation) {
			return nil, fmt.Errorf("%w: %v", skills.ErrMalformedExtraction, err)
		}
		return nil, fmt.Errorf("generate extraction: %w", err)
	}

	extracted, err := ParseResponse(raw)
	if err != nil {
		log.Warn("malformed extraction response",
			zap.String("response_preview", utils.TruncateForLog(raw, p.maxLogLen)),
			zap.Error(err),
		)
		return nil, err
	}

	log.Debug("extraction response", zap.Int("skills", len(extracted)))
	return extracted, nil
}
