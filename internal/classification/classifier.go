package classification

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/nicolad/nomadically.work/internal/ai"
	"github.com/nicolad/nomadically.work/internal/logger"
	"github.com/nicolad/nomadically.work/internal/utils"
)

//go:embed prompt.md
var instructions string

const (
	defaultMaxLogLength = 200
	maxDescriptionRunes = 12000
)

// Job is the part of a posting that classification reads.
type Job struct {
	ID          int64  `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Location    string `json:"location,omitempty" yaml:"location"`
	Description string `json:"description" yaml:"description"`
}

// Classifier asks a structured generator for a Record.
type Classifier struct {
	generator ai.StructuredGenerator
	logger    *zap.Logger
	maxLogLen int
}

// New creates a Classifier.
func New(generator ai.StructuredGenerator, log *zap.Logger, maxLogLength int) *Classifier {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Classifier{generator: generator, logger: logger.OrNop(log), maxLogLen: maxLogLength}
}

// Schema is the response schema of a classification request.
func Schema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"isRemoteEU": {Type: genai.TypeBoolean},
			"confidence": {
				Type: genai.TypeString,
				Enum: []string{string(ConfidenceHigh), string(ConfidenceMedium), string(ConfidenceLow)},
			},
			"reason": {Type: genai.TypeString, Description: "Short explanation naming the rule applied."},
		},
		Required:         []string{"isRemoteEU", "confidence", "reason"},
		PropertyOrdering: []string{"isRemoteEU", "confidence", "reason"},
	}
}

// BuildInput renders the job details block.
func BuildInput(job Job) string {
	location := strings.TrimSpace(job.Location)
	if location == "" {
		location = "not specified"
	}
	return fmt.Sprintf("JOB DETAILS:\n- Title: %s\n- Location: %s\n- Description: %s",
		strings.TrimSpace(job.Title),
		location,
		utils.TruncateRunes(strings.TrimSpace(job.Description), maxDescriptionRunes),
	)
}

// Classify runs one classification request.
func (c *Classifier) Classify(ctx context.Context, job Job) (Record, error) {
	if c.generator == nil {
		return Record{}, errors.New("classification generator is not configured")
	}

	input := BuildInput(job)
	log := c.logger.With(zap.Int64(logger.FieldJobID, job.ID))
	log.Debug("classification request", zap.Int("input_length", utf8.RuneCountInString(input)))

	raw, err := c.generator.GenerateStructured(ctx, ai.Request{
		Instructions: strings.TrimSpace(instructions),
		Input:        input,
		Schema:       Schema(),
	})
	if err != nil {
		return Record{}, fmt.Errorf("generate classification: %w", err)
	}

	record, err := ParseResponse(raw)
	if err != nil {
		log.Warn("malformed classification response",
			zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
			zap.Error(err),
		)
		return Record{}, err
	}

	log.Debug("classification response",
		zap.Bool("is_remote_eu", record.IsRemoteEU),
		zap.String("confidence", string(record.Confidence)),
	)
	return record, nil
}

// ParseResponse extracts and decodes the JSON object of a model response.
func ParseResponse(raw string) (Record, error) {
	object, err := ai.ExtractJSONObject(raw)
	if err != nil {
		return Record{}, err
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(object), &data); err != nil {
		return Record{}, fmt.Errorf("%w: parse classification: %v", ai.ErrSchemaViolation, err)
	}
	record, err := DecodeRecord(data)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ai.ErrSchemaViolation, err)
	}
	return record, nil
}
