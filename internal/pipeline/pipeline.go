// Package pipeline runs skill extraction end to end for one job or a batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nicolad/nomadically.work/internal/extraction"
	"github.com/nicolad/nomadically.work/internal/logger"
	"github.com/nicolad/nomadically.work/internal/signals"
	"github.com/nicolad/nomadically.work/internal/skills"
	"github.com/nicolad/nomadically.work/internal/store"
	"github.com/nicolad/nomadically.work/internal/validation"
)

// Job is a posting queued for extraction. Description may be HTML.
type Job struct {
	ID          int64  `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Location    string `json:"location,omitempty" yaml:"location"`
	Description string `json:"description" yaml:"description"`
}

// CandidateSource returns the allow-list for one posting.
type CandidateSource interface {
	Candidates(ctx context.Context, title, description string, topK int) ([]skills.CanonicalTag, error)
}

// Extractor runs the generation step.
type Extractor interface {
	Extract(ctx context.Context, req extraction.Request) ([]skills.Extracted, error)
}

// Persister replaces the stored skills of a job.
type Persister interface {
	Replace(ctx context.Context, jobID int64, version string, items []skills.Extracted) (store.ReplaceResult, error)
}

// Config tunes a Pipeline.
type Config struct {
	Version string
	TopK    int
	// Concurrency bounds Batch. Values below 1 mean one job at a time.
	Concurrency int
	// RequestsPerSecond limits generation calls across a batch. Zero disables the limit.
	RequestsPerSecond float64
	Validation        *validation.Config
}

// Result is the outcome of one job.
type Result struct {
	JobID      int64              `json:"job_id"`
	Candidates int                `json:"candidates"`
	Extracted  int                `json:"extracted"`
	Skills     []skills.Extracted `json:"skills,omitempty"`
	Steps      []validation.Step  `json:"steps,omitempty"`
	Stored     int                `json:"stored"`
	Empty      bool               `json:"empty"`
	Reason     string             `json:"reason,omitempty"`
	Err        error              `json:"-"`
}

// Pipeline wires retrieval, extraction, validation and persistence.
type Pipeline struct {
	candidates CandidateSource
	extractor  Extractor
	persister  Persister
	cfg        Config
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a Pipeline. persister may be nil for a dry run.
func New(candidates CandidateSource, extractor Extractor, persister Persister, cfg Config, log *zap.Logger) (*Pipeline, error) {
	if candidates == nil {
		return nil, errors.New("pipeline requires a candidate source")
	}
	if extractor == nil {
		return nil, errors.New("pipeline requires an extractor")
	}
	if cfg.Version == "" {
		cfg.Version = store.DefaultVersion
	}
	if cfg.Validation == nil {
		cfg.Validation = validation.DefaultConfig()
	}

	steps := validation.DefaultSteps()
	for _, step := range steps {
		if err := step.Validate(cfg.Validation); err != nil {
			return nil, fmt.Errorf("validation %s: %w", step.Name(), err)
		}
	}

	p := &Pipeline{
		candidates: candidates,
		extractor:  extractor,
		persister:  persister,
		cfg:        cfg,
		logger:     logger.WithFields(log, zap.String(logger.FieldVersion, cfg.Version)),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	for _, status := range validation.Describe(steps) {
		p.logger.Debug("validation filter", zap.String("name", status.Name), zap.Any("details", status.Details))
	}
	return p, nil
}

// PriorAssertionsKept is appended to the reason of an empty result when a
// store is configured.
const PriorAssertionsKept = "prior assertions kept"

// Run processes one job. Errors keep their kind from the skills taxonomy.
// When nothing survives validation the store is left untouched and the
// result is marked Empty.
func (p *Pipeline) Run(ctx context.Context, job Job) (Result, error) {
	return p.run(ctx, job, p.logger.With(zap.Int64(logger.FieldJobID, job.ID)))
}

func (p *Pipeline) run(ctx context.Context, job Job, log *zap.Logger) (Result, error) {
	res := Result{JobID: job.ID}

	description, err := signals.PlainText(job.Description)
	if err != nil {
		log.Debug("description is not parseable html, using raw text", zap.Error(err))
		description = strings.TrimSpace(job.Description)
	}

	candidates, err := p.candidates.Candidates(ctx, job.Title, description, p.cfg.TopK)
	if err != nil {
		return res, err
	}
	res.Candidates = len(candidates)
	if len(candidates) == 0 {
		res.Empty = true
		res.Reason = p.emptyReason("no candidate tags")
		log.Info("no candidate tags, skipping extraction")
		return res, nil
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("wait for generation slot: %w", err)
		}
	}

	extracted, err := p.extractor.Extract(ctx, extraction.Request{
		JobID:       job.ID,
		Title:       job.Title,
		Description: description,
		Candidates:  candidates,
	})
	if err != nil {
		return res, err
	}
	res.Extracted = len(extracted)

	// Filters keep their thresholds after Validate, so each run gets its own set.
	valid, steps, err := validation.Run(ctx, p.cfg.Validation, validation.Deps{Candidates: candidates, Logger: log}, validation.DefaultSteps(), extracted)
	if err != nil {
		return res, fmt.Errorf("validate: %w", err)
	}
	res.Steps = steps
	res.Skills = valid

	if len(valid) == 0 {
		res.Empty = true
		res.Reason = p.emptyReason(skills.ErrValidationEmpty.Error())
		log.Info("no skills survived validation", zap.Int("extracted", len(extracted)))
		return res, nil
	}

	if p.persister == nil {
		log.Info("dry run, skills not stored", zap.Int("skills", len(valid)))
		return res, nil
	}

	stored, err := p.persister.Replace(ctx, job.ID, p.cfg.Version, valid)
	if err != nil {
		return res, err
	}
	res.Stored = stored.Count

	log.Info("skills stored",
		zap.Int("candidates", res.Candidates),
		zap.Int("extracted", res.Extracted),
		zap.Int("stored", res.Stored),
	)
	return res, nil
}

// emptyReason notes that an empty result did not clear the job's stored
// assertions, so it reads differently from a job stored with zero skills.
func (p *Pipeline) emptyReason(reason string) string {
	if p.persister == nil {
		return reason
	}
	return reason + ", " + PriorAssertionsKept
}
