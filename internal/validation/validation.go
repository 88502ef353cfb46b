// Package validation rejects model output that is not grounded in the
// candidate set or the posting. Each rule is a hard filter: items are dropped,
// never rewritten.
package validation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/skills"
)

const (
	// DefaultMinEvidence is the minimum trimmed evidence length in runes.
	DefaultMinEvidence = 8
	// DefaultMaxSkills caps the number of skills kept per job and run.
	DefaultMaxSkills = 30
)

// Filter represents a single validation step applied to extracted skills.
type Filter interface {
	Name() string
	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, items []skills.Extracted) ([]skills.Extracted, Step, error)
}

// Deps aggregates dependencies shared across all validation steps.
type Deps struct {
	Candidates []skills.CanonicalTag
	Logger     *zap.Logger
}

// Step describes the result of executing a validation step.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

// Config contains the thresholds consumed by the filters.
type Config struct {
	MinEvidence int
	MaxSkills   int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() *Config {
	return &Config{MinEvidence: DefaultMinEvidence, MaxSkills: DefaultMaxSkills}
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// DefaultSteps returns the validation pipeline in its fixed order.
func DefaultSteps() []Filter {
	return []Filter{
		NewAllowedTags(),
		NewEvidenceFloor(),
		NewDedupByTag(),
		NewLimit(),
	}
}

// Run executes the supplied filters sequentially and returns the surviving
// items with one Step per filter.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, items []skills.Extracted) ([]skills.Extracted, []Step, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	for _, step := range steps {
		if err := step.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	current := make([]skills.Extracted, len(items))
	copy(current, items)

	report := make([]Step, 0, len(steps))
	for _, step := range steps {
		next, info, err := step.Apply(ctx, deps, current)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
		info.Name = step.Name()
		report = append(report, info)

		if deps.Logger != nil {
			deps.Logger.Debug("validation step",
				zap.String("name", info.Name),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		current = next
	}

	return current, report, nil
}

// Validate applies the default pipeline with default thresholds.
func Validate(extracted []skills.Extracted, candidates []skills.CanonicalTag) []skills.Extracted {
	out, _, err := Run(context.Background(), nil, Deps{Candidates: candidates}, DefaultSteps(), extracted)
	if err != nil {
		return nil
	}
	return out
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}
		statuses = append(statuses, Status{Name: step.Name()})
	}
	return statuses
}
