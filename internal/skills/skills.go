package skills

import (
	"fmt"
	"strings"
	"time"
)

// Level is the importance of a skill within a job posting.
type Level string

const (
	LevelRequired  Level = "required"
	LevelPreferred Level = "preferred"
	LevelNice      Level = "nice"
)

// Levels lists the accepted levels in priority order.
var Levels = []Level{LevelRequired, LevelPreferred, LevelNice}

// ParseLevel returns the Level for the given string. Matching is exact after
// trimming; the model is instructed to use the literal enum values.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.TrimSpace(s)) {
	case LevelRequired:
		return LevelRequired, nil
	case LevelPreferred:
		return LevelPreferred, nil
	case LevelNice:
		return LevelNice, nil
	default:
		return "", fmt.Errorf("unknown skill level %q", s)
	}
}

// Priority orders levels for read-back: required < preferred < nice.
func (l Level) Priority() int {
	switch l {
	case LevelRequired:
		return 0
	case LevelPreferred:
		return 1
	default:
		return 2
	}
}

// CanonicalTag is an entry of the controlled vocabulary. Score is set only on
// tags returned by a similarity search.
type CanonicalTag struct {
	Tag     string   `json:"tag" yaml:"tag" mapstructure:"tag"`
	Label   string   `json:"label,omitempty" yaml:"label" mapstructure:"label"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases" mapstructure:"aliases"`
	Score   float64  `json:"score,omitempty" yaml:"-" mapstructure:"-"`
}

// Extracted is a single skill claimed by the model for one job, before the
// job id, timestamp and version are attached.
type Extracted struct {
	Tag        string   `json:"tag"`
	Level      Level    `json:"level"`
	Confidence *float64 `json:"confidence,omitempty"`
	Evidence   string   `json:"evidence"`
}

// Assertion is a persisted, validated skill for a job.
type Assertion struct {
	JobID       int64     `json:"job_id"`
	Tag         string    `json:"tag"`
	Level       Level     `json:"level"`
	Confidence  *float64  `json:"confidence,omitempty"`
	Evidence    string    `json:"evidence"`
	ExtractedAt time.Time `json:"extracted_at"`
	Version     string    `json:"version"`
}

// TagSet builds a membership set from candidate tags.
func TagSet(candidates []CanonicalTag) map[string]struct{} {
	set := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		set[c.Tag] = struct{}{}
	}
	return set
}

// Tags returns the tag identifiers in candidate order.
func Tags(candidates []CanonicalTag) []string {
	tags := make([]string, 0, len(candidates))
	for _, c := range candidates {
		tags = append(tags, c.Tag)
	}
	return tags
}
