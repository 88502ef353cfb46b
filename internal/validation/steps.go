package validation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/skills"
)

type allowedTagsFilter struct{}

// NewAllowedTags creates a filter that drops tags outside the candidate set.
func NewAllowedTags() Filter {
	return &allowedTagsFilter{}
}

func (f *allowedTagsFilter) Name() string { return "allowed_tags" }

func (f *allowedTagsFilter) Validate(*Config) error { return nil }

func (f *allowedTagsFilter) Apply(_ context.Context, deps Deps, items []skills.Extracted) ([]skills.Extracted, Step, error) {
	allowed := skills.TagSet(deps.Candidates)
	kept := make([]skills.Extracted, 0, len(items))
	var rejected []string
	for _, item := range items {
		if _, ok := allowed[item.Tag]; !ok {
			rejected = append(rejected, item.Tag)
			continue
		}
		kept = append(kept, item)
	}

	if deps.Logger != nil && len(rejected) > 0 {
		deps.Logger.Info("dropping skills outside the candidate set", zap.Strings("tags", rejected))
	}
	return kept, Step{Initial: len(items), Dropped: len(rejected), Left: len(kept)}, nil
}

type evidenceFloorFilter struct {
	min int
}

// NewEvidenceFloor creates a filter that drops skills with too little evidence.
func NewEvidenceFloor() Filter {
	return &evidenceFloorFilter{}
}

func (f *evidenceFloorFilter) Name() string { return "evidence_floor" }

func (f *evidenceFloorFilter) Validate(cfg *Config) error {
	if cfg.MinEvidence <= 0 {
		return errors.New("minimum evidence length must be positive")
	}
	f.min = cfg.MinEvidence
	return nil
}

func (f *evidenceFloorFilter) Apply(_ context.Context, deps Deps, items []skills.Extracted) ([]skills.Extracted, Step, error) {
	kept := make([]skills.Extracted, 0, len(items))
	var rejected []string
	for _, item := range items {
		if utf8.RuneCountInString(strings.TrimSpace(item.Evidence)) < f.min {
			rejected = append(rejected, item.Tag)
			continue
		}
		kept = append(kept, item)
	}

	if deps.Logger != nil && len(rejected) > 0 {
		deps.Logger.Info("dropping skills with short evidence", zap.Strings("tags", rejected), zap.Int("min_evidence", f.min))
	}
	return kept, Step{Initial: len(items), Dropped: len(rejected), Left: len(kept)}, nil
}

func (f *evidenceFloorFilter) Status() Status {
	return Status{Name: f.Name(), Details: map[string]string{"min_evidence": strconv.Itoa(f.min)}}
}

type dedupByTagFilter struct{}

// NewDedupByTag creates a filter that keeps the first occurrence of each tag.
func NewDedupByTag() Filter {
	return &dedupByTagFilter{}
}

func (f *dedupByTagFilter) Name() string { return "dedup_by_tag" }

func (f *dedupByTagFilter) Validate(*Config) error { return nil }

func (f *dedupByTagFilter) Apply(_ context.Context, _ Deps, items []skills.Extracted) ([]skills.Extracted, Step, error) {
	seen := make(map[string]struct{}, len(items))
	kept := make([]skills.Extracted, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.Tag]; dup {
			continue
		}
		seen[item.Tag] = struct{}{}
		kept = append(kept, item)
	}
	return kept, Step{Initial: len(items), Dropped: len(items) - len(kept), Left: len(kept)}, nil
}

type limitFilter struct {
	max int
}

// NewLimit creates a filter that keeps at most the configured number of skills.
func NewLimit() Filter {
	return &limitFilter{}
}

func (f *limitFilter) Name() string { return "limit" }

func (f *limitFilter) Validate(cfg *Config) error {
	if cfg.MaxSkills <= 0 {
		return errors.New("maximum skills must be positive")
	}
	f.max = cfg.MaxSkills
	return nil
}

func (f *limitFilter) Apply(_ context.Context, deps Deps, items []skills.Extracted) ([]skills.Extracted, Step, error) {
	if len(items) <= f.max {
		return items, Step{Initial: len(items), Left: len(items)}, nil
	}

	if deps.Logger != nil {
		deps.Logger.Info("truncating skills to limit", zap.Int("limit", f.max), zap.Int("extracted", len(items)))
	}
	return items[:f.max], Step{Initial: len(items), Dropped: len(items) - f.max, Left: f.max}, nil
}

func (f *limitFilter) Status() Status {
	return Status{Name: f.Name(), Details: map[string]string{"max_skills": strconv.Itoa(f.max)}}
}
