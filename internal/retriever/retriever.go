// Package retriever narrows the controlled vocabulary down to the tags that
// are plausibly relevant to one job posting. The returned set is the only
// allow-list the extraction step may draw from.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/logger"
	"github.com/nicolad/nomadically.work/internal/skills"
	"github.com/nicolad/nomadically.work/internal/utils"
)

const (
	// MaxInputRunes caps the text sent to the similarity service.
	MaxInputRunes = 20000
	// DefaultTopK is used when the caller passes a non-positive topK.
	DefaultTopK = 50
)

// Match is a single similarity hit. Metadata carries at least "tag" and may
// carry "label" and "aliases".
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Searcher is a top-K similarity search over the vocabulary.
type Searcher interface {
	Search(ctx context.Context, text string, topK int) ([]Match, error)
}

// Retriever turns a posting into its candidate tag set.
type Retriever struct {
	searcher Searcher
	logger   *zap.Logger
}

// New creates a Retriever over the given searcher.
func New(searcher Searcher, log *zap.Logger) *Retriever {
	return &Retriever{searcher: searcher, logger: logger.OrNop(log)}
}

// BuildInput joins title and description and caps the result at MaxInputRunes.
func BuildInput(title, description string) string {
	return utils.TruncateRunes(title+"\n\n"+description, MaxInputRunes)
}

// Candidates returns the candidate tags for a posting in similarity order.
// Matches without a tag and repeated tags are skipped. A searcher failure is
// reported as skills.ErrRetrievalUnavailable; an empty result is returned as is.
func (r *Retriever) Candidates(ctx context.Context, title, description string, topK int) ([]skills.CanonicalTag, error) {
	if r.searcher == nil {
		return nil, fmt.Errorf("%w: no searcher configured", skills.ErrRetrievalUnavailable)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	input := BuildInput(title, description)
	matches, err := r.searcher.Search(ctx, input, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", skills.ErrRetrievalUnavailable, err)
	}

	seen := make(map[string]struct{}, len(matches))
	candidates := make([]skills.CanonicalTag, 0, len(matches))
	for _, m := range matches {
		tag, err := decodeMetadata(m.Metadata)
		if err != nil {
			r.logger.Debug("skipping match with undecodable metadata", zap.String("id", m.ID), zap.Error(err))
			continue
		}
		if tag.Tag == "" {
			r.logger.Debug("skipping match without tag", zap.String("id", m.ID))
			continue
		}
		if _, dup := seen[tag.Tag]; dup {
			continue
		}
		seen[tag.Tag] = struct{}{}
		tag.Score = m.Score
		candidates = append(candidates, tag)
	}

	r.logger.Debug("retrieved candidates",
		zap.Int("matches", len(matches)),
		zap.Int("candidates", len(candidates)),
		zap.Int("top_k", topK),
		zap.Int("input_runes", len([]rune(input))),
	)

	return candidates, nil
}

func decodeMetadata(metadata map[string]any) (skills.CanonicalTag, error) {
	var tag skills.CanonicalTag
	if len(metadata) == 0 {
		return tag, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &tag,
	})
	if err != nil {
		return tag, err
	}
	if err := decoder.Decode(metadata); err != nil {
		return tag, err
	}

	tag.Tag = strings.TrimSpace(tag.Tag)
	tag.Label = strings.TrimSpace(tag.Label)
	if tag.Label == "" {
		tag.Label = tag.Tag
	}
	return tag, nil
}
