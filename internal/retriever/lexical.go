package retriever

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/nicolad/nomadically.work/internal/skills"
)

// LexicalSearcher scores vocabulary entries by how often the tag, label or an
// alias occurs in the text. It stands in for the vector index when none is
// configured.
type LexicalSearcher struct {
	entries []lexicalEntry
}

type lexicalEntry struct {
	tag     skills.CanonicalTag
	pattern *regexp.Regexp
}

// NewLexicalSearcher indexes the given vocabulary.
func NewLexicalSearcher(vocabulary []skills.CanonicalTag) *LexicalSearcher {
	entries := make([]lexicalEntry, 0, len(vocabulary))
	for _, tag := range vocabulary {
		terms := lexicalTerms(tag)
		if len(terms) == 0 {
			continue
		}
		quoted := make([]string, 0, len(terms))
		for _, term := range terms {
			quoted = append(quoted, regexp.QuoteMeta(term))
		}
		pattern := regexp.MustCompile(`(?i)(?:^|[^a-z0-9+#.])(?:` + strings.Join(quoted, "|") + `)(?:$|[^a-z0-9+#])`)
		entries = append(entries, lexicalEntry{tag: tag, pattern: pattern})
	}
	return &LexicalSearcher{entries: entries}
}

func lexicalTerms(tag skills.CanonicalTag) []string {
	seen := map[string]struct{}{}
	var terms []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		terms = append(terms, s)
	}

	add(tag.Tag)
	add(strings.ReplaceAll(tag.Tag, "-", " "))
	add(tag.Label)
	for _, alias := range tag.Aliases {
		add(alias)
	}

	// Longest first so that alternation prefers "node.js" over "node".
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	return terms
}

// Search implements Searcher.
func (s *LexicalSearcher) Search(ctx context.Context, text string, topK int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type scored struct {
		entry lexicalEntry
		hits  int
		order int
	}

	var hits []scored
	for i, entry := range s.entries {
		n := len(entry.pattern.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		hits = append(hits, scored{entry: entry, hits: n, order: i})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].hits != hits[j].hits {
			return hits[i].hits > hits[j].hits
		}
		return hits[i].order < hits[j].order
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		aliases := make([]any, 0, len(h.entry.tag.Aliases))
		for _, a := range h.entry.tag.Aliases {
			aliases = append(aliases, a)
		}
		matches = append(matches, Match{
			ID:    h.entry.tag.Tag,
			Score: float64(h.hits) / float64(h.hits+1),
			Metadata: map[string]any{
				"tag":     h.entry.tag.Tag,
				"label":   h.entry.tag.Label,
				"aliases": aliases,
			},
		})
	}
	return matches, nil
}
