package vectorize

import (
	"context"
	"fmt"

	"github.com/nicolad/nomadically.work/internal/ai"
	"github.com/nicolad/nomadically.work/internal/retriever"
)

// Searcher embeds the posting text and asks the index for its neighbours.
type Searcher struct {
	embedder ai.Embedder
	client   *Client
}

var _ retriever.Searcher = (*Searcher)(nil)

// NewSearcher combines an embedder with an index client.
func NewSearcher(embedder ai.Embedder, client *Client) *Searcher {
	return &Searcher{embedder: embedder, client: client}
}

// Search implements retriever.Searcher.
func (s *Searcher) Search(ctx context.Context, text string, topK int) ([]retriever.Match, error) {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.client.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return matches, nil
}
