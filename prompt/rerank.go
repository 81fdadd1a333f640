package prompt

import (
	"context"
	"strings"
)

// Reranker scores content items by relevance to a query. Scores are in
// [0, 1], one per item, in item order.
type Reranker interface {
	Rank(ctx context.Context, query string, items []string) ([]float64, error)
}

// LexicalReranker scores by token overlap between query and item. It needs
// no model or network and serves as the default; production deployments
// plug in an embedding- or LLM-backed Reranker.
type LexicalReranker struct{}

var _ Reranker = LexicalReranker{}

// Rank implements Reranker.
func (LexicalReranker) Rank(_ context.Context, query string, items []string) ([]float64, error) {
	qTokens := tokenSet(query)
	scores := make([]float64, len(items))
	if len(qTokens) == 0 {
		return scores, nil
	}
	for i, item := range items {
		var overlap int
		for t := range tokenSet(item) {
			if qTokens[t] {
				overlap++
			}
		}
		scores[i] = float64(overlap) / float64(len(qTokens))
	}
	return scores, nil
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, t := range strings.Fields(strings.ToLower(s)) {
		t = strings.Trim(t, ".,;:!?\"'()[]{}")
		if t != "" {
			set[t] = true
		}
	}
	return set
}
