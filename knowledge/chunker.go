package knowledge

import (
	"strings"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/internal/tokenutil"
)

// DefaultChunkTokens is the target token budget per chunk.
const DefaultChunkTokens = 512

// Chunker splits artifact content into ordered chunks on paragraph
// boundaries, falling back to a hard character split for pathological
// paragraphs. Chunk order follows document order and indices are assigned
// sequentially; chunks are never reordered after creation.
type Chunker struct {
	// MaxTokens is the per-chunk token budget (DefaultChunkTokens if zero).
	MaxTokens int
}

// NewChunker returns a chunker with the default token budget.
func NewChunker() *Chunker { return &Chunker{MaxTokens: DefaultChunkTokens} }

// Split chunks the artifact's content and updates its Chunked/ChunkCount
// fields so they stay consistent with the returned chunks. Content that fits
// a single chunk leaves the artifact unchunked and returns nil.
func (c *Chunker) Split(a *core.Artifact) []core.Chunk {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultChunkTokens
	}
	if tokenutil.Estimate(a.Content) <= maxTokens {
		return nil
	}

	pieces := c.splitPieces(a.Content, maxTokens)
	if len(pieces) <= 1 {
		return nil
	}

	chunks := make([]core.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = core.Chunk{
			ID:         core.ChunkID(a.ID, i),
			ArtifactID: a.ID,
			Index:      i,
			Content:    piece,
		}
	}
	a.Chunked = true
	a.ChunkCount = len(chunks)
	return chunks
}

// splitPieces greedily packs paragraphs into token-bounded pieces.
func (c *Chunker) splitPieces(content string, maxTokens int) []string {
	paragraphs := strings.Split(content, "\n\n")
	var (
		pieces  []string
		current strings.Builder
		tokens  int
	)
	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			tokens = 0
		}
	}
	for _, p := range paragraphs {
		pTokens := tokenutil.Estimate(p)
		if pTokens > maxTokens {
			flush()
			pieces = append(pieces, hardSplit(p, maxTokens)...)
			continue
		}
		if tokens+pTokens > maxTokens {
			flush()
		}
		current.WriteString(p)
		current.WriteString("\n\n")
		tokens += pTokens
	}
	flush()
	return pieces
}

// hardSplit cuts an oversized paragraph at approximate token boundaries.
// Rune-based so multi-byte text is never cut mid-character.
func hardSplit(text string, maxTokens int) []string {
	maxRunes := maxTokens * 4 // inverse of the runes/4 token estimate
	runes := []rune(text)
	var pieces []string
	for len(runes) > 0 {
		n := maxRunes
		if n > len(runes) {
			n = len(runes)
		}
		pieces = append(pieces, string(runes[:n]))
		runes = runes[n:]
	}
	return pieces
}
