package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/contextmesh/core"
)

func TestSplitSmallContentStaysUnchunked(t *testing.T) {
	a := core.NewArtifact("short note", "note")
	chunks := NewChunker().Split(a)

	require.Nil(t, chunks)
	require.False(t, a.Chunked)
	require.Zero(t, a.ChunkCount)
}

func TestSplitOrderedChunks(t *testing.T) {
	paragraphs := make([]string, 60)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("alpha beta gamma delta epsilon ", 20)
	}
	a := core.NewArtifact(strings.Join(paragraphs, "\n\n"), "long doc")

	chunks := NewChunker().Split(a)

	require.True(t, a.Chunked)
	require.Equal(t, len(chunks), a.ChunkCount)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		require.Equal(t, i, c.Index)
		require.Equal(t, core.ChunkID(a.ID, i), c.ID)
		require.Equal(t, a.ID, c.ArtifactID)
		require.NotEmpty(t, c.Content)
	}
}

func TestSplitOversizedParagraph(t *testing.T) {
	a := core.NewArtifact(strings.Repeat("x", 20000), "wall of text")

	chunks := (&Chunker{MaxTokens: 100}).Split(a)

	require.Greater(t, len(chunks), 1)
	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c.Content)
	}
	require.Equal(t, a.Content, rebuilt.String())
}
