package knowledge

import (
	"fmt"
	"strings"
)

// indexEntry is one artifact's row in the formatted knowledge index.
type indexEntry struct {
	ArtifactID string
	Summary    string
	ChunkCount int
	Head       []string
	Tail       []string
}

// chunkEntry is one retrieved chunk in the content section.
type chunkEntry struct {
	ArtifactID string
	ChunkIndex int
	Score      float32
	Content    string
}

// contextDocument is the uniform output of both retrieval strategies: an
// index section pointing at retrievable detail and a chunk content section.
// Downstream prompt assembly consumes the same shape regardless of whether
// retrieval was semantic or exhaustive.
type contextDocument struct {
	Stats  string
	Index  []indexEntry
	Chunks []chunkEntry
}

// render formats the document through the shared two-section layout.
func (d *contextDocument) render() string {
	var b strings.Builder
	if d.Stats != "" {
		b.WriteString(d.Stats)
		b.WriteString("\n\n")
	}
	if len(d.Index) > 0 {
		b.WriteString("## Knowledge Index\n")
		for _, e := range d.Index {
			fmt.Fprintf(&b, "- artifact %s", e.ArtifactID)
			if e.ChunkCount > 0 {
				fmt.Fprintf(&b, " (%d chunks)", e.ChunkCount)
			}
			if e.Summary != "" {
				fmt.Fprintf(&b, ": %s", e.Summary)
			}
			b.WriteString("\n")
			writePreview(&b, "head", e.Head)
			writePreview(&b, "tail", e.Tail)
		}
		b.WriteString("\n")
	}
	if len(d.Chunks) > 0 {
		b.WriteString("## Chunk Content\n")
		for _, c := range d.Chunks {
			if c.Score > 0 {
				fmt.Fprintf(&b, "[%s#%d score=%.3f]\n%s\n\n", c.ArtifactID, c.ChunkIndex, c.Score, c.Content)
			} else {
				fmt.Fprintf(&b, "[%s#%d]\n%s\n\n", c.ArtifactID, c.ChunkIndex, c.Content)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writePreview(b *strings.Builder, label string, lines []string) {
	for i, l := range lines {
		fmt.Fprintf(b, "  %s[%d]: %s\n", label, i, previewLine(l))
	}
}

// previewLine bounds a preview to a single short line.
const previewRunes = 200

func previewLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) > previewRunes {
		return string(r[:previewRunes]) + "…"
	}
	return s
}
