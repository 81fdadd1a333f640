package skill

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
skills:
  - name: web-search
    description: Search the web
    type: tool
    tools: [search, fetch]
    prompt: Use web search for current events.
  - name: coder
    description: Delegate coding work
    type: agent
`))
	require.NoError(t, err)
	require.Len(t, m.Skills, 2)

	require.Equal(t, "web-search", m.Skills[0].Name)
	require.Equal(t, TypeTool, m.Skills[0].Type)
	require.Equal(t, []string{"search", "fetch"}, m.Skills[0].Tools)
	require.Equal(t, TypeAgent, m.Skills[1].Type)
}

func TestParseManifestDefaultsType(t *testing.T) {
	m, err := ParseManifest([]byte("skills:\n  - name: bare\n"))
	require.NoError(t, err)
	require.Equal(t, TypeTool, m.Skills[0].Type)
}

func TestParseManifestRejectsInvalid(t *testing.T) {
	_, err := ParseManifest([]byte("skills:\n  - description: nameless\n"))
	require.Error(t, err)

	_, err = ParseManifest([]byte("skills:\n  - name: x\n    type: bogus\n"))
	require.Error(t, err)

	_, err = ParseManifest([]byte("skills: ["))
	require.Error(t, err)
}
