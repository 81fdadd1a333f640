// Package util hosts small helpers shared across ContextMesh packages. It
// lives in internal to avoid committing to public API stability prematurely.
package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/contextmesh/core"
)

// placeholderRe matches double-brace placeholders: {{name}}, {{current.x}},
// {{parent.x}}, {{root.x}}, {{knowledge/id}} and {{knowledge/id/summary}}.
var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// RenderTemplate substitutes every double-brace placeholder in text with the
// hierarchy-resolved value for its key. Unresolvable placeholders render as
// the empty string; rendering never fails.
func RenderTemplate(text string, ctx *core.Context) string {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		v := core.Resolve(key, ctx, true)
		if core.IsDefault(v) || v == nil {
			return ""
		}
		return fmt.Sprintf("%v", v)
	})
}
