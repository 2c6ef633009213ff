// internal/trigger/pattern.go
package trigger

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// metaChars are the characters that mark user input as a hand-written
// regular expression rather than a plain word.
const metaChars = `.?*+|[](){}\`

// Derive turns raw trigger input into the stored pattern. A plain token
// (no regex metacharacters) becomes a word-boundary-anchored prefix
// expression, so "sale" matches "sale", "sales", and "SALE2024" but not
// "resale". Input that already contains metacharacters is used verbatim.
//
// This rule is applied at the trigger-authoring boundary (API, bot
// commands, CLI), never by the cache.
func Derive(raw string) string {
	p := strings.TrimSpace(raw)
	if strings.ContainsAny(p, metaChars) {
		return p
	}
	return `\b` + regexp2.Escape(p) + `\w*\b`
}
