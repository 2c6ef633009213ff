// internal/reposter/format.go
package reposter

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

// maxBodyLen caps the quoted message body, measured after HTML escaping,
// so the rendered notification stays under Telegram's message size limit.
const maxBodyLen = 3900

// FormatNotification renders one match record as an HTML notification.
// Target title and handle come from the targets map fetched once per poll
// cycle; a record whose target is unknown falls back to raw ids.
func FormatNotification(rec *types.MatchRecord, targets map[int64]*types.Target) string {
	var target *types.Target
	if rec.TargetID != nil {
		target = targets[*rec.TargetID]
	}

	source := ""
	handle := ""
	if target != nil {
		handle = target.Handle
		if target.Title != "" {
			source = target.Title
		} else if target.Handle != "" {
			source = target.Handle
		}
	}
	if source == "" && rec.TargetID != nil {
		source = strconv.FormatInt(*rec.TargetID, 10)
	}

	author := rec.AuthorName
	if author == "" {
		author = strconv.FormatInt(rec.AuthorID, 10)
	}

	var parts []string
	parts = append(parts, "🔔 <b>New matched message</b>")
	if source != "" {
		parts = append(parts, fmt.Sprintf("<b>Source:</b> %s", html.EscapeString(source)))
	}
	if handle != "" {
		parts = append(parts, fmt.Sprintf("<b>Handle:</b> %s", html.EscapeString(handle)))
	}
	parts = append(parts, fmt.Sprintf("<b>Author:</b> %s", html.EscapeString(author)))
	if rec.MatchedTriggerID != nil {
		parts = append(parts, fmt.Sprintf("<b>Trigger:</b> #%d", *rec.MatchedTriggerID))
		parts = append(parts, fmt.Sprintf("<b>Matched:</b> %s", html.EscapeString(rec.MatchedText)))
	}
	parts = append(parts, "")

	// Escape before capping: escaping expands the text, so truncating the
	// raw body first could blow past the size limit after escaping.
	body := truncate(html.EscapeString(rec.Text), maxBodyLen)
	parts = append(parts, fmt.Sprintf("<pre>%s</pre>", body))

	if handle != "" && rec.MessageID != 0 {
		uname := strings.TrimPrefix(handle, "@")
		parts = append(parts, fmt.Sprintf(`<a href="https://t.me/%s/%d">Open message</a>`, uname, rec.MessageID))
	}

	return strings.Join(parts, "\n")
}

// truncate cuts s to at most max bytes without splitting a rune or leaving
// a dangling partial HTML entity at the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	s = s[:max]
	if i := strings.LastIndexByte(s, '&'); i >= 0 && !strings.ContainsRune(s[i:], ';') {
		s = s[:i]
	}
	return s
}
