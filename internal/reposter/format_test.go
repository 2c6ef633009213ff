// internal/reposter/format_test.go
package reposter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

func TestFormatNotification(t *testing.T) {
	targetID := int64(3)
	triggerID := int64(7)
	rec := &types.MatchRecord{
		ID:               11,
		TargetID:         &targetID,
		MessageID:        200,
		AuthorName:       "alice",
		Text:             "announcing a SALE2024 today",
		MatchedTriggerID: &triggerID,
		MatchedText:      "SALE2024",
	}
	targets := map[int64]*types.Target{
		3: {ID: 3, ExternalID: 555, Handle: "foo_chan", Title: "Foo"},
	}

	msg := FormatNotification(rec, targets)

	for _, want := range []string{
		"<b>Source:</b> Foo",
		"<b>Handle:</b> foo_chan",
		"<b>Author:</b> alice",
		"<b>Trigger:</b> #7",
		"<b>Matched:</b> SALE2024",
		"<pre>announcing a SALE2024 today</pre>",
		`<a href="https://t.me/foo_chan/200">Open message</a>`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("notification missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatNotificationEscapesHTML(t *testing.T) {
	triggerID := int64(1)
	rec := &types.MatchRecord{
		ID:               1,
		AuthorName:       "<script>",
		Text:             "a < b & c",
		MatchedTriggerID: &triggerID,
		MatchedText:      "<b>",
	}

	msg := FormatNotification(rec, nil)

	if strings.Contains(msg, "<script>") {
		t.Error("author name not escaped")
	}
	if !strings.Contains(msg, "<pre>a &lt; b &amp; c</pre>") {
		t.Errorf("body not escaped:\n%s", msg)
	}
}

func TestFormatNotificationUnknownTarget(t *testing.T) {
	triggerID := int64(1)
	targetID := int64(9)
	rec := &types.MatchRecord{
		ID:               1,
		TargetID:         &targetID,
		AuthorID:         77,
		Text:             "hello",
		MatchedTriggerID: &triggerID,
		MatchedText:      "hello",
	}

	msg := FormatNotification(rec, map[int64]*types.Target{})

	if !strings.Contains(msg, "<b>Source:</b> 9") {
		t.Errorf("expected raw target id fallback:\n%s", msg)
	}
	if !strings.Contains(msg, "<b>Author:</b> 77") {
		t.Errorf("expected raw author id fallback:\n%s", msg)
	}
	if strings.Contains(msg, "t.me") {
		t.Errorf("deep link rendered without a handle:\n%s", msg)
	}
}

func TestFormatNotificationTruncatesBody(t *testing.T) {
	triggerID := int64(1)
	rec := &types.MatchRecord{
		ID:               1,
		Text:             strings.Repeat("x", maxBodyLen+500),
		MatchedTriggerID: &triggerID,
	}

	msg := FormatNotification(rec, nil)
	if strings.Count(msg, "x") != maxBodyLen {
		t.Errorf("body not truncated to %d chars", maxBodyLen)
	}
}

func TestFormatNotificationCapsMarkupHeavyBody(t *testing.T) {
	triggerID := int64(1)
	rec := &types.MatchRecord{
		ID:               1,
		Text:             strings.Repeat("<", maxBodyLen+100),
		MatchedTriggerID: &triggerID,
	}

	// Every "<" escapes to "&lt;", so truncating before escaping would
	// render a body roughly four times over the cap.
	msg := FormatNotification(rec, nil)
	if len(msg) > 4096 {
		t.Errorf("notification is %d bytes, over the send limit", len(msg))
	}
	if strings.Contains(msg, "<pre></pre>") {
		t.Error("body truncated away entirely")
	}
}

func TestFormatNotificationTruncatesOnRuneBoundary(t *testing.T) {
	triggerID := int64(1)
	rec := &types.MatchRecord{
		ID:               1,
		Text:             "a" + strings.Repeat("й", maxBodyLen),
		MatchedTriggerID: &triggerID,
	}

	msg := FormatNotification(rec, nil)
	if !utf8.ValidString(msg) {
		t.Error("truncation split a rune")
	}
}

func TestTruncateDropsPartialEntity(t *testing.T) {
	got := truncate("ab&amp;xy", 4)
	if got != "ab" {
		t.Errorf("truncate = %q, want the dangling entity removed", got)
	}
	if got := truncate("ab&amp;", 7); got != "ab&amp;" {
		t.Errorf("truncate = %q, want the full string untouched", got)
	}
}
