// internal/telegram/adapter_test.go
package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

func TestClassifyChat(t *testing.T) {
	cases := []struct {
		chatType string
		want     types.TargetKind
	}{
		{"private", types.TargetKindUser},
		{"group", types.TargetKindGroup},
		{"supergroup", types.TargetKindSupergroup},
		{"channel", types.TargetKindChannel},
		{"something-new", types.TargetKindUnknown},
	}
	for _, c := range cases {
		got := classifyChat(&tgbotapi.Chat{Type: c.chatType})
		if got != c.want {
			t.Errorf("classifyChat(%q) = %q, want %q", c.chatType, got, c.want)
		}
	}
	if got := classifyChat(nil); got != types.TargetKindUnknown {
		t.Errorf("classifyChat(nil) = %q", got)
	}
}

func TestBuildInbound(t *testing.T) {
	msg := &tgbotapi.Message{
		MessageID: 200,
		Chat: &tgbotapi.Chat{
			ID:       -100555,
			Type:     "channel",
			Title:    "Deals",
			UserName: "deals_chan",
		},
		From: &tgbotapi.User{ID: 99, FirstName: "Alice", LastName: "Smith"},
		Text: "big sale today",
	}

	inbound := buildInbound(msg)

	if inbound.ExternalID != -100555 {
		t.Errorf("external id = %d", inbound.ExternalID)
	}
	if inbound.Kind != types.TargetKindChannel {
		t.Errorf("kind = %q", inbound.Kind)
	}
	if inbound.Handle != "deals_chan" || inbound.Title != "Deals" {
		t.Errorf("handle/title = %q/%q", inbound.Handle, inbound.Title)
	}
	if inbound.AuthorID != 99 || inbound.AuthorName != "Alice Smith" {
		t.Errorf("author = %d/%q", inbound.AuthorID, inbound.AuthorName)
	}
	if inbound.MessageID != 200 || inbound.Text != "big sale today" {
		t.Errorf("message = %d/%q", inbound.MessageID, inbound.Text)
	}
	if len(inbound.RawPayload) == 0 {
		t.Error("raw payload not captured")
	}
}

func TestBuildInboundChannelPostWithoutAuthor(t *testing.T) {
	msg := &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: 5, Type: "channel", Title: "C"},
		Text:      "post",
	}

	inbound := buildInbound(msg)
	if inbound.AuthorID != 0 || inbound.AuthorName != "" {
		t.Errorf("expected empty author, got %d/%q", inbound.AuthorID, inbound.AuthorName)
	}
}

func TestAuthorNamePrefersUsername(t *testing.T) {
	got := authorName(&tgbotapi.User{UserName: "alice", FirstName: "Alice"})
	if got != "alice" {
		t.Errorf("authorName = %q", got)
	}
}

func TestSubscriberRoundTrip(t *testing.T) {
	sub := SubscriberFor(-100123)
	if sub != "telegram:-100123" {
		t.Errorf("SubscriberFor = %q", sub)
	}
	id, err := parseSubscriber(sub)
	if err != nil {
		t.Fatal(err)
	}
	if id != -100123 {
		t.Errorf("parsed id = %d", id)
	}

	if _, err := parseSubscriber("slack:C1"); err == nil {
		t.Error("expected error for foreign prefix")
	}
	if _, err := parseSubscriber("telegram:abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestSplitIDArg(t *testing.T) {
	id, rest, err := splitIDArg("7 new pattern")
	if err != nil || id != 7 || rest != "new pattern" {
		t.Errorf("splitIDArg = %d %q %v", id, rest, err)
	}
	if _, _, err := splitIDArg("7"); err == nil {
		t.Error("expected error for missing pattern")
	}
	if _, _, err := splitIDArg("x y"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}
