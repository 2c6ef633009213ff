// Package telegram is the ingestion boundary: it long-polls for updates,
// classifies chats into target kinds, feeds messages to the match engine,
// serves the bot command surface, and acts as the delivery sink.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/reposter"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/scanner"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/trigger"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

// subscriberPrefix namespaces Telegram chat ids in the subscriber set.
const subscriberPrefix = "telegram:"

// Adapter bridges Telegram to the scanning pipeline.
type Adapter struct {
	bot      *tgbotapi.BotAPI
	scanner  *scanner.Scanner
	triggers types.TriggerStore
	cache    *trigger.Cache
	state    *reposter.StateStore
}

// New creates a Telegram adapter. The scanner may be wired afterwards via
// SetScanner so the caller can include this adapter's own identity in the
// scanner's self set.
func New(token string, triggers types.TriggerStore, cache *trigger.Cache, state *reposter.StateStore) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{
		bot:      bot,
		triggers: triggers,
		cache:    cache,
		state:    state,
	}, nil
}

// SetScanner wires the match engine the adapter feeds.
func (a *Adapter) SetScanner(s *scanner.Scanner) {
	a.scanner = s
}

// Self returns the bot account's own identity, resolved at connect time.
func (a *Adapter) Self() types.SelfIdentity {
	return types.SelfIdentity{ID: a.bot.Self.ID, Name: a.bot.Self.UserName}
}

// Start begins long-polling for updates. Messages are processed inline,
// one at a time, so the match engine never runs two messages concurrently.
func (a *Adapter) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)
	slog.Info("telegram adapter started", "bot", a.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			msg := update.Message
			if msg == nil {
				msg = update.ChannelPost
			}
			if msg == nil || msg.Text == "" {
				continue
			}
			a.handleMessage(ctx, msg)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return nil
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		a.handleCommand(ctx, msg)
		return
	}

	inbound := buildInbound(msg)
	if err := a.scanner.Process(ctx, inbound); err != nil {
		slog.Error("process message failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

// buildInbound maps a Telegram message onto the pipeline's inbound event.
// The target kind is decided here, at the ingestion boundary.
func buildInbound(msg *tgbotapi.Message) *types.InboundMessage {
	chat := msg.Chat

	inbound := &types.InboundMessage{
		ExternalID: chat.ID,
		Handle:     chat.UserName,
		Title:      chatTitle(chat),
		Kind:       classifyChat(chat),
		MessageID:  int64(msg.MessageID),
		Text:       msg.Text,
	}
	if msg.From != nil {
		inbound.AuthorID = msg.From.ID
		inbound.AuthorName = authorName(msg.From)
	}
	if raw, err := json.Marshal(msg); err == nil {
		inbound.RawPayload = raw
	}
	return inbound
}

func classifyChat(chat *tgbotapi.Chat) types.TargetKind {
	switch {
	case chat == nil:
		return types.TargetKindUnknown
	case chat.IsPrivate():
		return types.TargetKindUser
	case chat.IsGroup():
		return types.TargetKindGroup
	case chat.IsSuperGroup():
		return types.TargetKindSupergroup
	case chat.IsChannel():
		return types.TargetKindChannel
	}
	return types.TargetKindUnknown
}

func chatTitle(chat *tgbotapi.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	return strings.TrimSpace(chat.FirstName + " " + chat.LastName)
}

func authorName(from *tgbotapi.User) string {
	if from.UserName != "" {
		return from.UserName
	}
	return strings.TrimSpace(from.FirstName + " " + from.LastName)
}

// SubscriberFor returns the sink identifier for a Telegram chat.
func SubscriberFor(chatID int64) string {
	return subscriberPrefix + strconv.FormatInt(chatID, 10)
}

// parseSubscriber extracts the chat id from a "telegram:<chat-id>" sink
// identifier.
func parseSubscriber(subscriber string) (int64, error) {
	rest, ok := strings.CutPrefix(subscriber, subscriberPrefix)
	if !ok {
		return 0, fmt.Errorf("not a telegram subscriber: %s", subscriber)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad telegram subscriber %q: %w", subscriber, err)
	}
	return id, nil
}

// SendTo delivers a pre-formatted HTML notification to a subscriber. This
// is the sink the delivery registry routes "telegram:" identifiers to.
func (a *Adapter) SendTo(subscriber, text string) error {
	chatID, err := parseSubscriber(subscriber)
	if err != nil {
		return err
	}
	return a.send(chatID, text)
}

func (a *Adapter) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := a.bot.Send(msg); err != nil {
		// Retry without formatting in case the markup is what the API
		// rejected.
		msg.ParseMode = ""
		if _, err := a.bot.Send(msg); err != nil {
			return fmt.Errorf("send to %d: %w", chatID, err)
		}
	}
	return nil
}

func (a *Adapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	reply, err := a.runCommand(ctx, msg)
	if err != nil {
		slog.Warn("bot command failed", "command", msg.Command(), "chat_id", chatID, "error", err)
		reply = "Error: " + err.Error()
	}
	if reply == "" {
		return
	}
	if err := a.send(chatID, reply); err != nil {
		slog.Error("send command reply failed", "chat_id", chatID, "error", err)
	}
}

func (a *Adapter) runCommand(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return helpText, nil

	case "subscribe":
		added, err := a.state.Subscribe(SubscriberFor(msg.Chat.ID))
		if err != nil {
			return "", err
		}
		if !added {
			return "This chat is already subscribed.", nil
		}
		return "Subscribed: this chat now receives match notifications.", nil

	case "unsubscribe":
		removed, err := a.state.Unsubscribe(SubscriberFor(msg.Chat.ID))
		if err != nil {
			return "", err
		}
		if !removed {
			return "This chat was not subscribed.", nil
		}
		return "Unsubscribed.", nil

	case "status":
		st, err := a.state.Load()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("last_seen_id = %d\nsubscribers = %s",
			st.LastSeenID, strings.Join(st.Subscribers, ", ")), nil

	case "listtriggers":
		return a.listTriggers(ctx)

	case "addtrigger":
		if args == "" {
			return "Usage: /addtrigger <word or pattern>", nil
		}
		t, err := a.triggers.CreateTrigger(ctx, &types.Trigger{
			Name:    "Trigger " + args,
			RawText: args,
			Pattern: trigger.Derive(args),
			Enabled: true,
		})
		if err != nil {
			return "", err
		}
		a.refreshCache(ctx)
		return fmt.Sprintf("Added trigger #%d for <b>%s</b>", t.ID, args), nil

	case "updatetrigger":
		id, rest, err := splitIDArg(args)
		if err != nil {
			return "Usage: /updatetrigger <id> <word or pattern>", nil
		}
		existing, err := a.triggers.GetTrigger(ctx, id)
		if err != nil {
			return "", err
		}
		existing.Name = "Trigger " + rest
		existing.RawText = rest
		existing.Pattern = trigger.Derive(rest)
		if _, err := a.triggers.UpdateTrigger(ctx, existing); err != nil {
			return "", err
		}
		a.refreshCache(ctx)
		return fmt.Sprintf("Trigger #%d updated to <b>%s</b>", id, rest), nil

	case "deletetrigger":
		id, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			return "Usage: /deletetrigger <id>", nil
		}
		if err := a.triggers.DeleteTrigger(ctx, id); err != nil {
			return "", err
		}
		a.refreshCache(ctx)
		return fmt.Sprintf("Trigger #%d deleted.", id), nil

	default:
		return "Unknown command. See /start for the command list.", nil
	}
}

func (a *Adapter) listTriggers(ctx context.Context) (string, error) {
	triggers, err := a.triggers.ListTriggers(ctx)
	if err != nil {
		return "", err
	}
	if len(triggers) == 0 {
		return "No triggers configured.", nil
	}

	var lines []string
	for _, t := range triggers {
		scope := "any"
		if t.ScopeTargetID != nil {
			scope = strconv.FormatInt(*t.ScopeTargetID, 10)
		}
		lines = append(lines, fmt.Sprintf("#%d: <b>%s</b>\nenabled: %v, scope: %s",
			t.ID, t.RawText, t.Enabled, scope))
	}
	return strings.Join(lines, "\n\n"), nil
}

// refreshCache applies write-through invalidation after a trigger
// mutation. A failed refresh only delays visibility until the next
// refresh, so it is logged rather than failing the command.
func (a *Adapter) refreshCache(ctx context.Context) {
	if err := a.cache.Refresh(ctx); err != nil {
		slog.Error("cache refresh after trigger mutation failed", "error", err)
	}
}

func splitIDArg(args string) (int64, string, error) {
	id, rest, found := strings.Cut(args, " ")
	if !found {
		return 0, "", errors.New("missing argument")
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, "", err
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return 0, "", errors.New("missing argument")
	}
	return n, rest, nil
}

const helpText = `I repost trigger matches from monitored chats. Commands:

/subscribe - subscribe this chat to match notifications
/unsubscribe - unsubscribe this chat
/status - show checkpoint and subscribers

/listtriggers - list trigger rules
/addtrigger <word or pattern> - add a trigger
/updatetrigger <id> <word or pattern> - replace a trigger's pattern
/deletetrigger <id> - delete a trigger`
