package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"courier/internal/target"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// TelegramPlugin answers the tgram:// schema via the Bot API.
// Params: shared enable flag and schema binding.
// Returns: implementation constructing Telegram targets.
type TelegramPlugin struct {
	pluginBase
}

// NewTelegramPlugin creates the Telegram implementation object.
// Params: optional logger.
// Returns: initialized plugin.
func NewTelegramPlugin(logger *slog.Logger) *TelegramPlugin {
	p := &TelegramPlugin{}
	initPluginBase(&p.pluginBase, []string{"tgram"}, logger)
	return p
}

// New instantiates one Telegram destination from a parsed URL.
// Params: parsed URL in tgram://token@chatid form; the bot token sits
// in the userinfo section so its embedded colon survives URL parsing.
// Returns: bound target or configuration error.
func (p *TelegramPlugin) New(u *target.ParsedURL) (target.Target, error) {
	token := u.User
	if u.Password != "" {
		token = u.User + ":" + u.Password
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("telegram chat id is required")
	}

	instance := &telegramTarget{
		plugin: p,
		chatID: normalizeChatID(u.Host),
		tags:   u.Tags,
		format: target.FormatHTML,
		raw:    u.Raw(),
	}
	if u.HasFormat {
		instance.format = u.Format
	}

	client, err := tgbot.New(token, tgbot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	instance.client = client
	return instance, nil
}

// telegramTarget is one instantiated Telegram chat destination.
// Params: bot client, chat id, and routing metadata.
// Returns: target capability implementation.
type telegramTarget struct {
	plugin *TelegramPlugin
	client *tgbot.Bot
	chatID any
	tags   []string
	format target.Format
	raw    string
}

// Notify posts one message to the configured chat.
// Params: context, converted body, title, and notification kind.
// Returns: false on transport or API failure; never panics for those.
func (t *telegramTarget) Notify(ctx context.Context, body, title string, kind target.Kind) bool {
	text := body
	if title != "" {
		text = "<b>" + title + "</b>\n" + body
	}
	parseMode := tgmodels.ParseModeHTML
	if t.format != target.FormatHTML {
		parseMode = ""
	}

	sent, err := t.client.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: parseMode,
	})
	if err != nil {
		t.plugin.warn("telegram send failed", "kind", string(kind), "error", err.Error())
		return false
	}
	if sent == nil || sent.ID <= 0 {
		t.plugin.warn("telegram send returned empty message id")
		return false
	}
	return true
}

// Tags returns routing tags from the instantiating URL.
// Params: none.
// Returns: tag list.
func (t *telegramTarget) Tags() []string {
	return t.tags
}

// Format returns the body markup this destination expects.
// Params: none.
// Returns: HTML unless overridden on the URL.
func (t *telegramTarget) Format() target.Format {
	return t.format
}

// Enabled reports the shared implementation flag.
// Params: none.
// Returns: owning plugin flag value.
func (t *telegramTarget) Enabled() bool {
	return t.plugin.Enabled()
}

// URL reconstructs the instantiating URL.
// Params: none.
// Returns: raw URL the target was built from.
func (t *telegramTarget) URL() string {
	return t.raw
}

// normalizeChatID converts numeric chat IDs to int64 and keeps
// non-numeric IDs (channel names) as string.
// Params: chat id from the URL host.
// Returns: Bot API chat id union value.
func normalizeChatID(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return numeric
	}
	return trimmed
}
