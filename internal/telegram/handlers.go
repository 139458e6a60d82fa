package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mymmrac/telego"
)

// previewWidth is the display width of the text preview in /status output.
const previewWidth = 50

// handleMessage processes one incoming Telegram message. Only private chats
// are served: aggregation is keyed by sender, and replies go to the same
// chat, which in a group would interleave different users' batches.
func (c *Channel) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil {
		return
	}
	if msg.Chat.Type != "private" {
		slog.Debug("non-private chat skipped", "chat_id", msg.Chat.ID, "chat_type", msg.Chat.Type)
		return
	}

	owner := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	slog.Debug("telegram message received",
		"owner", owner,
		"username", msg.From.Username,
		"preview", truncatePreview(text),
	)

	if text == "" {
		c.reply(ctx, owner, "❌ Please send text to process.")
		return
	}

	if strings.HasPrefix(text, "/") && c.handleCommand(ctx, owner, text) {
		return
	}

	// Everything else, unknown commands included, is prompt text.
	ack := c.engine.OnText(owner, text)
	c.reply(ctx, owner, confirmationText(ack.RequestID, ack.Merged, ack.QuietPeriod.String()))
}

// handleCommand intercepts the known bot commands. Returns false for
// anything else so the message falls through to the engine.
func (c *Channel) handleCommand(ctx context.Context, owner int64, text string) bool {
	switch parseCommand(text) {
	case "/start":
		c.reply(ctx, owner, startText)
		return true

	case "/help":
		c.reply(ctx, owner, helpText)
		return true

	case "/status":
		req, ok := c.engine.Status(owner)
		if !ok {
			c.reply(ctx, owner, "✅ You have no pending requests.")
			return true
		}
		c.reply(ctx, owner, fmt.Sprintf(
			"📋 Your pending request:\n\n"+
				"• ID: %s\n"+
				"  Text: %s\n"+
				"  Created: %s\n"+
				"  Status: ⏳ Awaiting processing",
			req.ID,
			truncatePreview(req.Text),
			req.CreatedAt.Format("15:04:05"),
		))
		return true

	case "/cancel":
		n := c.engine.CancelAll(owner)
		if n == 0 {
			c.reply(ctx, owner, "❌ No requests to cancel.")
		} else {
			c.reply(ctx, owner, fmt.Sprintf("✅ Cancelled %d request(s).", n))
		}
		return true
	}

	return false
}

// parseCommand extracts the lowercase command name, dropping arguments and
// the @botname suffix Telegram appends in some clients.
func parseCommand(text string) string {
	cmd := strings.SplitN(text, " ", 2)[0]
	cmd = strings.SplitN(cmd, "@", 2)[0]
	return strings.ToLower(cmd)
}

// reply sends through the throttled sender; failures are logged only,
// per the notification policy.
func (c *Channel) reply(ctx context.Context, owner int64, text string) {
	if err := c.sender.Notify(ctx, owner, text); err != nil {
		slog.Warn("telegram reply failed", "owner", owner, "error", err)
	}
}

// truncatePreview flattens newlines and truncates to the preview width by
// display width, so wide characters don't overflow the status line.
func truncatePreview(s string) string {
	flat := strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(flat, previewWidth, "…")
}

// confirmationText acknowledges an accepted message. Merges read
// differently so the user knows the follow-up was folded in rather than
// queued separately.
func confirmationText(id string, merged bool, quiet string) string {
	if merged {
		return fmt.Sprintf(
			"✅ Added to your pending request.\n\n"+
				"📝 Request ID: %s\n"+
				"🕐 Processing starts %s after your last message.",
			id, quiet,
		)
	}
	return fmt.Sprintf(
		"✅ Request received!\n\n"+
			"📝 Request ID: %s\n"+
			"🕐 Processing starts in %s…\n"+
			"✏️ You can send follow-ups until then; they will be merged in.\n\n"+
			"Use /status to check state.\n"+
			"Use /cancel to cancel.",
		id, quiet,
	)
}

const startText = "🤖 Hi! I'm a Gemini-backed copywriting bot.\n\n" +
	"📝 Send me text and I will:\n" +
	"1. Assign your request a unique ID\n" +
	"2. Wait a short while for follow-up clarifications\n" +
	"3. Merge everything you sent into one request\n" +
	"4. Reply with the answer tagged by request ID\n\n" +
	"💡 Send some text to get started!\n\n" +
	"Commands:\n" +
	"/start — start\n" +
	"/help — help\n" +
	"/status — pending request status\n" +
	"/cancel — cancel pending requests"

const helpText = "📚 How this bot works:\n\n" +
	"• Just send text — processing starts automatically\n" +
	"• Each request gets a unique ID\n" +
	"• The bot waits a quiet period before dispatching, so rapid\n" +
	"  follow-ups are merged into a single request\n" +
	"• Answers arrive tagged with the request ID\n" +
	"• Different users' requests are handled independently\n\n" +
	"❓ Example: send \"Write an ad for a coffee shop\"\n\n" +
	"/status — show your pending request\n" +
	"/cancel — cancel all pending requests"
