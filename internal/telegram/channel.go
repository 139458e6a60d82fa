// Package telegram connects the aggregation engine to the Telegram Bot API
// using long polling.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"

	"github.com/rdenisov/gembatch/internal/engine"
)

// Channel receives Telegram updates and feeds text messages and commands
// into the engine.
type Channel struct {
	bot    *telego.Bot
	engine *engine.Engine
	sender *Sender
}

// NewChannel creates a Channel over a connected bot.
func NewChannel(bot *telego.Bot, eng *engine.Engine, sender *Sender) *Channel {
	return &Channel{bot: bot, engine: eng, sender: sender}
}

// Run starts long polling and blocks until the context is cancelled or the
// updates stream closes.
func (c *Channel) Run(ctx context.Context) error {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	slog.Info("telegram bot connected", "username", c.bot.Username())

	go c.syncMenuCommands(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				slog.Info("telegram updates channel closed")
				return nil
			}
			if update.Message != nil {
				c.handleMessage(ctx, update.Message)
			}
		}
	}
}

// syncMenuCommands registers the bot menu with Telegram, retrying a few
// times since this races the first getUpdates call on slow networks.
func (c *Channel) syncMenuCommands(ctx context.Context) {
	commands := []telego.BotCommand{
		{Command: "start", Description: "What this bot does"},
		{Command: "help", Description: "How batching works"},
		{Command: "status", Description: "Show your pending request"},
		{Command: "cancel", Description: "Cancel your pending request"},
	}

	for attempt := 1; attempt <= 3; attempt++ {
		err := c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands})
		if err == nil {
			slog.Info("telegram menu commands synced")
			return
		}
		slog.Warn("failed to sync telegram menu commands", "error", err, "attempt", attempt)
		if attempt < 3 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt*5) * time.Second):
			}
		}
	}
}
