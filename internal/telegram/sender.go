package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"
)

// Telegram allows roughly 30 messages per second bot-wide; staying under
// that avoids 429s without queueing on our side.
const (
	sendRate  = 25
	sendBurst = 5
)

// Sender delivers engine output to Telegram chats. It throttles outbound
// sends so a burst of simultaneous dispatches cannot trip the Bot API
// rate limit.
type Sender struct {
	bot     *telego.Bot
	limiter *rate.Limiter
}

// NewSender creates a Sender around a connected bot.
func NewSender(bot *telego.Bot) *Sender {
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(sendRate), sendBurst),
	}
}

// Notify sends a plain text message to the owner's chat. Errors are returned
// to the caller, who decides whether they matter; the engine logs and drops
// them.
func (s *Sender) Notify(ctx context.Context, owner int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: rate wait: %w", err)
	}
	if _, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(owner), text)); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}
