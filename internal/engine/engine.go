// Package engine implements the debounced-aggregation and rotating-dispatch
// core: inbound text lands in the pending store, each arrival re-arms the
// owner's quiet-period timer, and when the timer fires the aggregated prompt
// is sent to the generation service with the next key from the ring.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rdenisov/gembatch/internal/debounce"
	"github.com/rdenisov/gembatch/internal/gemini"
	"github.com/rdenisov/gembatch/internal/keyring"
	"github.com/rdenisov/gembatch/internal/pending"
)

// Generator is the generation service client. Single-attempt; the engine
// never retries a failed request.
type Generator interface {
	Generate(ctx context.Context, prompt, apiKey string) (string, error)
}

// Notifier delivers a message to the user via the chat transport. Delivery
// failures are the engine's to log and swallow, never to escalate.
type Notifier interface {
	Notify(ctx context.Context, owner int64, text string) error
}

// Options configures the engine's timing and prompt behaviour.
type Options struct {
	QuietPeriod    time.Duration // delay after the last message before dispatch
	RequestTimeout time.Duration // bound on a single generation call
	PromptPrefix   string        // optional instruction prepended to every prompt
}

// Ack describes how an inbound message was absorbed.
type Ack struct {
	RequestID   string
	Merged      bool
	QuietPeriod time.Duration
}

// Engine owns the pending store, the debounce scheduler and the key ring.
// External collaborators reach it through OnText, Status and CancelAll;
// everything else happens on timer goroutines.
type Engine struct {
	opts   Options
	store  *pending.Store
	sched  *debounce.Scheduler
	keys   *keyring.Ring
	gen    Generator
	notify Notifier

	ctx context.Context // base context for dispatches, set by Start
	now func() time.Time
}

// New creates an Engine. Call Start before feeding it messages.
func New(opts Options, keys *keyring.Ring, gen Generator, notify Notifier) *Engine {
	return &Engine{
		opts:   opts,
		store:  pending.NewStore(),
		sched:  debounce.NewScheduler(),
		keys:   keys,
		gen:    gen,
		notify: notify,
		ctx:    context.Background(),
		now:    time.Now,
	}
}

// Start installs the base context used by timer-driven dispatches.
func (e *Engine) Start(ctx context.Context) {
	e.ctx = ctx
}

// Stop cancels every pending timer. Requests left in the store are ephemeral
// and die with the process.
func (e *Engine) Stop() {
	e.sched.Stop()
}

// OnText absorbs one inbound message: create or merge the owner's pending
// request, retire the superseded timer, and arm a fresh quiet-period timer
// for the new id. The retire-then-install order means a stale fire slipping
// into the gap finds Take empty and does nothing.
func (e *Engine) OnText(owner int64, text string) Ack {
	id, prevID, merged := e.store.Upsert(owner, text, e.now())
	if merged {
		e.sched.Cancel(prevID)
	}
	e.sched.Schedule(id, e.opts.QuietPeriod, func(fired string) {
		e.dispatch(owner, fired)
	})

	slog.Info("request queued",
		"owner", owner,
		"request_id", id,
		"merged", merged,
		"quiet_period", e.opts.QuietPeriod,
	)
	return Ack{RequestID: id, Merged: merged, QuietPeriod: e.opts.QuietPeriod}
}

// Status returns the owner's pending request, if any. Read-only.
func (e *Engine) Status(owner int64) (pending.Request, bool) {
	return e.store.Peek(owner)
}

// CancelAll removes the owner's pending request and its timer, returning the
// number of requests cancelled. Idempotent: nothing pending means zero, not
// an error, and no other owner's state is touched.
func (e *Engine) CancelAll(owner int64) int {
	id, removed := e.store.Clear(owner)
	if !removed {
		return 0
	}
	e.sched.Cancel(id)
	slog.Info("request cancelled", "owner", owner, "request_id", id)
	return 1
}

// dispatch runs when a quiet-period timer fires. The Take-by-id guard makes
// a fire that lost the race with a merge (or a cancel) a no-op; once past
// Take, the dispatch runs to completion even if the user cancels.
func (e *Engine) dispatch(owner int64, id string) {
	req, ok := e.store.Take(owner, id)
	if !ok {
		slog.Debug("dispatch skipped: request superseded", "owner", owner, "request_id", id)
		return
	}

	e.send(owner, fmt.Sprintf("🔄 Processing request %s…", id))

	// The key is consumed before the call; a failed call does not give it back.
	key := e.keys.Next()
	slog.Info("dispatching request",
		"owner", owner,
		"request_id", id,
		"prompt_len", len(req.Text),
		"key_cursor", e.keys.Cursor(),
	)

	prompt := req.Text
	if e.opts.PromptPrefix != "" {
		prompt = e.opts.PromptPrefix + "\n\n" + prompt
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.opts.RequestTimeout)
	defer cancel()

	text, err := e.gen.Generate(ctx, prompt, key)
	if err != nil {
		slog.Error("generation failed", "owner", owner, "request_id", id, "error", err)
		e.send(owner, failureText(id, err))
		return
	}

	slog.Info("request completed", "owner", owner, "request_id", id, "reply_len", len(text))
	e.send(owner, formatAnswer(id, text))
}

// send delivers a message best-effort. Notification failures must not abort
// dispatch bookkeeping, so they are logged and dropped here.
func (e *Engine) send(owner int64, text string) {
	if err := e.notify.Notify(e.ctx, owner, text); err != nil {
		slog.Warn("notify failed", "owner", owner, "error", err)
	}
}

// formatAnswer frames the generated text with its request id.
func formatAnswer(id, text string) string {
	return fmt.Sprintf("✨ Answer to request %s ✨\n\n%s\n\n📌 End of answer", id, text)
}

// failureText maps a classified generation error to the user-visible
// failure notice. Failure is terminal for the request either way.
func failureText(id string, err error) string {
	var upstream *gemini.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return fmt.Sprintf("❌ Request %s failed: the generation service returned status %d.", id, upstream.Status)
	case errors.Is(err, gemini.ErrMalformedResponse):
		return fmt.Sprintf("❌ Request %s failed: the generation service returned an unusable response.", id)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("❌ Request %s failed: the generation service timed out.", id)
	default:
		return fmt.Sprintf("❌ Request %s failed: could not reach the generation service.", id)
	}
}
