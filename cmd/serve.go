package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mymmrac/telego"
	"golang.org/x/sync/errgroup"

	"github.com/rdenisov/gembatch/internal/config"
	"github.com/rdenisov/gembatch/internal/engine"
	"github.com/rdenisov/gembatch/internal/gemini"
	"github.com/rdenisov/gembatch/internal/keyring"
	"github.com/rdenisov/gembatch/internal/telegram"
)

func runServe() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Configuration errors are fatal: running without a token or with an
	// empty key pool is never valid, and checking here keeps key rotation
	// total at runtime.
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	keys, err := keyring.New(cfg.Gemini.APIKeys)
	if err != nil {
		slog.Error("failed to build key ring", "error", err)
		os.Exit(1)
	}

	bot, err := telego.NewBot(cfg.Telegram.Token)
	if err != nil {
		slog.Error("failed to create telegram bot", "error", err)
		os.Exit(1)
	}

	sender := telegram.NewSender(bot)
	client := gemini.New(cfg.Gemini.APIBase, cfg.Gemini.Model)

	eng := engine.New(engine.Options{
		QuietPeriod:    cfg.QuietPeriod(),
		RequestTimeout: cfg.RequestTimeout(),
		PromptPrefix:   cfg.Batch.PromptPrefix,
	}, keys, client, sender)

	channel := telegram.NewChannel(bot, eng, sender)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng.Start(ctx)
	defer eng.Stop()

	slog.Info("starting gembatch",
		"keys", keys.Len(),
		"model", cfg.Gemini.Model,
		"quiet_period", cfg.QuietPeriod(),
		"request_timeout", cfg.RequestTimeout(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return channel.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}
