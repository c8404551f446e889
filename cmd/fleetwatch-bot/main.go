package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atorrez/fleetwatch/internal/alerts"
	"github.com/atorrez/fleetwatch/internal/bot"
	"github.com/atorrez/fleetwatch/internal/config"
	"github.com/atorrez/fleetwatch/internal/directory"
	"github.com/atorrez/fleetwatch/internal/docs"
	"github.com/atorrez/fleetwatch/internal/logger"
	"github.com/atorrez/fleetwatch/internal/maintenance"
	"github.com/atorrez/fleetwatch/internal/notifier"
	"github.com/atorrez/fleetwatch/internal/samsara"
	"github.com/atorrez/fleetwatch/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := directory.Open(cfg.DirectoryDBPath)
	if err != nil {
		return fmt.Errorf("opening directory db: %w", err)
	}
	defer dir.Close()

	// One session scope for the life of the service; the refresh loop
	// and every request share it.
	gateway := samsara.New(samsara.Config{
		Token:           cfg.SamsaraToken,
		BaseURL:         cfg.SamsaraBaseURL,
		CacheTTL:        cfg.CacheTTL,
		RefreshInterval: cfg.RefreshInterval,
	})
	release := gateway.Acquire()
	defer release()

	if !gateway.TestConnection(ctx) {
		log.Warn("telemetry API unreachable at startup, continuing anyway")
	}

	shop := maintenance.New(cfg.MaintenanceSheetURL, logger.Named("maintenance"))
	library := docs.NewLibrary(cfg.DocsDir)

	var tgAPI *tgbotapi.BotAPI
	if cfg.TelegramToken != "" {
		tgAPI, err = tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("initializing telegram api: %w", err)
		}
		log.Info("telegram bot authorized", zap.String("username", tgAPI.Self.UserName))
	}

	var notify notifier.Notifier
	if cfg.DryRun || tgAPI == nil {
		notify = notifier.NewDryRun(logger.Named("notifier"))
		log.Info("dry-run mode, alerts will be logged instead of sent")
	} else {
		notify = notifier.NewTelegram(tgAPI, logger.Named("notifier"))
	}

	table, err := alerts.LoadTable(cfg.AlertRoutesPath)
	if err != nil {
		if cfg.DefaultChatID == 0 {
			return fmt.Errorf("loading alert routes: %w (set ALERT_ROUTES_PATH or DEFAULT_CHAT_ID)", err)
		}
		log.Warn("alert routes unavailable, routing everything to the default chat", zap.Error(err))
		table = &alerts.Table{Default: alerts.Route{ChatID: cfg.DefaultChatID}}
	}
	router := alerts.NewRouter(table, notify, dir, logger.Named("alerts"))

	if cfg.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET not set, incoming alert deliveries will be rejected")
	}
	server := webhook.New(webhook.Config{
		Addr:    cfg.WebhookListenAddr,
		Secret:  cfg.WebhookSecret,
		Router:  router,
		Gateway: gateway,
		Logger:  logger.Named("webhook"),
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		gateway.RunRefreshLoop(ctx)
		return nil
	})

	g.Go(func() error {
		return server.Run(ctx)
	})

	if tgAPI != nil {
		commandBot := bot.New(bot.Config{
			API:       tgAPI,
			SelfID:    tgAPI.Self.ID,
			Gateway:   gateway,
			Directory: dir,
			Shop:      shop,
			Docs:      library,
			Logger:    logger.Named("bot"),
		})
		g.Go(func() error {
			return commandBot.Run(ctx)
		})
	} else {
		log.Info("no telegram token, command bot disabled")
	}

	log.Info("fleetwatch service started",
		zap.String("listen_addr", cfg.WebhookListenAddr),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("refresh_interval", cfg.RefreshInterval))

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("fleetwatch service stopped")
	return nil
}
