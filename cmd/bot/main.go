package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mthleonn/bot-auge/internal/admin"
	"github.com/mthleonn/bot-auge/internal/api"
	"github.com/mthleonn/bot-auge/internal/bot"
	"github.com/mthleonn/bot-auge/internal/config"
	"github.com/mthleonn/bot-auge/internal/db"
	"github.com/mthleonn/bot-auge/internal/funnel"
	"github.com/mthleonn/bot-auge/internal/links"
	"github.com/mthleonn/bot-auge/internal/moderation"
	"github.com/mthleonn/bot-auge/internal/observ"
	"github.com/mthleonn/bot-auge/internal/repository/sqlite"
	"github.com/mthleonn/bot-auge/internal/telegram"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:          "bot-auge",
		Short:        "Community management bot for the Auge Traders groups",
		SilenceUsage: true,
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the bot, the funnel scheduler and the health server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	database, err := db.New(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	users := sqlite.NewUserStore(database.Gorm())
	linkStore := sqlite.NewLinkStore(database.Gorm())
	settings := sqlite.NewSettingStore(database.Gorm())

	client, err := telegram.NewClient(cfg.BotToken, cfg.SendTimeout, logger)
	if err != nil {
		return fmt.Errorf("init telegram client: %w", err)
	}

	tracker := links.NewTracker(linkStore, logger)
	filter := moderation.NewFilter(client, users, tracker, cfg.IsAdmin, moderation.Options{
		MaxLinksPerMessage:   cfg.MaxLinksPerMessage,
		MaxMessagesPerMinute: cfg.MaxMessagesPerMinute,
		MaxLinksPerDay:       cfg.MaxLinksPerDay,
		WarningTTL:           cfg.WarningTTL,
	}, logger)
	engine := funnel.NewEngine(users, client, cfg.DuvidasGroupLink, cfg.FunnelSendDelay, logger)
	admins := admin.NewRouter(users, linkStore, client, cfg.IsAdmin, cfg.BroadcastDelay, logger)
	b := bot.New(client, client, users, settings, tracker, filter, admins, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.FunnelCheckInterval), func() {
		engine.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("schedule funnel sweep: %w", err)
	}
	if _, err := scheduler.AddFunc("0 4 * * *", func() {
		tracker.Cleanup(ctx, cfg.LinkRetentionDays)
	}); err != nil {
		return fmt.Errorf("schedule link cleanup: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	health := api.NewServer(cfg.HealthPort, cfg.Env, database, logger)
	go func() {
		if err := health.Start(); err != nil {
			logger.Error("health server stopped", zap.Error(err))
		}
	}()
	defer func() {
		if err := health.Shutdown(context.Background()); err != nil {
			logger.Error("health server shutdown", zap.Error(err))
		}
	}()

	logger.Info("bot starting",
		zap.String("env", cfg.Env),
		zap.Int64("group_chat_id", cfg.GroupChatID),
		zap.Int("admins", len(cfg.AdminIDs)))

	b.Run(ctx)

	logger.Info("bot stopped")
	return nil
}
