package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/relaybot/internal/bot"
	"github.com/edgard/relaybot/internal/bot/handlers"
	"github.com/edgard/relaybot/internal/bot/tasks"
	"github.com/edgard/relaybot/internal/completion"
	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/logger"
	"github.com/edgard/relaybot/internal/telegram"
	"github.com/edgard/relaybot/internal/usercontext"
)

type options struct {
	configPath string
	envFile    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "relaybot",
		Short:         "Telegram bot that relays messages to a chat-completion API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "./config.yaml", "Path to configuration file (optional).")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file loaded before reading the environment (optional).")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Override logger.level: debug|info|warn|error.")

	return cmd
}

// newStore builds the configured user context store and its cleanup function.
func newStore(cfg *config.Config, log *slog.Logger) (usercontext.Store, func(), error) {
	switch cfg.Store.Backend {
	case "sqlite":
		db, err := database.NewDB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open context database: %w", err)
		}
		return database.NewContextStore(db, log), func() { database.CloseDB(db) }, nil
	default:
		return usercontext.NewMemoryStore(), func() {}, nil
	}
}

// run wires every component and blocks until ctx is cancelled or a component fails.
// Configuration errors are returned before anything contacts Telegram.
func run(ctx context.Context, opts *options) error {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		slog.Error("Failed to load env file", "path", opts.envFile, "error", err)
		return err
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", opts.configPath, "error", err)
		return err
	}
	if opts.logLevel != "" {
		cfg.Logger.Level = opts.logLevel
		if err := cfg.Validate(); err != nil {
			slog.Error("Invalid --log-level", "level", opts.logLevel, "error", err)
			return err
		}
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	store, closeStore, err := newStore(cfg, log)
	if err != nil {
		log.Error("Failed to initialize context store", "backend", cfg.Store.Backend, "error", err)
		return err
	}
	defer closeStore()
	log.Info("Context store ready", "backend", cfg.Store.Backend)

	completionClient, err := completion.NewClient(cfg.Completion, log)
	if err != nil {
		log.Error("Failed to initialize completion client", "error", err)
		return err
	}

	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Store:      store,
		Completion: completionClient,
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log), handlers.Recover(hDeps)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return err
	}

	// Retrieve bot info and store it in the config for runtime use
	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return err
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return err
	}
	if err := telegram.SetCommands(ctx, tg, log, cmdHandlers); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}
	app := bot.NewBot(log, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return runErr
	}

	log.Info("Bot stopped gracefully.")
	return nil
}
