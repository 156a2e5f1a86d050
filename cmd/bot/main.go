// Package main contains the entrypoint for the KawanBot LINE bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgard/kawanbot/internal/ai"
	"github.com/edgard/kawanbot/internal/bot"
	"github.com/edgard/kawanbot/internal/bot/tasks"
	"github.com/edgard/kawanbot/internal/config"
	"github.com/edgard/kawanbot/internal/database"
	"github.com/edgard/kawanbot/internal/gemini"
	"github.com/edgard/kawanbot/internal/i18n"
	"github.com/edgard/kawanbot/internal/line"
	"github.com/edgard/kawanbot/internal/logger"
	"github.com/edgard/kawanbot/internal/maps"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger,
// db, AI clients, webhook transport, scheduler), handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	catalog, err := i18n.NewCatalog()
	if err != nil {
		log.Error("Failed to build message catalog", "error", err)
		return 1
	}

	completer, err := ai.NewClient(cfg.AI, cfg.Bot, log)
	if err != nil {
		log.Error("Failed to initialize AI client", "error", err)
		return 1
	}

	translator, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	finder, err := maps.NewFinder(cfg.Maps.APIKey, log)
	if err != nil {
		log.Error("Failed to initialize maps client", "error", err)
		return 1
	}

	responder := bot.NewResponder(bot.ResponderDeps{
		Logger:     log,
		Config:     cfg,
		Store:      store,
		Completer:  completer,
		Translator: translator,
		Places:     finder,
		Catalog:    catalog,
	})

	handler, err := line.NewHandler(line.HandlerConfig{
		ChannelSecret: cfg.Line.ChannelSecret,
		ChannelToken:  cfg.Line.ChannelToken,
		Logger:        log,
		Responder:     responder,
		// Leave room past the AI timeout for storage and reply delivery
		EventTimeout: cfg.AI.Timeout + 30*time.Second,
	})
	if err != nil {
		log.Error("Failed to create webhook handler", "error", err)
		return 1
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           line.NewRouter(log, handler, store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, db, store, server, handler, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx) // Run blocks until context is cancelled or an error occurs
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
