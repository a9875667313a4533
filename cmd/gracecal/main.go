package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gracecal/internal/auth"
	"gracecal/internal/config"
	appLog "gracecal/internal/log"
	"gracecal/internal/notify"
	"gracecal/internal/scheduler"
	"gracecal/internal/storage"
	"gracecal/internal/store"
	"gracecal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	dryRun     bool
	verbose    bool
}

func main() {
	flags := parseFlags()
	if flags.verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("gracecal starting", "version", "0.1.0")

	// Secrets (webhook URL) may live in a .env file next to the binary.
	_ = godotenv.Load()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone in config", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"reminder_cron", conf.ReminderCron,
		"reminder_days", conf.ReminderDays,
		"data_path", conf.DataPath,
		"managers", len(conf.Managers),
		"webhook_configured", conf.WebhookURL != "",
		"once", flags.once,
		"dry_run", flags.dryRun,
	)

	persist, err := storage.NewJSONFile(conf.DataPath)
	if err != nil {
		appLog.Error("failed to initialize storage", err, "data_path", conf.DataPath)
		os.Exit(1)
	}

	st, seeded, err := store.Open(persist)
	if err != nil {
		appLog.Error("failed to open calendar store", err, "data_path", conf.DataPath)
		os.Exit(1)
	}
	if seeded {
		appLog.Info("empty calendar seeded with annual plan", "events", len(st.ListEvents()))
	}

	allowList := auth.NewAllowList(conf.Managers)
	if allowList.Size() == 0 {
		appLog.Info("manager allow-list is empty; reviews and event creation will be rejected")
	}

	var notifier notify.Notifier = notify.Discard{}
	if !flags.dryRun && conf.WebhookURL != "" {
		notifier, err = notify.NewWebhook(conf.WebhookURL)
		if err != nil {
			appLog.Error("failed to initialize webhook notifier", err)
			os.Exit(1)
		}
	}

	sched := scheduler.New(st, notifier, scheduler.RealClock{}, loc, conf.ReminderDays)
	// Without a delivery destination, run the scheduler in dry-run so
	// due reminders are not marked as sent while nobody receives them.
	if flags.dryRun || conf.WebhookURL == "" {
		appLog.Info("reminders will be logged, not delivered", "dry_run", flags.dryRun, "webhook_configured", conf.WebhookURL != "")
		sched.SetDryRun(true)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		sched.Tick(ctx)
		appLog.Info("gracecal exiting (single tick)")
		return
	}

	server := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, st, allowList, loc).Handler(),
	}

	errCh := make(chan error, 2)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := sched.Run(ctx, conf.ReminderCron); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		appLog.Error("fatal component error", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}
	if err := st.Flush(); err != nil {
		appLog.Error("final calendar save failed", err)
	}
	appLog.Info("gracecal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one reminder scan and exit")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Scan reminders without delivering them")
	flag.BoolVar(&cfg.verbose, "v", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
