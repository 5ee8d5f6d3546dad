package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/mailbot/internal/calendar"
	"github.com/iambrandonn/mailbot/internal/deliver"
	"github.com/iambrandonn/mailbot/internal/eventlog"
	"github.com/iambrandonn/mailbot/internal/handler"
	"github.com/iambrandonn/mailbot/internal/intent"
	"github.com/iambrandonn/mailbot/internal/llm"
	"github.com/iambrandonn/mailbot/internal/orchestrator"
	"github.com/iambrandonn/mailbot/internal/reminder"
	"github.com/iambrandonn/mailbot/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the agent loop",
	Long: `Start the polling loop: re-arm persisted reminders, then repeatedly pick
up pending tasks, classify them and dispatch to intent handlers. Runs until
interrupted; reminders survive the restart.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stdout, slog.LevelInfo)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Info("configuration loaded",
		"data_dir", cfg.DataDir,
		"model", cfg.LLMModel,
		"poll_interval", cfg.PollInterval)

	if cfg.LLMAPIKey == "" {
		logger.Warn("no API key configured; classification calls will fail")
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "tasks"), logger)
	if err != nil {
		return err
	}

	remStore, err := reminder.OpenStore(filepath.Join(cfg.DataDir, "reminders"), logger)
	if err != nil {
		return err
	}

	eventLogPath := filepath.Join(cfg.DataDir, "events.ndjson")
	audit, err := eventlog.Open(eventLogPath, logger)
	if err != nil {
		return err
	}
	defer audit.Close()

	deliverer := deliver.NewConsole(cmd.OutOrStdout())
	gen := llm.NewGemini(cfg.LLMAPIKey, cfg.LLMModel)
	loc := cfg.Location()
	classifier := intent.NewClassifier(gen, cfg.ClassifyTimeout, loc, logger)

	reminders := reminder.NewScheduler(remStore, deliverer, cfg.ReminderRetry, loc, logger)
	reminders.SetFireHook(func(r *reminder.Reminder, ferr error) {
		if ferr != nil {
			return
		}
		rec := eventlog.Record{
			Kind:   eventlog.KindReminderFired,
			Detail: r.Message,
			At:     time.Now().UTC().Format(time.RFC3339),
		}
		if aerr := audit.Append(rec); aerr != nil {
			logger.Warn("failed to record reminder firing", "error", aerr)
		}
	})

	services := &handler.Services{
		Config:       cfg,
		Deliverer:    deliverer,
		Calendar:     calendar.NewInMemory(),
		Generator:    gen,
		Reminders:    reminders,
		Store:        st,
		Audit:        audit,
		EventLogPath: eventLogPath,
		Logger:       logger,
	}

	registry := handler.Builtin(logger)

	// Reminders first: overdue records fire as soon as possible after a
	// restart, before the first poll cycle completes.
	if err := reminders.Start(); err != nil {
		return err
	}
	defer reminders.Stop()

	orch := orchestrator.New(st, classifier, registry, services, audit,
		cfg.MaxTaskRetries, cfg.PollInterval, logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return orch.Run(ctx)
}
