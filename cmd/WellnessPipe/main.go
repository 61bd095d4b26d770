package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/BTreeMap/WellnessPipe/internal/api"
	"github.com/BTreeMap/WellnessPipe/internal/config"
	"github.com/BTreeMap/WellnessPipe/internal/genai"
	"github.com/BTreeMap/WellnessPipe/internal/handlers"
	"github.com/BTreeMap/WellnessPipe/internal/hooks"
	"github.com/BTreeMap/WellnessPipe/internal/notify"
	"github.com/BTreeMap/WellnessPipe/internal/router"
	"github.com/BTreeMap/WellnessPipe/internal/scheduler"
	"github.com/BTreeMap/WellnessPipe/internal/session"
	"github.com/BTreeMap/WellnessPipe/internal/specialist"
	"github.com/BTreeMap/WellnessPipe/internal/store"
)

func main() {
	initializeLogger()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	apiAddr := flag.String("api-addr", cfg.APIAddr, "HTTP listen address")
	dbDSN := flag.String("db-dsn", cfg.DatabaseURL, "database DSN (empty = in-memory, postgres:// = PostgreSQL, otherwise SQLite path)")
	openaiKey := flag.String("openai-api-key", cfg.OpenAIKey, "OpenAI API key")
	flag.Parse()

	st, err := store.New(*dbDSN)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	var gen genai.ClientInterface
	if *openaiKey != "" {
		client, err := genai.NewClient(*openaiKey)
		if err != nil {
			slog.Error("Failed to initialize GenAI client", "error", err)
			os.Exit(1)
		}
		gen = client
	} else {
		slog.Warn("OPENAI_API_KEY not set, general chat falls back to canned replies")
	}

	notifier := buildNotifier(cfg)
	reminders := scheduler.NewReminderService(scheduler.NewSimpleTimer(), notifier, st)
	defer reminders.Stop()
	if err := reminders.Recover(context.Background()); err != nil {
		slog.Warn("Reminder recovery failed", "error", err)
	}

	hookReg := hooks.NewRegistry()
	hookReg.Register(hooks.AfterOutput, hooks.NewStoreSink(st))

	rt := router.New(cfg, handlers.NewRegistry(reminders), specialist.NewRegistry(), hookReg, gen)
	sessions := session.NewManager(st, cfg.ChatHistoryCap)

	slog.Info("Bootstrapping WellnessPipe",
		"api_addr", *apiAddr,
		"dsn_set", *dbDSN != "",
		"genai_enabled", gen != nil)
	if err := api.NewServer(rt, sessions).Run(*apiAddr); err != nil {
		slog.Error("WellnessPipe failed to run", "error", err)
		os.Exit(1)
	}
}

// initializeLogger sets up structured logging.
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// buildNotifier selects Twilio SMS delivery when credentials are configured,
// falling back to log-only delivery.
func buildNotifier(cfg *config.Config) notify.Notifier {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
		slog.Warn("Twilio not configured, reminders are logged only")
		return notify.NewLogNotifier()
	}
	n, err := notify.NewTwilioNotifier(
		notify.WithAccountSID(cfg.TwilioAccountSID),
		notify.WithAuthToken(cfg.TwilioAuthToken),
		notify.WithFromNumber(cfg.TwilioFromNumber),
	)
	if err != nil {
		slog.Warn("Twilio initialization failed, reminders are logged only", "error", err)
		return notify.NewLogNotifier()
	}
	return n
}
