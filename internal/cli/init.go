// Package cli provides common initialization shared by cmd/monthlynet and
// cmd/bill-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monthlynet/internal/ai"
	"monthlynet/internal/amqp"
	"monthlynet/internal/backend"
	"monthlynet/internal/config"
	"monthlynet/internal/log"
	"monthlynet/internal/notify"
	"monthlynet/internal/services"
	"monthlynet/internal/sheets"
	"monthlynet/internal/store"

	"github.com/joho/godotenv"
)

// SetupLogger builds a text logger at level for component and installs it as
// the slog default.
func SetupLogger(level slog.Level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     level,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured store or exits the process.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "type", bc.Type)
		os.Exit(1)
	}
	return res
}

// InitAMQP connects to the broker when configured. A connection failure
// is logged and the app continues without events.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP disabled - events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// InitCollaborator returns a Gemini collaborator, or Disabled when no key is
// configured or the client cannot be built.
func InitCollaborator(ctx context.Context, logger *log.Logger, cfg *config.Config) ai.Collaborator {
	if !cfg.AIEnabled() {
		logger.Info("No Gemini API key configured - AI features disabled")
		return ai.Disabled{}
	}
	g, err := ai.New(ctx, ai.Options{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.AITimeout,
		Logger:  logger.WithComponent(log.ComponentAI),
	})
	if err != nil {
		logger.Warn("Failed to initialize Gemini client, AI features disabled", log.FieldError, err)
		return ai.Disabled{}
	}
	return g
}

// InitReminderSender returns an SMTP sender, or nil when email is not configured.
func InitReminderSender(logger *log.Logger, cfg *config.Config) *notify.Sender {
	if !cfg.EmailEnabled() {
		return nil
	}
	return notify.NewSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.ReminderFrom,
		To:       cfg.ReminderTo,
	}, logger)
}

// InitSheetsExporter returns a Google Sheets exporter, or nil when no
// spreadsheet is configured or the client cannot be built.
func InitSheetsExporter(ctx context.Context, logger *log.Logger, cfg *config.Config) *sheets.Exporter {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil
	}
	exp, err := sheets.New(ctx, sheets.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
		Logger:          logger,
	})
	if err != nil {
		logger.Warn("Failed to initialize Google Sheets client, export disabled", log.FieldError, err)
		return nil
	}
	if err := exp.EnsureHeader(ctx); err != nil {
		logger.Warn("Could not prepare spreadsheet header", log.FieldError, err)
	}
	logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	return exp
}

// NewRolloverProcessor wires the bill worker job. When an AMQP client is
// present reminders travel as events and the consumer sends the email, so
// the processor gets no direct sender.
func NewRolloverProcessor(logger *log.Logger, cfg *config.Config, st store.Store, events *amqp.Client, sender *notify.Sender) *services.RolloverProcessor {
	var pub services.EventPublisher
	if events != nil {
		pub = events
	}
	var direct services.ReminderSender
	if sender != nil && events == nil {
		direct = sender
	}
	return services.NewRolloverProcessor(st, st, direct, pub, services.RolloverOptions{
		AutoReset:    cfg.AutoResetBills,
		ReminderDays: cfg.ReminderDays,
	}, logger)
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
	}()
	return ctx, stop
}

// RunCleanups runs fns in reverse order, bounded by timeout overall.
func RunCleanups(logger *log.Logger, timeout time.Duration, fns ...func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for i := len(fns) - 1; i >= 0; i-- {
		if fns[i] == nil {
			continue
		}
		if err := fns[i](ctx); err != nil {
			logger.Warn("Cleanup step failed", log.FieldError, err)
		}
	}
	logger.Info("Shutdown complete")
}
