package main

import (
	"context"
	"errors"
	"os"
	"time"

	"monthlynet/internal/amqp"
	"monthlynet/internal/cli"
	"monthlynet/internal/log"
	"monthlynet/internal/services"
	"monthlynet/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(log.DefaultConfig().Level, log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.SlogLevel(), log.ComponentWorker)

	logger.Info("Starting bill-worker")

	// The JSON file store is single-process; a second writer would race
	// with the web server.
	if cfg.DataBackend != "sqlite" {
		logger.Error("bill-worker requires DATA_BACKEND=sqlite; use EMBEDDED_WORKER=true with other backends",
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	amqpClient := cli.InitAMQP(logger, cfg)
	sender := cli.InitReminderSender(logger, cfg)
	if sender == nil {
		logger.Info("SMTP not configured - reminders will only be logged")
	}

	processor := cli.NewRolloverProcessor(logger, cfg, res.Backend, amqpClient, sender)
	scheduler, err := worker.NewScheduler(cfg.BillWorkerSchedule, processor, logger)
	if err != nil {
		logger.Error("Failed to create scheduler", log.FieldError, err)
		os.Exit(1)
	}

	// Catch up on a rollover missed while the worker was down.
	logger.Info("Performing startup run")
	_, _ = scheduler.RunNow(ctx)
	scheduler.Start()

	exporter := cli.InitSheetsExporter(ctx, logger, cfg)

	handlers := map[amqp.EventType]amqp.Handler{}
	if sender != nil {
		handlers[amqp.EventBillReminder] = services.ReminderHandler(sender, logger)
	}
	if exporter != nil {
		handlers[amqp.EventSnapshotRecorded] = services.SnapshotExportHandler(exporter, logger)
	}
	if amqpClient != nil && len(handlers) > 0 {
		go func() {
			err := amqpClient.Consume(ctx, services.RouteEvents(handlers, logger))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumer stopped", log.FieldError, err)
				stop()
			}
		}()
	} else {
		logger.Info("Skipping event consumption - AMQP, SMTP or Sheets not configured")
	}

	<-ctx.Done()

	cli.RunCleanups(logger, 30*time.Second,
		func(context.Context) error {
			if res.Cleanup == nil {
				return nil
			}
			return res.Cleanup()
		},
		func(context.Context) error {
			if amqpClient == nil {
				return nil
			}
			return amqpClient.Close()
		},
		scheduler.Stop,
	)
}
