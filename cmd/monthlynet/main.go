package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"monthlynet/internal/cache"
	"monthlynet/internal/cli"
	"monthlynet/internal/core"
	apphttp "monthlynet/internal/http"
	"monthlynet/internal/log"
	"monthlynet/internal/services"
	"monthlynet/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(log.DefaultConfig().Level, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.SlogLevel(), log.ComponentApp)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	st := res.Backend

	amqpClient := cli.InitAMQP(logger, cfg)
	var events services.EventPublisher
	if amqpClient != nil {
		events = amqpClient
	}

	collab := cli.InitCollaborator(ctx, logger, cfg)

	insights := cache.NewLRUCache[core.InsightResponse](64, cfg.InsightCacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(insights)
	cacheManager.StartCleanup(ctx, 5*time.Minute)

	networth := services.NewNetWorthService(st, st, collab, insights, events, logger)
	bills := services.NewBillService(st, events, logger)

	var scheduler *worker.Scheduler
	if cfg.EmbeddedWorker {
		sender := cli.InitReminderSender(logger, cfg)
		processor := cli.NewRolloverProcessor(logger, cfg, st, amqpClient, sender)
		var err error
		scheduler, err = worker.NewScheduler(cfg.BillWorkerSchedule, processor, logger)
		if err != nil {
			logger.Error("Failed to create bill scheduler", log.FieldError, err)
			os.Exit(1)
		}
		_, _ = scheduler.RunNow(ctx)
		scheduler.Start()
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		NetWorth:       networth,
		Bills:          bills,
		Logger:         logger,
		Ready:          res.Ready,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		logger.Info("Starting MonthlyNet server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"ai_enabled", collab.Enabled(),
			"amqp_enabled", amqpClient != nil,
			"embedded_worker", scheduler != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			stop()
		}
	}()

	<-ctx.Done()

	cleanups := []func(context.Context) error{
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
		func(context.Context) error {
			cacheManager.Stop()
			return nil
		},
	}
	if scheduler != nil {
		cleanups = append(cleanups, scheduler.Stop)
	}
	cleanups = append(cleanups, srv.Shutdown)
	cli.RunCleanups(logger, 30*time.Second, cleanups...)
}
