// Cascade Orchestrator — выполняет задания развёртывания стеков.
//
// Orchestrator:
//   - Запускает задания из JOB_DEFINITIONS_DIR и продолжает прерванные после рестарта
//   - Получает новые задания из RabbitMQ (job.submitted) и из БД (polling)
//   - Проводит каждый стек через создание и опрос до финального статуса
//   - Принимает сигналы завершения на PUT /signals/{token}
//   - Публикует события step.finished / deployment.finished
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/Cascade/internal/cloud"
	"github.com/shaiso/Cascade/internal/config"
	"github.com/shaiso/Cascade/internal/mq"
	"github.com/shaiso/Cascade/internal/orchestrator"
	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/service"
	"github.com/shaiso/Cascade/internal/tasks"
	"github.com/shaiso/Cascade/internal/telemetry"
	"github.com/shaiso/Cascade/internal/waitcond"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		telemetry.SetupLogger().Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting cascade-orchestrator")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	journal := repo.NewJournal(pool)

	// RabbitMQ
	var mqConn *mq.Connection
	var events orchestrator.Notifier

	mqConn, err = mq.NewConnection(mq.ConnectionConfig{URL: cfg.RabbitMQURL, Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		events = mq.NewEventNotifier(mq.NewPublisher(mqConn, logger), logger)
	}

	// Ожидающая сторона для токенов daemon
	supervisor := waitcond.New(logger)

	// Обработчики шагов
	clients := cloud.NewClientSet()
	handlers := tasks.Handlers{
		Preparer: cloud.NewVPCPreparer(clients),
		Launcher: cloud.NewStackLauncher(clients, tasks.NewTemplateFetcher(nil)),
		Monitor:  cloud.NewStackMonitor(clients),
		Signaler: tasks.NewHTTPSignaler(tasks.HTTPSignalerConfig{Logger: logger}),
	}

	orch := orchestrator.New(orchestrator.Config{
		Handlers:          handlers,
		Journal:           journal,
		Notifier:          service.NewNotifier(supervisor, cfg.SignalBaseURL, events),
		PollInterval:      cfg.PollInterval,
		CallTimeout:       cfg.CallTimeout,
		MaxNotFoundPolls:  cfg.MaxNotFoundPolls,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		Logger:            logger,
	})

	daemon := service.New(service.Config{
		Orchestrator:   orch,
		Deployments:    journal.Deployments,
		Steps:          journal.Steps,
		Supervisor:     supervisor,
		Conn:           mqConn,
		DefinitionsDir: cfg.JobDefinitionsDir,
		SignalBaseURL:  cfg.SignalBaseURL,
		PollInterval:   cfg.DBPollInterval,
		Logger:         logger,
	})

	if err := daemon.Start(ctx); err != nil {
		logger.Error("failed to start daemon", "error", err)
		os.Exit(1)
	}

	// HTTP: /healthz, /metrics, /signals/{token}
	addr := ":" + cfg.OrchPort
	server := &http.Server{
		Addr:              addr,
		Handler:           daemon.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Незавершённые шаги остаются в журнале до следующего старта
	daemon.Stop()
	logger.Info("cascade-orchestrator stopped")
}
