package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Cascade/internal/definition"
	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/mq"
	"github.com/shaiso/Cascade/internal/orchestrator"
	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/waitcond"
)

// Default configuration values.
const (
	defaultDBPollInterval = 5 * time.Second
	defaultBatchSize      = 100
)

// DeploymentStore — хранилище deployments, нужное daemon.
type DeploymentStore interface {
	Create(ctx context.Context, d *domain.Deployment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error)
	ListByStatus(ctx context.Context, status domain.DeploymentStatus, limit int) ([]domain.Deployment, error)
	Claim(ctx context.Context, d *domain.Deployment) error
	MarkTimedOut(ctx context.Context, d *domain.Deployment, reason string) error
}

// StepStore — хранилище записей шагов.
type StepStore interface {
	ListByDeployment(ctx context.Context, deploymentID uuid.UUID) ([]*domain.StepRecord, error)
}

// Daemon — долгоживущий процесс orchestrator.
//
// Daemon:
//   - Запускает задания из каталога определений при старте
//   - Продолжает RUNNING deployments после рестарта
//   - Получает новые deployments из RabbitMQ (job.submitted)
//   - Периодически проверяет PENDING deployments в БД (polling fallback)
//   - Принимает сигналы завершения и следит за таймаутом заданий
type Daemon struct {
	orch        *orchestrator.Orchestrator
	deployments DeploymentStore
	steps       StepStore
	supervisor  *waitcond.Supervisor
	conn        *mq.Connection

	definitionsDir string
	signalBaseURL  string
	pollInterval   time.Duration
	batchSize      int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Daemon.
type Config struct {
	// Orchestrator — исполнитель заданий. Его Notifier строится через
	// NewNotifier с тем же Supervisor, иначе условия не освобождаются.
	Orchestrator *orchestrator.Orchestrator

	Deployments DeploymentStore
	Steps       StepStore

	// Supervisor — ожидающая сторона для токенов, которые выдаёт daemon.
	Supervisor *waitcond.Supervisor

	// Conn — соединение с RabbitMQ (может быть nil: только polling).
	Conn *mq.Connection

	// DefinitionsDir — каталог определений заданий (может быть пуст).
	DefinitionsDir string

	// SignalBaseURL — внешний адрес daemon; токен задания: <base>/signals/<deployment id>.
	SignalBaseURL string

	// PollInterval — интервал проверки PENDING deployments (default: 5s).
	PollInterval time.Duration

	// BatchSize — сколько deployments забирать за один poll (default: 100).
	BatchSize int

	Logger *slog.Logger
}

// New создаёт Daemon.
func New(cfg Config) *Daemon {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultDBPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	supervisor := cfg.Supervisor
	if supervisor == nil {
		supervisor = waitcond.New(logger)
	}

	return &Daemon{
		orch:           cfg.Orchestrator,
		deployments:    cfg.Deployments,
		steps:          cfg.Steps,
		supervisor:     supervisor,
		conn:           cfg.Conn,
		definitionsDir: cfg.DefinitionsDir,
		signalBaseURL:  strings.TrimRight(cfg.SignalBaseURL, "/"),
		pollInterval:   pollInterval,
		batchSize:      batchSize,
		logger:         logger,
	}
}

// Start запускает daemon.
//
// Порядок: orchestrator → продолжение RUNNING → задания из каталога →
// consumer job.submitted → polling.
func (d *Daemon) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancelFunc = cancel

	// 1. Orchestrator без начальных заданий: их поставляет daemon
	if _, err := d.orch.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("start orchestrator: %w", err)
	}

	// 2. Продолжаем прерванные deployments
	if err := d.resumeRunning(ctx); err != nil {
		d.logger.Error("failed to resume running deployments", "error", err)
	}

	// 3. Задания из каталога определений
	if d.definitionsDir != "" {
		if err := d.submitDefinitions(ctx); err != nil {
			cancel()
			return err
		}
	}

	// 4. Consumer job.submitted
	if d.conn != nil {
		consumer := mq.NewConsumer(d.conn, d.logger, mq.ConsumerConfig{
			Queue:    mq.QueueJobsSubmitted,
			Handler:  d.handleJobSubmitted,
			Prefetch: 10,
		})

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Error("job consumer error", "error", err)
			}
		}()
	}

	// 5. Polling
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.pollLoop(ctx)
	}()

	d.logger.Info("daemon started",
		"definitions_dir", d.definitionsDir,
		"signal_base_url", d.signalBaseURL,
		"poll_interval", d.pollInterval,
		"mq", d.conn != nil,
	)
	return nil
}

// Stop останавливает daemon. Незавершённые шаги остаются в журнале для продолжения.
func (d *Daemon) Stop() {
	d.logger.Info("stopping daemon...")

	if d.cancelFunc != nil {
		d.cancelFunc()
	}
	d.wg.Wait()
	d.orch.Stop()

	d.logger.Info("daemon stopped")
}

// Handler возвращает HTTP mux daemon: /healthz, /metrics, PUT /signals/{token}.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("PUT /signals/{token}", d.supervisor.Handler())
	return mux
}

// submitDefinitions создаёт и запускает deployments для каталога определений.
func (d *Daemon) submitDefinitions(ctx context.Context) error {
	jobs, err := definition.Discover(d.definitionsDir)
	if err != nil {
		return fmt.Errorf("load job definitions: %w", err)
	}

	d.logger.Info("job definitions loaded", "dir", d.definitionsDir, "jobs", len(jobs))

	for _, job := range jobs {
		dep := domain.NewDeployment(job)
		if err := d.deployments.Create(ctx, dep); err != nil {
			return fmt.Errorf("create deployment for %s: %w", job.ModuleName, err)
		}
		if err := d.process(ctx, dep); err != nil {
			d.logger.Error("failed to start deployment", "module", job.ModuleName, "error", err)
		}
	}
	return nil
}

// handleJobSubmitted обрабатывает job.submitted.
func (d *Daemon) handleJobSubmitted(ctx context.Context, msg *mq.Message) error {
	payload, err := mq.ParsePayload[mq.JobSubmittedPayload](msg)
	if err != nil {
		return err
	}

	dep, err := d.deployments.GetByID(ctx, payload.DeploymentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: deployment %s", mq.ErrPermanent, payload.DeploymentID)
		}
		return fmt.Errorf("get deployment: %w", err)
	}

	if dep.Status != domain.DeploymentStatusPending {
		d.logger.Debug("deployment not pending, skipping", "deployment_id", dep.ID, "status", dep.Status)
		return nil
	}

	return d.process(ctx, dep)
}

// pollLoop — цикл polling для fallback.
func (d *Daemon) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу: подхватываем созданные, пока daemon был выключен
	d.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

// poll запускает PENDING deployments.
func (d *Daemon) poll(ctx context.Context) {
	pending, err := d.deployments.ListByStatus(ctx, domain.DeploymentStatusPending, d.batchSize)
	if err != nil {
		d.logger.Error("failed to list pending deployments", "error", err)
		return
	}

	if len(pending) > 0 {
		d.logger.Debug("poll found pending deployments", "count", len(pending))
	}

	for i := range pending {
		dep := &pending[i]
		if d.orch.IsJobActive(dep.ID) {
			continue
		}
		if err := d.process(ctx, dep); err != nil {
			d.logger.Error("failed to process deployment from poll", "deployment_id", dep.ID, "error", err)
		}
	}
}

// process забирает PENDING deployment и отдаёт его orchestrator.
func (d *Daemon) process(ctx context.Context, dep *domain.Deployment) error {
	// 1. Токен: если в задании нет своего, выдаём адрес этого daemon
	d.assignToken(dep)

	// 2. Забираем атомарно: polling и consumer могут увидеть один и тот же deployment
	if err := d.deployments.Claim(ctx, dep); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			d.logger.Debug("deployment already claimed", "deployment_id", dep.ID)
			return nil
		}
		return err
	}

	// 3. Ожидание сигналов
	d.expect(ctx, dep, dep.StartedAt, nil)

	// 4. Запуск
	if err := d.orch.Submit(dep); err != nil {
		return fmt.Errorf("submit deployment %s: %w", dep.ID, err)
	}

	d.logger.Info("deployment submitted",
		"deployment_id", dep.ID,
		"module", dep.Job.ModuleName,
		"steps", len(dep.Job.Steps),
	)
	return nil
}

// resumeRunning продолжает deployments, прерванные остановкой daemon.
func (d *Daemon) resumeRunning(ctx context.Context) error {
	running, err := d.deployments.ListByStatus(ctx, domain.DeploymentStatusRunning, d.batchSize)
	if err != nil {
		return fmt.Errorf("list running deployments: %w", err)
	}

	for i := range running {
		dep := &running[i]
		if err := d.resume(ctx, dep); err != nil {
			d.logger.Error("failed to resume deployment", "deployment_id", dep.ID, "error", err)
		}
	}
	return nil
}

// resume продолжает один deployment по записям шагов.
func (d *Daemon) resume(ctx context.Context, dep *domain.Deployment) error {
	stored, err := d.steps.ListByDeployment(ctx, dep.ID)
	if err != nil {
		return fmt.Errorf("list steps: %w", err)
	}

	d.assignToken(dep)
	records := AlignRecords(dep, stored)

	d.expect(ctx, dep, dep.StartedAt, records)

	if err := d.orch.Resume(dep, records); err != nil {
		return err
	}

	d.logger.Info("deployment resumed",
		"deployment_id", dep.ID,
		"module", dep.Job.ModuleName,
		"signaled_steps", countSignaled(records),
	)
	return nil
}

// AlignRecords сопоставляет сохранённые записи шагам задания по индексу.
// Для шагов без записи (не успели сохранить) создаются новые.
func AlignRecords(dep *domain.Deployment, stored []*domain.StepRecord) []*domain.StepRecord {
	records := orchestrator.NewStepRecords(dep)
	for _, rec := range stored {
		if rec.Index >= 0 && rec.Index < len(records) {
			records[rec.Index] = rec
		}
	}
	return records
}

func countSignaled(records []*domain.StepRecord) int {
	n := 0
	for _, rec := range records {
		if rec.SignalAttempted {
			n++
		}
	}
	return n
}
