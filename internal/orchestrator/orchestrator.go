package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/tasks"
	"github.com/shaiso/Cascade/internal/telemetry"
)

// Orchestrator запускает по одному JobRunner на каждое задание.
//
// Задания выполняются параллельно и не делят изменяемое состояние:
// у каждого свой completion token, свои записи журнала и свой JobRunner.
// Ошибка или паника в одном задании не влияет на остальные.
//
// Общего состояния «все задания завершены» нет: каждое задание
// сообщает итог своей вызывающей стороне через сигналы.
type Orchestrator struct {
	// Initial jobs
	jobs []domain.JobRequest

	// Collaborators
	handlers tasks.Handlers
	journal  Journal
	notifier Notifier

	// Active jobs — deployments в процессе выполнения (deploymentID → state)
	activeJobs map[uuid.UUID]*JobState
	mu         sync.RWMutex

	// Configuration
	pollInterval time.Duration
	callTimeout  time.Duration
	maxNotFound  int
	sem          *semaphore.Weighted

	// Lifecycle
	logger     *slog.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	started    bool
	stopped    bool
	stateMu    sync.RWMutex
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Jobs — задания, которые запускаются при Start.
	Jobs []domain.JobRequest

	// Handlers — обработчики шагов (все четыре обязательны).
	Handlers tasks.Handlers

	// Journal — журнал deployments и шагов (может быть nil).
	Journal Journal

	// Notifier — получатель событий (может быть nil).
	Notifier Notifier

	// PollInterval — пауза между опросами статуса стека (default: 30s).
	PollInterval time.Duration

	// CallTimeout — таймаут одного вызова обработчика (default: 1m).
	CallTimeout time.Duration

	// MaxNotFoundPolls — сколько опросов подряд стек может отсутствовать (0 — без ограничения).
	MaxNotFoundPolls int

	// MaxConcurrentJobs — ограничение на число одновременно выполняемых заданий (0 — без ограничения).
	MaxConcurrentJobs int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	var journal Journal = nopJournal{}
	if cfg.Journal != nil {
		journal = cfg.Journal
	}

	var notifier Notifier = nopNotifier{}
	if cfg.Notifier != nil {
		notifier = cfg.Notifier
	}

	var sem *semaphore.Weighted
	if cfg.MaxConcurrentJobs > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		jobs:         cfg.Jobs,
		handlers:     cfg.Handlers,
		journal:      journal,
		notifier:     notifier,
		activeJobs:   make(map[uuid.UUID]*JobState),
		pollInterval: cfg.PollInterval,
		callTimeout:  cfg.CallTimeout,
		maxNotFound:  cfg.MaxNotFoundPolls,
		sem:          sem,
		logger:       logger,
	}
}

// Start запускает Orchestrator и задания из Config.Jobs.
//
// Возвращает созданные для них deployments.
func (o *Orchestrator) Start(ctx context.Context) ([]*domain.Deployment, error) {
	if err := o.handlers.Validate(); err != nil {
		return nil, err
	}

	o.stateMu.Lock()
	if o.stopped {
		o.stateMu.Unlock()
		return nil, ErrOrchestratorStopped
	}
	o.ctx, o.cancelFunc = context.WithCancel(ctx)
	o.started = true
	o.stateMu.Unlock()

	o.logger.Info("starting orchestrator",
		"jobs", len(o.jobs),
		"poll_interval", o.pollIntervalOrDefault(),
		"max_not_found_polls", o.maxNotFound,
	)

	deployments := make([]*domain.Deployment, 0, len(o.jobs))
	for _, job := range o.jobs {
		d := domain.NewDeployment(job)
		if err := o.Submit(d); err != nil {
			return deployments, fmt.Errorf("submit %s: %w", job.ModuleName, err)
		}
		deployments = append(deployments, d)
	}

	o.logger.Info("orchestrator started")
	return deployments, nil
}

// Submit запускает новый deployment.
func (o *Orchestrator) Submit(d *domain.Deployment) error {
	return o.launch(d, NewStepRecords(d))
}

// Resume продолжает deployment по записям журнала.
//
// Шаги с попыткой сигнала пропускаются, первый незавершённый шаг
// выполняется заново с PreparingPrereqs.
func (o *Orchestrator) Resume(d *domain.Deployment, records []*domain.StepRecord) error {
	if len(records) != len(d.Job.Steps) {
		return fmt.Errorf("%w: %d records for %d steps", ErrRecordsMismatch, len(records), len(d.Job.Steps))
	}
	return o.launch(d, records)
}

// launch регистрирует deployment в активных и запускает его горутину.
func (o *Orchestrator) launch(d *domain.Deployment, records []*domain.StepRecord) error {
	// Держим RLock до wg.Add: Stop не должен начать ждать раньше
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()

	ctx := o.ctx
	switch {
	case o.stopped:
		return ErrOrchestratorStopped
	case !o.started:
		return ErrNotStarted
	case d.IsFinished():
		return fmt.Errorf("%w: %s", ErrJobFinished, d.ID)
	}

	state := NewJobState(d, records)
	if err := o.addActiveJob(state); err != nil {
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.removeActiveJob(d.ID)
		o.runJob(ctx, d, records, state)
	}()

	return nil
}

// runJob выполняет одно задание до конца.
func (o *Orchestrator) runJob(ctx context.Context, d *domain.Deployment, records []*domain.StepRecord, state *JobState) {
	logger := telemetry.WithDeployment(o.logger, d.ID.String(), d.Job.ModuleName)

	telemetry.ActiveJobs.Inc()
	defer telemetry.ActiveJobs.Dec()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", "panic", r)
			o.finish(ctx, logger, d, domain.Failure(fmt.Sprintf("internal error: %v", r)))
		}
	}()

	// 1. Ограничение на число параллельных заданий
	if o.sem != nil {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			logger.Warn("job not started, orchestrator stopping")
			return
		}
		defer o.sem.Release(1)
	}

	// 2. Переводим в RUNNING (при продолжении статус уже RUNNING)
	if d.Status != domain.DeploymentStatusRunning {
		d.MarkRunning()
	}
	journal := trackingJournal{state: state, next: o.journal}
	if err := journal.SaveDeployment(ctx, d); err != nil {
		logger.Error("failed to save deployment", "error", err)
	}

	logger.Info("job started", "steps", len(d.Job.Steps), "timeout_seconds", d.Job.Timeout())

	// 3. Выполняем шаги
	steps := NewStepRunner(StepRunnerConfig{
		Handlers:         o.handlers,
		Journal:          journal,
		PollInterval:     o.pollInterval,
		CallTimeout:      o.callTimeout,
		MaxNotFoundPolls: o.maxNotFound,
		Logger:           logger,
	})
	runner := NewJobRunner(steps, journal, o.notifier, logger)

	outcome, err := runner.Run(ctx, d, records)
	if errors.Is(err, ErrInterrupted) {
		logger.Warn("job interrupted, left for resume")
		return
	}

	// 4. Финализируем
	o.finish(ctx, logger, d, outcome)
}

// finish переводит deployment в финальный статус и публикует событие.
func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, d *domain.Deployment, outcome domain.Outcome) {
	d.MarkFinished(outcome)
	if err := o.journal.SaveDeployment(ctx, d); err != nil {
		logger.Error("failed to save deployment", "error", err)
	}
	o.notifier.DeploymentFinished(ctx, d)

	if outcome.Succeeded {
		logger.Info("job succeeded", "duration", d.Duration())
	} else {
		logger.Warn("job failed", "error", outcome.ErrorDetail, "duration", d.Duration())
	}
}

// Wait ждёт завершения всех запущенных заданий.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Stop останавливает Orchestrator.
//
// Выполняющиеся шаги прерываются без сигнала и остаются в журнале
// незавершёнными, чтобы их можно было продолжить через Resume.
func (o *Orchestrator) Stop() {
	o.stateMu.Lock()
	o.stopped = true
	cancel := o.cancelFunc
	o.stateMu.Unlock()

	o.logger.Info("stopping orchestrator...")

	if cancel != nil {
		cancel()
	}

	// Ждём завершения горутин
	o.wg.Wait()

	o.logger.Info("orchestrator stopped")
}

// IsStopped проверяет, остановлен ли Orchestrator.
func (o *Orchestrator) IsStopped() bool {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.stopped
}

func (o *Orchestrator) pollIntervalOrDefault() time.Duration {
	if o.pollInterval <= 0 {
		return defaultPollInterval
	}
	return o.pollInterval
}

// IsJobActive проверяет, выполняется ли deployment.
func (o *Orchestrator) IsJobActive(id uuid.UUID) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, exists := o.activeJobs[id]
	return exists
}

// addActiveJob добавляет deployment в активные.
func (o *Orchestrator) addActiveJob(state *JobState) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.activeJobs[state.DeploymentID()]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyActive, state.DeploymentID())
	}

	o.activeJobs[state.DeploymentID()] = state
	return nil
}

// removeActiveJob удаляет deployment из активных.
func (o *Orchestrator) removeActiveJob(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeJobs, id)
}

// ActiveJobsCount возвращает количество активных заданий.
func (o *Orchestrator) ActiveJobsCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.activeJobs)
}

// GetActiveJobStats возвращает статистику по активному заданию.
func (o *Orchestrator) GetActiveJobStats(id uuid.UUID) (JobStats, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	state, exists := o.activeJobs[id]
	if !exists {
		return JobStats{}, false
	}

	return state.Stats(), true
}
