package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/tasks"
	"github.com/shaiso/Cascade/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 30 * time.Second
	defaultCallTimeout  = time.Minute
)

// StepRunner проводит один шаг через машину состояний:
//
//	PreparingPrereqs → Creating → Polling ⟲ → Signaling → Done
//
// Все ошибки обработчиков превращаются в Outcome шага.
// Наружу возвращается только ErrInterrupted (отмена контекста).
type StepRunner struct {
	handlers     tasks.Handlers
	journal      Journal
	logger       *slog.Logger
	pollInterval time.Duration
	callTimeout  time.Duration
	maxNotFound  int
}

// StepRunnerConfig — конфигурация StepRunner.
type StepRunnerConfig struct {
	Handlers tasks.Handlers

	// Journal — журнал шагов (может быть nil).
	Journal Journal

	// PollInterval — пауза между опросами статуса (default: 30s).
	PollInterval time.Duration

	// CallTimeout — таймаут одного вызова обработчика (default: 1m).
	CallTimeout time.Duration

	// MaxNotFoundPolls — сколько опросов подряд стек может отсутствовать.
	// 0 — без ограничения.
	MaxNotFoundPolls int

	Logger *slog.Logger
}

// NewStepRunner создаёт StepRunner.
func NewStepRunner(cfg StepRunnerConfig) *StepRunner {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	var journal Journal = nopJournal{}
	if cfg.Journal != nil {
		journal = cfg.Journal
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &StepRunner{
		handlers:     cfg.Handlers,
		journal:      journal,
		logger:       logger,
		pollInterval: pollInterval,
		callTimeout:  callTimeout,
		maxNotFound:  cfg.MaxNotFoundPolls,
	}
}

// Run выполняет шаг и возвращает его Outcome.
//
// rec — запись журнала шага; обновляется по мере продвижения.
// Если ctx отменён до отправки сигнала, возвращается ErrInterrupted:
// сигнал не отправлялся, запись остаётся незавершённой.
func (r *StepRunner) Run(ctx context.Context, rec *domain.StepRecord, step domain.StepRequest) (domain.Outcome, error) {
	logger := telemetry.WithStack(r.logger, step.StackName, step.RegionName)
	started := time.Now()

	rec.MarkRunning()
	rec.Phase = domain.PhasePreparingPrereqs
	r.save(ctx, logger, rec)

	logger.Info("step started", "index", rec.Index)

	m := NewMachine(r.maxNotFound)

	// 1. Проверка обязательных полей: без них не вызываем ни один обработчик
	if field := step.MissingField(); field != "" {
		m = fail(m, fmt.Sprintf("missing required field: %s", field))
	}

	// 2. Крутим машину до Signaling
	for m.Phase != domain.PhaseSignaling {
		result := r.call(ctx, m.Phase, step)
		if ctx.Err() != nil {
			return r.interrupted(logger, m)
		}

		next := Advance(m, result)
		logger.Debug("step transition",
			"from", m.Phase,
			"to", next.Phase,
			"polls", next.Polls,
			"stack_status", next.LastStatus,
		)

		if m.Phase == domain.PhasePolling && result.Err == nil {
			telemetry.StackPolls.WithLabelValues(string(Classify(result.Raw))).Inc()
		}

		phaseChanged := next.Phase != m.Phase
		m = next

		rec.Phase = m.Phase
		rec.Polls = m.Polls
		rec.LastStackStatus = m.LastStatus
		if phaseChanged && m.Phase != domain.PhaseSignaling {
			r.save(ctx, logger, rec)
		}

		if m.Wait {
			if err := sleepContext(ctx, r.pollInterval); err != nil {
				return r.interrupted(logger, m)
			}
		}
	}

	// 3. Фиксируем итог до отправки сигнала: после рестарта сигнал не повторится.
	// Без сохранённой записи сигнал не отправляется.
	outcome := m.Outcome
	rec.MarkSignaling(outcome)
	if err := r.save(ctx, logger, rec); err != nil {
		telemetry.SignalsSent.WithLabelValues(telemetry.ResultSkipped).Inc()
		logger.Error("completion signal skipped, signal attempt not journaled", "error", err)
	} else {
		// 4. Сигнал — best effort, итог шага не меняет
		r.signal(ctx, logger, step, outcome)
	}

	m = Advance(m, CallResult{})
	rec.MarkDone()
	r.save(ctx, logger, rec)

	telemetry.StepDuration.Observe(time.Since(started).Seconds())
	if outcome.Succeeded {
		telemetry.StepsFinished.WithLabelValues(telemetry.ResultSucceeded).Inc()
		logger.Info("step succeeded", "polls", m.Polls, "duration", time.Since(started))
	} else {
		telemetry.StepsFinished.WithLabelValues(telemetry.ResultFailed).Inc()
		logger.Warn("step failed", "polls", m.Polls, "error", outcome.ErrorDetail)
	}

	return outcome, nil
}

// call вызывает обработчик текущего состояния с таймаутом на вызов.
// Паника обработчика становится ошибкой вызова.
func (r *StepRunner) call(ctx context.Context, phase domain.StepPhase, step domain.StepRequest) (result CallResult) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			result = CallResult{Err: fmt.Errorf("%s panicked: %v", phase, rec)}
		}
	}()

	switch phase {
	case domain.PhasePreparingPrereqs:
		return CallResult{Err: r.handlers.Preparer.Prepare(callCtx, step)}
	case domain.PhaseCreating:
		return CallResult{Err: r.handlers.Launcher.Launch(callCtx, step)}
	case domain.PhasePolling:
		raw, err := r.handlers.Monitor.Status(callCtx, step)
		return CallResult{Raw: raw, Err: err}
	default:
		return CallResult{}
	}
}

// signal отправляет сигнал завершения ровно один раз.
func (r *StepRunner) signal(ctx context.Context, logger *slog.Logger, step domain.StepRequest, outcome domain.Outcome) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			telemetry.SignalsSent.WithLabelValues(telemetry.ResultFailed).Inc()
			logger.Error("completion signal panicked", "panic", rec)
		}
	}()

	err := r.handlers.Signaler.Signal(callCtx, tasks.SignalRequest{
		StackName:       step.StackName,
		RegionName:      step.RegionName,
		CompletionToken: step.CompletionToken,
		Succeeded:       outcome.Succeeded,
		ErrorDetail:     outcome.ErrorDetail,
	})
	if err != nil {
		telemetry.SignalsSent.WithLabelValues(telemetry.ResultFailed).Inc()
		logger.Warn("completion signal failed", "error", err)
		return
	}

	telemetry.SignalsSent.WithLabelValues(telemetry.ResultSucceeded).Inc()
	logger.Debug("completion signal sent", "succeeded", outcome.Succeeded)
}

// interrupted завершает шаг без сигнала.
func (r *StepRunner) interrupted(logger *slog.Logger, m Machine) (domain.Outcome, error) {
	telemetry.StepsFinished.WithLabelValues(telemetry.ResultInterrupted).Inc()
	logger.Warn("step interrupted", "phase", m.Phase, "polls", m.Polls)
	return domain.Failure(ErrInterrupted.Error()), ErrInterrupted
}

// save пишет запись в журнал; ошибка логируется и возвращается.
func (r *StepRunner) save(ctx context.Context, logger *slog.Logger, rec *domain.StepRecord) error {
	err := r.journal.SaveStep(ctx, rec)
	if err != nil {
		logger.Error("failed to save step record", "phase", rec.Phase, "error", err)
	}
	return err
}

// sleepContext ждёт d или отмены ctx.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
