package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Cascade/internal/domain"
)

// JobRunner выполняет шаги задания строго по очереди.
//
// Шаг N+1 не начинается, пока шаг N не дошёл до Done.
// Первый неуспешный шаг останавливает задание: оставшиеся шаги
// помечаются NOT_ATTEMPTED, итог задания равен итогу этого шага.
type JobRunner struct {
	steps    *StepRunner
	journal  Journal
	notifier Notifier
	logger   *slog.Logger
}

// NewJobRunner создаёт JobRunner.
func NewJobRunner(steps *StepRunner, journal Journal, notifier Notifier, logger *slog.Logger) *JobRunner {
	if journal == nil {
		journal = nopJournal{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRunner{steps: steps, journal: journal, notifier: notifier, logger: logger}
}

// Run выполняет шаги deployment.
//
// records — записи журнала по одной на шаг, в том же порядке.
// Шаги, для которых уже была попытка сигнала (продолжение после рестарта),
// не выполняются повторно: берётся записанный итог.
//
// Задание без шагов успешно сразу, сигналов нет.
func (j *JobRunner) Run(ctx context.Context, d *domain.Deployment, records []*domain.StepRecord) (domain.Outcome, error) {
	steps := d.Job.Steps
	if len(records) != len(steps) {
		return domain.Failure(ErrRecordsMismatch.Error()),
			fmt.Errorf("%w: %d records for %d steps", ErrRecordsMismatch, len(records), len(steps))
	}

	outcome := domain.Success()

	for i, step := range steps {
		rec := records[i]

		if rec.SignalAttempted {
			outcome = rec.Outcome()
			j.logger.Debug("step already signaled, skipping",
				"index", i,
				"stack", rec.StackName,
				"succeeded", outcome.Succeeded,
			)
		} else {
			var err error
			outcome, err = j.steps.Run(ctx, rec, step)
			if err != nil {
				return outcome, err
			}
			j.notifier.StepFinished(ctx, d, rec)
		}

		if !outcome.Succeeded {
			j.skipRemaining(ctx, records[i+1:])
			return outcome, nil
		}
	}

	return outcome, nil
}

// skipRemaining помечает оставшиеся шаги как NOT_ATTEMPTED.
func (j *JobRunner) skipRemaining(ctx context.Context, records []*domain.StepRecord) {
	for _, rec := range records {
		rec.MarkNotAttempted()
		if err := j.journal.SaveStep(ctx, rec); err != nil {
			j.logger.Error("failed to save skipped step", "stack", rec.StackName, "error", err)
		}
	}
}

// NewStepRecords создаёт записи журнала для всех шагов deployment.
func NewStepRecords(d *domain.Deployment) []*domain.StepRecord {
	records := make([]*domain.StepRecord, len(d.Job.Steps))
	for i, step := range d.Job.Steps {
		records[i] = domain.NewStepRecord(d.ID, i, step)
	}
	return records
}
