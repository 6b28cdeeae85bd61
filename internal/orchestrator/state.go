package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Cascade/internal/domain"
)

// JobState — состояние выполнения одного deployment в памяти.
//
// JobState создаётся когда Orchestrator принимает deployment
// и удаляется когда задание завершается или прерывается.
//
// Хранит копии записей шагов: раннер меняет свои записи без блокировок,
// а статистика читается из копий.
type JobState struct {
	deploymentID uuid.UUID
	module       string

	// steps — последние сохранённые копии записей шагов.
	steps []domain.StepRecord

	mu sync.RWMutex
}

// NewJobState создаёт JobState.
func NewJobState(d *domain.Deployment, records []*domain.StepRecord) *JobState {
	steps := make([]domain.StepRecord, len(records))
	for i, rec := range records {
		steps[i] = *rec
	}
	return &JobState{deploymentID: d.ID, module: d.Job.ModuleName, steps: steps}
}

// DeploymentID возвращает ID deployment.
func (s *JobState) DeploymentID() uuid.UUID {
	return s.deploymentID
}

// update сохраняет копию записи шага.
func (s *JobState) update(rec *domain.StepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Index >= 0 && rec.Index < len(s.steps) {
		s.steps[rec.Index] = *rec
	}
}

// Stats возвращает статистику выполнения.
func (s *JobState) Stats() JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := JobStats{Module: s.module, TotalSteps: len(s.steps), CurrentStep: -1}
	for i := range s.steps {
		rec := &s.steps[i]
		switch rec.Status {
		case domain.StepStatusSucceeded:
			stats.SucceededSteps++
		case domain.StepStatusFailed:
			stats.FailedSteps++
		case domain.StepStatusNotAttempted:
			stats.SkippedSteps++
		case domain.StepStatusRunning:
			stats.CurrentStep = i
			stats.CurrentPhase = rec.Phase
		default:
			stats.PendingSteps++
		}
	}
	return stats
}

// JobStats — статистика выполнения задания.
type JobStats struct {
	Module         string
	TotalSteps     int
	SucceededSteps int
	FailedSteps    int
	SkippedSteps   int
	PendingSteps   int

	// CurrentStep — индекс выполняющегося шага, -1 если такого нет.
	CurrentStep  int
	CurrentPhase domain.StepPhase
}

// trackingJournal обновляет JobState и передаёт записи дальше в журнал.
type trackingJournal struct {
	state *JobState
	next  Journal
}

func (t trackingJournal) SaveDeployment(ctx context.Context, d *domain.Deployment) error {
	return t.next.SaveDeployment(ctx, d)
}

func (t trackingJournal) SaveStep(ctx context.Context, rec *domain.StepRecord) error {
	t.state.update(rec)
	return t.next.SaveStep(ctx, rec)
}
