package domain

import (
	"time"

	"github.com/google/uuid"
)

// StepRecord — запись журнала об одном шаге deployment.
//
// Журнал нужен, чтобы после рестарта оркестратора продолжить задание
// и не отправить сигнал повторно.
type StepRecord struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// DeploymentID — ссылка на родительский deployment.
	DeploymentID uuid.UUID `json:"deployment_id"`

	// Index — позиция шага в задании (с 0).
	Index int `json:"index"`

	StackName  string `json:"stack_name"`
	RegionName string `json:"region_name"`

	// Phase — последнее состояние машины шага.
	Phase StepPhase `json:"phase"`

	// Status — итоговый статус шага.
	Status StepStatus `json:"status"`

	// Polls — сколько раз опрашивался статус стека.
	Polls int `json:"polls"`

	// LastStackStatus — последний «сырой» статус стека, полученный при опросе.
	LastStackStatus string `json:"last_stack_status,omitempty"`

	// Error — детали ошибки.
	Error string `json:"error,omitempty"`

	// SignalAttempted — была ли попытка отправить сигнал.
	// Выставляется до отправки: при рестарте сигнал не повторяется.
	SignalAttempted bool `json:"signal_attempted"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewStepRecord создаёт запись журнала для шага задания.
func NewStepRecord(deploymentID uuid.UUID, index int, step StepRequest) *StepRecord {
	return &StepRecord{
		ID:           uuid.New(),
		DeploymentID: deploymentID,
		Index:        index,
		StackName:    step.StackName,
		RegionName:   step.RegionName,
		Phase:        PhasePreparingPrereqs,
		Status:       StepStatusPending,
	}
}

// Duration возвращает продолжительность шага.
func (s *StepRecord) Duration() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(*s.StartedAt)
}

// MarkRunning переводит запись в статус RUNNING.
func (s *StepRecord) MarkRunning() {
	now := time.Now()
	s.Status = StepStatusRunning
	s.StartedAt = &now
}

// MarkSignaling фиксирует итог шага перед отправкой сигнала.
// Запись с SignalAttempted при рестарте не выполняется повторно.
func (s *StepRecord) MarkSignaling(outcome Outcome) {
	now := time.Now()
	s.FinishedAt = &now
	s.Phase = PhaseSignaling
	s.SignalAttempted = true
	if outcome.Succeeded {
		s.Status = StepStatusSucceeded
		return
	}
	s.Status = StepStatusFailed
	s.Error = outcome.ErrorDetail
}

// MarkDone переводит запись в состояние DONE.
func (s *StepRecord) MarkDone() {
	s.Phase = PhaseDone
}

// Outcome возвращает итог шага по статусу записи.
func (s *StepRecord) Outcome() Outcome {
	if s.Status == StepStatusSucceeded {
		return Success()
	}
	return Failure(s.Error)
}

// MarkNotAttempted помечает шаг как пропущенный.
func (s *StepRecord) MarkNotAttempted() {
	s.Status = StepStatusNotAttempted
}
