package domain

import (
	"time"

	"github.com/google/uuid"
)

// Deployment — экземпляр выполнения задания (job).
//
// Deployment создаётся когда:
// - Пользователь отправляет задание через API/CLI
// - Оркестратор находит определения в каталоге при старте
//
// Каждый deployment выполняет шаги своего JobRequest строго по очереди.
type Deployment struct {
	// ID — уникальный идентификатор deployment.
	ID uuid.UUID `json:"id"`

	// Job — определение задания, которое выполняется.
	Job JobRequest `json:"job"`

	// Status — текущий статус выполнения.
	Status DeploymentStatus `json:"status"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — детали ошибки, если deployment завершился с FAILED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания deployment.
	CreatedAt time.Time `json:"created_at"`
}

// NewDeployment создаёт deployment в статусе PENDING.
func NewDeployment(job JobRequest) *Deployment {
	return &Deployment{
		ID:        uuid.New(),
		Job:       job,
		Status:    DeploymentStatusPending,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если deployment ещё не завершён.
func (d *Deployment) Duration() time.Duration {
	if d.StartedAt == nil || d.FinishedAt == nil {
		return 0
	}
	return d.FinishedAt.Sub(*d.StartedAt)
}

// IsFinished возвращает true, если deployment завершён (в любом статусе).
func (d *Deployment) IsFinished() bool {
	return d.Status.IsTerminal()
}

// MarkRunning переводит deployment в статус RUNNING.
func (d *Deployment) MarkRunning() {
	now := time.Now()
	d.Status = DeploymentStatusRunning
	d.StartedAt = &now
}

// MarkFinished переводит deployment в финальный статус по итогу задания.
func (d *Deployment) MarkFinished(outcome Outcome) {
	now := time.Now()
	d.FinishedAt = &now
	if outcome.Succeeded {
		d.Status = DeploymentStatusSucceeded
		d.Error = ""
		return
	}
	d.Status = DeploymentStatusFailed
	d.Error = outcome.ErrorDetail
}

// MarkTimedOut переводит deployment в статус TIMED_OUT.
// reason — что успела получить ожидающая сторона.
func (d *Deployment) MarkTimedOut(reason string) {
	now := time.Now()
	d.Status = DeploymentStatusTimedOut
	d.FinishedAt = &now
	d.Error = "timed out waiting for completion signals"
	if reason != "" {
		d.Error += ": " + reason
	}
}
