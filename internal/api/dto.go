package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
)

// DeploymentResponse — deployment в ответах API.
type DeploymentResponse struct {
	ID          uuid.UUID               `json:"id"`
	Module      string                  `json:"module"`
	Description string                  `json:"description,omitempty"`
	Status      domain.DeploymentStatus `json:"status"`
	Steps       int                     `json:"steps"`
	TimeoutSecs int                     `json:"timeout_seconds"`
	Job         domain.JobRequest       `json:"job"`
	StartedAt   *time.Time              `json:"started_at,omitempty"`
	FinishedAt  *time.Time              `json:"finished_at,omitempty"`
	DurationMs  int64                   `json:"duration_ms,omitempty"`
	Error       string                  `json:"error,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// DeploymentFromDomain конвертирует domain.Deployment в DeploymentResponse.
func DeploymentFromDomain(d domain.Deployment) DeploymentResponse {
	return DeploymentResponse{
		ID:          d.ID,
		Module:      d.Job.ModuleName,
		Description: d.Job.Description,
		Status:      d.Status,
		Steps:       len(d.Job.Steps),
		TimeoutSecs: d.Job.Timeout(),
		Job:         d.Job,
		StartedAt:   d.StartedAt,
		FinishedAt:  d.FinishedAt,
		DurationMs:  d.Duration().Milliseconds(),
		Error:       d.Error,
		CreatedAt:   d.CreatedAt,
	}
}

// StepResponse — запись шага в ответах API.
type StepResponse struct {
	Index           int               `json:"index"`
	StackName       string            `json:"stack_name"`
	RegionName      string            `json:"region_name"`
	Phase           domain.StepPhase  `json:"phase"`
	Status          domain.StepStatus `json:"status"`
	Polls           int               `json:"polls"`
	StackStatus     string            `json:"stack_status,omitempty"`
	SignalAttempted bool              `json:"signal_attempted"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	FinishedAt      *time.Time        `json:"finished_at,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// StepFromDomain конвертирует domain.StepRecord в StepResponse.
func StepFromDomain(rec *domain.StepRecord) StepResponse {
	return StepResponse{
		Index:           rec.Index,
		StackName:       rec.StackName,
		RegionName:      rec.RegionName,
		Phase:           rec.Phase,
		Status:          rec.Status,
		Polls:           rec.Polls,
		StackStatus:     rec.LastStackStatus,
		SignalAttempted: rec.SignalAttempted,
		StartedAt:       rec.StartedAt,
		FinishedAt:      rec.FinishedAt,
		Error:           rec.Error,
	}
}
