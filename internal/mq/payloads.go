package mq

import (
	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
)

// JobSubmittedPayload — новый deployment ждёт выполнения.
type JobSubmittedPayload struct {
	DeploymentID uuid.UUID `json:"deployment_id"`
}

// StepFinishedPayload — шаг дошёл до Done или был пропущен.
type StepFinishedPayload struct {
	DeploymentID uuid.UUID         `json:"deployment_id"`
	Module       string            `json:"module"`
	Index        int               `json:"index"`
	StackName    string            `json:"stack_name"`
	RegionName   string            `json:"region_name"`
	Status       domain.StepStatus `json:"status"`
	Polls        int               `json:"polls"`
	StackStatus  string            `json:"stack_status,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// DeploymentFinishedPayload — задание завершено.
type DeploymentFinishedPayload struct {
	DeploymentID uuid.UUID               `json:"deployment_id"`
	Module       string                  `json:"module"`
	Status       domain.DeploymentStatus `json:"status"`
	Error        string                  `json:"error,omitempty"`
	DurationMs   int64                   `json:"duration_ms"`
}

// NewStepFinishedPayload строит payload из записи шага.
func NewStepFinishedPayload(d *domain.Deployment, rec *domain.StepRecord) StepFinishedPayload {
	return StepFinishedPayload{
		DeploymentID: d.ID,
		Module:       d.Job.ModuleName,
		Index:        rec.Index,
		StackName:    rec.StackName,
		RegionName:   rec.RegionName,
		Status:       rec.Status,
		Polls:        rec.Polls,
		StackStatus:  rec.LastStackStatus,
		Error:        rec.Error,
	}
}

// NewDeploymentFinishedPayload строит payload из deployment.
func NewDeploymentFinishedPayload(d *domain.Deployment) DeploymentFinishedPayload {
	return DeploymentFinishedPayload{
		DeploymentID: d.ID,
		Module:       d.Job.ModuleName,
		Status:       d.Status,
		Error:        d.Error,
		DurationMs:   d.Duration().Milliseconds(),
	}
}
