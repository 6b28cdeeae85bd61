package orchestrator

import (
	"context"

	"github.com/shaiso/Cascade/internal/domain"
)

// Journal сохраняет состояние deployments и шагов.
//
// Ошибки журнала логируются и не меняют итог шага.
type Journal interface {
	SaveDeployment(ctx context.Context, d *domain.Deployment) error
	SaveStep(ctx context.Context, rec *domain.StepRecord) error
}

// Notifier получает события о завершении шагов и deployments.
type Notifier interface {
	StepFinished(ctx context.Context, d *domain.Deployment, rec *domain.StepRecord)
	DeploymentFinished(ctx context.Context, d *domain.Deployment)
}

// nopJournal — журнал, который ничего не сохраняет.
type nopJournal struct{}

func (nopJournal) SaveDeployment(context.Context, *domain.Deployment) error { return nil }
func (nopJournal) SaveStep(context.Context, *domain.StepRecord) error       { return nil }

// nopNotifier — Notifier без подписчиков.
type nopNotifier struct{}

func (nopNotifier) StepFinished(context.Context, *domain.Deployment, *domain.StepRecord) {}
func (nopNotifier) DeploymentFinished(context.Context, *domain.Deployment)               {}
