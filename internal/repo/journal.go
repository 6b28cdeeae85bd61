package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Cascade/internal/domain"
)

// Journal — журнал orchestrator поверх Postgres.
type Journal struct {
	Deployments *DeploymentRepo
	Steps       *StepRepo
}

// NewJournal создаёт Journal.
func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{
		Deployments: NewDeploymentRepo(pool),
		Steps:       NewStepRepo(pool),
	}
}

// SaveDeployment сохраняет deployment.
func (j *Journal) SaveDeployment(ctx context.Context, d *domain.Deployment) error {
	return j.Deployments.Save(ctx, d)
}

// SaveStep сохраняет запись шага.
func (j *Journal) SaveStep(ctx context.Context, rec *domain.StepRecord) error {
	return j.Steps.Save(ctx, rec)
}
