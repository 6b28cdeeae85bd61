package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Cascade/internal/domain"
)

// StepRepo — репозиторий записей шагов.
type StepRepo struct {
	pool *pgxpool.Pool
}

// NewStepRepo создаёт новый StepRepo.
func NewStepRepo(pool *pgxpool.Pool) *StepRepo {
	return &StepRepo{pool: pool}
}

// Save создаёт или обновляет запись шага.
func (r *StepRepo) Save(ctx context.Context, rec *domain.StepRecord) error {
	query := `
		INSERT INTO deployment_steps (
			id, deployment_id, idx, stack_name, region_name, phase, status, polls,
			last_stack_status, error, signal_attempted, started_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			phase             = EXCLUDED.phase,
			status            = EXCLUDED.status,
			polls             = EXCLUDED.polls,
			last_stack_status = EXCLUDED.last_stack_status,
			error             = EXCLUDED.error,
			signal_attempted  = EXCLUDED.signal_attempted,
			started_at        = EXCLUDED.started_at,
			finished_at       = EXCLUDED.finished_at
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.DeploymentID,
		rec.Index,
		rec.StackName,
		rec.RegionName,
		rec.Phase,
		rec.Status,
		rec.Polls,
		nullString(rec.LastStackStatus),
		nullString(rec.Error),
		rec.SignalAttempted,
		rec.StartedAt,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save step %d: %w", rec.Index, err)
	}
	return nil
}

// ListByDeployment возвращает записи шагов deployment в порядке выполнения.
func (r *StepRepo) ListByDeployment(ctx context.Context, deploymentID uuid.UUID) ([]*domain.StepRecord, error) {
	query := `
		SELECT id, deployment_id, idx, stack_name, region_name, phase, status, polls,
		       last_stack_status, error, signal_attempted, started_at, finished_at
		FROM deployment_steps
		WHERE deployment_id = $1
		ORDER BY idx ASC
	`
	rows, err := r.pool.Query(ctx, query, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var records []*domain.StepRecord
	for rows.Next() {
		rec, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// scanStep сканирует строку в StepRecord.
func scanStep(row pgx.Row) (*domain.StepRecord, error) {
	var rec domain.StepRecord
	var lastStatus, stepError *string

	err := row.Scan(
		&rec.ID,
		&rec.DeploymentID,
		&rec.Index,
		&rec.StackName,
		&rec.RegionName,
		&rec.Phase,
		&rec.Status,
		&rec.Polls,
		&lastStatus,
		&stepError,
		&rec.SignalAttempted,
		&rec.StartedAt,
		&rec.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan step: %w", err)
	}

	if lastStatus != nil {
		rec.LastStackStatus = *lastStatus
	}
	if stepError != nil {
		rec.Error = *stepError
	}

	return &rec, nil
}
