package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Cascade/internal/domain"
)

// DeploymentRepo — репозиторий для работы с deployments.
type DeploymentRepo struct {
	pool *pgxpool.Pool
}

// NewDeploymentRepo создаёт новый DeploymentRepo.
func NewDeploymentRepo(pool *pgxpool.Pool) *DeploymentRepo {
	return &DeploymentRepo{pool: pool}
}

const deploymentColumns = `id, job, status, started_at, finished_at, error, created_at`

// Create создаёт новый deployment.
func (r *DeploymentRepo) Create(ctx context.Context, d *domain.Deployment) error {
	jobJSON, err := json.Marshal(d.Job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	query := `
		INSERT INTO deployments (id, module_name, job, status, started_at, finished_at, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		d.ID,
		d.Job.ModuleName,
		jobJSON,
		d.Status,
		d.StartedAt,
		d.FinishedAt,
		nullString(d.Error),
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// Save создаёт или обновляет deployment.
//
// Статус TIMED_OUT не перезаписывается: ожидающая сторона уже
// сдалась, и поздний итог задания этого не меняет.
func (r *DeploymentRepo) Save(ctx context.Context, d *domain.Deployment) error {
	jobJSON, err := json.Marshal(d.Job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	query := `
		INSERT INTO deployments (id, module_name, job, status, started_at, finished_at, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status      = CASE WHEN deployments.status = 'TIMED_OUT' THEN deployments.status ELSE EXCLUDED.status END,
			error       = CASE WHEN deployments.status = 'TIMED_OUT' THEN deployments.error ELSE EXCLUDED.error END,
			started_at  = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`
	_, err = r.pool.Exec(ctx, query,
		d.ID,
		d.Job.ModuleName,
		jobJSON,
		d.Status,
		d.StartedAt,
		d.FinishedAt,
		nullString(d.Error),
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save deployment: %w", err)
	}
	return nil
}

// GetByID возвращает deployment по ID.
func (r *DeploymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE id = $1`

	d, err := scanDeployment(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// List возвращает список deployments с фильтрацией.
func (r *DeploymentRepo) List(ctx context.Context, filter DeploymentFilter) ([]domain.Deployment, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + deploymentColumns + `
		FROM deployments
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR module_name = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		nullString(filter.Module),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	return collectDeployments(rows)
}

// ListByStatus возвращает deployments в указанном статусе, старые первыми.
func (r *DeploymentRepo) ListByStatus(ctx context.Context, status domain.DeploymentStatus, limit int) ([]domain.Deployment, error) {
	query := `
		SELECT ` + deploymentColumns + `
		FROM deployments
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s deployments: %w", status, err)
	}
	return collectDeployments(rows)
}

// Claim атомарно переводит deployment из PENDING в RUNNING.
//
// Возвращает ErrInvalidState, если deployment уже забран (другим
// обработчиком или через polling).
func (r *DeploymentRepo) Claim(ctx context.Context, d *domain.Deployment) error {
	d.MarkRunning()

	query := `
		UPDATE deployments
		SET status = $2, started_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := r.pool.Exec(ctx, query, d.ID, d.Status, d.StartedAt)
	if err != nil {
		return fmt.Errorf("claim deployment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: deployment %s is not pending", ErrInvalidState, d.ID)
	}
	return nil
}

// MarkTimedOut переводит незавершённый deployment в TIMED_OUT.
func (r *DeploymentRepo) MarkTimedOut(ctx context.Context, d *domain.Deployment, reason string) error {
	d.MarkTimedOut(reason)

	query := `
		UPDATE deployments
		SET status = $2, finished_at = $3, error = $4
		WHERE id = $1 AND status IN ('PENDING', 'RUNNING')
	`
	result, err := r.pool.Exec(ctx, query, d.ID, d.Status, d.FinishedAt, nullString(d.Error))
	if err != nil {
		return fmt.Errorf("mark deployment timed out: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: deployment %s already finished", ErrInvalidState, d.ID)
	}
	return nil
}

// --- Helpers ---

// DeploymentFilter — параметры фильтрации deployments.
type DeploymentFilter struct {
	Status domain.DeploymentStatus
	Module string
	Limit  int
	Offset int
}

// scanDeployment сканирует одну строку в Deployment.
func scanDeployment(row pgx.Row) (*domain.Deployment, error) {
	var d domain.Deployment
	var jobJSON []byte
	var deploymentError *string

	err := row.Scan(
		&d.ID,
		&jobJSON,
		&d.Status,
		&d.StartedAt,
		&d.FinishedAt,
		&deploymentError,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(jobJSON, &d.Job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	if deploymentError != nil {
		d.Error = *deploymentError
	}

	return &d, nil
}

func collectDeployments(rows pgx.Rows) ([]domain.Deployment, error) {
	defer rows.Close()

	var deployments []domain.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, *d)
	}
	return deployments, rows.Err()
}
