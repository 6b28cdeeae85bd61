package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/repo"
)

// DeploymentStore — операции с deployments, нужные API.
type DeploymentStore interface {
	Create(ctx context.Context, d *domain.Deployment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error)
	List(ctx context.Context, filter repo.DeploymentFilter) ([]domain.Deployment, error)
}

// StepStore — чтение записей шагов.
type StepStore interface {
	ListByDeployment(ctx context.Context, deploymentID uuid.UUID) ([]*domain.StepRecord, error)
}

// JobPublisher — уведомление daemon о новом deployment.
type JobPublisher interface {
	PublishJobSubmitted(ctx context.Context, deploymentID uuid.UUID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	deployments DeploymentStore
	steps       StepStore
	publisher   JobPublisher
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Deployments DeploymentStore
	Steps       StepStore

	// Publisher может быть nil: daemon заберёт deployment через polling.
	Publisher JobPublisher

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		deployments: cfg.Deployments,
		steps:       cfg.Steps,
		publisher:   cfg.Publisher,
		logger:      logger,
	}
}
