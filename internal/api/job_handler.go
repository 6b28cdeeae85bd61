package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/definition"
	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/repo"
)

// maxDefinitionSize — верхняя граница тела запроса с определением.
const maxDefinitionSize = 1 << 20

// SubmitJob создаёт PENDING deployment из определения задания.
// POST /api/v1/jobs
//
// Тело — определение в том же формате, что и файлы каталога (JSON или YAML).
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDefinitionSize))
	if err != nil {
		BadRequest(w, "cannot read request body")
		return
	}

	job, err := definition.Parse("request", body)
	if err != nil {
		ValidationFailed(w, err)
		return
	}

	d := domain.NewDeployment(job)
	if err := h.deployments.Create(r.Context(), d); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Публикуем событие; без MQ daemon заберёт deployment через polling
	if h.publisher != nil {
		if err := h.publisher.PublishJobSubmitted(r.Context(), d.ID); err != nil {
			h.logger.Warn("failed to publish job.submitted", "deployment_id", d.ID, "error", err)
		}
	}

	h.logger.Info("job submitted",
		"deployment_id", d.ID,
		"module", job.ModuleName,
		"steps", len(job.Steps),
	)

	Created(w, DeploymentFromDomain(*d))
}

// ListJobs возвращает список deployments.
// GET /api/v1/jobs?status=...&module=...&limit=...&offset=...
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.DeploymentFilter{
		Module: q.Get("module"),
		Limit:  parseInt(q.Get("limit"), 50),
		Offset: parseInt(q.Get("offset"), 0),
	}

	if s := q.Get("status"); s != "" {
		filter.Status = domain.ParseDeploymentStatus(s)
		if filter.Status == "" {
			BadRequest(w, "invalid status: "+s)
			return
		}
	}

	deployments, err := h.deployments.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]DeploymentResponse, len(deployments))
	for i, d := range deployments {
		result[i] = DeploymentFromDomain(d)
	}

	List(w, result, len(result))
}

// GetJob возвращает deployment по ID.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	d, err := h.deployments.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	Success(w, DeploymentFromDomain(*d))
}

// ListJobSteps возвращает состояние шагов deployment.
// GET /api/v1/jobs/{id}/steps
//
// Шаги без записи (ещё не начинались) возвращаются как PENDING.
func (h *Handler) ListJobSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	d, err := h.deployments.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	stored, err := h.steps.ListByDeployment(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	byIndex := make(map[int]*domain.StepRecord, len(stored))
	for _, rec := range stored {
		byIndex[rec.Index] = rec
	}

	result := make([]StepResponse, len(d.Job.Steps))
	for i, step := range d.Job.Steps {
		rec, ok := byIndex[i]
		if !ok {
			rec = domain.NewStepRecord(d.ID, i, step)
		}
		result[i] = StepFromDomain(rec)
	}

	List(w, result, len(result))
}

// pathID разбирает {id}; при ошибке отвечает 400.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return uuid.Nil, false
	}
	return id, true
}

// parseInt разбирает неотрицательное число или возвращает defaultVal.
func parseInt(s string, defaultVal int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
