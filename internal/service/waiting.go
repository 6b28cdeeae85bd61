package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/orchestrator"
	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/tasks"
	"github.com/shaiso/Cascade/internal/telemetry"
	"github.com/shaiso/Cascade/internal/waitcond"
)

// signalsPath — путь приёма сигналов на HTTP-сервере daemon.
const signalsPath = "/signals/"

// SignalURL возвращает completion token, который daemon выдаёт deployment.
func SignalURL(baseURL string, id uuid.UUID) string {
	return strings.TrimRight(baseURL, "/") + signalsPath + id.String()
}

// tokenKey возвращает ключ условия, если token выдан этим daemon.
func tokenKey(baseURL, token string) (string, bool) {
	if baseURL == "" {
		return "", false
	}
	prefix := strings.TrimRight(baseURL, "/") + signalsPath
	if !strings.HasPrefix(token, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(token, prefix)
	return key, key != ""
}

// assignToken выдаёт заданию без completion token адрес этого daemon.
// Адрес зависит только от ID, поэтому после рестарта он тот же.
func (d *Daemon) assignToken(dep *domain.Deployment) {
	if dep.Job.CompletionToken() != "" || d.signalBaseURL == "" {
		return
	}
	dep.Job = dep.Job.WithCompletionToken(SignalURL(d.signalBaseURL, dep.ID))
}

// expect заводит условие ожидания для токена daemon и следит за его таймаутом.
//
// records — записи шагов при продолжении: уже отправленные до рестарта
// сигналы восстанавливаются в условии из журнала.
func (d *Daemon) expect(ctx context.Context, dep *domain.Deployment, startedAt *time.Time, records []*domain.StepRecord) {
	key, ok := tokenKey(d.signalBaseURL, dep.Job.CompletionToken())
	if !ok {
		return
	}

	start := time.Now()
	if startedAt != nil {
		start = *startedAt
	}
	timeout := time.Until(start.Add(time.Duration(dep.Job.Timeout()) * time.Second))

	cond, err := d.supervisor.Expect(key, len(dep.Job.Steps), timeout)
	if err != nil {
		d.logger.Warn("failed to expect completion signals", "deployment_id", dep.ID, "error", err)
		return
	}

	for _, rec := range records {
		if !rec.SignalAttempted {
			continue
		}
		outcome := rec.Outcome()
		doc := tasks.NewSignalDocument(tasks.SignalRequest{
			StackName:   rec.StackName,
			RegionName:  rec.RegionName,
			Succeeded:   outcome.Succeeded,
			ErrorDetail: outcome.ErrorDetail,
		})
		if err := d.supervisor.Signal(key, doc); err != nil {
			d.logger.Debug("journaled signal not replayed", "deployment_id", dep.ID, "error", err)
		}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.watch(ctx, dep.ID, cond)
	}()
}

// watch ждёт разрешения условия и фиксирует таймаут задания.
func (d *Daemon) watch(ctx context.Context, id uuid.UUID, cond *waitcond.Condition) {
	select {
	case <-ctx.Done():
		return
	case <-cond.Done():
	}

	res := cond.Result()
	telemetry.ConditionsResolved.WithLabelValues(string(res.State)).Inc()

	logger := d.logger.With("deployment_id", id, "state", res.State, "reason", res.Reason)

	switch res.State {
	case waitcond.StateTimedOut:
		err := d.deployments.MarkTimedOut(ctx, &domain.Deployment{ID: id}, res.Reason)
		switch {
		case err == nil:
			logger.Warn("deployment timed out waiting for completion signals")
		case errors.Is(err, repo.ErrInvalidState):
			logger.Debug("deployment finished before timeout was recorded")
		default:
			logger.Error("failed to mark deployment timed out", "error", err)
		}
	case waitcond.StateFailed:
		logger.Warn("completion condition failed")
	default:
		logger.Info("completion condition satisfied")
	}
}

// Notifier освобождает условие ожидания, когда задание завершено,
// и передаёт события дальше.
type Notifier struct {
	supervisor *waitcond.Supervisor
	baseURL    string
	next       orchestrator.Notifier
}

// NewNotifier создаёт Notifier. next может быть nil.
func NewNotifier(supervisor *waitcond.Supervisor, signalBaseURL string, next orchestrator.Notifier) *Notifier {
	return &Notifier{supervisor: supervisor, baseURL: signalBaseURL, next: next}
}

// StepFinished передаёт событие дальше.
func (n *Notifier) StepFinished(ctx context.Context, dep *domain.Deployment, rec *domain.StepRecord) {
	if n.next != nil {
		n.next.StepFinished(ctx, dep, rec)
	}
}

// DeploymentFinished освобождает условие и передаёт событие дальше.
func (n *Notifier) DeploymentFinished(ctx context.Context, dep *domain.Deployment) {
	if key, ok := tokenKey(n.baseURL, dep.Job.CompletionToken()); ok {
		n.supervisor.Forget(key)
	}
	if n.next != nil {
		n.next.DeploymentFinished(ctx, dep)
	}
}
