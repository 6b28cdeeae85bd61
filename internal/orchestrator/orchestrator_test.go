package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/tasks"
)

func newTestOrchestrator(cloud *fakeCloud, cfg Config) *Orchestrator {
	cfg.Handlers = cloud.handlers()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Millisecond
	}
	return New(cfg)
}

// --- Orchestrator Tests ---

func TestNew_DefaultConfig(t *testing.T) {
	o := New(Config{})

	if o.journal == nil || o.notifier == nil || o.logger == nil {
		t.Error("journal, notifier and logger should be set")
	}
	if o.sem != nil {
		t.Error("semaphore should be nil without MaxConcurrentJobs")
	}
	if o.activeJobs == nil {
		t.Error("activeJobs map should be initialized")
	}
}

func TestOrchestrator_StartRequiresHandlers(t *testing.T) {
	o := New(Config{})

	_, err := o.Start(context.Background())
	if !errors.Is(err, tasks.ErrMissingHandler) {
		t.Errorf("expected ErrMissingHandler, got %v", err)
	}
}

func TestOrchestrator_SubmitBeforeStart(t *testing.T) {
	o := newTestOrchestrator(newFakeCloud(), Config{})

	err := o.Submit(domain.NewDeployment(testJob("m", "A")))
	if !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestOrchestrator_JobsAreIndependent(t *testing.T) {
	cloud := newFakeCloud()
	cloud.statuses["bad"] = []string{"CREATE_IN_PROGRESS", "ROLLBACK_COMPLETE"}
	notifier := &recordingNotifier{}
	journal := newMemJournal()

	o := newTestOrchestrator(cloud, Config{
		Jobs: []domain.JobRequest{
			testJob("failing", "bad", "after-bad"),
			testJob("passing", "good-1", "good-2"),
		},
		Journal:  journal,
		Notifier: notifier,
	})

	deployments, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deployments) != 2 {
		t.Fatalf("expected 2 deployments, got %d", len(deployments))
	}
	o.Wait()

	finished := notifier.finishedByModule()
	if finished["failing"].Status != domain.DeploymentStatusFailed {
		t.Errorf("failing: expected FAILED, got %s", finished["failing"].Status)
	}
	if finished["failing"].Error != "ROLLBACK_COMPLETE" {
		t.Errorf("failing: unexpected error %q", finished["failing"].Error)
	}
	if finished["passing"].Status != domain.DeploymentStatusSucceeded {
		t.Errorf("passing: expected SUCCEEDED, got %s", finished["passing"].Status)
	}

	if n := len(cloud.signalsFor("token-failing")); n != 1 {
		t.Errorf("failing: expected 1 signal, got %d", n)
	}
	if n := len(cloud.signalsFor("token-passing")); n != 2 {
		t.Errorf("passing: expected 2 signals, got %d", n)
	}

	for _, d := range deployments {
		saved, ok := journal.deployment(d.ID.String())
		if !ok || !saved.IsFinished() {
			t.Errorf("%s: final state should be journaled", d.Job.ModuleName)
		}
	}

	if o.ActiveJobsCount() != 0 {
		t.Errorf("expected no active jobs, got %d", o.ActiveJobsCount())
	}
}

func TestOrchestrator_JobsRunConcurrently(t *testing.T) {
	cloud := newFakeCloud()

	// Каждый стек ждёт, пока опрос начнётся у обоих: без параллельности тест зависнет
	var wg sync.WaitGroup
	wg.Add(2)
	var once sync.Map
	cloud.onStatus = func(_ context.Context, stack string) {
		if _, loaded := once.LoadOrStore(stack, true); !loaded {
			wg.Done()
		}
		wg.Wait()
	}

	o := newTestOrchestrator(cloud, Config{
		Jobs: []domain.JobRequest{testJob("one", "A"), testJob("two", "B")},
	})
	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		o.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs did not run concurrently")
	}
}

func TestOrchestrator_MaxConcurrentJobs(t *testing.T) {
	cloud := newFakeCloud()

	var current, peak int32
	handlers := cloud.handlers()
	handlers.Preparer = tasks.PrepareFunc(func(context.Context, domain.StepRequest) error {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return nil
	})

	o := New(Config{
		Jobs:              []domain.JobRequest{testJob("a", "A"), testJob("b", "B"), testJob("c", "C")},
		Handlers:          handlers,
		PollInterval:      time.Millisecond,
		MaxConcurrentJobs: 1,
	})
	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Wait()

	if atomic.LoadInt32(&peak) != 1 {
		t.Errorf("expected at most 1 concurrent job, got %d", peak)
	}
}

func TestOrchestrator_PanicIsolated(t *testing.T) {
	cloud := newFakeCloud()
	notifier := &recordingNotifier{}

	handlers := cloud.handlers()
	handlers.Launcher = tasks.LaunchFunc(func(_ context.Context, step domain.StepRequest) error {
		if step.StackName == "explodes" {
			panic("nil map")
		}
		return nil
	})

	o := New(Config{
		Jobs:         []domain.JobRequest{testJob("bad", "explodes", "after"), testJob("good", "fine")},
		Handlers:     handlers,
		Notifier:     notifier,
		PollInterval: time.Millisecond,
	})
	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Wait()

	finished := notifier.finishedByModule()
	if finished["bad"].Status != domain.DeploymentStatusFailed {
		t.Errorf("bad: expected FAILED, got %s", finished["bad"].Status)
	}
	if finished["good"].Status != domain.DeploymentStatusSucceeded {
		t.Errorf("good: expected SUCCEEDED, got %s", finished["good"].Status)
	}

	signals := cloud.signalsFor("token-bad")
	if len(signals) != 1 {
		t.Fatalf("bad: expected 1 signal, got %d", len(signals))
	}
	if signals[0].Succeeded || signals[0].StackName != "explodes" {
		t.Errorf("bad: expected FAILURE signal for explodes, got %+v", signals[0])
	}
	if got := cloud.callsFor("after"); len(got) != 0 {
		t.Errorf("bad: step after failure should not run, got %v", got)
	}
}

func TestOrchestrator_StopInterruptsJobs(t *testing.T) {
	cloud := newFakeCloud()
	cloud.statuses["slow"] = []string{"CREATE_IN_PROGRESS"}
	notifier := &recordingNotifier{}

	polled := make(chan struct{}, 1)
	cloud.onStatus = func(context.Context, string) {
		select {
		case polled <- struct{}{}:
		default:
		}
	}

	o := newTestOrchestrator(cloud, Config{
		Jobs:     []domain.JobRequest{testJob("m", "slow")},
		Notifier: notifier,
	})
	deployments, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-polled
	o.Stop()

	if !o.IsStopped() {
		t.Error("orchestrator should be stopped")
	}
	if len(notifier.finished) != 0 {
		t.Error("interrupted job must not be finalized")
	}
	if deployments[0].Status != domain.DeploymentStatusRunning {
		t.Errorf("expected RUNNING, got %s", deployments[0].Status)
	}
	if len(cloud.signals) != 0 {
		t.Error("interrupted job must not signal")
	}

	err = o.Submit(domain.NewDeployment(testJob("late", "A")))
	if !errors.Is(err, ErrOrchestratorStopped) {
		t.Errorf("expected ErrOrchestratorStopped, got %v", err)
	}
}

func TestOrchestrator_SubmitDuplicate(t *testing.T) {
	cloud := newFakeCloud()
	cloud.statuses["A"] = []string{"CREATE_IN_PROGRESS"}

	o := newTestOrchestrator(cloud, Config{})
	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer o.Stop()

	d := domain.NewDeployment(testJob("m", "A"))
	if err := o.Submit(d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !o.IsJobActive(d.ID) {
		t.Error("deployment should be active")
	}
	if err := o.Submit(d); !errors.Is(err, ErrJobAlreadyActive) {
		t.Errorf("expected ErrJobAlreadyActive, got %v", err)
	}
	if _, ok := o.GetActiveJobStats(d.ID); !ok {
		t.Error("expected stats for active job")
	}
}

func TestOrchestrator_SubmitFinished(t *testing.T) {
	o := newTestOrchestrator(newFakeCloud(), Config{})
	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer o.Stop()

	d := domain.NewDeployment(testJob("m", "A"))
	d.MarkFinished(domain.Success())

	if err := o.Submit(d); !errors.Is(err, ErrJobFinished) {
		t.Errorf("expected ErrJobFinished, got %v", err)
	}
}

func TestOrchestrator_Resume(t *testing.T) {
	cloud := newFakeCloud()
	notifier := &recordingNotifier{}

	o := newTestOrchestrator(cloud, Config{Notifier: notifier})
	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := domain.NewDeployment(testJob("m", "A", "B"))
	d.MarkRunning()
	records := NewStepRecords(d)
	records[0].MarkSignaling(domain.Success())
	records[0].MarkDone()

	if err := o.Resume(d, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Wait()

	if d.Status != domain.DeploymentStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", d.Status)
	}
	if calls := cloud.callsFor("A"); len(calls) != 0 {
		t.Errorf("A should not be re-run, got %v", calls)
	}
	if n := len(cloud.signalsFor("token-m")); n != 1 {
		t.Errorf("expected 1 signal, got %d", n)
	}

	if err := o.Resume(d, records[:1]); !errors.Is(err, ErrRecordsMismatch) {
		t.Errorf("expected ErrRecordsMismatch, got %v", err)
	}
}

// --- JobState Tests ---

func TestJobState_Stats(t *testing.T) {
	d := domain.NewDeployment(testJob("m", "A", "B", "C"))
	records := NewStepRecords(d)
	state := NewJobState(d, records)

	records[0].MarkRunning()
	records[0].MarkSignaling(domain.Success())
	state.update(records[0])

	records[1].MarkRunning()
	records[1].Phase = domain.PhasePolling
	state.update(records[1])

	stats := state.Stats()
	if stats.TotalSteps != 3 || stats.SucceededSteps != 1 || stats.PendingSteps != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.CurrentStep != 1 || stats.CurrentPhase != domain.PhasePolling {
		t.Errorf("unexpected current step: %+v", stats)
	}
	if stats.Module != "m" {
		t.Errorf("unexpected module: %s", stats.Module)
	}
}
