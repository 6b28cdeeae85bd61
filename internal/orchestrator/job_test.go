package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Cascade/internal/domain"
)

func newTestJobRunner(cloud *fakeCloud, journal Journal, notifier Notifier) *JobRunner {
	steps := NewStepRunner(StepRunnerConfig{
		Handlers:     cloud.handlers(),
		Journal:      journal,
		PollInterval: time.Millisecond,
	})
	return NewJobRunner(steps, journal, notifier, nil)
}

// --- JobRunner Tests ---

func TestJobRunner_FailureShortCircuits(t *testing.T) {
	cloud := newFakeCloud()
	cloud.statuses["A"] = []string{"CREATE_FAILED"}

	d := domain.NewDeployment(testJob("m", "A", "B", "C"))
	records := NewStepRecords(d)

	outcome, err := newTestJobRunner(cloud, nil, nil).Run(context.Background(), d, records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Succeeded || outcome.ErrorDetail != "CREATE_FAILED" {
		t.Errorf("job outcome should equal A's outcome, got %+v", outcome)
	}
	for _, stack := range []string{"B", "C"} {
		if calls := cloud.callsFor(stack); len(calls) != 0 {
			t.Errorf("%s should not be touched, got %v", stack, calls)
		}
	}
	if n := len(cloud.signalsFor("token-m")); n != 1 {
		t.Errorf("expected 1 signal, got %d", n)
	}
	for _, rec := range records[1:] {
		if rec.Status != domain.StepStatusNotAttempted {
			t.Errorf("%s: expected NOT_ATTEMPTED, got %s", rec.StackName, rec.Status)
		}
	}
}

func TestJobRunner_AllSucceed(t *testing.T) {
	cloud := newFakeCloud()
	notifier := &recordingNotifier{}

	d := domain.NewDeployment(testJob("m", "A", "B", "C"))
	outcome, err := newTestJobRunner(cloud, nil, notifier).Run(context.Background(), d, NewStepRecords(d))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !outcome.Succeeded {
		t.Fatalf("expected success, got %+v", outcome)
	}

	signals := cloud.signalsFor("token-m")
	if len(signals) != 3 {
		t.Fatalf("expected 3 signals, got %d", len(signals))
	}
	for i, want := range []string{"A", "B", "C"} {
		if signals[i].StackName != want || !signals[i].Succeeded {
			t.Errorf("signal %d: unexpected %+v", i, signals[i])
		}
	}
	if len(notifier.steps) != 3 {
		t.Errorf("expected 3 step events, got %d", len(notifier.steps))
	}
}

func TestJobRunner_StepsRunInOrder(t *testing.T) {
	cloud := newFakeCloud()
	cloud.statuses["A"] = []string{"CREATE_IN_PROGRESS", "CREATE_IN_PROGRESS", "CREATE_COMPLETE"}

	d := domain.NewDeployment(testJob("m", "A", "B"))
	if _, err := newTestJobRunner(cloud, nil, nil).Run(context.Background(), d, NewStepRecords(d)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Последний вызов для A раньше первого вызова для B
	lastA, firstB := -1, -1
	for i, c := range cloud.calls {
		if c == "status:A" {
			lastA = i
		}
		if c == "prepare:B" && firstB < 0 {
			firstB = i
		}
	}
	if lastA < 0 || firstB < 0 || lastA > firstB {
		t.Errorf("B started before A finished: %v", cloud.calls)
	}
}

func TestJobRunner_ZeroSteps(t *testing.T) {
	cloud := newFakeCloud()

	d := domain.NewDeployment(domain.JobRequest{ModuleName: "empty"})
	outcome, err := newTestJobRunner(cloud, nil, nil).Run(context.Background(), d, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !outcome.Succeeded {
		t.Error("zero-step job should succeed")
	}
	if len(cloud.signals) != 0 {
		t.Errorf("expected no signals, got %d", len(cloud.signals))
	}
}

func TestJobRunner_SkipsSignaledSteps(t *testing.T) {
	cloud := newFakeCloud()

	d := domain.NewDeployment(testJob("m", "A", "B"))
	records := NewStepRecords(d)
	records[0].MarkSignaling(domain.Success())
	records[0].MarkDone()

	outcome, err := newTestJobRunner(cloud, nil, nil).Run(context.Background(), d, records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !outcome.Succeeded {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if calls := cloud.callsFor("A"); len(calls) != 0 {
		t.Errorf("signaled step should be skipped, got %v", calls)
	}
	signals := cloud.signalsFor("token-m")
	if len(signals) != 1 || signals[0].StackName != "B" {
		t.Errorf("expected one signal for B, got %+v", signals)
	}
}

func TestJobRunner_ResumedFailureStops(t *testing.T) {
	cloud := newFakeCloud()

	d := domain.NewDeployment(testJob("m", "A", "B"))
	records := NewStepRecords(d)
	records[0].MarkSignaling(domain.Failure("CREATE_FAILED"))

	outcome, err := newTestJobRunner(cloud, nil, nil).Run(context.Background(), d, records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Succeeded || outcome.ErrorDetail != "CREATE_FAILED" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if len(cloud.calls) != 0 || len(cloud.signals) != 0 {
		t.Errorf("nothing should run, calls=%v signals=%d", cloud.calls, len(cloud.signals))
	}
}

func TestJobRunner_RecordsMismatch(t *testing.T) {
	d := domain.NewDeployment(testJob("m", "A"))

	_, err := newTestJobRunner(newFakeCloud(), nil, nil).Run(context.Background(), d, nil)
	if !errors.Is(err, ErrRecordsMismatch) {
		t.Errorf("expected ErrRecordsMismatch, got %v", err)
	}
}
