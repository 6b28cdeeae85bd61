package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/tasks"
)

// fakeCloud — поддельные обработчики шагов.
//
// statuses задаёт последовательность статусов для стека; последний повторяется.
type fakeCloud struct {
	mu sync.Mutex

	prepareErr map[string]error
	launchErr  map[string]error
	monitorErr map[string]error
	statuses   map[string][]string
	signalErr  error

	// onStatus вызывается при каждом опросе (до ответа).
	onStatus func(ctx context.Context, stack string)

	calls   []string
	polls   map[string]int
	signals []tasks.SignalRequest
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		prepareErr: map[string]error{},
		launchErr:  map[string]error{},
		monitorErr: map[string]error{},
		statuses:   map[string][]string{},
		polls:      map[string]int{},
	}
}

func (f *fakeCloud) handlers() tasks.Handlers {
	return tasks.Handlers{
		Preparer: tasks.PrepareFunc(f.prepare),
		Launcher: tasks.LaunchFunc(f.launch),
		Monitor:  tasks.StatusFunc(f.status),
		Signaler: tasks.SignalFunc(f.signal),
	}
}

func (f *fakeCloud) prepare(_ context.Context, step domain.StepRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "prepare:"+step.StackName)
	return f.prepareErr[step.StackName]
}

func (f *fakeCloud) launch(_ context.Context, step domain.StepRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "launch:"+step.StackName)
	return f.launchErr[step.StackName]
}

func (f *fakeCloud) status(ctx context.Context, step domain.StepRequest) (string, error) {
	if f.onStatus != nil {
		f.onStatus(ctx, step.StackName)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "status:"+step.StackName)

	if err := f.monitorErr[step.StackName]; err != nil {
		return "", err
	}

	seq := f.statuses[step.StackName]
	n := f.polls[step.StackName]
	f.polls[step.StackName] = n + 1
	if len(seq) == 0 {
		return "CREATE_COMPLETE", nil
	}
	if n >= len(seq) {
		n = len(seq) - 1
	}
	return seq[n], nil
}

func (f *fakeCloud) signal(_ context.Context, req tasks.SignalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, req)
	return f.signalErr
}

func (f *fakeCloud) callsFor(stack string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	suffix := ":" + stack
	for _, c := range f.calls {
		if len(c) > len(suffix) && c[len(c)-len(suffix):] == suffix {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeCloud) signalsFor(token string) []tasks.SignalRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tasks.SignalRequest
	for _, s := range f.signals {
		if s.CompletionToken == token {
			out = append(out, s)
		}
	}
	return out
}

// memJournal — журнал в памяти.
type memJournal struct {
	mu          sync.Mutex
	deployments map[string]domain.Deployment
	steps       []domain.StepRecord
	err         error
}

func newMemJournal() *memJournal {
	return &memJournal{deployments: map[string]domain.Deployment{}}
}

func (j *memJournal) SaveDeployment(_ context.Context, d *domain.Deployment) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.deployments[d.ID.String()] = *d
	return j.err
}

func (j *memJournal) SaveStep(_ context.Context, rec *domain.StepRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps = append(j.steps, *rec)
	return j.err
}

func (j *memJournal) deployment(id string) (domain.Deployment, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	d, ok := j.deployments[id]
	return d, ok
}

// recordingNotifier запоминает события.
type recordingNotifier struct {
	mu       sync.Mutex
	steps    []domain.StepRecord
	finished []domain.Deployment
}

func (n *recordingNotifier) StepFinished(_ context.Context, _ *domain.Deployment, rec *domain.StepRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.steps = append(n.steps, *rec)
}

func (n *recordingNotifier) DeploymentFinished(_ context.Context, d *domain.Deployment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, *d)
}

func (n *recordingNotifier) finishedByModule() map[string]domain.Deployment {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]domain.Deployment, len(n.finished))
	for _, d := range n.finished {
		out[d.Job.ModuleName] = d
	}
	return out
}

var errBoom = errors.New("boom")

func testStep(stack string) domain.StepRequest {
	return domain.StepRequest{
		TemplateLocation: "t",
		StackName:        stack,
		RegionName:       "us-east-1",
		Parameters:       map[string]string{},
		CompletionToken:  "token-" + stack,
	}
}

func testJob(module string, stacks ...string) domain.JobRequest {
	job := domain.JobRequest{ModuleName: module}
	for _, s := range stacks {
		job.Steps = append(job.Steps, testStep(s))
	}
	return job.WithCompletionToken("token-" + module)
}
