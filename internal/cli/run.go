package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Cascade/internal/cloud"
	"github.com/shaiso/Cascade/internal/definition"
	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/orchestrator"
	"github.com/shaiso/Cascade/internal/service"
	"github.com/shaiso/Cascade/internal/tasks"
	"github.com/shaiso/Cascade/internal/telemetry"
	"github.com/shaiso/Cascade/internal/waitcond"
)

// RunOptions — параметры локального запуска.
type RunOptions struct {
	Dir               string
	PollInterval      time.Duration
	CallTimeout       time.Duration
	MaxNotFoundPolls  int
	MaxConcurrentJobs int

	// SignalAddr — адрес локального приёмника сигналов для заданий без completionToken.
	SignalAddr string

	LogLevel string
}

// RunResult — итог одного задания локального запуска.
type RunResult struct {
	Module    string `json:"module"`
	ID        string `json:"id"`
	Status    string `json:"status"`
	Condition string `json:"condition,omitempty"`
	Error     string `json:"error,omitempty"`
	Duration  string `json:"duration"`
}

// NewRunCmd создаёт команду локального развёртывания без API и БД.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	opts := RunOptions{}

	cmd := &cobra.Command{
		Use:   "run DIR",
		Short: "Deploy all job definitions in DIR from this machine",
		Long: `Run loads every job definition in DIR and deploys it with the local AWS credentials.
Jobs without a completionToken signal a local receiver; the command exits once every job finished
or ran past its timeout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Dir = args[0]

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			handlers := tasks.Handlers{}
			clients := cloud.NewClientSet()
			handlers.Preparer = cloud.NewVPCPreparer(clients)
			handlers.Launcher = cloud.NewStackLauncher(clients, tasks.NewTemplateFetcher(nil))
			handlers.Monitor = cloud.NewStackMonitor(clients)

			results, err := RunLocal(ctx, opts, handlers)
			if err != nil {
				return err
			}

			out := outputFn()
			rows := make([][]string, len(results))
			failed := 0
			for i, r := range results {
				rows[i] = []string{r.Module, r.Status, r.Condition, r.Duration, r.Error}
				if r.Status != string(domain.DeploymentStatusSucceeded) {
					failed++
				}
			}
			out.Print([]string{"MODULE", "STATUS", "SIGNALS", "DURATION", "ERROR"}, rows, results)

			if failed > 0 {
				return fmt.Errorf("%d of %d job(s) failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&opts.PollInterval, "poll-interval", 30*time.Second, "Pause between stack status polls")
	cmd.Flags().DurationVar(&opts.CallTimeout, "call-timeout", time.Minute, "Timeout of a single cloud call")
	cmd.Flags().IntVar(&opts.MaxNotFoundPolls, "max-not-found-polls", 10, "Consecutive polls a stack may be missing (0 disables)")
	cmd.Flags().IntVar(&opts.MaxConcurrentJobs, "max-concurrent-jobs", 0, "Jobs deployed at once (0 means all)")
	cmd.Flags().StringVar(&opts.SignalAddr, "signal-addr", "127.0.0.1:0", "Listen address of the local signal receiver")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")

	return cmd
}

// RunLocal разворачивает задания каталога и ждёт их завершения.
// Задание, не завершившееся за timeout секунд, прерывается и получает TIMED_OUT.
//
// handlers.Signaler, если не задан, — HTTPSignaler. Заданиям без токена
// выдаётся адрес локального приёмника, чтобы сигналы были видны в итоге.
func RunLocal(ctx context.Context, opts RunOptions, handlers tasks.Handlers) ([]RunResult, error) {
	logger := telemetry.NewLogger(opts.LogLevel, "text")

	jobs, err := definition.Discover(opts.Dir)
	if err != nil {
		return nil, err
	}

	if handlers.Signaler == nil {
		handlers.Signaler = tasks.NewHTTPSignaler(tasks.HTTPSignalerConfig{Logger: logger})
	}

	// 1. Локальный приёмник сигналов
	supervisor := waitcond.New(logger)
	ln, err := net.Listen("tcp", opts.SignalAddr)
	if err != nil {
		return nil, fmt.Errorf("listen for signals: %w", err)
	}
	baseURL := "http://" + ln.Addr().String()

	mux := http.NewServeMux()
	mux.Handle("PUT /signals/{token}", supervisor.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("signal receiver stopped", "error", err)
		}
	}()
	defer srv.Close()

	// 2. Orchestrator
	notifier := newFinishNotifier()
	orch := orchestrator.New(orchestrator.Config{
		Handlers:          handlers,
		Notifier:          notifier,
		PollInterval:      opts.PollInterval,
		CallTimeout:       opts.CallTimeout,
		MaxNotFoundPolls:  opts.MaxNotFoundPolls,
		MaxConcurrentJobs: opts.MaxConcurrentJobs,
		Logger:            logger,
	})
	if _, err := orch.Start(ctx); err != nil {
		return nil, err
	}
	defer orch.Stop()

	// 3. Заводим ожидание и запускаем задания
	runs := make([]*localRun, 0, len(jobs))
	for _, job := range jobs {
		d := domain.NewDeployment(job)
		run := &localRun{deployment: d, finished: notifier.track(d.ID)}
		timeout := time.Duration(d.Job.Timeout()) * time.Second

		if d.Job.CompletionToken() == "" {
			d.Job = d.Job.WithCompletionToken(service.SignalURL(baseURL, d.ID))
			cond, err := supervisor.Expect(d.ID.String(), len(d.Job.Steps), timeout)
			if err != nil {
				return nil, err
			}
			run.condition = cond
			run.expired = cond.Done()
		} else {
			// Сигналы уходят чужому ожидающему, срок отсчитываем сами
			expired := make(chan struct{})
			timer := time.AfterFunc(timeout, func() { close(expired) })
			defer timer.Stop()
			run.expired = expired
		}
		runs = append(runs, run)
	}

	for _, run := range runs {
		if err := orch.Submit(run.deployment); err != nil {
			return nil, fmt.Errorf("submit %s: %w", run.deployment.Job.ModuleName, err)
		}
	}

	// 4. Ждём завершения или истечения срока каждого задания
	for _, run := range runs {
		run.timedOut = run.await(ctx)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Задания с истёкшим сроком прерываются без сигнала
	orch.Stop()
	for _, run := range runs {
		if run.timedOut && !run.deployment.IsFinished() {
			run.deployment.MarkTimedOut(fmt.Sprintf("no result within %ds", run.deployment.Job.Timeout()))
			logger.Warn("job timed out", "module", run.deployment.Job.ModuleName, "id", run.deployment.ID)
		}
	}

	// 5. Итоги
	results := make([]RunResult, len(runs))
	for i, run := range runs {
		d := run.deployment
		r := RunResult{
			Module:   d.Job.ModuleName,
			ID:       d.ID.String(),
			Status:   string(d.Status),
			Error:    d.Error,
			Duration: d.Duration().Round(time.Second).String(),
		}
		if cond := run.condition; cond != nil {
			res := cond.Result()
			r.Condition = string(res.State) + " " + strconv.Itoa(len(res.Signals)) + "/" + strconv.Itoa(cond.Count)
		}
		results[i] = r
	}

	return results, nil
}

// localRun — задание локального запуска и его ожидание.
type localRun struct {
	deployment *domain.Deployment
	condition  *waitcond.Condition
	finished   <-chan struct{}
	expired    <-chan struct{}
	timedOut   bool
}

// await ждёт завершения задания. Возвращает true, если срок истёк раньше.
//
// Условие закрывается и при получении всех сигналов: тогда задание
// вот-вот завершится, и ждём его дальше.
func (r *localRun) await(ctx context.Context) bool {
	expired := r.expired
	for {
		select {
		case <-r.finished:
			return false
		case <-expired:
			if r.condition == nil || r.condition.Result().State == waitcond.StateTimedOut {
				return true
			}
			expired = nil
		case <-ctx.Done():
			return false
		}
	}
}

// finishNotifier закрывает канал задания при его завершении.
type finishNotifier struct {
	mu       sync.Mutex
	finished map[uuid.UUID]chan struct{}
}

func newFinishNotifier() *finishNotifier {
	return &finishNotifier{finished: make(map[uuid.UUID]chan struct{})}
}

func (n *finishNotifier) track(id uuid.UUID) <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan struct{})
	n.finished[id] = ch
	return ch
}

func (n *finishNotifier) StepFinished(context.Context, *domain.Deployment, *domain.StepRecord) {}

func (n *finishNotifier) DeploymentFinished(_ context.Context, d *domain.Deployment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch, ok := n.finished[d.ID]; ok {
		close(ch)
		delete(n.finished, d.ID)
	}
}
