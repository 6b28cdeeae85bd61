package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/repo"
)

type fakeStore struct {
	mu          sync.Mutex
	deployments map[uuid.UUID]domain.Deployment
	steps       map[uuid.UUID][]*domain.StepRecord
	lastFilter  repo.DeploymentFilter
	listErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		deployments: make(map[uuid.UUID]domain.Deployment),
		steps:       make(map[uuid.UUID][]*domain.StepRecord),
	}
}

func (s *fakeStore) Create(_ context.Context, d *domain.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deployments[d.ID] = *d
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deployments[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &d, nil
}

func (s *fakeStore) List(_ context.Context, filter repo.DeploymentFilter) ([]domain.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Deployment
	for _, d := range s.deployments {
		out = append(out, d)
	}
	return out, nil
}

func (s *fakeStore) ListByDeployment(_ context.Context, id uuid.UUID) ([]*domain.StepRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps[id], nil
}

type fakePublisher struct {
	ids []uuid.UUID
	err error
}

func (p *fakePublisher) PublishJobSubmitted(_ context.Context, id uuid.UUID) error {
	p.ids = append(p.ids, id)
	return p.err
}

func newTestServer(t *testing.T, store *fakeStore, pub JobPublisher) *httptest.Server {
	t.Helper()
	h := NewHandler(Config{
		Deployments: store,
		Steps:       store,
		Publisher:   pub,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

const validDefinition = `{
	"moduleName": "network",
	"stacks": [
		{"templatePath": "https://t/vpc.json", "stackName": "vpc", "regionName": "us-east-1"},
		{"templatePath": "https://t/db.json", "stackName": "db", "regionName": "us-east-1"}
	]
}`

// --- SubmitJob Tests ---

func TestSubmitJob_Created(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	srv := newTestServer(t, store, pub)

	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader(validDefinition))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("response has no request id")
	}

	body := decode[struct{ Data DeploymentResponse }](t, resp)
	if body.Data.Status != domain.DeploymentStatusPending {
		t.Errorf("Status = %s, want PENDING", body.Data.Status)
	}
	if body.Data.Steps != 2 || body.Data.TimeoutSecs != domain.DefaultTimeoutSeconds {
		t.Errorf("Steps = %d, TimeoutSecs = %d", body.Data.Steps, body.Data.TimeoutSecs)
	}
	if len(pub.ids) != 1 || pub.ids[0] != body.Data.ID {
		t.Errorf("published = %v, want [%s]", pub.ids, body.Data.ID)
	}
	if _, err := store.GetByID(context.Background(), body.Data.ID); err != nil {
		t.Errorf("deployment not stored: %v", err)
	}
}

func TestSubmitJob_PublishFailureStillCreated(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, &fakePublisher{err: errors.New("broker down")})

	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader(validDefinition))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
}

func TestSubmitJob_ValidationError(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)

	def := `{"moduleName": "network", "stacks": [{"templatePath": "https://t/vpc.json", "regionName": "us-east-1"}]}`
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader(def))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	body := decode[ErrorResponse](t, resp)
	if body.Error.Code != ErrCodeValidation {
		t.Errorf("Code = %s, want %s", body.Error.Code, ErrCodeValidation)
	}
	if body.Error.Field != "stackName" {
		t.Errorf("Field = %q, want stackName", body.Error.Field)
	}
	if body.Error.Step == nil || *body.Error.Step != 0 {
		t.Errorf("Step = %v, want 0", body.Error.Step)
	}
}

// --- ListJobs Tests ---

func TestListJobs_Filter(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, nil)

	resp, err := http.Get(srv.URL + "/api/v1/jobs?status=RUNNING&module=network&limit=5&offset=10")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	want := repo.DeploymentFilter{Status: domain.DeploymentStatusRunning, Module: "network", Limit: 5, Offset: 10}
	if store.lastFilter != want {
		t.Errorf("filter = %+v, want %+v", store.lastFilter, want)
	}
}

func TestListJobs_InvalidStatus(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)

	resp, err := http.Get(srv.URL + "/api/v1/jobs?status=DONE")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListJobs_RepoError(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("connection refused")
	srv := newTestServer(t, store, nil)

	resp, err := http.Get(srv.URL + "/api/v1/jobs")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

// --- GetJob Tests ---

func TestGetJob(t *testing.T) {
	store := newFakeStore()
	d := domain.NewDeployment(domain.JobRequest{ModuleName: "network"})
	_ = store.Create(context.Background(), d)
	srv := newTestServer(t, store, nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/api/v1/jobs/" + d.ID.String(), http.StatusOK},
		{"not found", "/api/v1/jobs/" + uuid.NewString(), http.StatusNotFound},
		{"bad id", "/api/v1/jobs/nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

// --- ListJobSteps Tests ---

func TestListJobSteps_FillsPending(t *testing.T) {
	store := newFakeStore()
	d := domain.NewDeployment(domain.JobRequest{
		ModuleName: "network",
		Steps: []domain.StepRequest{
			{TemplateLocation: "https://t/vpc.json", StackName: "vpc", RegionName: "us-east-1"},
			{TemplateLocation: "https://t/db.json", StackName: "db", RegionName: "us-east-1"},
		},
	})
	_ = store.Create(context.Background(), d)

	rec := domain.NewStepRecord(d.ID, 0, d.Job.Steps[0])
	rec.MarkRunning()
	rec.Polls = 4
	rec.MarkSignaling(domain.Failure("ROLLBACK_COMPLETE"))
	store.steps[d.ID] = []*domain.StepRecord{rec}

	srv := newTestServer(t, store, nil)

	resp, err := http.Get(srv.URL + "/api/v1/jobs/" + d.ID.String() + "/steps")
	if err != nil {
		t.Fatal(err)
	}
	body := decode[struct {
		Data  []StepResponse
		Total int
	}](t, resp)

	if body.Total != 2 {
		t.Fatalf("Total = %d, want 2", body.Total)
	}
	if body.Data[0].Status != domain.StepStatusFailed || body.Data[0].Error != "ROLLBACK_COMPLETE" || body.Data[0].Polls != 4 {
		t.Errorf("Data[0] = %+v", body.Data[0])
	}
	if body.Data[1].Status != domain.StepStatusPending || body.Data[1].StackName != "db" {
		t.Errorf("Data[1] = %+v, want pending db", body.Data[1])
	}
}

// --- Middleware Tests ---

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
