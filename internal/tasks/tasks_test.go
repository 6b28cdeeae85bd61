package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/Cascade/internal/domain"
)

// --- HTTPSignaler Tests ---

func TestHTTPSignaler_Success(t *testing.T) {
	var got SignalDocument
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "" {
			t.Errorf("expected empty Content-Type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewHTTPSignaler(HTTPSignalerConfig{})
	err := s.Signal(context.Background(), SignalRequest{
		StackName:       "vpc",
		CompletionToken: server.URL,
		Succeeded:       true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Status != SignalStatusSuccess {
		t.Errorf("expected SUCCESS, got %s", got.Status)
	}
	if got.UniqueID != "vpc" {
		t.Errorf("expected UniqueId vpc, got %s", got.UniqueID)
	}
	if got.Reason != "Configuration Complete" {
		t.Errorf("unexpected reason: %s", got.Reason)
	}
}

func TestHTTPSignaler_FailureCarriesDetail(t *testing.T) {
	var got SignalDocument
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewHTTPSignaler(HTTPSignalerConfig{})
	err := s.Signal(context.Background(), SignalRequest{
		StackName:       "db",
		CompletionToken: server.URL,
		ErrorDetail:     "ROLLBACK_COMPLETE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Status != SignalStatusFailure {
		t.Errorf("expected FAILURE, got %s", got.Status)
	}
	if got.Data != "ROLLBACK_COMPLETE" {
		t.Errorf("expected detail in Data, got %s", got.Data)
	}
}

func TestHTTPSignaler_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("SignatureDoesNotMatch"))
	}))
	defer server.Close()

	s := NewHTTPSignaler(HTTPSignalerConfig{})
	err := s.Signal(context.Background(), SignalRequest{StackName: "x", CompletionToken: server.URL, Succeeded: true})
	if !errors.Is(err, ErrSignalRejected) {
		t.Fatalf("expected ErrSignalRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("expected status code in error, got %v", err)
	}
}

func TestHTTPSignaler_MissingToken(t *testing.T) {
	s := NewHTTPSignaler(HTTPSignalerConfig{})
	err := s.Signal(context.Background(), SignalRequest{StackName: "x"})
	if !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

// --- TemplateFetcher Tests ---

func TestTemplateFetcher_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"Resources":{}}`))
	}))
	defer server.Close()

	body, err := NewTemplateFetcher(nil).Fetch(context.Background(), server.URL+"/vpc.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != `{"Resources":{}}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestTemplateFetcher_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewTemplateFetcher(nil).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrTemplateFetch) {
		t.Errorf("expected ErrTemplateFetch, got %v", err)
	}
}

func TestTemplateFetcher_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.yaml")
	if err := os.WriteFile(path, []byte("Resources: {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewTemplateFetcher(nil)
	for _, location := range []string{path, "file://" + path} {
		body, err := f.Fetch(context.Background(), location)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", location, err)
		}
		if body != "Resources: {}" {
			t.Errorf("%s: unexpected body: %s", location, body)
		}
	}
}

func TestTemplateFetcher_UnsupportedScheme(t *testing.T) {
	_, err := NewTemplateFetcher(nil).Fetch(context.Background(), "ftp://host/t.json")
	if !errors.Is(err, ErrTemplateFetch) {
		t.Errorf("expected ErrTemplateFetch, got %v", err)
	}
}

// --- Handlers Tests ---

func TestHandlers_Validate(t *testing.T) {
	noop := Handlers{
		Preparer: PrepareFunc(func(context.Context, domain.StepRequest) error { return nil }),
		Launcher: LaunchFunc(func(context.Context, domain.StepRequest) error { return nil }),
		Monitor:  StatusFunc(func(context.Context, domain.StepRequest) (string, error) { return "", nil }),
		Signaler: SignalFunc(func(context.Context, SignalRequest) error { return nil }),
	}
	if err := noop.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	missing := noop
	missing.Monitor = nil
	if err := missing.Validate(); !errors.Is(err, ErrMissingHandler) {
		t.Errorf("expected ErrMissingHandler, got %v", err)
	}
}

func TestNewSignalDocument_UniqueID(t *testing.T) {
	a := NewSignalDocument(SignalRequest{StackName: "vpc", RegionName: "us-east-1", Succeeded: true})
	b := NewSignalDocument(SignalRequest{StackName: "vpc", RegionName: "eu-west-1", Succeeded: true})

	if a.UniqueID == b.UniqueID {
		t.Errorf("same stack in different regions should have different ids: %s", a.UniqueID)
	}
	if a.UniqueID != "us-east-1/vpc" {
		t.Errorf("unexpected id: %s", a.UniqueID)
	}
	if !a.Succeeded() {
		t.Error("expected success document")
	}
}
