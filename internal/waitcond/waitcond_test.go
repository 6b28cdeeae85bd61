package waitcond

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Cascade/internal/tasks"
)

func success(id string) tasks.SignalDocument {
	return tasks.SignalDocument{Status: tasks.SignalStatusSuccess, Reason: "Configuration Complete", UniqueID: id, Data: "ok"}
}

func failure(id, data string) tasks.SignalDocument {
	return tasks.SignalDocument{Status: tasks.SignalStatusFailure, Reason: "Configuration Complete", UniqueID: id, Data: data}
}

func isDone(c *Condition) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

// --- Supervisor Tests ---

func TestSupervisor_SatisfiedAfterCount(t *testing.T) {
	s := New(nil)
	c, err := s.Expect("tok", 2, time.Minute)
	if err != nil {
		t.Fatalf("Expect() error = %v", err)
	}

	if err := s.Signal("tok", success("us-east-1/vpc")); err != nil {
		t.Fatalf("Signal() error = %v", err)
	}
	if isDone(c) {
		t.Fatal("condition resolved after 1 of 2 signals")
	}

	if err := s.Signal("tok", success("eu-west-1/vpc")); err != nil {
		t.Fatalf("Signal() error = %v", err)
	}
	if !isDone(c) {
		t.Fatal("condition not resolved after 2 of 2 signals")
	}

	res := c.Result()
	if res.State != StateSatisfied {
		t.Errorf("State = %s, want %s", res.State, StateSatisfied)
	}
	if len(res.Signals) != 2 {
		t.Fatalf("len(Signals) = %d, want 2", len(res.Signals))
	}
	// Сигналы отсортированы по UniqueId
	if res.Signals[0].UniqueID != "eu-west-1/vpc" {
		t.Errorf("Signals[0].UniqueID = %s, want eu-west-1/vpc", res.Signals[0].UniqueID)
	}
}

func TestSupervisor_SameUniqueIDOverwrites(t *testing.T) {
	s := New(nil)
	c, _ := s.Expect("tok", 2, time.Minute)

	_ = s.Signal("tok", success("us-east-1/vpc"))
	_ = s.Signal("tok", success("us-east-1/vpc"))

	if isDone(c) {
		t.Fatal("duplicate UniqueId must not count twice")
	}
	if got := len(c.Result().Signals); got != 1 {
		t.Errorf("len(Signals) = %d, want 1", got)
	}
}

func TestSupervisor_FailureResolvesImmediately(t *testing.T) {
	s := New(nil)
	c, _ := s.Expect("tok", 3, time.Minute)

	if err := s.Signal("tok", failure("us-east-1/db", "ROLLBACK_COMPLETE")); err != nil {
		t.Fatalf("Signal() error = %v", err)
	}

	res := c.Result()
	if res.State != StateFailed {
		t.Errorf("State = %s, want %s", res.State, StateFailed)
	}
	if !strings.Contains(res.Reason, "ROLLBACK_COMPLETE") {
		t.Errorf("Reason = %q, want it to contain ROLLBACK_COMPLETE", res.Reason)
	}

	err := s.Signal("tok", success("us-east-1/vpc"))
	if !errors.Is(err, ErrConditionClosed) {
		t.Errorf("Signal() after resolve error = %v, want ErrConditionClosed", err)
	}
}

func TestSupervisor_ZeroCountSatisfied(t *testing.T) {
	s := New(nil)
	c, _ := s.Expect("tok", 0, time.Minute)

	if !isDone(c) {
		t.Fatal("condition with count 0 must be resolved")
	}
	if got := c.Result().State; got != StateSatisfied {
		t.Errorf("State = %s, want %s", got, StateSatisfied)
	}
}

func TestSupervisor_Timeout(t *testing.T) {
	s := New(nil)
	_, _ = s.Expect("tok", 2, 20*time.Millisecond)
	_ = s.Signal("tok", success("us-east-1/vpc"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := s.Wait(ctx, "tok")
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if res.State != StateTimedOut {
		t.Errorf("State = %s, want %s", res.State, StateTimedOut)
	}
	if res.Reason != "received 1 of 2 signals" {
		t.Errorf("Reason = %q", res.Reason)
	}
}

func TestSupervisor_ExpiredDeadlineTimesOut(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		s := New(nil)
		c, err := s.Expect("tok", 2, timeout)
		if err != nil {
			t.Fatalf("Expect(%v) error = %v", timeout, err)
		}

		if !isDone(c) {
			t.Fatalf("timeout %v: condition must be resolved immediately", timeout)
		}
		res := c.Result()
		if res.State != StateTimedOut {
			t.Errorf("timeout %v: State = %s, want %s", timeout, res.State, StateTimedOut)
		}
		if res.Reason != "received 0 of 2 signals" {
			t.Errorf("timeout %v: Reason = %q", timeout, res.Reason)
		}
		if err := s.Signal("tok", success("us-east-1/vpc")); !errors.Is(err, ErrConditionClosed) {
			t.Errorf("timeout %v: Signal() error = %v, want ErrConditionClosed", timeout, err)
		}
	}
}

func TestSupervisor_WaitCancelled(t *testing.T) {
	s := New(nil)
	_, _ = s.Expect("tok", 1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Wait(ctx, "tok")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	if res.State != StateWaiting {
		t.Errorf("State = %s, want %s", res.State, StateWaiting)
	}
}

func TestSupervisor_Errors(t *testing.T) {
	s := New(nil)

	if err := s.Signal("missing", success("a")); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("Signal(unknown) error = %v, want ErrUnknownToken", err)
	}
	if _, err := s.Wait(context.Background(), "missing"); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("Wait(unknown) error = %v, want ErrUnknownToken", err)
	}

	_, _ = s.Expect("tok", 1, time.Minute)
	if _, err := s.Expect("tok", 1, time.Minute); !errors.Is(err, ErrAlreadyExpected) {
		t.Errorf("Expect(duplicate) error = %v, want ErrAlreadyExpected", err)
	}

	if err := s.Signal("tok", tasks.SignalDocument{Status: "MAYBE", UniqueID: "a"}); !errors.Is(err, ErrInvalidSignal) {
		t.Errorf("Signal(bad status) error = %v, want ErrInvalidSignal", err)
	}
	if err := s.Signal("tok", tasks.SignalDocument{Status: tasks.SignalStatusSuccess}); !errors.Is(err, ErrInvalidSignal) {
		t.Errorf("Signal(no UniqueId) error = %v, want ErrInvalidSignal", err)
	}

	s.Forget("tok")
	if _, ok := s.Get("tok"); ok {
		t.Error("Get() after Forget() = true, want false")
	}
}

// --- Handler Tests ---

func newSignalServer(s *Supervisor) *httptest.Server {
	mux := http.NewServeMux()
	mux.Handle("PUT /signals/{token}", s.Handler())
	return httptest.NewServer(mux)
}

func put(t *testing.T, url, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestHandler_Accepts(t *testing.T) {
	s := New(nil)
	c, _ := s.Expect("tok", 1, time.Minute)
	srv := newSignalServer(s)
	defer srv.Close()

	code := put(t, srv.URL+"/signals/tok",
		`{"Status":"SUCCESS","Reason":"Configuration Complete","UniqueId":"us-east-1/vpc","Data":"Stack vpc deployed"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if got := c.Result().State; got != StateSatisfied {
		t.Errorf("State = %s, want %s", got, StateSatisfied)
	}
}

func TestHandler_StatusCodes(t *testing.T) {
	s := New(nil)
	_, _ = s.Expect("tok", 1, time.Minute)
	srv := newSignalServer(s)
	defer srv.Close()

	valid := `{"Status":"FAILURE","Reason":"Configuration Complete","UniqueId":"us-east-1/vpc","Data":"x"}`

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown token", "/signals/other", valid, http.StatusNotFound},
		{"bad json", "/signals/tok", "{", http.StatusBadRequest},
		{"bad status", "/signals/tok", `{"Status":"?","UniqueId":"a"}`, http.StatusBadRequest},
		{"first signal", "/signals/tok", valid, http.StatusOK},
		{"after resolve", "/signals/tok", valid, http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := put(t, srv.URL+tt.path, tt.body); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandler_HTTPSignalerRoundTrip(t *testing.T) {
	s := New(nil)
	c, _ := s.Expect("tok", 1, time.Minute)
	srv := newSignalServer(s)
	defer srv.Close()

	signaler := tasks.NewHTTPSignaler(tasks.HTTPSignalerConfig{})
	err := signaler.Signal(context.Background(), tasks.SignalRequest{
		StackName:       "vpc",
		RegionName:      "us-east-1",
		CompletionToken: srv.URL + "/signals/tok",
		Succeeded:       true,
	})
	if err != nil {
		t.Fatalf("Signal() error = %v", err)
	}

	res := c.Result()
	if res.State != StateSatisfied {
		t.Errorf("State = %s, want %s", res.State, StateSatisfied)
	}
	if len(res.Signals) != 1 || res.Signals[0].UniqueID != "us-east-1/vpc" {
		t.Errorf("Signals = %+v", res.Signals)
	}
}
