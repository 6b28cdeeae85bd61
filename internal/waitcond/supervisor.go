package waitcond

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shaiso/Cascade/internal/tasks"
)

// Supervisor хранит условия ожидания по токенам.
type Supervisor struct {
	conditions map[string]*Condition
	mu         sync.RWMutex
	logger     *slog.Logger
}

// New создаёт Supervisor.
func New(logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{conditions: make(map[string]*Condition), logger: logger}
}

// Expect заводит условие: count успешных сигналов за timeout.
func (s *Supervisor) Expect(token string, count int, timeout time.Duration) (*Condition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conditions[token]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExpected, token)
	}

	c := newCondition(token, count, timeout)
	s.conditions[token] = c

	s.logger.Debug("condition expected", "token", token, "count", count, "timeout", timeout)
	return c, nil
}

// Signal передаёт сигнал условию токена.
func (s *Supervisor) Signal(token string, doc tasks.SignalDocument) error {
	if err := validate(doc); err != nil {
		return err
	}

	s.mu.RLock()
	c, ok := s.conditions[token]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}

	if err := c.signal(doc); err != nil {
		return err
	}

	s.logger.Debug("signal received",
		"token", token,
		"unique_id", doc.UniqueID,
		"status", doc.Status,
	)
	return nil
}

// Get возвращает условие токена.
func (s *Supervisor) Get(token string) (*Condition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conditions[token]
	return c, ok
}

// Wait ждёт разрешения условия или отмены ctx.
func (s *Supervisor) Wait(ctx context.Context, token string) (Result, error) {
	c, ok := s.Get(token)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}

	select {
	case <-ctx.Done():
		return c.Result(), ctx.Err()
	case <-c.Done():
		return c.Result(), nil
	}
}

// Forget удаляет условие токена.
func (s *Supervisor) Forget(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conditions, token)
}

func validate(doc tasks.SignalDocument) error {
	if strings.TrimSpace(doc.UniqueID) == "" {
		return fmt.Errorf("%w: UniqueId is required", ErrInvalidSignal)
	}
	if doc.Status != tasks.SignalStatusSuccess && doc.Status != tasks.SignalStatusFailure {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSignal, doc.Status)
	}
	return nil
}
