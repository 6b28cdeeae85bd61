package waitcond

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/Cascade/internal/tasks"
)

// State — состояние условия ожидания.
type State string

const (
	StateWaiting   State = "WAITING"
	StateSatisfied State = "SATISFIED"
	StateFailed    State = "FAILED"
	StateTimedOut  State = "TIMED_OUT"
)

// IsTerminal возвращает true, если условие разрешено.
func (s State) IsTerminal() bool {
	return s != StateWaiting
}

// Result — итог условия.
type Result struct {
	State   State
	Reason  string
	Signals []tasks.SignalDocument
}

// Condition — ожидание сигналов по одному токену.
type Condition struct {
	Token    string
	Count    int
	Deadline time.Time

	signals map[string]tasks.SignalDocument
	state   State
	reason  string
	done    chan struct{}
	timer   *time.Timer
	mu      sync.Mutex
}

func newCondition(token string, count int, timeout time.Duration) *Condition {
	c := &Condition{
		Token:    token,
		Count:    count,
		Deadline: time.Now().Add(timeout),
		signals:  make(map[string]tasks.SignalDocument),
		state:    StateWaiting,
		done:     make(chan struct{}),
	}
	if count <= 0 {
		c.resolve(StateSatisfied, "no signals expected")
		return c
	}
	// Срок уже истёк (например, при продолжении после рестарта)
	if timeout <= 0 {
		c.resolve(StateTimedOut, fmt.Sprintf("received 0 of %d signals", count))
		return c
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = time.AfterFunc(timeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == StateWaiting {
			c.resolve(StateTimedOut, fmt.Sprintf("received %d of %d signals", c.successes(), c.Count))
		}
	})
	return c
}

// Done закрывается, когда условие разрешено.
func (c *Condition) Done() <-chan struct{} {
	return c.done
}

// Result возвращает текущее состояние условия и полученные сигналы (по UniqueId).
func (c *Condition) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.signals))
	for id := range c.signals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	signals := make([]tasks.SignalDocument, 0, len(ids))
	for _, id := range ids {
		signals = append(signals, c.signals[id])
	}

	return Result{State: c.state, Reason: c.reason, Signals: signals}
}

// signal принимает сигнал.
func (c *Condition) signal(doc tasks.SignalDocument) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrConditionClosed, c.Token, c.state)
	}

	c.signals[doc.UniqueID] = doc

	if !doc.Succeeded() {
		c.resolve(StateFailed, fmt.Sprintf("%s: %s", doc.UniqueID, doc.Data))
		return nil
	}
	if c.successes() >= c.Count {
		c.resolve(StateSatisfied, fmt.Sprintf("received %d of %d signals", c.Count, c.Count))
	}
	return nil
}

// successes считает успешные сигналы. Вызывается под c.mu.
func (c *Condition) successes() int {
	n := 0
	for _, doc := range c.signals {
		if doc.Succeeded() {
			n++
		}
	}
	return n
}

// resolve фиксирует итог. Вызывается под c.mu (или до публикации условия).
func (c *Condition) resolve(state State, reason string) {
	c.state = state
	c.reason = reason
	if c.timer != nil {
		c.timer.Stop()
	}
	close(c.done)
}
