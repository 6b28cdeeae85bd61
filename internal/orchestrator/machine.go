package orchestrator

import (
	"errors"
	"fmt"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/tasks"
)

// Machine — состояние машины одного шага.
//
// Переходы вычисляет чистая функция Advance; StepRunner только вызывает
// обработчик текущего состояния и подаёт результат в Advance.
type Machine struct {
	// Phase — текущее состояние.
	Phase domain.StepPhase

	// Outcome — итог шага. Заполняется при переходе в Signaling.
	Outcome domain.Outcome

	// Polls — сколько раз опрашивался статус стека.
	Polls int

	// NotFound — сколько опросов подряд стек не находился.
	NotFound int

	// MaxNotFound — порог NotFound, после которого шаг падает.
	// 0 — правило выключено, отсутствующий стек всегда InProgress.
	MaxNotFound int

	// LastStatus — последний «сырой» статус стека.
	LastStatus string

	// Wait — перед следующим опросом нужна пауза.
	Wait bool
}

// CallResult — результат вызова обработчика текущего состояния.
type CallResult struct {
	// Err — ошибка обработчика.
	Err error

	// Raw — «сырой» статус стека (только для Polling).
	Raw string
}

// NewMachine возвращает машину в начальном состоянии.
func NewMachine(maxNotFound int) Machine {
	return Machine{Phase: domain.PhasePreparingPrereqs, MaxNotFound: maxNotFound}
}

// Advance вычисляет следующее состояние машины.
//
// Функция чистая: не вызывает обработчики и не спит.
func Advance(m Machine, r CallResult) Machine {
	m.Wait = false

	switch m.Phase {
	case domain.PhasePreparingPrereqs:
		if r.Err != nil {
			return fail(m, fmt.Sprintf("preaction: %v", r.Err))
		}
		m.Phase = domain.PhaseCreating

	case domain.PhaseCreating:
		if r.Err != nil && !errors.Is(r.Err, tasks.ErrAlreadyExists) {
			return fail(m, fmt.Sprintf("launch: %v", r.Err))
		}
		m.Phase = domain.PhasePolling

	case domain.PhasePolling:
		if r.Err != nil {
			return fail(m, fmt.Sprintf("monitor: %v", r.Err))
		}
		return poll(m, r.Raw)

	case domain.PhaseSignaling:
		m.Phase = domain.PhaseDone
	}

	return m
}

// poll обрабатывает очередной статус стека.
func poll(m Machine, raw string) Machine {
	m.Polls++
	m.LastStatus = raw

	switch Classify(raw) {
	case domain.StackSuccess:
		m.NotFound = 0
		m.Phase = domain.PhaseSignaling
		m.Outcome = domain.Success()
		return m

	case domain.StackFailure:
		m.NotFound = 0
		return fail(m, raw)
	}

	if isNotFound(raw) {
		m.NotFound++
		if m.MaxNotFound > 0 && m.NotFound > m.MaxNotFound {
			return fail(m, domain.RawStatusNotStarted)
		}
	} else {
		m.NotFound = 0
	}

	m.Wait = true
	return m
}

// fail переводит машину в Signaling с ошибкой.
func fail(m Machine, detail string) Machine {
	m.Phase = domain.PhaseSignaling
	m.Outcome = domain.Failure(detail)
	return m
}
