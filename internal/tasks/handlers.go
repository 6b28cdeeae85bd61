package tasks

import (
	"context"
	"fmt"

	"github.com/shaiso/Cascade/internal/domain"
)

// Preparer готовит регион-зависимые настройки до создания стека.
//
// Повторный вызов с тем же шагом перезаписывает ту же настройку.
type Preparer interface {
	Prepare(ctx context.Context, step domain.StepRequest) error
}

// Launcher запрашивает создание стека.
//
// Если стек уже существует, возвращает ошибку, для которой
// errors.Is(err, ErrAlreadyExists) == true.
type Launcher interface {
	Launch(ctx context.Context, step domain.StepRequest) error
}

// Monitor возвращает «сырой» статус стека.
//
// Отсутствующий стек — не ошибка: возвращается domain.RawStatusNotStarted.
type Monitor interface {
	Status(ctx context.Context, step domain.StepRequest) (string, error)
}

// Signaler доставляет сигнал завершения по completion token.
type Signaler interface {
	Signal(ctx context.Context, req SignalRequest) error
}

// SignalRequest — содержимое сигнала завершения шага.
type SignalRequest struct {
	StackName       string
	RegionName      string
	CompletionToken string
	Succeeded       bool
	ErrorDetail     string
}

// Handlers — набор обработчиков одного шага.
type Handlers struct {
	Preparer Preparer
	Launcher Launcher
	Monitor  Monitor
	Signaler Signaler
}

// Validate проверяет, что все обработчики заданы.
func (h Handlers) Validate() error {
	switch {
	case h.Preparer == nil:
		return fmt.Errorf("%w: preparer", ErrMissingHandler)
	case h.Launcher == nil:
		return fmt.Errorf("%w: launcher", ErrMissingHandler)
	case h.Monitor == nil:
		return fmt.Errorf("%w: monitor", ErrMissingHandler)
	case h.Signaler == nil:
		return fmt.Errorf("%w: signaler", ErrMissingHandler)
	}
	return nil
}

// PrepareFunc — функция-адаптер для Preparer.
type PrepareFunc func(ctx context.Context, step domain.StepRequest) error

// Prepare вызывает f.
func (f PrepareFunc) Prepare(ctx context.Context, step domain.StepRequest) error {
	return f(ctx, step)
}

// LaunchFunc — функция-адаптер для Launcher.
type LaunchFunc func(ctx context.Context, step domain.StepRequest) error

// Launch вызывает f.
func (f LaunchFunc) Launch(ctx context.Context, step domain.StepRequest) error {
	return f(ctx, step)
}

// StatusFunc — функция-адаптер для Monitor.
type StatusFunc func(ctx context.Context, step domain.StepRequest) (string, error)

// Status вызывает f.
func (f StatusFunc) Status(ctx context.Context, step domain.StepRequest) (string, error) {
	return f(ctx, step)
}

// SignalFunc — функция-адаптер для Signaler.
type SignalFunc func(ctx context.Context, req SignalRequest) error

// Signal вызывает f.
func (f SignalFunc) Signal(ctx context.Context, req SignalRequest) error {
	return f(ctx, req)
}
