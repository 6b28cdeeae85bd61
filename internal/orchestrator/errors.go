package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrInterrupted — выполнение прервано отменой контекста (остановка процесса).
	// Шаг не завершён и не отправлял сигнал, его можно продолжить после рестарта.
	ErrInterrupted = errors.New("execution interrupted")

	// ErrJobAlreadyActive — deployment уже выполняется.
	ErrJobAlreadyActive = errors.New("deployment already being processed")

	// ErrJobFinished — deployment уже в финальном статусе.
	ErrJobFinished = errors.New("deployment already finished")

	// ErrRecordsMismatch — число записей журнала не совпадает с числом шагов.
	ErrRecordsMismatch = errors.New("step records do not match job steps")

	// ErrNotStarted — оркестратор ещё не запущен.
	ErrNotStarted = errors.New("orchestrator not started")

	// ErrOrchestratorStopped — оркестратор остановлен.
	ErrOrchestratorStopped = errors.New("orchestrator stopped")
)
