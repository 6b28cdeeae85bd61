package domain

// StackStatus — классифицированный статус стека.
//
// Вычисляется заново на каждом опросе и нигде не хранится.
type StackStatus string

const (
	// StackInProgress: стек ещё меняется (или ещё не появился), опрос продолжается.
	StackInProgress StackStatus = "IN_PROGRESS"

	// StackSuccess: стек создан или обновлён.
	StackSuccess StackStatus = "SUCCESS"

	// StackFailure: стек в терминальном статусе ошибки или отката.
	StackFailure StackStatus = "FAILURE"
)

// IsTerminal возвращает true, если опрос стека можно прекращать.
func (s StackStatus) IsTerminal() bool {
	return s == StackSuccess || s == StackFailure
}

// RawStatusNotStarted — псевдо-статус, которым Monitor сообщает об отсутствии стека.
const RawStatusNotStarted = "CREATE_NOT_STARTED"

// DeploymentStatus — статус выполнения задания (job).
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	          (ожидающая сторона) → TIMED_OUT
type DeploymentStatus string

const (
	// DeploymentStatusPending: задание принято, но ещё не запущено.
	DeploymentStatusPending DeploymentStatus = "PENDING"

	// DeploymentStatusRunning: шаги задания выполняются.
	DeploymentStatusRunning DeploymentStatus = "RUNNING"

	// DeploymentStatusSucceeded: все шаги завершились успешно.
	DeploymentStatusSucceeded DeploymentStatus = "SUCCEEDED"

	// DeploymentStatusFailed: один из шагов завершился ошибкой, остальные не запускались.
	DeploymentStatusFailed DeploymentStatus = "FAILED"

	// DeploymentStatusTimedOut: ожидающая сторона не дождалась сигналов за timeoutSeconds.
	DeploymentStatusTimedOut DeploymentStatus = "TIMED_OUT"
)

// IsTerminal возвращает true, если статус финальный.
func (s DeploymentStatus) IsTerminal() bool {
	switch s {
	case DeploymentStatusSucceeded, DeploymentStatusFailed, DeploymentStatusTimedOut:
		return true
	default:
		return false
	}
}

// ParseDeploymentStatus парсит строку в DeploymentStatus.
// Неизвестные значения дают пустой статус (фильтр не применяется).
func ParseDeploymentStatus(s string) DeploymentStatus {
	switch DeploymentStatus(s) {
	case DeploymentStatusPending, DeploymentStatusRunning, DeploymentStatusSucceeded,
		DeploymentStatusFailed, DeploymentStatusTimedOut:
		return DeploymentStatus(s)
	default:
		return ""
	}
}

// StepPhase — состояние машины шага.
//
//	PREPARING_PREREQS → CREATING → POLLING ⟲ → SIGNALING → DONE
//	        ↘ (ошибка) ────────↘──────────↘──↗
type StepPhase string

const (
	PhasePreparingPrereqs StepPhase = "PREPARING_PREREQS"
	PhaseCreating         StepPhase = "CREATING"
	PhasePolling          StepPhase = "POLLING"
	PhaseSignaling        StepPhase = "SIGNALING"
	PhaseDone             StepPhase = "DONE"
)

// StepStatus — итоговый статус шага в журнале.
type StepStatus string

const (
	// StepStatusPending: шаг ещё не начат.
	StepStatusPending StepStatus = "PENDING"

	// StepStatusRunning: шаг в процессе.
	StepStatusRunning StepStatus = "RUNNING"

	// StepStatusSucceeded: стек создан, сигнал отправлен (или была попытка).
	StepStatusSucceeded StepStatus = "SUCCEEDED"

	// StepStatusFailed: шаг завершился ошибкой.
	StepStatusFailed StepStatus = "FAILED"

	// StepStatusNotAttempted: шаг пропущен, потому что упал один из предыдущих.
	StepStatusNotAttempted StepStatus = "NOT_ATTEMPTED"
)

// IsTerminal возвращает true, если статус финальный.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusSucceeded, StepStatusFailed, StepStatusNotAttempted:
		return true
	default:
		return false
	}
}
