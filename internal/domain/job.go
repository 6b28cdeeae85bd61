package domain

import "fmt"

// DefaultTimeoutSeconds — время ожидания сигналов задания по умолчанию.
const DefaultTimeoutSeconds = 3600

// StepRequest — одна единица развёртывания: один стек в одном регионе.
//
// Создаётся один раз из определения задания и дальше не меняется.
type StepRequest struct {
	// TemplateLocation: URI шаблона инфраструктуры.
	TemplateLocation string `json:"template_location"`

	// StackName: имя стека, уникальное в пределах региона.
	StackName string `json:"stack_name"`

	// RegionName: целевой регион.
	RegionName string `json:"region_name"`

	// Parameters: параметры стека. Порядок не важен.
	Parameters map[string]string `json:"parameters,omitempty"`

	// CompletionToken: непрозрачный адрес, куда отправляется сигнал завершения.
	// Один на задание, общий для всех его шагов.
	CompletionToken string `json:"completion_token,omitempty"`
}

// MissingField возвращает имя первого незаполненного обязательного поля или "".
func (s StepRequest) MissingField() string {
	switch {
	case s.TemplateLocation == "":
		return "templateLocation"
	case s.StackName == "":
		return "stackName"
	case s.RegionName == "":
		return "regionName"
	default:
		return ""
	}
}

// String возвращает region/stack для логов.
func (s StepRequest) String() string {
	return fmt.Sprintf("%s/%s", s.RegionName, s.StackName)
}

// JobRequest — одно определение задания: упорядоченный список шагов.
type JobRequest struct {
	// ModuleName: идентификатор задания, уникальный в рамках запуска.
	ModuleName string `json:"module_name"`

	// Description: человекочитаемое описание.
	Description string `json:"description,omitempty"`

	// Steps: шаги в порядке выполнения.
	Steps []StepRequest `json:"steps"`

	// TimeoutSeconds: сколько ожидающая сторона ждёт сигналов задания.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Timeout возвращает таймаут с учётом значения по умолчанию.
func (j JobRequest) Timeout() int {
	if j.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds
	}
	return j.TimeoutSeconds
}

// CompletionToken возвращает токен задания (берётся из первого шага).
func (j JobRequest) CompletionToken() string {
	if len(j.Steps) == 0 {
		return ""
	}
	return j.Steps[0].CompletionToken
}

// WithCompletionToken возвращает копию задания, где у всех шагов один и тот же токен.
// Исходное задание не меняется.
func (j JobRequest) WithCompletionToken(token string) JobRequest {
	out := j
	out.Steps = make([]StepRequest, len(j.Steps))
	for i, step := range j.Steps {
		step.CompletionToken = token
		out.Steps[i] = step
	}
	return out
}
