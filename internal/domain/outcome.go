package domain

// Outcome — итог шага или задания.
type Outcome struct {
	Succeeded   bool   `json:"succeeded"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Success возвращает успешный Outcome.
func Success() Outcome {
	return Outcome{Succeeded: true}
}

// Failure возвращает неуспешный Outcome с деталями.
func Failure(detail string) Outcome {
	return Outcome{Succeeded: false, ErrorDetail: detail}
}
