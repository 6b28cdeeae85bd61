package definition

import (
	"errors"
	"fmt"
)

// Ошибки валидации определений.
var (
	// ErrMissingField — не заполнено обязательное поле.
	ErrMissingField = errors.New("missing required field")

	// ErrDuplicateModule — два файла с одинаковым moduleName.
	ErrDuplicateModule = errors.New("duplicate module name")

	// ErrInvalidTimeout — timeout не является положительным числом.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrDecode — файл не удалось разобрать.
	ErrDecode = errors.New("cannot decode job definition")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	File    string // файл с определением
	Step    int    // индекс шага, -1 если ошибка на уровне задания
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Step >= 0 {
		return fmt.Sprintf("%s: stacks[%d]: %s", e.File, e.Step, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(file string, step int, field, message string, err error) *ValidationError {
	return &ValidationError{
		File:    file,
		Step:    step,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

func missingField(file string, step int, field string) *ValidationError {
	return NewValidationError(file, step, field, fmt.Sprintf("missing property '%s'", field), ErrMissingField)
}
