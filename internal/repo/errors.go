package repo

import "errors"

var (
	// ErrNotFound — deployment или запись шага не найдены.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState — deployment уже не в том статусе, который ожидает операция
	// (Claim не-PENDING, MarkTimedOut завершённого).
	ErrInvalidState = errors.New("deployment is not in expected status")
)
