package orchestrator

import "github.com/shaiso/Cascade/internal/domain"

// successStatuses — статусы стека, означающие успех.
var successStatuses = map[string]struct{}{
	"CREATE_COMPLETE": {},
	"UPDATE_COMPLETE": {},
}

// failureStatuses — терминальные статусы ошибки и отката.
var failureStatuses = map[string]struct{}{
	"ROLLBACK_FAILED":          {},
	"ROLLBACK_IN_PROGRESS":     {},
	"ROLLBACK_COMPLETE":        {},
	"UPDATE_ROLLBACK_COMPLETE": {},
	"UPDATE_ROLLBACK_FAILED":   {},
	"CREATE_FAILED":            {},
	"UPDATE_FAILED":            {},
}

// Classify переводит «сырой» статус стека в StackStatus.
//
// Пустой статус и domain.RawStatusNotStarted (стека ещё нет) — InProgress.
// Всё, что не попало в списки успеха и ошибки, тоже InProgress.
func Classify(raw string) domain.StackStatus {
	if _, ok := successStatuses[raw]; ok {
		return domain.StackSuccess
	}
	if _, ok := failureStatuses[raw]; ok {
		return domain.StackFailure
	}
	return domain.StackInProgress
}

// isNotFound возвращает true для статуса отсутствующего стека.
func isNotFound(raw string) bool {
	return raw == "" || raw == domain.RawStatusNotStarted
}
