package tasks

import "fmt"

// Статусы документа сигнала.
const (
	SignalStatusSuccess = "SUCCESS"
	SignalStatusFailure = "FAILURE"
)

// signalReason — фиксированная причина в документе сигнала.
const signalReason = "Configuration Complete"

// SignalDocument — тело сигнала завершения в формате wait condition handle.
type SignalDocument struct {
	Status   string `json:"Status"`
	Reason   string `json:"Reason"`
	UniqueID string `json:"UniqueId"`
	Data     string `json:"Data"`
}

// NewSignalDocument строит документ сигнала из запроса.
// Повторный сигнал от того же шага перезаписывает предыдущий (тот же UniqueId).
func NewSignalDocument(req SignalRequest) SignalDocument {
	doc := SignalDocument{
		Status:   SignalStatusSuccess,
		Reason:   signalReason,
		UniqueID: UniqueID(req.RegionName, req.StackName),
		Data:     fmt.Sprintf("Stack %s deployed", req.StackName),
	}
	if !req.Succeeded {
		doc.Status = SignalStatusFailure
		doc.Data = req.ErrorDetail
	}
	return doc
}

// Succeeded возвращает true для сигнала об успехе.
func (d SignalDocument) Succeeded() bool {
	return d.Status == SignalStatusSuccess
}

// UniqueID возвращает ключ сигнала шага: region/stack.
// Одинаковые имена стеков в разных регионах дают разные ключи.
func UniqueID(region, stack string) string {
	if region == "" {
		return stack
	}
	return region + "/" + stack
}
