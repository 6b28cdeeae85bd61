// Package orchestrator выполняет задания развёртывания стеков.
//
// # Обзор
//
// Задание (job) — упорядоченный список шагов, каждый шаг — один стек
// в одном регионе. Пакет состоит из частей:
//
//   - Classify — чистая функция: «сырой» статус стека → InProgress/Success/Failure
//   - Machine и Advance — чистая машина состояний шага
//   - StepRunner — проводит шаг через машину, вызывая обработчики из пакета tasks
//   - JobRunner — выполняет шаги задания по очереди, останавливаясь на первой ошибке
//   - Orchestrator — запускает задания параллельно, по горутине на задание
//
// # Машина состояний шага
//
//	PREPARING_PREREQS ──ok──▶ CREATING ──ok/already exists──▶ POLLING ──terminal──▶ SIGNALING ──▶ DONE
//	        │                     │                              │  ▲
//	        └──error──────────────┴──────────error───────────────┤  └─in progress (пауза)
//	                                                             ▼
//	                                                         SIGNALING
//
// Сигнал завершения отправляется ровно один раз для каждого шага, дошедшего
// до SIGNALING, в том числе для упавшего. Ошибка доставки сигнала только
// логируется и итог шага не меняет.
//
// Пауза между опросами фиксированная (PollInterval), числом опросов шаг
// не ограничен: общий таймаут задания соблюдает ожидающая сторона.
// Исключение — стек, которого нет дольше MaxNotFoundPolls опросов подряд:
// шаг падает с деталью CREATE_NOT_STARTED.
//
// # Журнал и продолжение
//
// Journal получает каждое изменение записи шага. Попытка сигнала
// записывается до отправки, поэтому после рестарта Resume пропускает
// уже просигналенные шаги и повторяет с начала первый незавершённый.
// Повторный Launch безопасен: уже существующий стек не считается ошибкой.
//
// # Остановка
//
// Stop отменяет контекст: шаги прерываются без сигнала (ErrInterrupted),
// deployment остаётся в RUNNING и продолжается при следующем старте.
package orchestrator
