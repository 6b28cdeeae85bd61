// Package repo — хранилище deployments и записей шагов в Postgres (pgx).
//
// Таблицы:
//   - deployments — одно задание: определение (JSONB), статус, время
//   - deployment_steps — запись шага: фаза, статус, число опросов,
//     флаг попытки сигнала
//
// Journal реализует журнал orchestrator; по нему daemon
// продолжает RUNNING deployments после рестарта.
package repo
