// Package service — daemon cascade-orchestrator.
//
// Daemon связывает orchestrator с хранилищем и транспортом:
//
//	каталог определений ─┐
//	job.submitted (MQ) ──┼─► Claim (PENDING → RUNNING) ─► Orchestrator.Submit
//	polling PENDING ─────┘
//	RUNNING после рестарта ──────────────────────────────► Orchestrator.Resume
//
// Заданию без completion token daemon выдаёт собственный адрес
// <SIGNAL_BASE_URL>/signals/<deployment id> и сам ждёт сигналы через
// waitcond.Supervisor. Истёкший таймаут переводит deployment в TIMED_OUT.
package service
