// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go     — Handler с DI (хранилища, publisher, logger)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (recovery, request id, logging)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - dto.go         — представления deployment и шага
//   - job_handler.go — обработчики для /jobs
//
// Endpoints:
//
//	POST /api/v1/jobs            — отправить определение задания
//	GET  /api/v1/jobs            — список (status, module, limit, offset)
//	GET  /api/v1/jobs/{id}       — deployment
//	GET  /api/v1/jobs/{id}/steps — состояние шагов
package api
