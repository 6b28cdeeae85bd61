// Package telemetry — логирование и метрики Cascade.
//
// logging.go: slog-логгер из LOG_LEVEL/LOG_FORMAT и дочерние логгеры
// с ключами deployment_id, module, stack, region.
//
// metrics.go: Prometheus-метрики с префиксом cascade_ (шаги по итогу,
// опросы стеков по классу статуса, сигналы завершения, активные задания,
// разрешённые условия ожидания). Daemon отдаёт их на /metrics.
package telemetry
