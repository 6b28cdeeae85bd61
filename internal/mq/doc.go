// Package mq — обмен сообщениями через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — конверт Message и публикация
//   - consumer.go   — потребление с ack/nack/DLQ
//   - notifier.go   — события orchestrator в cascade.events
//
// Типы сообщений:
//   - job.submitted       — API создал PENDING deployment
//   - step.finished       — шаг завершён
//   - deployment.finished — задание завершено
package mq
