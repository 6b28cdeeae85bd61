package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeJobs   Exchange = "cascade.jobs"
	ExchangeEvents Exchange = "cascade.events"
	ExchangeDLQ    Exchange = "cascade.dlq"
)

// Queues — имена очередей.
const (
	QueueJobsSubmitted     Queue = "jobs.submitted"
	QueueEventsDeployments Queue = "events.deployments"
	QueueDLQJobs           Queue = "dlq.jobs"
)

// Routing keys.
const (
	RoutingKeySubmitted          RoutingKey = "submitted"
	RoutingKeyStepFinished       RoutingKey = "step.finished"
	RoutingKeyDeploymentFinished RoutingKey = "deployment.finished"
	RoutingKeyAllEvents          RoutingKey = "#"
	RoutingKeyDLQJobs            RoutingKey = "jobs"
)

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентно.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Exchanges
		exchanges := []struct {
			name Exchange
			kind string
		}{
			{ExchangeJobs, amqp.ExchangeDirect},
			{ExchangeEvents, amqp.ExchangeTopic},
			{ExchangeDLQ, amqp.ExchangeDirect},
		}
		for _, ex := range exchanges {
			if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		// 2. Queues: jobs.submitted отправляет отвергнутые сообщения в DLQ
		queues := []struct {
			name Queue
			args amqp.Table
		}{
			{QueueJobsSubmitted, amqp.Table{
				"x-dead-letter-exchange":    string(ExchangeDLQ),
				"x-dead-letter-routing-key": string(RoutingKeyDLQJobs),
			}},
			{QueueEventsDeployments, nil},
			{QueueDLQJobs, nil},
		}
		for _, q := range queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		// 3. Bindings
		bindings := []struct {
			queue      Queue
			routingKey RoutingKey
			exchange   Exchange
		}{
			{QueueJobsSubmitted, RoutingKeySubmitted, ExchangeJobs},
			{QueueEventsDeployments, RoutingKeyAllEvents, ExchangeEvents},
			{QueueDLQJobs, RoutingKeyDLQJobs, ExchangeDLQ},
		}
		for _, b := range bindings {
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Cascade RabbitMQ Topology:

    cascade.jobs (direct)
    └── jobs.submitted [routing: submitted]
            Consumer: cascade-orchestrator
            DLQ: dlq.jobs

    cascade.events (topic)
    └── events.deployments [routing: #]
            step.finished, deployment.finished
            Consumer: external subscribers

    cascade.dlq (direct)
    └── dlq.jobs [routing: jobs]
            Manual processing
  `
}
