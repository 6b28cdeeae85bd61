package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler — функция обработки сообщения.
//
// nil — ack. Ошибка с ErrPermanent — nack без возврата (в DLQ).
// Любая другая ошибка — nack с возвратом в очередь.
type Handler func(ctx context.Context, msg *Message) error

// Consumer потребляет сообщения из очереди RabbitMQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Prefetch — сколько неподтверждённых сообщений держать (default: 1).
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run потребляет сообщения до отмены ctx.
// После разрыва соединения ждёт reconnect и подписывается заново.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.subscribe()
		if err == nil {
			c.logger.Info("consumer started", "queue", c.queue)
			err = c.drain(ctx, deliveries)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("consumer interrupted, waiting for reconnect", "queue", c.queue, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

// subscribe настраивает prefetch и начинает потребление.
func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	// auto-ack выключен: подтверждаем вручную после обработки
	deliveries, err := ch.Consume(string(c.queue), "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	return deliveries, nil
}

// drain обрабатывает сообщения, пока канал доставки открыт.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(raw, c.handle(ctx, raw.Body))
		}
	}
}

// handle разбирает конверт и вызывает обработчик.
func (c *Consumer) handle(ctx context.Context, body []byte) error {
	msg, err := DecodeMessage(body)
	if err != nil {
		return err
	}

	c.logger.Debug("received message", "queue", c.queue, "message_id", msg.ID, "type", msg.Type)

	if err := c.handler(ctx, msg); err != nil {
		return fmt.Errorf("handle %s %s: %w", msg.Type, msg.ID, err)
	}
	return nil
}

// settle подтверждает или отклоняет доставку по результату обработки.
func (c *Consumer) settle(raw amqp.Delivery, err error) {
	var settleErr error
	switch {
	case err == nil:
		settleErr = raw.Ack(false)
	case errors.Is(err, ErrPermanent):
		c.logger.Error("message rejected", "queue", c.queue, "error", err)
		settleErr = raw.Nack(false, false)
	default:
		c.logger.Warn("message requeued", "queue", c.queue, "error", err)
		settleErr = raw.Nack(false, true)
	}
	if settleErr != nil {
		c.logger.Warn("failed to settle delivery", "queue", c.queue, "error", settleErr)
	}
}

// DecodeMessage разбирает конверт. Нечитаемый конверт — ErrPermanent.
func DecodeMessage(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: decode message: %v", ErrPermanent, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: message without type", ErrPermanent)
	}
	return &msg, nil
}

// ParsePayload разбирает payload сообщения в T. Ошибка разбора — ErrPermanent.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("%w: unmarshal %s payload: %v", ErrPermanent, msg.Type, err)
	}
	return result, nil
}
