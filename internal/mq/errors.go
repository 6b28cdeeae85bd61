package mq

import "errors"

// Ошибки MQ.
var (
	// ErrNoChannel — канал недоступен (нет соединения).
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrPermanent — обработчик не сможет обработать сообщение и при повторе.
	// Такое сообщение уходит в DLQ, а не возвращается в очередь.
	ErrPermanent = errors.New("permanent message failure")
)
