package mq

import "errors"

// Ошибки mq.
var (
	// ErrNoChannel — канал недоступен (нет соединения или идёт reconnect).
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrBlocked — брокер приостановил публикации (connection.blocked).
	ErrBlocked = errors.New("amqp connection blocked by broker")

	// ErrClosed — соединение закрыто через Close.
	ErrClosed = errors.New("amqp connection closed")

	// ErrDeliveriesClosed — брокер закрыл канал доставки.
	ErrDeliveriesClosed = errors.New("deliveries channel closed")
)
