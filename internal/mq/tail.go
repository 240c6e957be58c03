package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TailHandler получает каждое событие. Ошибок не возвращает: событие
// уже подтверждено, повторной доставки не будет.
type TailHandler func(msg *Message)

// Tail читает поток событий о файлах.
//
// Каждая подписка — своя эксклюзивная очередь с auto-ack: пропущенные
// события не хранятся и не переотправляются. После переподключения
// очередь объявляется заново.
type Tail struct {
	conn    *Connection
	logger  *slog.Logger
	handler TailHandler
}

// NewTail создаёт Tail.
func NewTail(conn *Connection, logger *slog.Logger, handler TailHandler) *Tail {
	return &Tail{conn: conn, logger: logger, handler: handler}
}

// Run читает события до отмены ctx.
func (t *Tail) Run(ctx context.Context) error {
	for {
		deliveries, queue, err := t.subscribe(ctx)
		if err == nil {
			t.logger.Info("tail subscribed", "queue", queue)
			err = t.drain(ctx, deliveries)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		t.logger.Warn("tail interrupted, waiting for reconnect", "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.conn.ReconnectNotify():
		}
	}
}

// subscribe объявляет очередь и начинает потребление.
func (t *Tail) subscribe(ctx context.Context) (<-chan amqp.Delivery, Queue, error) {
	var (
		deliveries <-chan amqp.Delivery
		queue      Queue
	)

	err := t.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		var err error
		if queue, err = declareTailQueue(ch); err != nil {
			return err
		}

		deliveries, err = ch.Consume(
			string(queue),
			"",    // consumer tag
			true,  // auto-ack
			true,  // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("consume %s: %w", queue, err)
		}
		return nil
	})
	return deliveries, queue, err
}

func (t *Tail) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			t.dispatch(raw)
		}
	}
}

// dispatch разбирает тело и передаёт событие обработчику.
// Нечитаемое сообщение пропускается.
func (t *Tail) dispatch(raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		t.logger.Warn("skipping malformed event",
			"routing_key", raw.RoutingKey,
			"error", err,
		)
		return
	}

	t.logger.Debug("event received", "message_id", msg.ID, "type", msg.Type)
	t.handler(&msg)
}
