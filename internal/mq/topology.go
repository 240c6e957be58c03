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

// ExchangeFiles — topic-обменник событий о файлах.
//
// Долговременных очередей нет: события — уведомления для тех, кто слушает
// прямо сейчас. Без подписчиков брокер их отбрасывает.
const ExchangeFiles Exchange = "cloudbox.files"

// Routing keys совпадают с типами сообщений.
const (
	RoutingKeyUploaded     RoutingKey = "file.uploaded"
	RoutingKeyUploadFailed RoutingKey = "file.upload_failed"
	RoutingKeyDeleted      RoutingKey = "file.deleted"

	// RoutingKeyAllFiles — шаблон для всех событий о файлах.
	RoutingKeyAllFiles RoutingKey = "file.#"
)

// SetupTopology объявляет обменник. Идемпотентно.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, declareExchange)
}

func declareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		string(ExchangeFiles), // name
		"topic",               // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeFiles, err)
	}
	return nil
}

// declareTailQueue создаёт эксклюзивную очередь с именем от сервера,
// получающую все события о файлах. Очередь живёт, пока живёт соединение.
func declareTailQueue(ch *amqp.Channel) (Queue, error) {
	if err := declareExchange(ch); err != nil {
		return "", err
	}

	q, err := ch.QueueDeclare(
		"",    // имя выберет сервер
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("declare tail queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, string(RoutingKeyAllFiles), string(ExchangeFiles), false, nil); err != nil {
		return "", fmt.Errorf("bind tail queue: %w", err)
	}
	return Queue(q.Name), nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Cloudbox RabbitMQ Topology:

    cloudbox.files (topic, transient messages)
    └── amq.gen-* [routing: file.#]  exclusive, one per "cloudbox events"

    Events without listeners are dropped by the broker.
  `
}
