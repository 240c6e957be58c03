package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeFileUploaded MessageType = "file.uploaded"
	MessageTypeUploadFailed MessageType = "file.upload_failed"
	MessageTypeFileDeleted  MessageType = "file.deleted"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// FileUploadedPayload — файл загружен в хранилище.
type FileUploadedPayload struct {
	TaskID   string `json:"task_id,omitempty"`
	RecordID int64  `json:"record_id,omitempty"`
	RemoteID int64  `json:"remote_id"`
	Location string `json:"location"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
}

// UploadFailedPayload — загрузка завершилась ошибкой.
type UploadFailedPayload struct {
	TaskID   string `json:"task_id,omitempty"`
	RecordID int64  `json:"record_id,omitempty"`
	Name     string `json:"name"`
	Error    string `json:"error"`
}

// FilesDeletedPayload — сообщения удалены из хранилища.
type FilesDeletedPayload struct {
	RemoteIDs []int64 `json:"remote_ids"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
// Без mandatory: сообщение без подходящей очереди брокер отбрасывает.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Transient,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Type:         string(msg.Type),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishFileUploaded публикует событие об успешной загрузке.
func (p *Publisher) PublishFileUploaded(ctx context.Context, payload FileUploadedPayload) error {
	return p.Publish(ctx, ExchangeFiles, RoutingKeyUploaded, NewMessage(MessageTypeFileUploaded, payload))
}

// PublishUploadFailed публикует событие о неудачной загрузке.
func (p *Publisher) PublishUploadFailed(ctx context.Context, payload UploadFailedPayload) error {
	return p.Publish(ctx, ExchangeFiles, RoutingKeyUploadFailed, NewMessage(MessageTypeUploadFailed, payload))
}

// PublishFilesDeleted публикует событие об удалении сообщений.
func (p *Publisher) PublishFilesDeleted(ctx context.Context, payload FilesDeletedPayload) error {
	return p.Publish(ctx, ExchangeFiles, RoutingKeyDeleted, NewMessage(MessageTypeFileDeleted, payload))
}
