package mq

import (
	"encoding/json"
	"fmt"
)

// DecodeEvent разбирает payload события о файле в типизированную структуру.
func DecodeEvent(msg *Message) (any, error) {
	switch msg.Type {
	case MessageTypeFileUploaded:
		return ParsePayload[FileUploadedPayload](msg)
	case MessageTypeUploadFailed:
		return ParsePayload[UploadFailedPayload](msg)
	case MessageTypeFileDeleted:
		return ParsePayload[FilesDeletedPayload](msg)
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// ParsePayload разбирает payload сообщения в T.
// После JSON payload приходит как map[string]any.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
