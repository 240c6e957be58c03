package bridge

import (
	"io"
	"time"
)

// CommandKind — тип команды воркеру.
type CommandKind string

// Типы команд.
const (
	CommandUpload   CommandKind = "upload"
	CommandDownload CommandKind = "download"
	CommandDelete   CommandKind = "delete"
)

// Command — единица работы для воркера.
//
// Передаётся по значению и после постановки в очередь не меняется.
// Заполняются только поля, относящиеся к Kind.
type Command struct {
	// Token — ключ слота ответа. Пусто для fire-and-forget.
	Token string

	// Kind — тип команды.
	Kind CommandKind

	// TaskID — ключ прогресса (upload). Если пусто — используется Token.
	TaskID string

	// Path — путь к подготовленному файлу (upload).
	Path string

	// RecordID — запись в хранилище метаданных, куда записать результат
	// (upload). 0 — не обновлять.
	RecordID int64

	// RemoteID — ID сообщения (download).
	RemoteID int64

	// Sink — приёмник данных (download).
	Sink io.Writer

	// RemoteIDs — ID сообщений для удаления (delete).
	RemoteIDs []int64

	// EnqueuedAt — время постановки в очередь.
	EnqueuedAt time.Time
}

// progressKey возвращает ключ прогресса для команды.
func (c Command) progressKey() string {
	if c.TaskID != "" {
		return c.TaskID
	}
	return c.Token
}

// Reply — результат команды для ожидающего вызывающего.
type Reply struct {
	Value any
	Err   error
}

// UploadResult — результат успешной загрузки.
type UploadResult struct {
	ID       int64  `json:"id"`
	Location string `json:"location"`
}
