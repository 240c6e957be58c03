package remote

import (
	"context"
	"io"
	"strings"
)

// Message — объект, сохранённый во внешнем хранилище.
type Message struct {
	// ID — идентификатор сообщения, выданный хранилищем (> 0).
	ID int64

	// Location — где лежит сообщение (bucket/key, чат и т.п.).
	Location string

	// Name — исходное имя файла.
	Name string

	// Size — размер в байтах.
	Size int64
}

// ProgressFunc вызывается по мере отправки: current байт из total.
type ProgressFunc func(current, total int64)

// Client — соединение с внешним хранилищем.
//
// Методы блокируют вызывающую горутину на время сетевой операции.
// До успешного Connect все операции возвращают ErrNotConnected.
type Client interface {
	// Connect устанавливает соединение. Таймаут задаётся через ctx.
	Connect(ctx context.Context) error

	// Authorized проверяет, что сессия действительна.
	Authorized(ctx context.Context) (bool, error)

	// Send отправляет локальный файл и возвращает созданное сообщение.
	Send(ctx context.Context, path string, progress ProgressFunc) (*Message, error)

	// Lookup находит сообщение по ID. Если его нет — ErrNotFound.
	Lookup(ctx context.Context, id int64) (*Message, error)

	// Download записывает содержимое сообщения в w.
	Download(ctx context.Context, msg *Message, w io.Writer) error

	// Delete удаляет сообщения пачкой.
	Delete(ctx context.Context, ids []int64) error

	// SessionToken возвращает токен сессии для повторного использования
	// после рестарта. Пустая строка — сохранять нечего.
	SessionToken(ctx context.Context) (string, error)

	// Close закрывает соединение.
	Close() error
}

// Credentials — учётные данные для подключения к хранилищу.
type Credentials struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// SessionToken — сохранённая сессия (необязательно).
	SessionToken string `yaml:"session_token"`
}

// Missing возвращает имена обязательных полей, которые не заполнены.
func (c Credentials) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "access_key_id")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		missing = append(missing, "secret_access_key")
	}
	return missing
}

// Complete возвращает true, если все обязательные поля заполнены.
func (c Credentials) Complete() bool {
	return len(c.Missing()) == 0
}
