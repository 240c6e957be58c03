package remote

import "errors"

// Ошибки внешнего соединения.
var (
	// ErrNotFound — сообщение с указанным ID не найдено.
	ErrNotFound = errors.New("message not found")

	// ErrNotConnected — операция вызвана до успешного Connect.
	ErrNotConnected = errors.New("remote not connected")

	// ErrUnauthorized — сессия недействительна или истекла.
	ErrUnauthorized = errors.New("remote session is not authorized")

	// ErrNilSink — для скачивания не передан приёмник данных.
	ErrNilSink = errors.New("download sink is nil")
)
