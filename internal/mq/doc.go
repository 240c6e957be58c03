// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, flow control)
//   - topology.go   — обменник и временные очереди подписчиков
//   - publisher.go  — публикация событий о файлах
//   - tail.go       — чтение потока событий (cloudbox events)
//
// Типы сообщений:
//   - file.uploaded       — файл загружен в хранилище
//   - file.upload_failed  — загрузка завершилась ошибкой
//   - file.deleted        — сообщения удалены из хранилища
//
// Exchange cloudbox.files (topic). События не сохраняются: их получают
// только подписчики, слушающие в момент публикации.
package mq
