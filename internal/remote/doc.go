// Package remote описывает соединение с внешним хранилищем файлов.
//
// Соединение однопоточное: все методы Client вызываются только из одной
// горутины (воркера bridge). Реализации не обязаны быть потокобезопасными.
//
// Реализации:
//   - S3 — S3-совместимое хранилище (AWS, MinIO, R2) через aws-sdk-go-v2
//   - Memory — хранилище в памяти для тестов и локальной разработки
//
// Каждый сохранённый объект называется сообщением (Message) и адресуется
// положительным целым ID, который выдаёт хранилище при отправке.
package remote
