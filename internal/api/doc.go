// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go        — Handler с DI (хранилища, bridge, scratch, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (request id, logging, recovery, метрики)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - dto.go            — Data Transfer Objects (request/response)
//   - file_handler.go   — загрузка, скачивание, удаление файлов
//   - folder_handler.go — папки и их содержимое
//   - status_handler.go — диагностика
//
// Загрузка асинхронная: POST /files отвечает 202 и task_id, прогресс
// читается через GET /uploads/{task_id}/progress.
package api
