// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//
// Метрики объявляются в пакетах, которые их пишут (promauto),
// и экспортируются на /metrics endpoint.
package telemetry
