// Package bridge связывает конкурентные обработчики запросов с единственным
// соединением к внешнему хранилищу.
//
// # Обзор
//
// Соединение (remote.Client) нельзя использовать из двух мест одновременно,
// поэтому им владеет одна горутина — Worker. Обработчики запросов общаются
// с ней только через очередь команд:
//
//	handler → Service → CommandQueue → Worker → remote.Client
//	                                      ↓
//	handler ← ResultRouter / ProgressTracker
//
// # Ключевые компоненты
//
//   - CommandQueue — FIFO-очередь команд (много писателей, один читатель)
//   - ResultRouter — слоты ответа по токену вызывающего
//   - ProgressTracker — прогресс загрузок по task_id (0..100, -1 при ошибке; task_id одноразовый)
//   - ReadinessGate — сигнал "попытка подключения завершилась"
//   - Worker — цикл, выполняющий команды по одной
//   - eventRelay — публикация событий о файлах в отдельной горутине
//   - Service — публичный API: SubmitBlocking и SubmitAsync
//
// # Старт
//
//	svc := bridge.New(bridge.Config{
//	    Client:      client,
//	    Credentials: creds,
//	    Records:     fileRepo,
//	    Logger:      logger,
//	})
//	svc.Start(ctx)
//
// Start не ждёт подключения. Каждый вызов сначала ждёт ReadinessGate
// (до 45s), затем ставит команду в очередь.
//
// # Ошибки
//
//   - Нет учётных данных — воркер не запускается, gate открывается сразу,
//     все вызовы быстро возвращают ErrMissingCredentials
//   - Таймаут/ошибка подключения — gate открывается, команды падают по одной
//   - Сессия не авторизована — логируется, gate открывается, Status().Degraded
//   - Ошибка команды — ответ с ошибкой или прогресс -1, воркер продолжает
//   - Авария воркера — gate открывается, цикл завершается до рестарта процесса
//
// Ничего не повторяется автоматически. Отмена не распространяется на воркер:
// вызывающий, переставший ждать, просто не получит результат.
package bridge
