package bridge

import "errors"

// Ошибки bridge.
var (
	// ErrMissingCredentials — не заданы учётные данные хранилища.
	// Фатально при старте: воркер не запускается.
	ErrMissingCredentials = errors.New("remote credentials are missing")

	// ErrConnectTimeout — подключение не уложилось в таймаут.
	ErrConnectTimeout = errors.New("remote connect timeout")

	// ErrConnectFailed — подключение завершилось ошибкой.
	ErrConnectFailed = errors.New("remote connect failed")

	// ErrUnauthorized — сессия недействительна (только логируется).
	ErrUnauthorized = errors.New("remote session unauthorized")

	// ErrNotReady — сервис не стал готов за отведённое время.
	ErrNotReady = errors.New("storage service is not ready, check credentials and connection")

	// ErrResultTimeout — результат команды не пришёл вовремя.
	ErrResultTimeout = errors.New("timed out waiting for command result")

	// ErrWorkerCrashed — воркер упал вне обработки команды.
	ErrWorkerCrashed = errors.New("storage worker crashed")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("storage worker stopped")

	// ErrAlreadyStarted — повторный вызов Start.
	ErrAlreadyStarted = errors.New("service already started")

	// ErrQueueFull — очередь команд заполнена.
	ErrQueueFull = errors.New("command queue is full")

	// ErrUnknownCommand — неизвестный тип команды.
	ErrUnknownCommand = errors.New("unknown command kind")

	// ErrTaskIDRequired — асинхронной команде нужен task_id.
	ErrTaskIDRequired = errors.New("task id is required")

	// ErrTaskIDInUse — task_id уже отслеживается.
	ErrTaskIDInUse = errors.New("task id is already in use")

	// ErrDuplicateToken — токен ответа уже зарегистрирован.
	ErrDuplicateToken = errors.New("reply token already registered")

	// ErrCommandPanic — команда завершилась паникой.
	ErrCommandPanic = errors.New("command panicked")

	// ErrRecordGone — запись удалили, пока файл загружался.
	ErrRecordGone = errors.New("file record deleted during upload")
)
