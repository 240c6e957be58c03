package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaiso/Cloudbox/internal/mq"
	"github.com/shaiso/Cloudbox/internal/remote"
	"github.com/shaiso/Cloudbox/internal/telemetry"
)

// RecordUpdater — узкий доступ к хранилищу метаданных файлов:
// воркер только записывает, куда загружен файл.
// Удалённая запись — ошибка, оборачивающая repo.ErrNotFound.
type RecordUpdater interface {
	AttachRemote(ctx context.Context, recordID, remoteID int64, location string) error
}

// SessionStore сохраняет токен сессии между рестартами.
type SessionStore interface {
	Save(token string) error
}

// EventPublisher публикует события о файлах.
type EventPublisher interface {
	PublishFileUploaded(ctx context.Context, payload mq.FileUploadedPayload) error
	PublishUploadFailed(ctx context.Context, payload mq.UploadFailedPayload) error
	PublishFilesDeleted(ctx context.Context, payload mq.FilesDeletedPayload) error
}

// Worker — единственная горутина, которой разрешено работать с remote.Client.
//
// Команды выполняются строго по одной в порядке очереди. Ошибка команды
// превращается в ответ с ошибкой и не останавливает цикл.
type Worker struct {
	client      remote.Client
	credentials remote.Credentials

	queue    *CommandQueue
	router   *ResultRouter
	progress *ProgressTracker
	gate     *ReadinessGate

	records  RecordUpdater
	sessions SessionStore
	events   *eventRelay
	cleanup  func(path string) error

	connectTimeout time.Duration
	idleTimeout    time.Duration

	logger *slog.Logger

	state    atomic.Int32
	degraded atomic.Bool

	errMu    sync.RWMutex
	startErr error
	exitErr  error

	done chan struct{}
}

// setState переводит соединение в новое состояние.
func (w *Worker) setState(s ConnectionState) {
	w.state.Store(int32(s))
	connectionState.Set(float64(s))
}

// State возвращает текущее состояние соединения.
func (w *Worker) State() ConnectionState {
	return ConnectionState(w.state.Load())
}

// Degraded возвращает true, если gate открыт, но соединение непригодно
// (сессия не авторизована или подключение не удалось).
func (w *Worker) Degraded() bool {
	return w.degraded.Load()
}

// StartErr возвращает проблему, обнаруженную при старте (если была).
func (w *Worker) StartErr() error {
	w.errMu.RLock()
	defer w.errMu.RUnlock()
	return w.startErr
}

// Err возвращает причину, по которой цикл не работает.
// nil, пока цикл работает.
func (w *Worker) Err() error {
	w.errMu.RLock()
	defer w.errMu.RUnlock()
	return w.exitErr
}

// Done закрывается, когда Run завершился.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) setStartErr(err error) {
	w.errMu.Lock()
	w.startErr = err
	w.errMu.Unlock()
}

// exit фиксирует причину остановки цикла. Первая причина побеждает.
func (w *Worker) exit(err error) {
	w.errMu.Lock()
	if w.exitErr == nil {
		w.exitErr = err
	}
	w.errMu.Unlock()
}

// fail фиксирует ошибку старта и открывает gate, чтобы никто не ждал.
func (w *Worker) fail(err error) {
	w.setStartErr(err)
	w.setState(StateFailed)
	w.degraded.Store(true)
	w.gate.Open()
}

// Run подключается к хранилищу и обрабатывает команды до отмены ctx.
//
// Паника вне обработки команды считается аварией: gate принудительно
// открывается, цикл завершается, сервис остаётся неработоспособным
// до рестарта процесса.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("storage worker crashed",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err := fmt.Errorf("%w: %v", ErrWorkerCrashed, r)
			w.exit(err)
			w.fail(err)
		}
	}()

	w.logger.Info("starting storage worker")

	if !w.startup(ctx) {
		return
	}

	w.loop(ctx)

	w.logger.Info("storage worker stopped")
	w.exit(ErrWorkerStopped)
}

// startup выполняет протокол старта. Возвращает false, если цикл
// запускать не нужно.
func (w *Worker) startup(ctx context.Context) bool {
	if missing := w.credentials.Missing(); len(missing) > 0 {
		w.logger.Error("remote credentials missing, worker not started",
			"missing", missing,
		)
		err := fmt.Errorf("%w: %v", ErrMissingCredentials, missing)
		w.exit(err)
		w.fail(err)
		return false
	}

	w.setState(StateConnecting)
	w.logger.Info("connecting to remote storage", "timeout", w.connectTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, w.connectTimeout)
	defer cancel()

	if err := w.client.Connect(connectCtx); err != nil {
		if ctx.Err() != nil {
			w.exit(ErrWorkerStopped)
			w.fail(ErrWorkerStopped)
			return false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrConnectTimeout, w.connectTimeout)
		} else {
			err = fmt.Errorf("%w: %v", ErrConnectFailed, err)
		}
		// Команды продолжают приниматься и падают по одной.
		w.logger.Error("remote connect failed, serving in degraded mode", "error", err)
		w.fail(err)
		return true
	}

	w.setState(StateAuthorizing)

	authorized, err := w.client.Authorized(connectCtx)
	if err != nil {
		w.logger.Error("authorization check failed", "error", err)
		authorized = false
	}

	if !authorized {
		w.logger.Error("remote session is invalid or expired, regenerate credentials",
			"error", ErrUnauthorized,
		)
		w.setStartErr(ErrUnauthorized)
		w.degraded.Store(true)
		w.setState(StateReady)
		w.gate.Open()
		return true
	}

	w.logger.Info("remote storage connected and authorized")
	w.saveSession(ctx)

	w.setState(StateReady)
	w.gate.Open()
	return true
}

// saveSession сохраняет токен сессии для следующего запуска.
func (w *Worker) saveSession(ctx context.Context) {
	if w.sessions == nil {
		return
	}

	token, err := w.client.SessionToken(ctx)
	if err != nil {
		w.logger.Warn("failed to read session token", "error", err)
		return
	}
	if token == "" {
		return
	}

	if err := w.sessions.Save(token); err != nil {
		w.logger.Warn("failed to save session token", "error", err)
		return
	}
	w.logger.Info("session token saved")
}

// loop — основной цикл: одна команда за раз.
func (w *Worker) loop(ctx context.Context) {
	for {
		cmd, ok := w.queue.Pop(ctx, w.idleTimeout)
		if ctx.Err() != nil {
			return
		}
		if !ok {
			continue
		}
		queueDepth.Set(float64(w.queue.Len()))

		w.execute(ctx, cmd)
	}
}

// execute выполняет команду и доставляет результат.
func (w *Worker) execute(ctx context.Context, cmd Command) {
	start := time.Now()
	logger := w.logger.With("command", cmd.Kind, "token", cmd.Token)
	if cmd.TaskID != "" {
		logger = telemetry.WithTaskID(logger, cmd.TaskID)
	}

	logger.Debug("processing command", "queued_for", start.Sub(cmd.EnqueuedAt))

	value, err := w.dispatch(ctx, cmd, logger)

	status := "ok"
	if err != nil {
		status = "error"
		logger.Warn("command failed", "error", err)
		if cmd.Kind == CommandUpload {
			w.progress.Fail(cmd.progressKey())
			w.events.uploadFailed(mq.UploadFailedPayload{
				TaskID:   cmd.TaskID,
				RecordID: cmd.RecordID,
				Name:     filepath.Base(cmd.Path),
				Error:    err.Error(),
			})
		}
	} else {
		logger.Info("command done", "duration", time.Since(start))
	}

	commandsTotal.WithLabelValues(string(cmd.Kind), status).Inc()
	commandDuration.WithLabelValues(string(cmd.Kind)).Observe(time.Since(start).Seconds())

	if cmd.Token != "" && !w.router.Post(cmd.Token, Reply{Value: value, Err: err}) {
		discardedReplies.Inc()
		logger.Debug("reply discarded, caller is no longer waiting")
	}
}

// dispatch вызывает обработчик по типу команды.
// Паника обработчика превращается в ошибку команды.
func (w *Worker) dispatch(ctx context.Context, cmd Command, logger *slog.Logger) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("command panicked", "panic", r, "stack", string(debug.Stack()))
			value = nil
			err = fmt.Errorf("%w: %v", ErrCommandPanic, r)
		}
	}()

	switch cmd.Kind {
	case CommandUpload:
		result, err := w.handleUpload(ctx, cmd, logger)
		if err != nil {
			return nil, err
		}
		return result, nil
	case CommandDownload:
		return nil, w.handleDownload(ctx, cmd)
	case CommandDelete:
		return nil, w.handleDelete(ctx, cmd)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Kind)
	}
}
