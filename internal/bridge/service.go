package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cloudbox/internal/remote"
)

// Default configuration values.
const (
	defaultConnectTimeout = 30 * time.Second
	defaultReadyTimeout   = 45 * time.Second
	defaultResultTimeout  = 300 * time.Second
	defaultIdleTimeout    = time.Second
)

// Service — точка входа для обработчиков запросов.
//
// Создаётся один раз при старте процесса и передаётся в обработчики.
// Два стиля вызова:
//   - SubmitBlocking — ждёт результат команды (до ResultTimeout)
//   - SubmitAsync — ставит команду в очередь и сразу возвращается;
//     результат наблюдается через Progress
type Service struct {
	queue    *CommandQueue
	router   *ResultRouter
	progress *ProgressTracker
	gate     *ReadinessGate
	worker   *Worker
	relay    *eventRelay

	readyTimeout  time.Duration
	resultTimeout time.Duration

	logger  *slog.Logger
	started atomic.Bool
}

// Config — конфигурация Service.
type Config struct {
	// Client — соединение с хранилищем. Принадлежит воркеру.
	Client remote.Client

	// Credentials проверяются до подключения.
	Credentials remote.Credentials

	// Records — куда записывать результат загрузки (опционально).
	Records RecordUpdater

	// Sessions — куда сохранять токен сессии (опционально).
	Sessions SessionStore

	// Events — публикация событий о файлах (опционально).
	// Публикует отдельная горутина, воркер брокер не ждёт.
	Events EventPublisher

	// EventBuffer — сколько событий ждут публикации (default: 256).
	// Сверх этого события отбрасываются.
	EventBuffer int

	// Cleanup удаляет отправленный файл (default: os.Remove).
	Cleanup func(path string) error

	// QueueCapacity — максимум команд в очереди; 0 — без ограничения.
	QueueCapacity int

	ConnectTimeout time.Duration // таймаут подключения (default: 30s)
	ReadyTimeout   time.Duration // ожидание готовности перед командой (default: 45s)
	ResultTimeout  time.Duration // ожидание результата команды (default: 300s)
	IdleTimeout    time.Duration // ожидание команды в простое (default: 1s)
	PublishTimeout time.Duration // публикация одного события (default: 5s)

	Logger *slog.Logger
}

// New создаёт Service. Воркер запускается методом Start.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cleanup := cfg.Cleanup
	if cleanup == nil {
		cleanup = os.Remove
	}

	s := &Service{
		queue:         NewCommandQueue(cfg.QueueCapacity),
		router:        NewResultRouter(),
		progress:      NewProgressTracker(),
		gate:          NewReadinessGate(),
		readyTimeout:  orDefault(cfg.ReadyTimeout, defaultReadyTimeout),
		resultTimeout: orDefault(cfg.ResultTimeout, defaultResultTimeout),
		logger:        logger,
	}
	s.relay = newEventRelay(cfg.Events, cfg.EventBuffer, cfg.PublishTimeout, logger.With("component", "event_relay"))

	s.worker = &Worker{
		client:         cfg.Client,
		credentials:    cfg.Credentials,
		queue:          s.queue,
		router:         s.router,
		progress:       s.progress,
		gate:           s.gate,
		records:        cfg.Records,
		sessions:       cfg.Sessions,
		events:         s.relay,
		cleanup:        cleanup,
		connectTimeout: orDefault(cfg.ConnectTimeout, defaultConnectTimeout),
		idleTimeout:    orDefault(cfg.IdleTimeout, defaultIdleTimeout),
		logger:         logger.With("component", "storage_worker"),
		done:           make(chan struct{}),
	}

	return s
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Start запускает воркер в отдельной горутине и сразу возвращается.
// Готовность ожидается внутри вызовов, а не здесь.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if s.relay != nil {
		go s.relay.run(ctx)
	}
	go s.worker.Run(ctx)
	return nil
}

// Done закрывается, когда воркер завершился.
func (s *Service) Done() <-chan struct{} {
	return s.worker.Done()
}

// awaitReady ждёт gate и проверяет, что воркер принимает команды.
func (s *Service) awaitReady(ctx context.Context) error {
	if !s.gate.IsOpen() {
		s.logger.Debug("storage service not ready yet, waiting", "timeout", s.readyTimeout)
	}

	if !s.gate.Wait(ctx, s.readyTimeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrNotReady
	}

	// exitErr выставляется до открытия gate, done закрывается позже.
	return s.worker.Err()
}

// claimTask резервирует task_id загрузки.
func (s *Service) claimTask(cmd Command) error {
	if cmd.Kind != CommandUpload || cmd.TaskID == "" {
		return nil
	}
	if !s.progress.Claim(cmd.TaskID) {
		return fmt.Errorf("%w: %s", ErrTaskIDInUse, cmd.TaskID)
	}
	return nil
}

// enqueue ставит команду в очередь.
func (s *Service) enqueue(cmd Command) error {
	if err := s.queue.Push(cmd); err != nil {
		return err
	}
	queueDepth.Set(float64(s.queue.Len()))
	return nil
}

// SubmitBlocking выполняет команду и ждёт результат.
//
// Слот ответа удаляется на любом пути выхода. Если результат не пришёл
// за ResultTimeout, возвращается ErrResultTimeout, а команда всё равно
// будет выполнена воркером; её результат будет отброшен.
func (s *Service) SubmitBlocking(ctx context.Context, cmd Command) (any, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	slot, err := s.router.Register(token)
	if err != nil {
		return nil, err
	}
	defer s.router.Deregister(token)

	if err := s.claimTask(cmd); err != nil {
		return nil, err
	}

	cmd.Token = token
	if err := s.enqueue(cmd); err != nil {
		s.progress.Fail(cmd.progressKey())
		return nil, err
	}

	timer := time.NewTimer(s.resultTimeout)
	defer timer.Stop()

	select {
	case reply := <-slot:
		return reply.Value, reply.Err
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %s", ErrResultTimeout, cmd.Kind, s.resultTimeout)
	case <-s.worker.Done():
		// Ответ мог прийти прямо перед остановкой.
		select {
		case reply := <-slot:
			return reply.Value, reply.Err
		default:
			return nil, s.worker.Err()
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubmitAsync ставит команду в очередь без слота ответа.
// Ошибки видны только через Progress (-1).
func (s *Service) SubmitAsync(ctx context.Context, cmd Command) error {
	if cmd.TaskID == "" {
		return ErrTaskIDRequired
	}
	if err := s.awaitReady(ctx); err != nil {
		return err
	}

	if err := s.claimTask(cmd); err != nil {
		return err
	}

	cmd.Token = ""
	if err := s.enqueue(cmd); err != nil {
		s.progress.Fail(cmd.TaskID)
		return err
	}
	return nil
}

// UploadFile загружает файл и ждёт результат.
func (s *Service) UploadFile(ctx context.Context, path, taskID string) (*UploadResult, error) {
	v, err := s.SubmitBlocking(ctx, Command{Kind: CommandUpload, Path: path, TaskID: taskID})
	if err != nil {
		return nil, err
	}
	result, ok := v.(*UploadResult)
	if !ok {
		return nil, fmt.Errorf("unexpected upload result %T", v)
	}
	return result, nil
}

// SubmitUpload ставит загрузку в очередь. По завершении воркер запишет
// remote_id в запись recordID.
func (s *Service) SubmitUpload(ctx context.Context, path string, recordID int64, taskID string) error {
	return s.SubmitAsync(ctx, Command{
		Kind:     CommandUpload,
		Path:     path,
		RecordID: recordID,
		TaskID:   taskID,
	})
}

// DownloadTo скачивает сообщение в w.
func (s *Service) DownloadTo(ctx context.Context, remoteID int64, w io.Writer) error {
	_, err := s.SubmitBlocking(ctx, Command{Kind: CommandDownload, RemoteID: remoteID, Sink: w})
	return err
}

// DownloadToFile скачивает сообщение в файл path.
// При ошибке частично записанный файл удаляется.
func (s *Service) DownloadToFile(ctx context.Context, remoteID int64, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	return s.DownloadTo(ctx, remoteID, f)
}

// DeleteRemote удаляет сообщения. Нулевые ID пропускаются;
// если удалять нечего — команда не отправляется.
func (s *Service) DeleteRemote(ctx context.Context, ids []int64) error {
	clean := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return nil
	}

	_, err := s.SubmitBlocking(ctx, Command{Kind: CommandDelete, RemoteIDs: clean})
	return err
}

// Progress возвращает прогресс задачи: 0..100, -1 при ошибке.
func (s *Service) Progress(taskID string) int {
	return s.progress.Get(taskID)
}

// Ready возвращает true, если попытка подключения завершилась.
func (s *Service) Ready() bool {
	return s.gate.IsOpen()
}

// State возвращает состояние соединения.
func (s *Service) State() ConnectionState {
	return s.worker.State()
}

// Status — снимок состояния для диагностики.
type Status struct {
	Started        bool   `json:"started"`
	Ready          bool   `json:"ready"`
	State          string `json:"state"`
	Degraded       bool   `json:"degraded"`
	WorkerRunning  bool   `json:"worker_running"`
	QueueDepth     int    `json:"queue_depth"`
	PendingReplies int    `json:"pending_replies"`
	TrackedTasks   int    `json:"tracked_tasks"`
	StartError     string `json:"start_error,omitempty"`
}

// Status возвращает текущее состояние сервиса.
func (s *Service) Status() Status {
	st := Status{
		Started:        s.started.Load(),
		Ready:          s.gate.IsOpen(),
		State:          s.worker.State().String(),
		Degraded:       s.worker.Degraded(),
		QueueDepth:     s.queue.Len(),
		PendingReplies: s.router.Len(),
		TrackedTasks:   s.progress.Len(),
	}

	if st.Started {
		select {
		case <-s.worker.Done():
		default:
			st.WorkerRunning = true
		}
	}

	switch {
	case s.worker.Err() != nil:
		st.StartError = s.worker.Err().Error()
	case s.worker.StartErr() != nil:
		st.StartError = s.worker.StartErr().Error()
	}
	return st
}
