package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMemoryChunk = 64 * 1024

// Call — запись об одном вызове Memory (для проверок в тестах).
type Call struct {
	Op   string
	Arg  string
	Time time.Time
}

// Memory — хранилище в памяти.
//
// Используется в тестах как инструментированный коллаборатор: каждый вызов
// записывается в журнал, а одновременный вход двух операций считается
// нарушением (Violations). Также подходит для локального запуска без S3.
type Memory struct {
	// ChunkSize — размер куска для отчёта о прогрессе (default: 64 KiB).
	ChunkSize int

	// ConnectErr — ошибка, которую вернёт Connect.
	ConnectErr error

	// ConnectDelay — задержка Connect (учитывает ctx).
	ConnectDelay time.Duration

	// Unauthorized — сессия недействительна; операции после Connect
	// возвращают ErrUnauthorized.
	Unauthorized bool

	// OpDelay — задержка каждой операции с данными.
	OpDelay time.Duration

	// SendHook вызывается перед отправкой; ошибка прерывает Send.
	SendHook func(path string) error

	// Token — значение, которое вернёт SessionToken.
	Token string

	mu        sync.Mutex
	connected bool
	nextID    int64
	messages  map[int64]*memoryMessage
	calls     []Call

	inFlight   atomic.Int32
	violations atomic.Int32
}

type memoryMessage struct {
	msg  Message
	data []byte
}

// NewMemory создаёт пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{
		messages: make(map[int64]*memoryMessage),
	}
}

// enter отмечает начало операции и фиксирует повторный вход.
func (m *Memory) enter(op, arg string) func() {
	if !m.inFlight.CompareAndSwap(0, 1) {
		m.violations.Add(1)
		m.inFlight.Add(1)
	}

	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: op, Arg: arg, Time: time.Now()})
	m.mu.Unlock()

	return func() { m.inFlight.Add(-1) }
}

// Connect имитирует подключение.
func (m *Memory) Connect(ctx context.Context) error {
	defer m.enter("connect", "")()

	if err := sleepCtx(ctx, m.ConnectDelay); err != nil {
		return err
	}
	if m.ConnectErr != nil {
		return m.ConnectErr
	}

	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

// Authorized возвращает !Unauthorized.
func (m *Memory) Authorized(_ context.Context) (bool, error) {
	defer m.enter("authorized", "")()

	if err := m.ready(); err != nil {
		return false, err
	}
	return !m.Unauthorized, nil
}

// Send читает файл и сохраняет его как новое сообщение.
func (m *Memory) Send(ctx context.Context, path string, progress ProgressFunc) (*Message, error) {
	defer m.enter("send", path)()

	if err := m.usable(); err != nil {
		return nil, err
	}
	if m.SendHook != nil {
		if err := m.SendHook(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	chunk := m.ChunkSize
	if chunk <= 0 {
		chunk = defaultMemoryChunk
	}

	total := int64(len(data))
	for sent := 0; sent < len(data); {
		if err := sleepCtx(ctx, m.OpDelay); err != nil {
			return nil, err
		}
		sent = min(sent+chunk, len(data))
		if progress != nil {
			progress(int64(sent), total)
		}
	}
	if len(data) == 0 {
		if err := sleepCtx(ctx, m.OpDelay); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	msg := Message{
		ID:       m.nextID,
		Location: "memory",
		Name:     filepath.Base(path),
		Size:     total,
	}
	m.messages[msg.ID] = &memoryMessage{msg: msg, data: data}

	out := msg
	return &out, nil
}

// Lookup находит сообщение по ID.
func (m *Memory) Lookup(ctx context.Context, id int64) (*Message, error) {
	defer m.enter("lookup", fmt.Sprint(id))()

	if err := m.usable(); err != nil {
		return nil, err
	}
	if err := sleepCtx(ctx, m.OpDelay); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.messages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	out := stored.msg
	return &out, nil
}

// Download копирует содержимое сообщения в w.
func (m *Memory) Download(ctx context.Context, msg *Message, w io.Writer) error {
	defer m.enter("download", fmt.Sprint(msg.ID))()

	if err := m.usable(); err != nil {
		return err
	}
	if w == nil {
		return ErrNilSink
	}
	if err := sleepCtx(ctx, m.OpDelay); err != nil {
		return err
	}

	m.mu.Lock()
	stored, ok := m.messages[msg.ID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, msg.ID)
	}

	_, err := io.Copy(w, bytes.NewReader(stored.data))
	return err
}

// Delete удаляет сообщения. Отсутствующие ID пропускаются.
func (m *Memory) Delete(ctx context.Context, ids []int64) error {
	defer m.enter("delete", fmt.Sprint(ids))()

	if err := m.usable(); err != nil {
		return err
	}
	if err := sleepCtx(ctx, m.OpDelay); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.messages, id)
	}
	return nil
}

// SessionToken возвращает Token.
func (m *Memory) SessionToken(_ context.Context) (string, error) {
	defer m.enter("session_token", "")()

	if err := m.ready(); err != nil {
		return "", err
	}
	return m.Token, nil
}

// Close сбрасывает соединение.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// Calls возвращает копию журнала вызовов.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Violations возвращает количество одновременных входов.
func (m *Memory) Violations() int {
	return int(m.violations.Load())
}

// Has проверяет, хранится ли сообщение.
func (m *Memory) Has(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.messages[id]
	return ok
}

func (m *Memory) ready() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	return nil
}

func (m *Memory) usable() error {
	if err := m.ready(); err != nil {
		return err
	}
	if m.Unauthorized {
		return ErrUnauthorized
	}
	return nil
}

// sleepCtx ждёт d или отмены ctx.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
