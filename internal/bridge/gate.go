package bridge

import (
	"context"
	"sync"
	"time"
)

// ConnectionState — состояние соединения с хранилищем.
//
// Жизненный цикл:
//
//	NotStarted → Connecting → Authorizing → Ready
//	           ↘ Failed     ↘ Failed
//
// Переходы только вперёд. Из Failed выхода нет — нужен рестарт процесса.
type ConnectionState int32

const (
	StateNotStarted ConnectionState = iota
	StateConnecting
	StateAuthorizing
	StateReady
	StateFailed
)

// String возвращает имя состояния.
func (s ConnectionState) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateConnecting:
		return "CONNECTING"
	case StateAuthorizing:
		return "AUTHORIZING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal возвращает true для Ready и Failed.
func (s ConnectionState) IsTerminal() bool {
	return s == StateReady || s == StateFailed
}

// ReadinessGate — сигнал "попытка подключения завершилась".
//
// Открывается один раз и больше не закрывается. Открытый gate не означает
// успех: о нём можно судить только по результатам команд (или по State).
type ReadinessGate struct {
	once sync.Once
	ch   chan struct{}
}

// NewReadinessGate создаёт закрытый gate.
func NewReadinessGate() *ReadinessGate {
	return &ReadinessGate{ch: make(chan struct{})}
}

// Open открывает gate. Повторные вызовы ничего не делают.
func (g *ReadinessGate) Open() {
	g.once.Do(func() { close(g.ch) })
}

// IsOpen возвращает true, если gate открыт.
func (g *ReadinessGate) IsOpen() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

// Done возвращает канал, закрывающийся при открытии gate.
func (g *ReadinessGate) Done() <-chan struct{} {
	return g.ch
}

// Wait ждёт открытия gate не дольше timeout.
func (g *ReadinessGate) Wait(ctx context.Context, timeout time.Duration) bool {
	if g.IsOpen() {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-g.ch:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
