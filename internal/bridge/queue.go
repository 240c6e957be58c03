package bridge

import (
	"context"
	"sync"
	"time"
)

// CommandQueue — FIFO-очередь команд: много писателей, один читатель.
//
// capacity <= 0 — очередь неограниченная.
type CommandQueue struct {
	mu       sync.Mutex
	items    []Command
	capacity int

	// notify — сигнал читателю, что появились команды.
	notify chan struct{}
}

// NewCommandQueue создаёт очередь.
func NewCommandQueue(capacity int) *CommandQueue {
	return &CommandQueue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Push добавляет команду в конец очереди.
func (q *CommandQueue) Push(cmd Command) error {
	q.mu.Lock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	if cmd.EnqueuedAt.IsZero() {
		cmd.EnqueuedAt = time.Now()
	}
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop извлекает первую команду, ожидая не дольше timeout.
// Возвращает false, если очередь пуста по истечении timeout или ctx отменён.
func (q *CommandQueue) Pop(ctx context.Context, timeout time.Duration) (Command, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if cmd, ok := q.tryPop(); ok {
			return cmd, true
		}

		select {
		case <-q.notify:
		case <-timer.C:
			return q.tryPop()
		case <-ctx.Done():
			return Command{}, false
		}
	}
}

// tryPop извлекает команду без ожидания.
func (q *CommandQueue) tryPop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Command{}, false
	}
	cmd := q.items[0]
	q.items[0] = Command{}
	q.items = q.items[1:]
	return cmd, true
}

// Len возвращает количество команд в очереди.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
