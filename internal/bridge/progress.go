package bridge

import "sync"

// Значения прогресса.
const (
	// ProgressFailed — задача завершилась ошибкой. Терминально.
	ProgressFailed = -1

	// ProgressDone — задача успешно завершена.
	ProgressDone = 100

	// progressCap — максимум до подтверждения завершения.
	// 100 выставляет только Complete.
	progressCap = 99
)

// ProgressTracker — прогресс задач в процентах по task_id.
//
// Семантика чтения:
//   - неизвестная задача → 0
//   - в процессе → последний процент (не убывает)
//   - успех → 100
//   - ошибка → -1 (дальше не меняется)
//
// 100 и -1 терминальны: task_id не переиспользуется.
//
// Записи не удаляются до конца жизни процесса.
type ProgressTracker struct {
	mu      sync.RWMutex
	entries map[string]int
}

// NewProgressTracker создаёт пустой трекер.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{entries: make(map[string]int)}
}

// Claim регистрирует новую задачу с прогрессом 0.
// false — task_id уже отслеживается.
func (p *ProgressTracker) Claim(taskID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[taskID]; ok {
		return false
	}
	p.entries[taskID] = 0
	return true
}

// Start регистрирует задачу с прогрессом 0.
// Завершённая задача не сбрасывается.
func (p *ProgressTracker) Start(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if terminal(p.entries[taskID]) {
		return
	}
	p.entries[taskID] = 0
}

func terminal(v int) bool {
	return v == ProgressFailed || v == ProgressDone
}

// Report обновляет прогресс как floor(current/total*100).
// Значение никогда не уменьшается и не достигает 100.
func (p *ProgressTracker) Report(taskID string, current, total int64) {
	if total <= 0 {
		return
	}
	percent := int(current * 100 / total)
	percent = max(0, min(percent, progressCap))

	p.mu.Lock()
	defer p.mu.Unlock()

	cur, ok := p.entries[taskID]
	if !ok || terminal(cur) || percent <= cur {
		return
	}
	p.entries[taskID] = percent
}

// Complete выставляет 100.
func (p *ProgressTracker) Complete(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if terminal(p.entries[taskID]) {
		return
	}
	p.entries[taskID] = ProgressDone
}

// Fail выставляет -1. Успешную задачу не трогает.
func (p *ProgressTracker) Fail(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entries[taskID] == ProgressDone {
		return
	}
	p.entries[taskID] = ProgressFailed
}

// Get возвращает прогресс задачи; для неизвестной — 0.
func (p *ProgressTracker) Get(taskID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entries[taskID]
}

// Len возвращает количество отслеживаемых задач.
func (p *ProgressTracker) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
