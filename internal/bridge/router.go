package bridge

import "sync"

// ResultRouter — реестр слотов ответа по токену вызывающего.
//
// Слот — буферизованный канал на один ответ: воркер никогда не блокируется
// на отправке, даже если вызывающий уже перестал ждать.
type ResultRouter struct {
	mu    sync.Mutex
	slots map[string]chan Reply
}

// NewResultRouter создаёт пустой реестр.
func NewResultRouter() *ResultRouter {
	return &ResultRouter{slots: make(map[string]chan Reply)}
}

// Register создаёт слот для токена.
func (r *ResultRouter) Register(token string) (<-chan Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.slots[token]; ok {
		return nil, ErrDuplicateToken
	}
	ch := make(chan Reply, 1)
	r.slots[token] = ch
	return ch, nil
}

// Deregister удаляет слот. Повторный вызов безопасен.
func (r *ResultRouter) Deregister(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, token)
}

// Post отправляет ответ в слот. Возвращает false, если слота нет
// (вызывающий не ждёт ответа или уже ушёл по таймауту).
func (r *ResultRouter) Post(token string, reply Reply) bool {
	if token == "" {
		return false
	}

	r.mu.Lock()
	ch, ok := r.slots[token]
	r.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case ch <- reply:
		return true
	default:
		return false
	}
}

// Len возвращает количество зарегистрированных слотов.
func (r *ResultRouter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
