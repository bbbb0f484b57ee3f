package service

import "sync"

// InFlight не даёт запустить вторую мутацию над тем же объектом,
// пока первая ещё выполняется (двойное нажатие, повторная отправка формы)
type InFlight struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{busy: make(map[string]struct{})}
}

// Acquire занимает ключ; ok=false если ключ уже занят
func (f *InFlight) Acquire(key string) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.busy[key]; exists {
		return func() {}, false
	}
	f.busy[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.busy, key)
			f.mu.Unlock()
		})
	}, true
}

// Busy проверяет, выполняется ли сейчас операция по ключу
func (f *InFlight) Busy(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, exists := f.busy[key]
	return exists
}
