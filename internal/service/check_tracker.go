package service

import "sync"

// CheckTracker выдаёт монотонные токены проверок по ключу диалога.
// Применять можно только результат последней проверки, остальные отбрасываются.
type CheckTracker struct {
	mu     sync.Mutex
	seq    uint64
	latest map[string]uint64
}

func NewCheckTracker() *CheckTracker {
	return &CheckTracker{latest: make(map[string]uint64)}
}

// Begin регистрирует новую проверку и возвращает её токен
func (t *CheckTracker) Begin(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	t.latest[key] = t.seq
	return t.seq
}

// IsLatest проверяет, что токен принадлежит последней начатой проверке
func (t *CheckTracker) IsLatest(key string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return token != 0 && t.latest[key] == token
}

// Forget забывает ключ (диалог закрыт); старые токены после этого не валидны
func (t *CheckTracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.latest, key)
}
