package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Manager управляет состояниями пользователей
type Manager struct {
	mu     sync.RWMutex
	states map[int64]*UserData // telegramID -> UserData
}

// NewManager создаёт новый менеджер состояний
func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]*UserData),
	}
}

// GetState получает текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		return userData.State
	}
	return StateNone
}

// SetState устанавливает состояние пользователя
func (sm *Manager) SetState(telegramID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state == StateNone {
		delete(sm.states, telegramID)
		return
	}

	sm.entry(telegramID).State = state
}

// GetData получает временные данные пользователя
func (sm *Manager) GetData(telegramID int64, key string) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		value, ok := userData.Data[key]
		return value, ok
	}
	return "", false
}

// SetData устанавливает временные данные пользователя
func (sm *Manager) SetData(telegramID int64, key, value string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.entry(telegramID).Data[key] = value
}

// DeleteData удаляет один ключ, состояние не меняется
func (sm *Manager) DeleteData(telegramID int64, key string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if userData, exists := sm.states[telegramID]; exists {
		delete(userData.Data, key)
	}
}

// ClearState очищает состояние и данные пользователя
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}

// GetAllData получает копию всех временных данных пользователя
func (sm *Manager) GetAllData(telegramID int64) map[string]string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	userData, exists := sm.states[telegramID]
	if !exists {
		return nil
	}

	dataCopy := make(map[string]string, len(userData.Data))
	for k, v := range userData.Data {
		dataCopy[k] = v
	}
	return dataCopy
}

// Snapshot сериализует все незавершённые диалоги в JSON
func (sm *Manager) Snapshot() ([]byte, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return json.Marshal(sm.states)
}

// Restore заменяет текущие диалоги содержимым снимка
func (sm *Manager) Restore(data []byte) error {
	states := make(map[int64]*UserData)
	if err := json.Unmarshal(data, &states); err != nil {
		return fmt.Errorf("decode state snapshot: %w", err)
	}

	for id, userData := range states {
		if userData == nil || userData.State == StateNone {
			delete(states, id)
			continue
		}
		if userData.Data == nil {
			userData.Data = make(map[string]string)
		}
	}

	sm.mu.Lock()
	sm.states = states
	sm.mu.Unlock()
	return nil
}

// SaveFile пишет снимок на диск; вызывается при остановке процесса
func (sm *Manager) SaveFile(path string) error {
	data, err := sm.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadFile восстанавливает диалоги из файла; отсутствие файла не ошибка
func (sm *Manager) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state snapshot: %w", err)
	}
	return sm.Restore(data)
}

// Len количество пользователей с активным диалогом
func (sm *Manager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.states)
}

func (sm *Manager) entry(telegramID int64) *UserData {
	userData, exists := sm.states[telegramID]
	if !exists {
		userData = &UserData{
			State: StateNone,
			Data:  make(map[string]string),
		}
		sm.states[telegramID] = userData
	}
	return userData
}
