package state

import (
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
)

// Adapter адаптирует state.Manager к интерфейсу callbacktypes.StateManager
type Adapter struct {
	sm *Manager
}

// NewAdapter создает адаптер для Manager
func NewAdapter(sm *Manager) *Adapter {
	return &Adapter{sm: sm}
}

// GetState получает текущий шаг диалога пользователя
func (a *Adapter) GetState(telegramID int64) callbacktypes.UserState {
	// Преобразуем state.UserState в callbacktypes.UserState
	return callbacktypes.UserState(a.sm.GetState(telegramID))
}

// SetState переводит диалог пользователя на новый шаг
func (a *Adapter) SetState(telegramID int64, state callbacktypes.UserState) {
	// Преобразуем callbacktypes.UserState в state.UserState
	a.sm.SetState(telegramID, UserState(state))
}

// GetData получает значение, собранное на предыдущих шагах диалога
func (a *Adapter) GetData(telegramID int64, key string) (string, bool) {
	return a.sm.GetData(telegramID, key)
}

// SetData сохраняет значение, введенное пользователем
func (a *Adapter) SetData(telegramID int64, key, value string) {
	a.sm.SetData(telegramID, key, value)
}

// ClearState завершает диалог: очищает шаг и собранные данные
func (a *Adapter) ClearState(telegramID int64) {
	a.sm.ClearState(telegramID)
}

// GetAllData получает копию всех собранных данных диалога
func (a *Adapter) GetAllData(telegramID int64) map[string]string {
	return a.sm.GetAllData(telegramID)
}
