package callbacktypes

import (
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"go.uber.org/zap"
)

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

// StateManager интерфейс для управления состоянием пользователей
type StateManager interface {
	ClearState(telegramID int64)
	GetState(telegramID int64) UserState
	SetState(telegramID int64, state UserState)
	SetData(telegramID int64, key, value string)
	GetData(telegramID int64, key string) (string, bool)
	GetAllData(telegramID int64) map[string]string
}

// Handler содержит общие зависимости для всех callback handlers
type Handler struct {
	UserService              *service.UserService
	GuidanceService          *service.GuidanceService
	MilestoneService         *service.MilestoneService
	SupervisorRequestService *service.SupervisorRequestService
	Checks                   *service.CheckTracker
	StateManager             StateManager
	Location                 *time.Location
	Logger                   *zap.Logger
}
