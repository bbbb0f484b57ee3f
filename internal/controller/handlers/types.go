package handlers

import (
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/state"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService              *service.UserService
	guidanceService          *service.GuidanceService
	milestoneService         *service.MilestoneService
	supervisorRequestService *service.SupervisorRequestService
	checks                   *service.CheckTracker
	stateManager             *state.Manager
	location                 *time.Location
	logger                   *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	guidanceService *service.GuidanceService,
	milestoneService *service.MilestoneService,
	supervisorRequestService *service.SupervisorRequestService,
	checks *service.CheckTracker,
	stateManager *state.Manager,
	location *time.Location,
	logger *zap.Logger,
) *Handlers {
	if location == nil {
		location = time.UTC
	}
	return &Handlers{
		userService:              userService,
		guidanceService:          guidanceService,
		milestoneService:         milestoneService,
		supervisorRequestService: supervisorRequestService,
		checks:                   checks,
		stateManager:             stateManager,
		location:                 location,
		logger:                   logger,
	}
}

// deps зависимости в форме, которую ждут общие функции диалогов
func (h *Handlers) deps() *callbacktypes.Handler {
	return &callbacktypes.Handler{
		UserService:              h.userService,
		GuidanceService:          h.guidanceService,
		MilestoneService:         h.milestoneService,
		SupervisorRequestService: h.supervisorRequestService,
		Checks:                   h.checks,
		StateManager:             state.NewAdapter(h.stateManager),
		Location:                 h.location,
		Logger:                   h.logger,
	}
}
