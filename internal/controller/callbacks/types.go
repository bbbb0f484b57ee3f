package callbacks

import (
	"context"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler обертка для callbacktypes.Handler с методами
type Handler struct {
	*callbacktypes.Handler
}

// NewHandler создаёт новый обработчик callbacks с зависимостями
func NewHandler(
	userService *service.UserService,
	guidanceService *service.GuidanceService,
	milestoneService *service.MilestoneService,
	supervisorRequestService *service.SupervisorRequestService,
	checks *service.CheckTracker,
	stateManager callbacktypes.StateManager,
	location *time.Location,
	logger *zap.Logger,
) *Handler {
	inner := &callbacktypes.Handler{
		UserService:              userService,
		GuidanceService:          guidanceService,
		MilestoneService:         milestoneService,
		SupervisorRequestService: supervisorRequestService,
		Checks:                   checks,
		StateManager:             stateManager,
		Location:                 location,
		Logger:                   logger,
	}
	return &Handler{Handler: inner}
}

// HandleCallbackQuery - главный обработчик callback queries
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	Route(ctx, b, update.CallbackQuery, h.Handler)
}
