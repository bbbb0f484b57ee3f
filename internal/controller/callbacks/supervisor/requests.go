package supervisor

import (
	"context"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleApproveRequest руководитель соглашается стать вторым руководителем работы
func HandleApproveRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	resolve(ctx, b, callback, h, keyboard.SupervisorRequestApprove, "✅ Вы второй руководитель работы",
		h.SupervisorRequestService.Approve)
}

// HandleRejectRequest руководитель отклоняет заявку
func HandleRejectRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	resolve(ctx, b, callback, h, keyboard.SupervisorRequestReject, "🚫 Заявка отклонена",
		h.SupervisorRequestService.Reject)
}

type resolveFunc func(ctx context.Context, actor service.Actor, id uuid.UUID, response string) (*model.SupervisorRequest, error)

func resolve(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	prefix string,
	answer string,
	apply resolveFunc,
) {
	common.WithRole(ctx, b, callback, h, model.RoleSupervisor, func(hc *common.HandlerContext) {
		id, err := common.ParseUUIDFromCallback(callback.Data, prefix)
		if err != nil {
			common.HandleError(hc, err, "parse request id")
			return
		}

		req, err := apply(ctx, hc.Actor(), id, "")
		if err != nil {
			common.HandleError(hc, err, "resolve supervisor request")
			return
		}

		h.Logger.Info("Supervisor request resolved via bot",
			zap.String("request_id", req.ID.String()),
			zap.String("status", string(req.Status)))

		hc.Answer(answer)
		if err := hc.EditMessage(formatting.FormatSupervisorRequest(req), nil); err != nil {
			h.Logger.Error("Failed to update request message", zap.Error(err))
		}
	})
}
