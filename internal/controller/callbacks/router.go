package callbacks

import (
	"context"
	"strings"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/guidance"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/supervisor"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Route передаёт callback обработчику по префиксу данных
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	data := callback.Data

	h.Logger.Debug("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID))

	switch {
	// ===== Guidance session actions =====
	case strings.HasPrefix(data, keyboard.GuidanceApprove):
		guidance.HandleApprove(ctx, b, callback, h)
	case strings.HasPrefix(data, keyboard.GuidanceReject):
		guidance.HandleReject(ctx, b, callback, h)
	case strings.HasPrefix(data, keyboard.GuidanceCancel):
		guidance.HandleCancel(ctx, b, callback, h)
	case strings.HasPrefix(data, keyboard.GuidanceSummary):
		guidance.HandleSubmitSummary(ctx, b, callback, h)
	case strings.HasPrefix(data, keyboard.GuidanceApproveSummary):
		guidance.HandleApproveSummary(ctx, b, callback, h)

	// ===== /request dialog =====
	case strings.HasPrefix(data, keyboard.RequestSupervisor):
		guidance.HandlePickSupervisor(ctx, b, callback, h)
	case strings.HasPrefix(data, keyboard.RequestDuration):
		guidance.HandlePickDuration(ctx, b, callback, h)
	case data == keyboard.RequestConfirm:
		guidance.HandleConfirmRequest(ctx, b, callback, h)
	case data == keyboard.RequestAbort:
		guidance.HandleAbortRequest(ctx, b, callback, h)

	// ===== Second supervisor requests =====
	case strings.HasPrefix(data, keyboard.SupervisorRequestApprove):
		supervisor.HandleApproveRequest(ctx, b, callback, h)
	case strings.HasPrefix(data, keyboard.SupervisorRequestReject):
		supervisor.HandleRejectRequest(ctx, b, callback, h)

	default:
		h.Logger.Warn("Unknown callback", zap.String("data", data))
		common.AnswerCallback(ctx, b, callback.ID, "")
	}
}
