package guidance

import (
	"context"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/state"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleApprove руководитель одобряет заявку без сообщения
func HandleApprove(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithRole(ctx, b, callback, h, model.RoleSupervisor, func(hc *common.HandlerContext) {
		id, err := common.ParseUUIDFromCallback(callback.Data, keyboard.GuidanceApprove)
		if err != nil {
			common.HandleError(hc, err, "parse session id")
			return
		}

		session, err := h.GuidanceService.Approve(ctx, hc.Actor(), id, "")
		if err != nil {
			common.HandleError(hc, err, "approve guidance")
			return
		}

		showSession(hc, session, "✅ Консультация назначена")
	})
}

// HandleApproveSummary руководитель принимает итоги встречи
func HandleApproveSummary(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithRole(ctx, b, callback, h, model.RoleSupervisor, func(hc *common.HandlerContext) {
		id, err := common.ParseUUIDFromCallback(callback.Data, keyboard.GuidanceApproveSummary)
		if err != nil {
			common.HandleError(hc, err, "parse session id")
			return
		}

		session, err := h.GuidanceService.ApproveSummary(ctx, hc.Actor(), id)
		if err != nil {
			common.HandleError(hc, err, "approve summary")
			return
		}

		showSession(hc, session, "✔️ Консультация завершена")
	})
}

// HandleReject спрашивает у руководителя причину отказа, сам отказ выполняется после ответа
func HandleReject(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	askText(ctx, b, callback, h, model.RoleSupervisor, keyboard.GuidanceReject, state.StateSupervisorMessage,
		"✍️ Напишите сообщение студенту о причине отказа или отправьте «-», чтобы отклонить без комментария.")
}

// HandleCancel спрашивает у студента причину отмены
func HandleCancel(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	askText(ctx, b, callback, h, model.RoleStudent, keyboard.GuidanceCancel, state.StateCancelReason,
		"✍️ Напишите причину отмены или отправьте «-».")
}

// HandleSubmitSummary просит студента прислать итоги встречи
func HandleSubmitSummary(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	askText(ctx, b, callback, h, model.RoleStudent, keyboard.GuidanceSummary, state.StateSummaryText,
		"📝 Пришлите итоги встречи одним сообщением.\n\nЗадачи на следующий этап можно добавить после пустой строки.")
}

// askText запоминает сессию и переводит пользователя в режим ввода текста
func askText(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	role model.Role,
	prefix string,
	next state.UserState,
	prompt string,
) {
	common.WithRole(ctx, b, callback, h, role, func(hc *common.HandlerContext) {
		id, err := common.ParseUUIDFromCallback(callback.Data, prefix)
		if err != nil {
			common.HandleError(hc, err, "parse session id")
			return
		}

		// Проверяем доступ сразу, чтобы не спрашивать текст зря
		if _, err := h.GuidanceService.Get(ctx, hc.Actor(), id); err != nil {
			common.HandleError(hc, err, "get guidance")
			return
		}

		hc.ClearState()
		hc.SetState(callbacktypes.UserState(next))
		hc.SetData(state.KeySessionID, id.String())

		hc.Answer("")
		if err := hc.SendMessage(prompt+"\n\n/cancel - выйти", nil); err != nil {
			h.Logger.Error("Failed to send prompt", zap.Int64("telegram_id", hc.TelegramID), zap.Error(err))
		}
	})
}

func showSession(hc *common.HandlerContext, session *model.GuidanceSession, answer string) {
	hc.Answer(answer)

	text := formatting.FormatSession(session, formatting.Counterpart(session, hc.User.Role), hc.Handler.Location)
	if err := hc.EditMessage(text, keyboard.SessionActions(session, hc.User.Role)); err != nil {
		hc.Handler.Logger.Error("Failed to update session message",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}
}
