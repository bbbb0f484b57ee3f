package guidance

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/state"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandlePickSupervisor студент выбрал руководителя, дальше ввод даты
func HandlePickSupervisor(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithRole(ctx, b, callback, h, model.RoleStudent, func(hc *common.HandlerContext) {
		if !inState(hc, state.StateRequestSupervisor) {
			hc.AnswerAlert(common.ErrorMessage(common.ErrDialogExpired))
			return
		}

		supervisorID, err := common.ParseUUIDFromCallback(callback.Data, keyboard.RequestSupervisor)
		if err != nil {
			common.HandleError(hc, err, "parse supervisor id")
			return
		}

		supervisors, err := h.UserService.SupervisorsOf(ctx, hc.Actor())
		if err != nil {
			common.HandleError(hc, err, "list supervisors")
			return
		}

		var chosen *model.User
		for _, s := range supervisors {
			if s.ID == supervisorID {
				chosen = s
				break
			}
		}
		if chosen == nil {
			hc.AnswerAlert("❌ Этот руководитель не закреплён за вашей работой")
			return
		}

		hc.SetData(state.KeySupervisorID, chosen.ID.String())
		hc.SetData(state.KeySupervisorName, chosen.Name)
		hc.SetState(callbacktypes.UserState(state.StateRequestDate))

		hc.Answer("")
		hc.UpdateMessage("pick supervisor",
			"👨‍🏫 "+chosen.Name+"\n\n📅 Введите дату и время встречи в формате <code>"+formatting.InputLayout+"</code>\n\n/cancel - выйти",
			nil,
		)
	})
}

// HandlePickDuration длительность выбрана; если дата уже есть, сразу проверяем занятость
func HandlePickDuration(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithRole(ctx, b, callback, h, model.RoleStudent, func(hc *common.HandlerContext) {
		if !inState(hc, state.StateRequestDuration) {
			hc.AnswerAlert(common.ErrorMessage(common.ErrDialogExpired))
			return
		}

		minutes, err := strconv.Atoi(strings.TrimPrefix(callback.Data, keyboard.RequestDuration))
		if err != nil || minutes <= 0 {
			common.HandleError(hc, common.ErrInvalidFormat, "parse duration")
			return
		}
		hc.SetData(state.KeyDuration, strconv.Itoa(minutes))

		draft, err := common.LoadDraft(h.StateManager.GetAllData(hc.TelegramID))
		if err != nil {
			common.HandleError(hc, err, "load request draft")
			return
		}

		hc.Answer("🔎 Проверяем занятость...")
		common.RunCheck(ctx, h, hc.TelegramID, draft, func(text string, kb *models.InlineKeyboardMarkup) {
			hc.UpdateMessage("availability check", text, kb)
		})
	})
}

// HandleConfirmRequest создаёт заявку из черновика.
// Сервис повторяет проверку занятости и правило одной заявки, поэтому устаревшее подтверждение не пройдёт.
func HandleConfirmRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithRole(ctx, b, callback, h, model.RoleStudent, func(hc *common.HandlerContext) {
		if !inState(hc, state.StateRequestConfirm) {
			hc.AnswerAlert(common.ErrorMessage(common.ErrDialogExpired))
			return
		}

		draft, err := common.LoadDraft(h.StateManager.GetAllData(hc.TelegramID))
		if err != nil {
			common.HandleError(hc, err, "load request draft")
			return
		}

		session, err := h.GuidanceService.Create(ctx, hc.Actor(), service.CreateGuidanceInput{
			SupervisorID:    draft.SupervisorID,
			RequestedDate:   draft.Start,
			DurationMinutes: draft.Duration,
			StudentNotes:    draft.Notes,
		})
		if err != nil {
			common.HandleError(hc, err, "create guidance")

			var conflictErr *service.ConflictError
			var unknownErr *service.AvailabilityUnknownError
			if errors.As(err, &conflictErr) || errors.As(err, &unknownErr) {
				// Время заняли, пока заявка ждала подтверждения: просим другое
				hc.SetState(callbacktypes.UserState(state.StateRequestDate))
				hc.UpdateMessage("create guidance", common.ErrorMessage(err)+"\n\nВведите другое время в формате "+formatting.InputLayout, nil)
			}
			return
		}

		h.StateManager.ClearState(hc.TelegramID)
		h.Checks.Forget(common.CheckKey(hc.TelegramID))

		h.Logger.Info("Guidance requested via bot",
			zap.String("session_id", session.ID.String()),
			zap.Int64("telegram_id", hc.TelegramID))

		hc.Answer("📨 Заявка отправлена")
		hc.UpdateMessage("create guidance",
			formatting.FormatSession(session, draft.SupervisorName, h.Location),
			keyboard.SessionActions(session, model.RoleStudent),
		)
	})
}

// HandleAbortRequest выход из диалога /request
func HandleAbortRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)

	h.StateManager.ClearState(hc.TelegramID)
	h.Checks.Forget(common.CheckKey(hc.TelegramID))

	hc.Answer("Отменено")
	hc.UpdateMessage("abort request", "✖️ Заявка не отправлена.", nil)
}

func inState(hc *common.HandlerContext, expected state.UserState) bool {
	return hc.Handler.StateManager.GetState(hc.TelegramID) == callbacktypes.UserState(expected)
}
