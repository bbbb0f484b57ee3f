package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/state"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleRequest начинает диалог /request.
// Правило одной заявки проверяется до ввода данных, чтобы студент не заполнял форму зря.
func (h *Handlers) HandleRequest(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleStudent)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID
	actor := actorOf(user)

	pending, err := h.guidanceService.FindPending(ctx, actor)
	if err != nil {
		h.reportError(ctx, b, chatID, err, "find pending guidance")
		return
	}
	if pending != nil {
		h.sendMessage(ctx, b, chatID,
			"⏳ У вас уже есть заявка, ждущая решения. Отмените её или дождитесь ответа.\n\n"+
				formatting.FormatSession(pending, pending.SupervisorName, h.location),
			keyboard.SessionActions(pending, user.Role))
		return
	}

	supervisors, err := h.userService.SupervisorsOf(ctx, actor)
	if err != nil {
		h.reportError(ctx, b, chatID, err, "list supervisors")
		return
	}
	if len(supervisors) == 0 {
		h.sendMessage(ctx, b, chatID, "📋 Выпускная работа ещё не зарегистрирована, записаться не к кому.", nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.checks.Forget(common.CheckKey(telegramID))
	h.stateManager.SetState(telegramID, state.StateRequestSupervisor)

	h.sendMessage(ctx, b, chatID, "👨‍🏫 Выберите руководителя:", keyboard.SupervisorChoice(supervisors))
}

// handleRequestDate дата и время встречи; если длительность уже выбрана, сразу проверяем занятость
func (h *Handlers) handleRequestDate(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	start, err := formatting.ParseDateTime(text, h.location)
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ Не получилось разобрать дату. Формат: "+formatting.InputLayout+", например 14.03.2025 10:30")
		return
	}

	draft, err := common.LoadDraft(h.stateManager.GetAllData(telegramID))
	if err != nil {
		h.stateManager.ClearState(telegramID)
		h.reportError(ctx, b, chatID, err, "load request draft")
		return
	}
	draft.Start = start
	h.stateManager.SetData(telegramID, state.KeyRequestedAt, draft.Start.Format(time.RFC3339))

	if draft.Duration == 0 {
		h.stateManager.SetState(telegramID, state.StateRequestDuration)
		h.sendMessage(ctx, b, chatID, "⏱ Выберите длительность встречи:", keyboard.DurationChoice())
		return
	}

	common.RunCheck(ctx, h.deps(), telegramID, draft, func(reply string, kb *models.InlineKeyboardMarkup) {
		h.sendMessage(ctx, b, chatID, reply, kb)
	})
}

// handleRequestNotes комментарий к заявке на шаге подтверждения
func (h *Handlers) handleRequestNotes(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	h.stateManager.SetData(telegramID, state.KeyNotes, optionalText(text))

	draft, err := common.LoadDraft(h.stateManager.GetAllData(telegramID))
	if err != nil {
		h.stateManager.ClearState(telegramID)
		h.reportError(ctx, b, chatID, err, "load request draft")
		return
	}

	h.sendMessage(ctx, b, chatID, common.DraftSummary(draft, h.location), keyboard.Confirm())
}

// handleCancelReason студент прислал причину отмены
func (h *Handlers) handleCancelReason(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	h.finishSessionAction(ctx, b, update, "cancel guidance", func(user *model.User, id uuid.UUID) (*model.GuidanceSession, error) {
		return h.guidanceService.Cancel(ctx, actorOf(user), id, optionalText(text))
	})
}

// handleRejectMessage руководитель прислал причину отказа
func (h *Handlers) handleRejectMessage(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	h.finishSessionAction(ctx, b, update, "reject guidance", func(user *model.User, id uuid.UUID) (*model.GuidanceSession, error) {
		return h.guidanceService.Reject(ctx, actorOf(user), id, optionalText(text))
	})
}

// handleSummary итоги встречи: первый абзац - итоги, остальное - задачи
func (h *Handlers) handleSummary(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	summary, actionItems, _ := strings.Cut(text, "\n\n")
	h.finishSessionAction(ctx, b, update, "submit summary", func(user *model.User, id uuid.UUID) (*model.GuidanceSession, error) {
		return h.guidanceService.SubmitSummary(ctx, actorOf(user), id, strings.TrimSpace(summary), strings.TrimSpace(actionItems))
	})
}

// finishSessionAction выполняет действие над сессией, сохранённой в диалоге, и закрывает диалог
func (h *Handlers) finishSessionAction(
	ctx context.Context,
	b *bot.Bot,
	update *models.Update,
	operation string,
	apply func(user *model.User, id uuid.UUID) (*model.GuidanceSession, error),
) {
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	raw, _ := h.stateManager.GetData(telegramID, state.KeySessionID)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.stateManager.ClearState(telegramID)
		h.reportError(ctx, b, chatID, common.ErrDialogExpired, operation)
		return
	}

	session, err := apply(user, id)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			// Текст не прошёл проверку: остаёмся в диалоге, пользователь пришлёт новый
			h.sendError(ctx, b, chatID, common.ErrorMessage(err))
			return
		}
		h.stateManager.ClearState(telegramID)
		h.reportError(ctx, b, chatID, err, operation)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.logger.Info("Guidance updated via bot",
		zap.String("operation", operation),
		zap.String("session_id", session.ID.String()),
		zap.String("status", string(session.Status)))

	h.sendMessage(ctx, b, chatID,
		formatting.FormatSession(session, formatting.Counterpart(session, user.Role), h.location),
		keyboard.SessionActions(session, user.Role))
}
