package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/state"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	studentCommands = "/request - Записаться на консультацию\n" +
		"/mysessions - Мои консультации\n" +
		"/pending - Неразобранная заявка\n" +
		"/progress - Прогресс по этапам работы\n"

	supervisorCommands = "/pending - Заявки, ждущие решения\n" +
		"/mysessions - Консультации со студентами\n" +
		"/progress - Прогресс студентов\n"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	user, err := h.userService.GetByTelegramID(ctx, telegramID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}

	if user == nil {
		h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
			"👋 Привет!\n\n"+
				"Этот бот помогает записываться на консультации к научному руководителю и следить за этапами работы.\n\n"+
				"Аккаунт ещё не привязан. Укажите в личном кабинете Telegram ID: <code>%d</code>",
			telegramID,
		), nil)
		return
	}

	commands := studentCommands
	if user.IsSupervisor() {
		commands = supervisorCommands
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"👋 Привет, %s!\n\nДоступные команды:\n%s/help - Справка",
		html.EscapeString(user.Name), commands,
	), nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📚 Справка по командам:\n\n" +
		"Для студентов:\n" + studentCommands + "\n" +
		"Для руководителей:\n" + supervisorCommands + "\n" +
		"/cancel - Прервать текущий диалог\n\n" +
		"Одновременно может быть только одна заявка, ждущая решения руководителя."

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.", nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.checks.Forget(common.CheckKey(telegramID))

	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.", nil)
}

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	// Команды обрабатываются другими handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	text := strings.TrimSpace(update.Message.Text)

	switch h.stateManager.GetState(telegramID) {
	case state.StateRequestDate:
		h.handleRequestDate(ctx, b, update, text)
	case state.StateRequestDuration, state.StateRequestSupervisor:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "👆 Выберите вариант кнопкой выше или /cancel", nil)
	case state.StateRequestConfirm:
		h.handleRequestNotes(ctx, b, update, text)
	case state.StateCancelReason:
		h.handleCancelReason(ctx, b, update, text)
	case state.StateSupervisorMessage:
		h.handleRejectMessage(ctx, b, update, text)
	case state.StateSummaryText:
		h.handleSummary(ctx, b, update, text)
	default:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "🤔 Не понимаю. Используйте /help для списка команд.", nil)
	}
}

// optionalText "-" означает пустой комментарий
func optionalText(text string) string {
	if text == "-" {
		return ""
	}
	return text
}

func counterpartLine(user *model.User) string {
	if user.IsSupervisor() {
		return "студентами"
	}
	return "руководителем"
}
