package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/handlers"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/state"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Services доменные сервисы, доступные из бота
type Services struct {
	Users              *service.UserService
	Guidance           *service.GuidanceService
	Milestones         *service.MilestoneService
	SupervisorRequests *service.SupervisorRequestService
}

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	logger          *zap.Logger
}

// NewBotController stateManager передаётся снаружи, чтобы процесс мог сохранить и восстановить диалоги
func NewBotController(
	botInstance *bot.Bot,
	services Services,
	stateManager *state.Manager,
	location *time.Location,
	logger *zap.Logger,
) *BotController {
	checks := service.NewCheckTracker()

	cmdHandlers := handlers.NewHandlers(
		services.Users,
		services.Guidance,
		services.Milestones,
		services.SupervisorRequests,
		checks,
		stateManager,
		location,
		logger,
	)

	// Адаптер для callback handlers
	stateAdapter := state.NewAdapter(stateManager)

	callbackHandler := callbacks.NewHandler(
		services.Users,
		services.Guidance,
		services.Milestones,
		services.SupervisorRequests,
		checks,
		stateAdapter,
		location,
		logger,
	)

	return &BotController{
		bot:             botInstance,
		handlers:        cmdHandlers,
		callbackHandler: callbackHandler,
		logger:          logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)

	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/request", bot.MatchTypeExact, c.handlers.HandleRequest)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/mysessions", bot.MatchTypeExact, c.handlers.HandleMySessions)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pending", bot.MatchTypeExact, c.handlers.HandlePending)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/progress", bot.MatchTypeExact, c.handlers.HandleProgress)

	// Обработчик текстовых сообщений (для диалогов с состояниями)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handlers.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "request", Description: "📨 Записаться на консультацию"},
		{Command: "mysessions", Description: "📅 Мои консультации"},
		{Command: "pending", Description: "⏳ Заявки, ждущие решения"},
		{Command: "progress", Description: "📈 Прогресс по этапам"},
		{Command: "cancel", Description: "✖️ Прервать диалог"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота; блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
