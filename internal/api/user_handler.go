package api

import (
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserHandler struct {
	users    *service.UserService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewUserHandler(users *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		validate: validator.New(),
		logger:   logger,
	}
}

type BindTelegramRequest struct {
	TelegramID int64 `json:"telegramId" validate:"required,gt=0"`
}

// Me GET /me
func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.UserContext(), actorFrom(c).UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// BindTelegram PUT /me/telegram, привязка чата бота к учётной записи
func (h *UserHandler) BindTelegram(c *fiber.Ctx) error {
	var req BindTelegramRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Cannot parse JSON")
	}
	if err := h.validate.Struct(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeValidation, err.Error())
	}

	user, err := h.users.BindTelegram(c.UserContext(), actorFrom(c), req.TelegramID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// UnbindTelegram DELETE /me/telegram
func (h *UserHandler) UnbindTelegram(c *fiber.Ctx) error {
	if err := h.users.UnbindTelegram(c.UserContext(), actorFrom(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
