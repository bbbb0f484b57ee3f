package api

import (
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SupervisorRequestHandler struct {
	requests *service.SupervisorRequestService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewSupervisorRequestHandler(requests *service.SupervisorRequestService, logger *zap.Logger) *SupervisorRequestHandler {
	return &SupervisorRequestHandler{
		requests: requests,
		validate: validator.New(),
		logger:   logger,
	}
}

type CreateSupervisorRequest struct {
	SupervisorID uuid.UUID `json:"supervisorId" validate:"required"`
	Message      string    `json:"message" validate:"max=1000"`
}

type ResolveSupervisorRequest struct {
	Message string `json:"message" validate:"max=1000"`
}

func (h *SupervisorRequestHandler) List(c *fiber.Ctx) error {
	requests, err := h.requests.List(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if requests == nil {
		requests = []*model.SupervisorRequest{}
	}

	return c.JSON(fiber.Map{"items": requests})
}

func (h *SupervisorRequestHandler) Create(c *fiber.Ctx) error {
	var req CreateSupervisorRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Cannot parse JSON")
	}
	if err := h.validate.Struct(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeValidation, err.Error())
	}

	created, err := h.requests.Create(c.UserContext(), actorFrom(c), req.SupervisorID, req.Message)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": created})
}

func (h *SupervisorRequestHandler) Approve(c *fiber.Ctx) error {
	return h.resolve(c, func(id uuid.UUID, message string) (*model.SupervisorRequest, error) {
		return h.requests.Approve(c.UserContext(), actorFrom(c), id, message)
	})
}

func (h *SupervisorRequestHandler) Reject(c *fiber.Ctx) error {
	return h.resolve(c, func(id uuid.UUID, message string) (*model.SupervisorRequest, error) {
		return h.requests.Reject(c.UserContext(), actorFrom(c), id, message)
	})
}

func (h *SupervisorRequestHandler) Cancel(c *fiber.Ctx) error {
	return h.resolve(c, func(id uuid.UUID, _ string) (*model.SupervisorRequest, error) {
		return h.requests.Cancel(c.UserContext(), actorFrom(c), id)
	})
}

func (h *SupervisorRequestHandler) resolve(c *fiber.Ctx, call func(id uuid.UUID, message string) (*model.SupervisorRequest, error)) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Invalid request ID format")
	}

	var req ResolveSupervisorRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Cannot parse JSON")
		}
	}
	if err := h.validate.Struct(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeValidation, err.Error())
	}

	resolved, err := call(id, req.Message)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"request": resolved})
}
