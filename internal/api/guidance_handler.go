package api

import (
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GuidanceHandler struct {
	guidance *service.GuidanceService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewGuidanceHandler(guidance *service.GuidanceService, logger *zap.Logger) *GuidanceHandler {
	return &GuidanceHandler{
		guidance: guidance,
		validate: validator.New(),
		logger:   logger,
	}
}

type CreateGuidanceRequest struct {
	SupervisorID    uuid.UUID  `json:"supervisorId" validate:"required"`
	RequestedDate   time.Time  `json:"requestedDate" validate:"required"`
	DurationMinutes int        `json:"durationMinutes" validate:"omitempty,min=1,max=480"`
	StudentNotes    string     `json:"studentNotes" validate:"max=2000"`
	MilestoneID     *uuid.UUID `json:"milestoneId,omitempty"`
}

type RescheduleRequest struct {
	RequestedDate time.Time `json:"requestedDate" validate:"required"`
	StudentNotes  string    `json:"studentNotes" validate:"max=2000"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type NotesRequest struct {
	StudentNotes string `json:"studentNotes" validate:"max=2000"`
}

type DecisionRequest struct {
	Message string `json:"message" validate:"max=1000"`
}

type SummaryRequest struct {
	SessionSummary string `json:"sessionSummary" validate:"required,max=5000"`
	ActionItems    string `json:"actionItems" validate:"max=5000"`
}

type guidanceResponse struct {
	Guidance       *model.GuidanceSession `json:"guidance"`
	AllowedActions []service.Action       `json:"allowedActions"`
}

func (h *GuidanceHandler) respond(c *fiber.Ctx, status int, g *model.GuidanceSession) error {
	actions := service.AllowedActions(g.Status, actorFrom(c).Role)
	if actions == nil {
		actions = []service.Action{}
	}
	return c.Status(status).JSON(guidanceResponse{Guidance: g, AllowedActions: actions})
}

func (h *GuidanceHandler) List(c *fiber.Ctx) error {
	var status *model.GuidanceStatus
	if raw := c.Query("status"); raw != "" {
		s := model.GuidanceStatus(raw)
		status = &s
	}

	sessions, err := h.guidance.List(c.UserContext(), actorFrom(c), status)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if sessions == nil {
		sessions = []*model.GuidanceSession{}
	}

	return c.JSON(fiber.Map{"items": sessions})
}

func (h *GuidanceHandler) Upcoming(c *fiber.Ctx) error {
	sessions, err := h.guidance.Upcoming(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if sessions == nil {
		sessions = []*model.GuidanceSession{}
	}

	return c.JSON(fiber.Map{"items": sessions})
}

func (h *GuidanceHandler) Pending(c *fiber.Ctx) error {
	pending, err := h.guidance.FindPending(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"pending": pending, "canCreate": pending == nil})
}

func (h *GuidanceHandler) Create(c *fiber.Ctx) error {
	var req CreateGuidanceRequest
	if c.BodyParser(&req) != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Cannot parse JSON")
	}
	if err := h.validate.Struct(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeValidation, err.Error())
	}

	session, err := h.guidance.Create(c.UserContext(), actorFrom(c), service.CreateGuidanceInput{
		SupervisorID:    req.SupervisorID,
		RequestedDate:   req.RequestedDate,
		DurationMinutes: req.DurationMinutes,
		StudentNotes:    req.StudentNotes,
		MilestoneID:     req.MilestoneID,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return h.respond(c, fiber.StatusCreated, session)
}

func (h *GuidanceHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Invalid guidance ID format")
	}

	session, err := h.guidance.Get(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return h.respond(c, fiber.StatusOK, session)
}

func (h *GuidanceHandler) Reschedule(c *fiber.Ctx) error {
	var req RescheduleRequest
	return h.mutate(c, &req, func(id uuid.UUID) (*model.GuidanceSession, error) {
		return h.guidance.Reschedule(c.UserContext(), actorFrom(c), id, req.RequestedDate, req.StudentNotes)
	})
}

func (h *GuidanceHandler) Cancel(c *fiber.Ctx) error {
	var req CancelRequest
	return h.mutate(c, &req, func(id uuid.UUID) (*model.GuidanceSession, error) {
		return h.guidance.Cancel(c.UserContext(), actorFrom(c), id, req.Reason)
	})
}

func (h *GuidanceHandler) UpdateNotes(c *fiber.Ctx) error {
	var req NotesRequest
	return h.mutate(c, &req, func(id uuid.UUID) (*model.GuidanceSession, error) {
		return h.guidance.UpdateNotes(c.UserContext(), actorFrom(c), id, req.StudentNotes)
	})
}

func (h *GuidanceHandler) Approve(c *fiber.Ctx) error {
	var req DecisionRequest
	return h.mutate(c, &req, func(id uuid.UUID) (*model.GuidanceSession, error) {
		return h.guidance.Approve(c.UserContext(), actorFrom(c), id, req.Message)
	})
}

func (h *GuidanceHandler) Reject(c *fiber.Ctx) error {
	var req DecisionRequest
	return h.mutate(c, &req, func(id uuid.UUID) (*model.GuidanceSession, error) {
		return h.guidance.Reject(c.UserContext(), actorFrom(c), id, req.Message)
	})
}

func (h *GuidanceHandler) SubmitSummary(c *fiber.Ctx) error {
	var req SummaryRequest
	return h.mutate(c, &req, func(id uuid.UUID) (*model.GuidanceSession, error) {
		return h.guidance.SubmitSummary(c.UserContext(), actorFrom(c), id, req.SessionSummary, req.ActionItems)
	})
}

func (h *GuidanceHandler) ApproveSummary(c *fiber.Ctx) error {
	return h.mutate(c, nil, func(id uuid.UUID) (*model.GuidanceSession, error) {
		return h.guidance.ApproveSummary(c.UserContext(), actorFrom(c), id)
	})
}

// mutate общий путь POST/PATCH по сессии: id из пути, тело (если есть), вызов сервиса
func (h *GuidanceHandler) mutate(c *fiber.Ctx, body any, call func(id uuid.UUID) (*model.GuidanceSession, error)) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Invalid guidance ID format")
	}

	if body != nil && len(c.Body()) > 0 {
		if err := c.BodyParser(body); err != nil {
			return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Cannot parse JSON")
		}
	}
	if body != nil {
		if err := h.validate.Struct(body); err != nil {
			return writeError(c, fiber.StatusBadRequest, codeValidation, err.Error())
		}
	}

	session, err := call(id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return h.respond(c, fiber.StatusOK, session)
}
