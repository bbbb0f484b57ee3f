package api

import (
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MilestoneHandler struct {
	milestones *service.MilestoneService
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewMilestoneHandler(milestones *service.MilestoneService, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{
		milestones: milestones,
		validate:   validator.New(),
		logger:     logger,
	}
}

type InitMilestonesRequest struct {
	Templates []model.MilestoneTemplate `json:"templates" validate:"dive"`
}

type ProgressRequest struct {
	ProgressPercentage int    `json:"progressPercentage" validate:"min=0,max=100"`
	StudentNotes       string `json:"studentNotes" validate:"max=2000"`
}

type ValidateMilestoneRequest struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

func (h *MilestoneHandler) List(c *fiber.Ctx) error {
	thesisID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Invalid thesis ID format")
	}

	overview, err := h.milestones.List(c.UserContext(), actorFrom(c), thesisID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(overview)
}

func (h *MilestoneHandler) Init(c *fiber.Ctx) error {
	thesisID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Invalid thesis ID format")
	}

	var req InitMilestonesRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Cannot parse JSON")
		}
	}
	if err := h.validate.Struct(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeValidation, err.Error())
	}

	milestones, err := h.milestones.InitFromTemplates(c.UserContext(), actorFrom(c), thesisID, req.Templates)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"milestones": milestones,
		"progress":   service.SummarizeMilestones(milestones),
	})
}

func (h *MilestoneHandler) SubmitProgress(c *fiber.Ctx) error {
	milestoneID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Invalid milestone ID format")
	}

	var req ProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Cannot parse JSON")
	}
	if err := h.validate.Struct(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeValidation, err.Error())
	}

	milestone, err := h.milestones.SubmitProgress(c.UserContext(), actorFrom(c), milestoneID, req.ProgressPercentage, req.StudentNotes)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"milestone": milestone})
}

func (h *MilestoneHandler) Validate(c *fiber.Ctx) error {
	milestoneID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Invalid milestone ID format")
	}

	var req ValidateMilestoneRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Cannot parse JSON")
	}
	if err := h.validate.Struct(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, codeValidation, err.Error())
	}

	milestone, err := h.milestones.Validate(c.UserContext(), actorFrom(c), milestoneID, req.Approved, req.Feedback)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"milestone": milestone})
}
