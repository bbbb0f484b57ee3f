package api

import (
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const checkTokenHeader = "X-Check-Token"

type AvailabilityHandler struct {
	guidance *service.GuidanceService
	logger   *zap.Logger
}

func NewAvailabilityHandler(guidance *service.GuidanceService, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{guidance: guidance, logger: logger}
}

type checkResponse struct {
	Status   service.ConflictStatus `json:"status"`
	Conflict *model.BusySlot        `json:"conflict,omitempty"`
	Message  string                 `json:"message"`
	Start    time.Time              `json:"start"`
	End      time.Time              `json:"end"`
	Token    string                 `json:"token,omitempty"`
}

// BusySlots GET /supervisors/:id/availability?start=&end=
func (h *AvailabilityHandler) BusySlots(c *fiber.Ctx) error {
	supervisorID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Invalid supervisor ID format")
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "start must be an RFC3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "end must be an RFC3339 timestamp")
	}

	slots, err := h.guidance.BusySlots(c.UserContext(), supervisorID, start, end)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"busySlots": slots})
}

// Check GET /supervisors/:id/availability/check?start=&duration=
// Токен из заголовка X-Check-Token возвращается как есть: клиент применяет только ответ на последнюю проверку.
func (h *AvailabilityHandler) Check(c *fiber.Ctx) error {
	supervisorID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "Invalid supervisor ID format")
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, codeBadRequest, "start must be an RFC3339 timestamp")
	}
	duration := c.QueryInt("duration", 0)

	result, err := h.guidance.CheckAvailability(c.UserContext(), supervisorID, start, duration)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	status := fiber.StatusOK
	if result.Status == service.AvailabilityUnknown {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(checkResponse{
		Status:   result.Status,
		Conflict: result.Slot,
		Message:  result.Message,
		Start:    result.CandidateStart,
		End:      result.CandidateEnd,
		Token:    c.Get(checkTokenHeader),
	})
}
