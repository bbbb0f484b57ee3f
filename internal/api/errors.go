package api

import (
	"errors"

	"github.com/Freeeeeet/thesis_tracker/internal/repository"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	codeBadRequest          = "bad_request"
	codeUnauthorized        = "unauthorized"
	codeRateLimited         = "rate_limited"
	codeValidation          = "validation_error"
	codeForbidden           = "forbidden"
	codeNotFound            = "not_found"
	codeConflict            = "conflict"
	codePendingExists       = "pending_request_exists"
	codeInFlight            = "operation_in_flight"
	codeInvalidTransition   = "invalid_transition"
	codeAvailabilityUnknown = "availability_unknown"
	codeInternal            = "internal_error"
)

// ErrorResponse единый формат ошибок API
type ErrorResponse struct {
	Message  string `json:"message"`
	Code     string `json:"code"`
	Field    string `json:"field,omitempty"`
	Pending  any    `json:"pending,omitempty"`
	Conflict any    `json:"conflict,omitempty"`
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorResponse{Message: message, Code: code})
}

// respondError переводит доменную ошибку в HTTP-ответ; сообщение доменных ошибок отдаётся как есть
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var (
		validationErr *service.ValidationError
		conflictErr   *service.ConflictError
		unknownErr    *service.AvailabilityUnknownError
		transitionErr *service.InvalidTransitionError
		pendingErr    *service.PendingRequestExistsError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: validationErr.Message,
			Code:    codeValidation,
			Field:   validationErr.Field,
		})
	case errors.Is(err, service.ErrForbidden):
		return writeError(c, fiber.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, codeNotFound, err.Error())
	case errors.As(err, &conflictErr):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Message:  conflictErr.Message,
			Code:     codeConflict,
			Conflict: conflictErr.Slot,
		})
	case errors.As(err, &pendingErr):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Message: pendingErr.Error(),
			Code:    codePendingExists,
			Pending: pendingErr.Pending,
		})
	case errors.Is(err, repository.ErrPendingExists):
		return writeError(c, fiber.StatusConflict, codePendingExists, err.Error())
	case errors.Is(err, service.ErrOperationInFlight):
		return writeError(c, fiber.StatusConflict, codeInFlight, err.Error())
	case errors.As(err, &transitionErr):
		return writeError(c, fiber.StatusUnprocessableEntity, codeInvalidTransition, transitionErr.Error())
	case errors.As(err, &unknownErr):
		logger.Warn("Availability unknown", zap.Error(err))
		return writeError(c, fiber.StatusServiceUnavailable, codeAvailabilityUnknown, unknownErr.Error())
	default:
		logger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, codeInternal, "Something went wrong, please try again")
	}
}
