package common

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
)

// Ошибки уровня бота
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrNotAStudent    = errors.New("user is not a student")
	ErrNotASupervisor = errors.New("user is not a supervisor")
	ErrNoMessage      = errors.New("no message in callback")
	ErrInvalidFormat  = errors.New("invalid callback format")
	ErrDialogExpired  = errors.New("dialog data is missing")
)

// ErrorMessage возвращает пользовательское сообщение для ошибки.
// Сообщения доменных ошибок показываются как есть.
func ErrorMessage(err error) string {
	var (
		validationErr *service.ValidationError
		conflictErr   *service.ConflictError
		unknownErr    *service.AvailabilityUnknownError
		transitionErr *service.InvalidTransitionError
		pendingErr    *service.PendingRequestExistsError
	)

	switch {
	case errors.Is(err, ErrUserNotFound):
		return "❌ Аккаунт не привязан к Telegram. Используйте /start"
	case errors.Is(err, ErrNotAStudent):
		return "❌ Эта функция доступна только студентам"
	case errors.Is(err, ErrNotASupervisor):
		return "❌ Эта функция доступна только руководителям"
	case errors.Is(err, ErrNoMessage):
		return "❌ Ошибка обработки сообщения"
	case errors.Is(err, ErrInvalidFormat):
		return "❌ Неверный формат данных"
	case errors.Is(err, ErrDialogExpired):
		return "⌛️ Диалог устарел. Начните заново: /request"
	case errors.As(err, &validationErr):
		return "❌ " + validationErr.Error()
	case errors.As(err, &conflictErr):
		return "⛔️ " + conflictErr.Message
	case errors.As(err, &unknownErr):
		return "⚠️ Не удалось проверить занятость руководителя. Попробуйте позже."
	case errors.As(err, &transitionErr):
		return "❌ Действие недоступно: " + transitionErr.Error()
	case errors.As(err, &pendingErr):
		return pendingMessage(pendingErr)
	case errors.Is(err, service.ErrOperationInFlight):
		return "⏳ Операция уже выполняется, подождите"
	case errors.Is(err, service.ErrForbidden):
		return "❌ У вас нет доступа к этой заявке"
	case errors.Is(err, service.ErrNotFound):
		return "❌ Не найдено"
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}

func pendingMessage(err *service.PendingRequestExistsError) string {
	switch pending := err.Pending.(type) {
	case *model.GuidanceSession:
		return fmt.Sprintf("⏳ У вас уже есть заявка к %s на %s. Отмените её или дождитесь решения.",
			pending.SupervisorName, formatting.FormatDateTime(pending.RequestedDate))
	case *model.SupervisorRequest:
		return fmt.Sprintf("⏳ У вас уже есть заявка к %s. Отмените её или дождитесь решения.",
			pending.SupervisorName)
	default:
		return "⏳ " + err.Error()
	}
}
