package keyboard

import (
	"strconv"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-telegram/bot/models"
)

// Callback data. Префиксы с двоеточием дополняются id.
const (
	GuidanceCancel         = "g_cancel:"  // g_cancel:<session_id>
	GuidanceApprove        = "g_approve:" // g_approve:<session_id>
	GuidanceReject         = "g_reject:"  // g_reject:<session_id>
	GuidanceSummary        = "g_summary:" // g_summary:<session_id>
	GuidanceApproveSummary = "g_done:"    // g_done:<session_id>

	RequestSupervisor = "req_sup:" // req_sup:<supervisor_id>
	RequestDuration   = "req_dur:" // req_dur:<minutes>
	RequestConfirm    = "req_confirm"
	RequestAbort      = "req_abort"

	SupervisorRequestApprove = "sr_approve:" // sr_approve:<request_id>
	SupervisorRequestReject  = "sr_reject:"  // sr_reject:<request_id>
)

// DurationOptions варианты длительности в диалоге /request, минуты
var DurationOptions = []int{30, 45, 60, 90}

// Builder упрощает создание inline клавиатур
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

// NewBuilder создаёт новый builder клавиатуры
func NewBuilder() *Builder {
	return &Builder{
		rows: make([][]models.InlineKeyboardButton, 0),
	}
}

// Row добавляет новый ряд кнопок
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Build создаёт финальную клавиатуру; nil если кнопок нет
func (b *Builder) Build() *models.InlineKeyboardMarkup {
	if len(b.rows) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: b.rows,
	}
}

// Button создаёт кнопку
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// SessionActions кнопки действий, доступных роли из текущего статуса.
// Перенос и правка заметок идут через HTTP API, в боте их нет.
func SessionActions(session *model.GuidanceSession, role model.Role) *models.InlineKeyboardMarkup {
	id := session.ID.String()
	b := NewBuilder()
	var row []models.InlineKeyboardButton

	for _, action := range service.AllowedActions(session.Status, role) {
		switch action {
		case service.ActionApprove:
			row = append(row, Button("✅ Одобрить", GuidanceApprove+id))
		case service.ActionReject:
			row = append(row, Button("🚫 Отклонить", GuidanceReject+id))
		case service.ActionCancel:
			row = append(row, Button("❌ Отменить", GuidanceCancel+id))
		case service.ActionSubmitSummary:
			row = append(row, Button("📝 Отправить итоги", GuidanceSummary+id))
		case service.ActionApproveSummary:
			row = append(row, Button("✔️ Принять итоги", GuidanceApproveSummary+id))
		}
	}
	return b.Row(row...).Build()
}

// SupervisorChoice по кнопке на каждого руководителя работы
func SupervisorChoice(supervisors []*model.User) *models.InlineKeyboardMarkup {
	b := NewBuilder()
	for _, s := range supervisors {
		b.Row(Button("👨‍🏫 "+s.Name, RequestSupervisor+s.ID.String()))
	}
	b.Row(Button("✖️ Отмена", RequestAbort))
	return b.Build()
}

// DurationChoice выбор длительности встречи
func DurationChoice() *models.InlineKeyboardMarkup {
	var row []models.InlineKeyboardButton
	for _, minutes := range DurationOptions {
		row = append(row, Button(formatting.FormatDuration(minutes), RequestDuration+strconv.Itoa(minutes)))
	}
	return NewBuilder().Row(row...).Row(Button("✖️ Отмена", RequestAbort)).Build()
}

// Confirm подтверждение заявки
func Confirm() *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(Button("📨 Отправить заявку", RequestConfirm)).
		Row(Button("✖️ Отмена", RequestAbort)).
		Build()
}

// SupervisorRequestActions одобрить или отклонить заявку на второго руководителя
func SupervisorRequestActions(req *model.SupervisorRequest) *models.InlineKeyboardMarkup {
	if !req.IsPending() {
		return nil
	}
	id := req.ID.String()
	return NewBuilder().Row(
		Button("✅ Стать руководителем", SupervisorRequestApprove+id),
		Button("🚫 Отклонить", SupervisorRequestReject+id),
	).Build()
}
