package formatting

import "github.com/Freeeeeet/thesis_tracker/internal/model"

// StatusDisplay emoji и подпись статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

var unknownStatus = StatusDisplay{"❓", "Неизвестно"}

// GetGuidanceStatusDisplay возвращает emoji и текст для статуса консультации
func GetGuidanceStatusDisplay(status model.GuidanceStatus) StatusDisplay {
	displays := map[model.GuidanceStatus]StatusDisplay{
		model.GuidanceStatusRequested:      {"⏳", "Ожидает решения"},
		model.GuidanceStatusAccepted:       {"✅", "Назначена"},
		model.GuidanceStatusRejected:       {"🚫", "Отклонена"},
		model.GuidanceStatusSummaryPending: {"📝", "Итоги на проверке"},
		model.GuidanceStatusCompleted:      {"✔️", "Завершена"},
		model.GuidanceStatusCancelled:      {"❌", "Отменена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return unknownStatus
}

// GetMilestoneStatusDisplay возвращает emoji и текст для статуса этапа
func GetMilestoneStatusDisplay(status model.MilestoneStatus) StatusDisplay {
	displays := map[model.MilestoneStatus]StatusDisplay{
		model.MilestoneStatusNotStarted:     {"⚪️", "Не начат"},
		model.MilestoneStatusInProgress:     {"🔵", "В работе"},
		model.MilestoneStatusRevisionNeeded: {"🟠", "Нужны правки"},
		model.MilestoneStatusCompleted:      {"🟢", "Принят"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return unknownStatus
}

// GetSupervisorRequestStatusDisplay возвращает emoji и текст для заявки на второго руководителя
func GetSupervisorRequestStatusDisplay(status model.SupervisorRequestStatus) StatusDisplay {
	displays := map[model.SupervisorRequestStatus]StatusDisplay{
		model.SupervisorRequestRequested: {"⏳", "Ожидает решения"},
		model.SupervisorRequestApproved:  {"✅", "Одобрена"},
		model.SupervisorRequestRejected:  {"🚫", "Отклонена"},
		model.SupervisorRequestCancelled: {"❌", "Отменена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return unknownStatus
}
