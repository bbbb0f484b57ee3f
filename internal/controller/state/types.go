package state

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Диалог /request: руководитель -> дата -> длительность -> подтверждение
	StateRequestSupervisor UserState = "request_supervisor"
	StateRequestDate       UserState = "request_date"
	StateRequestDuration   UserState = "request_duration"
	StateRequestConfirm    UserState = "request_confirm"

	// Ввод причины отмены и ответа руководителя
	StateCancelReason      UserState = "cancel_reason"
	StateSupervisorMessage UserState = "supervisor_message"

	// Итоги встречи от студента
	StateSummaryText UserState = "summary_text"
)

// Ключи данных диалога. Значения хранятся строками, чтобы снимок переживал JSON без потерь.
const (
	KeySupervisorID   = "supervisor_id"
	KeySupervisorName = "supervisor_name"
	KeyRequestedAt    = "requested_at" // RFC3339
	KeyDuration       = "duration"     // минуты
	KeyNotes          = "notes"
	KeySessionID      = "session_id"
	KeyAction         = "action"
)

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State UserState         `json:"state"`
	Data  map[string]string `json:"data"`
}
