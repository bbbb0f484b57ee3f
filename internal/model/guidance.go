package model

import (
	"time"

	"github.com/google/uuid"
)

type GuidanceStatus string

const (
	GuidanceStatusRequested      GuidanceStatus = "requested"       // Ожидает решения руководителя
	GuidanceStatusAccepted       GuidanceStatus = "accepted"        // Одобрена, встреча назначена
	GuidanceStatusRejected       GuidanceStatus = "rejected"        // Отклонена руководителем
	GuidanceStatusSummaryPending GuidanceStatus = "summary_pending" // Итоги отправлены, ждут проверки
	GuidanceStatusCompleted      GuidanceStatus = "completed"       // Завершена
	GuidanceStatusCancelled      GuidanceStatus = "cancelled"       // Отменена студентом
)

// Valid проверяет, что статус входит в известный набор
func (s GuidanceStatus) Valid() bool {
	switch s {
	case GuidanceStatusRequested, GuidanceStatusAccepted, GuidanceStatusRejected,
		GuidanceStatusSummaryPending, GuidanceStatusCompleted, GuidanceStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transition is allowed
func (s GuidanceStatus) IsTerminal() bool {
	return s == GuidanceStatusCompleted || s == GuidanceStatusRejected || s == GuidanceStatusCancelled
}

type GuidanceSession struct {
	ID                uuid.UUID      `json:"id"`
	StudentID         uuid.UUID      `json:"studentId"`
	SupervisorID      uuid.UUID      `json:"supervisorId"`
	Status            GuidanceStatus `json:"status"`
	RequestedDate     time.Time      `json:"requestedDate"`
	ApprovedDate      *time.Time     `json:"approvedDate,omitempty"`
	DurationMinutes   int            `json:"durationMinutes"`
	StudentNotes      string         `json:"studentNotes"`
	SessionSummary    string         `json:"sessionSummary"`
	ActionItems       string         `json:"actionItems"`
	SupervisorMessage string         `json:"supervisorMessage"`
	CancelReason      string         `json:"cancelReason"`
	MilestoneID       *uuid.UUID     `json:"milestoneId,omitempty"`
	Document          *string        `json:"document,omitempty"` // ссылка во внешнем хранилище документов
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`

	// Дополнительные поля для отображения (не из таблицы сессий)
	StudentName    string `json:"studentName,omitempty"`
	SupervisorName string `json:"supervisorName,omitempty"`
}

// ScheduledAt возвращает согласованное время встречи, либо запрошенное
func (g *GuidanceSession) ScheduledAt() time.Time {
	if g.ApprovedDate != nil {
		return *g.ApprovedDate
	}
	return g.RequestedDate
}

// EndsAt возвращает время окончания встречи
func (g *GuidanceSession) EndsAt() time.Time {
	return g.ScheduledAt().Add(time.Duration(g.DurationMinutes) * time.Minute)
}

// IsPending checks if the session still waits for the supervisor
func (g *GuidanceSession) IsPending() bool {
	return g.Status == GuidanceStatusRequested
}

// GuidancePatch поля, которые меняются вместе со статусом; nil - не трогать
type GuidancePatch struct {
	RequestedDate     *time.Time
	ApprovedDate      *time.Time
	StudentNotes      *string
	SessionSummary    *string
	ActionItems       *string
	SupervisorMessage *string
	CancelReason      *string
}
