package model

import (
	"time"

	"github.com/google/uuid"
)

type MilestoneStatus string

const (
	MilestoneStatusNotStarted     MilestoneStatus = "not_started"
	MilestoneStatusInProgress     MilestoneStatus = "in_progress"
	MilestoneStatusRevisionNeeded MilestoneStatus = "revision_needed"
	MilestoneStatusCompleted      MilestoneStatus = "completed"
)

type Milestone struct {
	ID                 uuid.UUID       `json:"id"`
	ThesisID           uuid.UUID       `json:"thesisId"`
	Title              string          `json:"title"`
	OrderIndex         int             `json:"orderIndex"`
	Status             MilestoneStatus `json:"status"`
	ProgressPercentage int             `json:"progressPercentage"`
	StudentNotes       string          `json:"studentNotes"`
	SupervisorFeedback string          `json:"supervisorFeedback"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// IsCompleted checks if milestone is validated by the supervisor
func (m *Milestone) IsCompleted() bool {
	return m.Status == MilestoneStatusCompleted
}

// MilestoneProgress вычисляется из набора этапов при каждом чтении, не хранится
type MilestoneProgress struct {
	Total           int `json:"total"`
	Completed       int `json:"completed"`
	PercentComplete int `json:"percentComplete"`
}

// MilestoneTemplate шаблон этапа, из которого создаются этапы при старте работы
type MilestoneTemplate struct {
	Title      string `json:"title"`
	OrderIndex int    `json:"orderIndex"`
}
