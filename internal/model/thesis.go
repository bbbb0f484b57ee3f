package model

import (
	"time"

	"github.com/google/uuid"
)

type Thesis struct {
	ID                 uuid.UUID  `json:"id"`
	StudentID          uuid.UUID  `json:"studentId"`
	SupervisorID       uuid.UUID  `json:"supervisorId"`
	SecondSupervisorID *uuid.UUID `json:"secondSupervisorId,omitempty"`
	Title              string     `json:"title"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// HasSupervisor проверяет, закреплён ли руководитель (основной или второй) за работой
func (t *Thesis) HasSupervisor(userID uuid.UUID) bool {
	if t.SupervisorID == userID {
		return true
	}
	return t.SecondSupervisorID != nil && *t.SecondSupervisorID == userID
}

// IsMember checks if user is the student or one of the supervisors
func (t *Thesis) IsMember(userID uuid.UUID) bool {
	return t.StudentID == userID || t.HasSupervisor(userID)
}
