package model

import (
	"time"

	"github.com/google/uuid"
)

// BusySlot занятый интервал руководителя, [Start, End)
type BusySlot struct {
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	StudentName string     `json:"studentName,omitempty"`
	SessionID   *uuid.UUID `json:"sessionId,omitempty"`
}
