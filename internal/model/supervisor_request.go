package model

import (
	"time"

	"github.com/google/uuid"
)

// SupervisorRequest represents a student's request for a second supervisor
type SupervisorRequest struct {
	ID              uuid.UUID               `json:"id"`
	StudentID       uuid.UUID               `json:"studentId"`
	SupervisorID    uuid.UUID               `json:"supervisorId"`
	ThesisID        uuid.UUID               `json:"thesisId"`
	Status          SupervisorRequestStatus `json:"status"`
	Message         string                  `json:"message"`
	ResponseMessage string                  `json:"responseMessage"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`

	SupervisorName string `json:"supervisorName,omitempty"`
	StudentName    string `json:"studentName,omitempty"`
}

type SupervisorRequestStatus string

// Request status constants
const (
	SupervisorRequestRequested SupervisorRequestStatus = "requested"
	SupervisorRequestApproved  SupervisorRequestStatus = "approved"
	SupervisorRequestRejected  SupervisorRequestStatus = "rejected"
	SupervisorRequestCancelled SupervisorRequestStatus = "cancelled"
)

// IsPending checks if request is pending
func (r *SupervisorRequest) IsPending() bool {
	return r.Status == SupervisorRequestRequested
}
