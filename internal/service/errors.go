package service

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrOperationInFlight = errors.New("another operation on this item is in progress")
)

// ValidationError не заполнено или неверно обязательное поле
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// ConflictError кандидатное время пересекается с занятым интервалом руководителя
type ConflictError struct {
	Slot    model.BusySlot
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// AvailabilityUnknownError занятость руководителя получить не удалось
type AvailabilityUnknownError struct {
	Err error
}

func (e *AvailabilityUnknownError) Error() string {
	return "supervisor availability is unknown, try again later"
}

func (e *AvailabilityUnknownError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError действие недопустимо из текущего статуса
type InvalidTransitionError struct {
	From   string
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s from status %q", e.Action, e.From)
}

// PendingRequestExistsError у студента уже есть неразобранная заявка
type PendingRequestExistsError struct {
	Kind    string
	Pending any
}

func (e *PendingRequestExistsError) Error() string {
	return fmt.Sprintf("you already have a pending %s request, cancel it or wait for a decision", e.Kind)
}
