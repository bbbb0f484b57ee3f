package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BusySlotFetcher получает занятые интервалы руководителя в окне [from, to]
type BusySlotFetcher interface {
	BusySlots(ctx context.Context, supervisorID uuid.UUID, from, to time.Time) ([]model.BusySlot, error)
}

type ConflictStatus string

const (
	NoConflict          ConflictStatus = "no_conflict"
	Conflict            ConflictStatus = "conflict"
	AvailabilityUnknown ConflictStatus = "availability_unknown"
)

// ConflictResult результат проверки кандидатного времени
type ConflictResult struct {
	Status         ConflictStatus
	CandidateStart time.Time
	CandidateEnd   time.Time
	Slot           *model.BusySlot
	Message        string
	FetchErr       error
}

// Err превращает результат в ошибку; nil только когда конфликта точно нет
func (r ConflictResult) Err() error {
	switch r.Status {
	case NoConflict:
		return nil
	case Conflict:
		return &ConflictError{Slot: *r.Slot, Message: r.Message}
	default:
		return &AvailabilityUnknownError{Err: r.FetchErr}
	}
}

// Overlaps checks half-open intervals [aStart, aEnd) and [bStart, bEnd); touching ends do not overlap
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// DayWindow возвращает начало (00:00:00) и конец (23:59:59) календарного дня t в его часовом поясе
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
	return start, end
}

// ConflictMessage формирует текст о конфликте для пользователя
func ConflictMessage(slot model.BusySlot) string {
	who := slot.StudentName
	if who == "" {
		who = "another student"
	}
	return fmt.Sprintf("Supervisor already has a guidance session with %s at %s - %s",
		who, slot.Start.Format("15:04"), slot.End.Format("15:04"))
}

// AvailabilityChecker проверяет кандидатное время по занятости руководителя.
// Не имеет побочных эффектов, повторный вызов с теми же данными даёт тот же результат.
type AvailabilityChecker struct {
	fetcher BusySlotFetcher
	logger  *zap.Logger
}

func NewAvailabilityChecker(fetcher BusySlotFetcher, logger *zap.Logger) *AvailabilityChecker {
	return &AvailabilityChecker{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Check проверяет интервал [start, start+duration) на пересечение с занятыми слотами дня
func (c *AvailabilityChecker) Check(ctx context.Context, supervisorID uuid.UUID, start time.Time, durationMinutes int) ConflictResult {
	return c.CheckExcluding(ctx, supervisorID, start, durationMinutes, uuid.Nil)
}

// CheckExcluding то же, что Check, но игнорирует слот самой сессии (для переноса)
func (c *AvailabilityChecker) CheckExcluding(ctx context.Context, supervisorID uuid.UUID, start time.Time, durationMinutes int, excludeSessionID uuid.UUID) (result ConflictResult) {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	result = ConflictResult{
		Status:         NoConflict,
		CandidateStart: start,
		CandidateEnd:   end,
	}
	defer func() {
		availabilityChecksTotal.WithLabelValues(string(result.Status)).Inc()
	}()

	dayStart, dayEnd := DayWindow(start)
	slots, err := c.fetcher.BusySlots(ctx, supervisorID, dayStart, dayEnd)
	if err != nil {
		c.logger.Warn("Failed to fetch busy slots",
			zap.String("supervisor_id", supervisorID.String()),
			zap.Time("day", dayStart),
			zap.Error(err))
		result.Status = AvailabilityUnknown
		result.FetchErr = err
		result.Message = (&AvailabilityUnknownError{}).Error()
		return result
	}

	for i := range slots {
		slot := slots[i]
		if excludeSessionID != uuid.Nil && slot.SessionID != nil && *slot.SessionID == excludeSessionID {
			continue
		}
		if Overlaps(start, end, slot.Start, slot.End) {
			result.Status = Conflict
			result.Slot = &slot
			result.Message = ConflictMessage(slot)
			return result
		}
	}

	return result
}
