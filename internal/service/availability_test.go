package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFetcher struct {
	slots []model.BusySlot
	err   error
	calls int
	from  time.Time
	to    time.Time
}

func (f *stubFetcher) BusySlots(_ context.Context, _ uuid.UUID, from, to time.Time) ([]model.BusySlot, error) {
	f.calls++
	f.from, f.to = from, to
	return f.slots, f.err
}

func busy(startHour, startMinute, minutes int, student string) model.BusySlot {
	start := at(startHour, startMinute)
	id := uuid.New()
	return model.BusySlot{
		Start:       start,
		End:         start.Add(time.Duration(minutes) * time.Minute),
		StudentName: student,
		SessionID:   &id,
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name   string
		aStart time.Time
		aEnd   time.Time
		want   bool
	}{
		{"ends inside busy slot", at(9, 30), at(10, 30), true},
		{"starts at busy end", at(11, 0), at(11, 30), false},
		{"ends at busy start", at(9, 0), at(10, 0), false},
		{"contains busy slot", at(9, 0), at(12, 0), true},
		{"inside busy slot", at(10, 15), at(10, 45), true},
		{"well before", at(7, 0), at(8, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, at(10, 0), at(11, 0)))
		})
	}
}

func TestAvailabilityChecker_ConflictWhenOverlapping(t *testing.T) {
	fetcher := &stubFetcher{slots: []model.BusySlot{busy(10, 0, 60, "Bob")}}
	checker := NewAvailabilityChecker(fetcher, zap.NewNop())

	result := checker.Check(context.Background(), uuid.New(), at(9, 30), 60)

	require.Equal(t, Conflict, result.Status)
	require.Equal(t, at(10, 30), result.CandidateEnd)
	require.NotNil(t, result.Slot)
	require.Equal(t, "Bob", result.Slot.StudentName)
	require.Contains(t, result.Message, "Bob")
	require.Contains(t, result.Message, "10:00 - 11:00")

	var conflict *ConflictError
	require.ErrorAs(t, result.Err(), &conflict)
	require.Equal(t, at(10, 0), conflict.Slot.Start)
}

func TestAvailabilityChecker_TouchingBoundaryIsAllowed(t *testing.T) {
	fetcher := &stubFetcher{slots: []model.BusySlot{busy(10, 0, 60, "Bob")}}
	checker := NewAvailabilityChecker(fetcher, zap.NewNop())

	result := checker.Check(context.Background(), uuid.New(), at(11, 0), 30)

	require.Equal(t, NoConflict, result.Status)
	require.Nil(t, result.Slot)
	require.NoError(t, result.Err())

	result = checker.Check(context.Background(), uuid.New(), at(9, 0), 60)
	require.Equal(t, NoConflict, result.Status)
}

func TestAvailabilityChecker_ReportsFirstConflict(t *testing.T) {
	first := busy(10, 0, 60, "Bob")
	second := busy(10, 30, 60, "Carol")
	checker := NewAvailabilityChecker(&stubFetcher{slots: []model.BusySlot{first, second}}, zap.NewNop())

	result := checker.Check(context.Background(), uuid.New(), at(10, 45), 30)

	require.Equal(t, Conflict, result.Status)
	require.Equal(t, *first.SessionID, *result.Slot.SessionID)
}

func TestAvailabilityChecker_FetchFailureIsUnknown(t *testing.T) {
	fetchErr := errors.New("connection refused")
	checker := NewAvailabilityChecker(&stubFetcher{err: fetchErr}, zap.NewNop())

	result := checker.Check(context.Background(), uuid.New(), at(9, 0), 60)

	require.Equal(t, AvailabilityUnknown, result.Status)
	require.ErrorIs(t, result.FetchErr, fetchErr)

	var unknown *AvailabilityUnknownError
	require.ErrorAs(t, result.Err(), &unknown)
	require.ErrorIs(t, result.Err(), fetchErr)
}

func TestAvailabilityChecker_IsIdempotent(t *testing.T) {
	fetcher := &stubFetcher{slots: []model.BusySlot{busy(10, 0, 60, "Bob")}}
	checker := NewAvailabilityChecker(fetcher, zap.NewNop())
	supervisorID := uuid.New()

	first := checker.Check(context.Background(), supervisorID, at(9, 30), 60)
	second := checker.Check(context.Background(), supervisorID, at(9, 30), 60)

	require.Equal(t, first, second)
	require.Equal(t, 2, fetcher.calls)
	require.Len(t, fetcher.slots, 1)
}

func TestAvailabilityChecker_QueriesCandidateDay(t *testing.T) {
	fetcher := &stubFetcher{}
	checker := NewAvailabilityChecker(fetcher, zap.NewNop())

	checker.Check(context.Background(), uuid.New(), at(15, 20), 45)

	require.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), fetcher.from)
	require.Equal(t, time.Date(2025, 3, 11, 23, 59, 59, 0, time.UTC), fetcher.to)
}

func TestAvailabilityChecker_ExcludesOwnSession(t *testing.T) {
	own := busy(10, 0, 60, "Alice")
	checker := NewAvailabilityChecker(&stubFetcher{slots: []model.BusySlot{own}}, zap.NewNop())

	result := checker.CheckExcluding(context.Background(), uuid.New(), at(10, 30), 60, *own.SessionID)
	require.Equal(t, NoConflict, result.Status)

	result = checker.Check(context.Background(), uuid.New(), at(10, 30), 60)
	require.Equal(t, Conflict, result.Status)
}

func TestDayWindow_UsesCandidateLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	candidate := time.Date(2025, 3, 11, 1, 30, 0, 0, loc)

	start, end := DayWindow(candidate)

	require.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, loc), start)
	require.Equal(t, time.Date(2025, 3, 11, 23, 59, 59, 0, loc), end)
	require.Equal(t, loc, start.Location())
}

func TestConflictMessage_AnonymousSlot(t *testing.T) {
	slot := busy(14, 0, 30, "")
	require.Equal(t, "Supervisor already has a guidance session with another student at 14:00 - 14:30", ConflictMessage(slot))
}
