package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/events"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func (f *fixture) request(t *testing.T, supervisorID uuid.UUID, start time.Time, minutes int) *model.GuidanceSession {
	t.Helper()
	session, err := f.guidance.Create(context.Background(), f.studentActor(), CreateGuidanceInput{
		SupervisorID:    supervisorID,
		RequestedDate:   start,
		DurationMinutes: minutes,
		StudentNotes:    "  chapter 2 draft  ",
	})
	require.NoError(t, err)
	return session
}

func TestGuidanceService_Create(t *testing.T) {
	f := newFixture(t)

	session := f.request(t, f.supervisor.ID, at(10, 0), 0)

	require.NotEqual(t, uuid.Nil, session.ID)
	require.Equal(t, model.GuidanceStatusRequested, session.Status)
	require.Equal(t, 60, session.DurationMinutes)
	require.Equal(t, "chapter 2 draft", session.StudentNotes)
	require.Nil(t, session.ApprovedDate)
	require.Equal(t, []string{events.GuidanceRequested}, f.recorder.Types())
}

func TestGuidanceService_Create_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		in    CreateGuidanceInput
		field string
	}{
		{"missing supervisor", CreateGuidanceInput{RequestedDate: at(10, 0)}, "supervisorId"},
		{"missing date", CreateGuidanceInput{SupervisorID: f.supervisor.ID}, "requestedDate"},
		{"date in the past", CreateGuidanceInput{SupervisorID: f.supervisor.ID, RequestedDate: testNow.Add(-time.Hour)}, "requestedDate"},
		{"negative duration", CreateGuidanceInput{SupervisorID: f.supervisor.ID, RequestedDate: at(10, 0), DurationMinutes: -5}, "durationMinutes"},
		{"too long", CreateGuidanceInput{SupervisorID: f.supervisor.ID, RequestedDate: at(10, 0), DurationMinutes: 481}, "durationMinutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.guidance.Create(context.Background(), f.studentActor(), tt.in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Field)
		})
	}
	require.Empty(t, f.recorder.Types())
}

func TestGuidanceService_Create_Forbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.guidance.Create(context.Background(), f.supervisorActor(), CreateGuidanceInput{
		SupervisorID:  f.supervisor.ID,
		RequestedDate: at(10, 0),
	})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.guidance.Create(context.Background(), f.studentActor(), CreateGuidanceInput{
		SupervisorID:  f.outsider.ID,
		RequestedDate: at(10, 0),
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGuidanceService_Create_WithoutThesis(t *testing.T) {
	f := newFixture(t)
	loner := f.store.AddUser(model.User{Name: "No Thesis", Role: model.RoleStudent})

	_, err := f.guidance.Create(context.Background(), Actor{UserID: loner.ID, Role: model.RoleStudent}, CreateGuidanceInput{
		SupervisorID:  f.supervisor.ID,
		RequestedDate: at(10, 0),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "thesis", verr.Field)
}

func TestGuidanceService_Create_PendingExistsReturnsExisting(t *testing.T) {
	f := newFixture(t)
	existing := f.request(t, f.supervisor.ID, at(10, 0), 60)

	_, err := f.guidance.Create(context.Background(), f.studentActor(), CreateGuidanceInput{
		SupervisorID:  f.second.ID,
		RequestedDate: at(14, 0),
	})

	var pending *PendingRequestExistsError
	require.ErrorAs(t, err, &pending)
	require.Equal(t, "guidance", pending.Kind)

	shown, ok := pending.Pending.(*model.GuidanceSession)
	require.True(t, ok)
	require.Equal(t, existing.ID, shown.ID)
	require.Equal(t, f.supervisor.ID, shown.SupervisorID)
	require.Equal(t, "Prof. Brown", shown.SupervisorName)
	require.True(t, shown.RequestedDate.Equal(at(10, 0)))

	sessions, err := f.guidance.List(context.Background(), f.studentActor(), nil)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestGuidanceService_Create_AllowedAfterCancel(t *testing.T) {
	f := newFixture(t)
	first := f.request(t, f.supervisor.ID, at(10, 0), 60)

	_, err := f.guidance.Cancel(context.Background(), f.studentActor(), first.ID, "sick")
	require.NoError(t, err)

	second := f.request(t, f.supervisor.ID, at(10, 0), 60)
	require.NotEqual(t, first.ID, second.ID)
}

func TestGuidanceService_Create_Conflict(t *testing.T) {
	f := newFixture(t)
	other := f.store.AddUser(model.User{Name: "Bob", Role: model.RoleStudent})
	f.store.AddThesis(model.Thesis{StudentID: other.ID, SupervisorID: f.supervisor.ID, Title: "Other"})

	_, err := f.guidance.Create(context.Background(), Actor{UserID: other.ID, Role: model.RoleStudent}, CreateGuidanceInput{
		SupervisorID:  f.supervisor.ID,
		RequestedDate: at(10, 0),
	})
	require.NoError(t, err)

	_, err = f.guidance.Create(context.Background(), f.studentActor(), CreateGuidanceInput{
		SupervisorID:  f.supervisor.ID,
		RequestedDate: at(9, 30),
	})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "Bob", conflict.Slot.StudentName)

	session := f.request(t, f.supervisor.ID, at(11, 0), 30)
	require.Equal(t, model.GuidanceStatusRequested, session.Status)
}

func TestGuidanceService_Create_RejectedWhileInFlight(t *testing.T) {
	f := newFixture(t)

	release, ok := f.guidance.inflight.Acquire("guidance:create:" + f.student.ID.String())
	require.True(t, ok)
	defer release()

	_, err := f.guidance.Create(context.Background(), f.studentActor(), CreateGuidanceInput{
		SupervisorID:  f.supervisor.ID,
		RequestedDate: at(10, 0),
	})
	require.ErrorIs(t, err, ErrOperationInFlight)
}

func TestGuidanceService_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.request(t, f.supervisor.ID, at(10, 0), 60)

	approved, err := f.guidance.Approve(ctx, f.supervisorActor(), session.ID, "See you then")
	require.NoError(t, err)
	require.Equal(t, model.GuidanceStatusAccepted, approved.Status)
	require.NotNil(t, approved.ApprovedDate)
	require.True(t, approved.ApprovedDate.Equal(session.RequestedDate))
	require.Equal(t, "See you then", approved.SupervisorMessage)

	notes, err := f.guidance.UpdateNotes(ctx, f.studentActor(), session.ID, "bring printouts")
	require.NoError(t, err)
	require.Equal(t, model.GuidanceStatusAccepted, notes.Status)
	require.Equal(t, "bring printouts", notes.StudentNotes)

	_, err = f.guidance.SubmitSummary(ctx, f.studentActor(), session.ID, "   ", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "sessionSummary", verr.Field)

	submitted, err := f.guidance.SubmitSummary(ctx, f.studentActor(), session.ID, "Discussed chapter 2", "Rewrite intro")
	require.NoError(t, err)
	require.Equal(t, model.GuidanceStatusSummaryPending, submitted.Status)
	require.Equal(t, "Rewrite intro", submitted.ActionItems)

	completed, err := f.guidance.ApproveSummary(ctx, f.supervisorActor(), session.ID)
	require.NoError(t, err)
	require.Equal(t, model.GuidanceStatusCompleted, completed.Status)

	require.Equal(t, []string{
		events.GuidanceRequested,
		events.GuidanceApproved,
		events.GuidanceNotesUpdated,
		events.GuidanceSummarySubmitted,
		events.GuidanceCompleted,
	}, f.recorder.Types())
}

func TestGuidanceService_ApproveSummaryOnRejectedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.request(t, f.supervisor.ID, at(10, 0), 60)

	rejected, err := f.guidance.Reject(ctx, f.supervisorActor(), session.ID, "Busy week")
	require.NoError(t, err)
	require.Equal(t, model.GuidanceStatusRejected, rejected.Status)

	_, err = f.guidance.ApproveSummary(ctx, f.supervisorActor(), session.ID)

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "rejected", invalid.From)
	require.Equal(t, ActionApproveSummary, invalid.Action)

	after, err := f.guidance.Get(ctx, f.supervisorActor(), session.ID)
	require.NoError(t, err)
	require.Equal(t, rejected.Status, after.Status)
	require.Equal(t, rejected.SupervisorMessage, after.SupervisorMessage)
	require.Equal(t, rejected.UpdatedAt, after.UpdatedAt)
}

func TestGuidanceService_WrongRoleOrParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.request(t, f.supervisor.ID, at(10, 0), 60)

	_, err := f.guidance.Approve(ctx, f.studentActor(), session.ID, "")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.guidance.Approve(ctx, f.secondActor(), session.ID, "")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.guidance.Cancel(ctx, f.supervisorActor(), session.ID, "")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.guidance.Get(ctx, Actor{UserID: f.outsider.ID, Role: model.RoleSupervisor}, session.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.guidance.Approve(ctx, f.supervisorActor(), uuid.New(), "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGuidanceService_RescheduleIgnoresOwnSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.request(t, f.supervisor.ID, at(10, 0), 60)

	moved, err := f.guidance.Reschedule(ctx, f.studentActor(), session.ID, at(10, 30), "later please")
	require.NoError(t, err)
	require.Equal(t, model.GuidanceStatusRequested, moved.Status)
	require.True(t, moved.RequestedDate.Equal(at(10, 30)))
	require.Equal(t, "later please", moved.StudentNotes)
	require.Equal(t, []string{events.GuidanceRequested, events.GuidanceRescheduled}, f.recorder.Types())
}

func TestGuidanceService_RescheduleConflictKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := f.store.AddUser(model.User{Name: "Bob", Role: model.RoleStudent})
	f.store.AddThesis(model.Thesis{StudentID: other.ID, SupervisorID: f.supervisor.ID, Title: "Other"})
	_, err := f.guidance.Create(ctx, Actor{UserID: other.ID, Role: model.RoleStudent}, CreateGuidanceInput{
		SupervisorID:  f.supervisor.ID,
		RequestedDate: at(14, 0),
	})
	require.NoError(t, err)

	session := f.request(t, f.supervisor.ID, at(10, 0), 60)

	_, err = f.guidance.Reschedule(ctx, f.studentActor(), session.ID, at(14, 30), "")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	current, err := f.guidance.Get(ctx, f.studentActor(), session.ID)
	require.NoError(t, err)
	require.True(t, current.RequestedDate.Equal(at(10, 0)))
	require.Equal(t, "chapter 2 draft", current.StudentNotes)
}

func TestGuidanceService_NotesNotEditableAfterSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.request(t, f.supervisor.ID, at(10, 0), 60)

	_, err := f.guidance.Approve(ctx, f.supervisorActor(), session.ID, "")
	require.NoError(t, err)
	_, err = f.guidance.SubmitSummary(ctx, f.studentActor(), session.ID, "done", "")
	require.NoError(t, err)

	_, err = f.guidance.UpdateNotes(ctx, f.studentActor(), session.ID, "late edit")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

// staleStore отдаёт сессию в статусе requested, хотя в хранилище её уже отклонили
type staleStore struct {
	GuidanceStore
	stale *model.GuidanceSession
}

func (s *staleStore) GetByID(context.Context, uuid.UUID) (*model.GuidanceSession, error) {
	copied := *s.stale
	return &copied, nil
}

func TestGuidanceService_ConcurrentChangeIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.request(t, f.supervisor.ID, at(10, 0), 60)

	_, err := f.guidance.Reject(ctx, f.supervisorActor(), session.ID, "")
	require.NoError(t, err)

	f.guidance.store = &staleStore{GuidanceStore: f.store.Guidance, stale: session}

	_, err = f.guidance.Approve(ctx, f.supervisorActor(), session.ID, "")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	stored, err := f.store.Guidance.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, model.GuidanceStatusRejected, stored.Status)
	require.Nil(t, stored.ApprovedDate)
}

func TestGuidanceService_GetUsesCacheUntilMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.request(t, f.supervisor.ID, at(10, 0), 60)

	_, err := f.guidance.Get(ctx, f.studentActor(), session.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.cache.Len())

	_, err = f.guidance.Approve(ctx, f.supervisorActor(), session.ID, "")
	require.NoError(t, err)
	require.Equal(t, 0, f.cache.Len())

	fresh, err := f.guidance.Get(ctx, f.studentActor(), session.ID)
	require.NoError(t, err)
	require.Equal(t, model.GuidanceStatusAccepted, fresh.Status)
}

// racingGuidanceStore выполняет afterRead один раз, после того как GetByID прочитал строку
type racingGuidanceStore struct {
	*memory.GuidanceStore
	afterRead func()
}

func (s *racingGuidanceStore) GetByID(ctx context.Context, id uuid.UUID) (*model.GuidanceSession, error) {
	session, err := s.GuidanceStore.GetByID(ctx, id)
	if hook := s.afterRead; hook != nil {
		s.afterRead = nil
		hook()
	}
	return session, err
}

func TestGuidanceService_GetDoesNotCacheRowOverwrittenDuringRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.request(t, f.supervisor.ID, at(10, 0), 60)

	racing := &racingGuidanceStore{GuidanceStore: f.store.Guidance}
	svc := NewGuidanceService(racing, f.store.Theses, f.cache, f.recorder, zap.NewNop(), GuidanceOptions{})
	svc.now = func() time.Time { return testNow }

	// Руководитель одобряет заявку, пока Get держит прочитанную строку requested
	racing.afterRead = func() {
		_, err := svc.Approve(ctx, f.supervisorActor(), session.ID, "")
		require.NoError(t, err)
	}

	stale, err := svc.Get(ctx, f.studentActor(), session.ID)
	require.NoError(t, err)
	require.Equal(t, model.GuidanceStatusRequested, stale.Status)
	require.Equal(t, 0, f.cache.Len())

	fresh, err := svc.Get(ctx, f.studentActor(), session.ID)
	require.NoError(t, err)
	require.Equal(t, model.GuidanceStatusAccepted, fresh.Status)
	require.Equal(t, 1, f.cache.Len())
}

func TestGuidanceService_ListAndUpcoming(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.request(t, f.supervisor.ID, at(10, 0), 60)
	_, err := f.guidance.Approve(ctx, f.supervisorActor(), first.ID, "")
	require.NoError(t, err)

	f.store.SetClock(func() time.Time { return testNow.Add(time.Minute) })
	second := f.request(t, f.supervisor.ID, at(12, 0), 60)

	all, err := f.guidance.List(ctx, f.supervisorActor(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, second.ID, all[0].ID)
	require.Equal(t, "Alice Student", all[0].StudentName)

	status := model.GuidanceStatusAccepted
	accepted, err := f.guidance.List(ctx, f.studentActor(), &status)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	require.Equal(t, first.ID, accepted[0].ID)

	bogus := model.GuidanceStatus("done")
	_, err = f.guidance.List(ctx, f.studentActor(), &bogus)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	upcoming, err := f.guidance.Upcoming(ctx, f.studentActor())
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, first.ID, upcoming[0].ID)

	pending, err := f.guidance.FindPending(ctx, f.studentActor())
	require.NoError(t, err)
	require.Equal(t, second.ID, pending.ID)
}

func TestGuidanceService_BusySlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.request(t, f.supervisor.ID, at(10, 0), 45)

	dayStart, dayEnd := DayWindow(at(0, 0))
	slots, err := f.guidance.BusySlots(ctx, f.supervisor.ID, dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, session.ID, *slots[0].SessionID)
	require.True(t, slots[0].End.Equal(at(10, 45)))

	_, err = f.guidance.Cancel(ctx, f.studentActor(), session.ID, "")
	require.NoError(t, err)

	slots, err = f.guidance.BusySlots(ctx, f.supervisor.ID, dayStart, dayEnd)
	require.NoError(t, err)
	require.NotNil(t, slots)
	require.Empty(t, slots)

	_, err = f.guidance.BusySlots(ctx, f.supervisor.ID, dayEnd, dayStart)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.guidance.BusySlots(ctx, f.supervisor.ID, dayStart, dayStart.AddDate(0, 2, 0))
	require.ErrorAs(t, err, &verr)
}

func TestGuidanceService_CheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.request(t, f.supervisor.ID, at(10, 0), 60)

	result, err := f.guidance.CheckAvailability(ctx, f.supervisor.ID, at(9, 30), 60)
	require.NoError(t, err)
	require.Equal(t, Conflict, result.Status)

	result, err = f.guidance.CheckAvailability(ctx, f.supervisor.ID, at(11, 0), 30)
	require.NoError(t, err)
	require.Equal(t, NoConflict, result.Status)

	_, err = f.guidance.CheckAvailability(ctx, f.supervisor.ID, testNow.Add(-time.Minute), 30)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
