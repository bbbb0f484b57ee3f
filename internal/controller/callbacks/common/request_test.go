package common_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/state"
	"github.com/Freeeeeet/thesis_tracker/internal/events"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository/memory"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingGuidance задерживает BusySlots, пока тест не отпустит проверку
type blockingGuidance struct {
	*memory.GuidanceStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingGuidance) BusySlots(ctx context.Context, supervisorID uuid.UUID, from, to time.Time) ([]model.BusySlot, error) {
	if s.entered != nil {
		close(s.entered)
		s.entered = nil
		<-s.release
	}
	return s.GuidanceStore.BusySlots(ctx, supervisorID, from, to)
}

type botFixture struct {
	store      *memory.Store
	guidance   *service.GuidanceService
	checks     *service.CheckTracker
	blocking   *blockingGuidance
	student    model.User
	supervisor model.User
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()

	store := memory.New()
	student := store.AddUser(model.User{Name: "Alice", Role: model.RoleStudent})
	supervisor := store.AddUser(model.User{Name: "Prof. Brown", Role: model.RoleSupervisor})
	store.AddThesis(model.Thesis{StudentID: student.ID, SupervisorID: supervisor.ID, Title: "Thesis"})

	blocking := &blockingGuidance{GuidanceStore: store.Guidance}
	guidance := service.NewGuidanceService(blocking, store.Theses, service.NewMemoryCache(),
		events.NopPublisher{}, zap.NewNop(), service.GuidanceOptions{})

	return &botFixture{
		store:      store,
		guidance:   guidance,
		checks:     service.NewCheckTracker(),
		blocking:   blocking,
		student:    student,
		supervisor: supervisor,
	}
}

func dayAfterTomorrow(hour, minute int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, 2)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC)
}

func (f *botFixture) book(t *testing.T, start time.Time, minutes int) {
	t.Helper()
	require.NoError(t, f.store.Guidance.Create(context.Background(), &model.GuidanceSession{
		StudentID:       f.student.ID,
		SupervisorID:    f.supervisor.ID,
		Status:          model.GuidanceStatusRequested,
		RequestedDate:   start,
		DurationMinutes: minutes,
	}))
}

func TestDraft_RoundTrip(t *testing.T) {
	draft := common.RequestDraft{
		SupervisorID:   uuid.New(),
		SupervisorName: "Prof. Brown",
		Start:          time.Date(2025, 3, 11, 10, 30, 0, 0, time.FixedZone("MSK", 3*3600)),
		Duration:       45,
		Notes:          "chapter 2",
	}

	loaded, err := common.LoadDraft(common.DraftValues(draft))
	require.NoError(t, err)
	assert.Equal(t, draft.SupervisorID, loaded.SupervisorID)
	assert.Equal(t, draft.SupervisorName, loaded.SupervisorName)
	assert.True(t, draft.Start.Equal(loaded.Start))
	assert.Equal(t, 45, loaded.Duration)
	assert.Equal(t, "chapter 2", loaded.Notes)
}

func TestDraft_PartialAndBroken(t *testing.T) {
	supervisorID := uuid.New()

	partial, err := common.LoadDraft(map[string]string{state.KeySupervisorID: supervisorID.String()})
	require.NoError(t, err)
	assert.True(t, partial.Start.IsZero())
	assert.Zero(t, partial.Duration)

	_, err = common.LoadDraft(nil)
	assert.ErrorIs(t, err, common.ErrDialogExpired)

	_, err = common.LoadDraft(map[string]string{
		state.KeySupervisorID: supervisorID.String(),
		state.KeyDuration:     "sixty",
	})
	assert.ErrorIs(t, err, common.ErrDialogExpired)

	_, err = common.LoadDraft(map[string]string{
		state.KeySupervisorID: supervisorID.String(),
		state.KeyRequestedAt:  "tomorrow",
	})
	assert.ErrorIs(t, err, common.ErrDialogExpired)
}

func TestCheckCandidate_ConflictAndFree(t *testing.T) {
	f := newBotFixture(t)
	f.book(t, dayAfterTomorrow(10, 0), 60)

	draft := common.RequestDraft{SupervisorID: f.supervisor.ID, Start: dayAfterTomorrow(10, 30), Duration: 30}
	result, fresh, err := common.CheckCandidate(context.Background(), f.guidance, f.checks, 42, draft)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, service.Conflict, result.Status)
	assert.Contains(t, result.Message, "Alice")

	draft.Start = dayAfterTomorrow(11, 0)
	result, fresh, err = common.CheckCandidate(context.Background(), f.guidance, f.checks, 42, draft)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, service.NoConflict, result.Status)
}

func TestCheckCandidate_StaleResultIsFlagged(t *testing.T) {
	f := newBotFixture(t)
	f.blocking.entered = make(chan struct{})
	f.blocking.release = make(chan struct{})
	entered := f.blocking.entered

	type outcome struct {
		fresh bool
		err   error
	}
	done := make(chan outcome, 1)

	draft := common.RequestDraft{SupervisorID: f.supervisor.ID, Start: dayAfterTomorrow(9, 0), Duration: 60}
	go func() {
		_, fresh, err := common.CheckCandidate(context.Background(), f.guidance, f.checks, 7, draft)
		done <- outcome{fresh: fresh, err: err}
	}()

	<-entered
	// Пользователь ввёл новое время, пока первая проверка ещё шла
	newer := f.checks.Begin(common.CheckKey(7))
	close(f.blocking.release)

	got := <-done
	require.NoError(t, got.err)
	assert.False(t, got.fresh)
	assert.True(t, f.checks.IsLatest(common.CheckKey(7), newer))
}

func TestRunCheck_MovesDialog(t *testing.T) {
	f := newBotFixture(t)
	f.book(t, dayAfterTomorrow(10, 0), 60)

	sm := state.NewManager()
	deps := &callbacktypes.Handler{
		GuidanceService: f.guidance,
		Checks:          f.checks,
		StateManager:    state.NewAdapter(sm),
		Location:        time.UTC,
		Logger:          zap.NewNop(),
	}

	var (
		text string
		kb   *models.InlineKeyboardMarkup
	)
	reply := func(t string, k *models.InlineKeyboardMarkup) { text, kb = t, k }

	draft := common.RequestDraft{SupervisorID: f.supervisor.ID, SupervisorName: "Prof. Brown", Start: dayAfterTomorrow(10, 15), Duration: 30}
	common.RunCheck(context.Background(), deps, 1, draft, reply)
	assert.Equal(t, state.StateRequestDate, sm.GetState(1))
	assert.Contains(t, text, "⛔️")
	assert.Nil(t, kb)

	draft.Start = dayAfterTomorrow(11, 0)
	common.RunCheck(context.Background(), deps, 1, draft, reply)
	assert.Equal(t, state.StateRequestConfirm, sm.GetState(1))
	assert.Contains(t, text, "Prof. Brown")
	require.NotNil(t, kb)
}

func TestCheckOutcome(t *testing.T) {
	draft := common.RequestDraft{SupervisorName: "<b>Brown</b>", Start: time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC), Duration: 60}

	text, kb, ok := common.CheckOutcome(draft, service.ConflictResult{Status: service.NoConflict}, nil, time.UTC)
	assert.True(t, ok)
	assert.NotNil(t, kb)
	assert.Contains(t, text, "&lt;b&gt;Brown&lt;/b&gt;")
	assert.Contains(t, text, "11.03.2025, 10:00-11:00 (1 ч)")

	text, kb, ok = common.CheckOutcome(draft, service.ConflictResult{
		Status:   service.AvailabilityUnknown,
		FetchErr: errors.New("db down"),
	}, nil, time.UTC)
	assert.False(t, ok)
	assert.Nil(t, kb)
	assert.Contains(t, text, "Не удалось проверить")

	_, _, ok = common.CheckOutcome(draft, service.ConflictResult{}, &service.ValidationError{Field: "requestedDate", Message: "date must be in the future"}, time.UTC)
	assert.False(t, ok)
}

func TestErrorMessage(t *testing.T) {
	pending := &model.GuidanceSession{SupervisorName: "Prof. Brown", RequestedDate: time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unbound user", common.ErrUserNotFound, "/start"},
		{"pending guidance", &service.PendingRequestExistsError{Kind: "guidance", Pending: pending}, "Prof. Brown на 11.03.2025 10:00"},
		{"pending supervisor request", &service.PendingRequestExistsError{Kind: "supervisor", Pending: &model.SupervisorRequest{SupervisorName: "Dr. Clark"}}, "Dr. Clark"},
		{"conflict", &service.ConflictError{Message: "Supervisor already has a guidance session"}, "Supervisor already has"},
		{"transition", &service.InvalidTransitionError{From: "rejected", Action: service.ActionApproveSummary}, "approve_summary"},
		{"in flight", service.ErrOperationInFlight, "уже выполняется"},
		{"forbidden wrapped", errors.Join(errors.New("ctx"), service.ErrForbidden), "нет доступа"},
		{"unknown", errors.New("boom"), "Произошла ошибка"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, common.ErrorMessage(tt.err), tt.want)
		})
	}
}
