package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/thesis_tracker/internal/events"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// soloFixture работа только с основным руководителем
func soloFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.thesis.SecondSupervisorID = nil
	f.thesis = f.store.AddThesis(f.thesis)
	return f
}

func TestSupervisorRequestService_ApproveAssignsSecondSupervisor(t *testing.T) {
	f := soloFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, f.studentActor(), f.second.ID, " please ")
	require.NoError(t, err)
	require.Equal(t, model.SupervisorRequestRequested, req.Status)
	require.Equal(t, "please", req.Message)
	require.Equal(t, "Dr. Clark", req.SupervisorName)

	_, err = f.requests.Create(ctx, f.studentActor(), f.outsider.ID, "")
	var pending *PendingRequestExistsError
	require.ErrorAs(t, err, &pending)
	require.Equal(t, "supervisor", pending.Kind)
	require.Equal(t, req.ID, pending.Pending.(*model.SupervisorRequest).ID)

	_, err = f.requests.Approve(ctx, f.supervisorActor(), req.ID, "")
	require.ErrorIs(t, err, ErrForbidden)

	approved, err := f.requests.Approve(ctx, f.secondActor(), req.ID, "happy to")
	require.NoError(t, err)
	require.Equal(t, model.SupervisorRequestApproved, approved.Status)
	require.Equal(t, "happy to", approved.ResponseMessage)

	thesis, err := f.store.Theses.GetByID(ctx, f.thesis.ID)
	require.NoError(t, err)
	require.NotNil(t, thesis.SecondSupervisorID)
	require.Equal(t, f.second.ID, *thesis.SecondSupervisorID)

	_, err = f.requests.Reject(ctx, f.secondActor(), req.ID, "")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	require.Equal(t, []string{events.SupervisorRequestCreated, events.SupervisorRequestApproved}, f.recorder.Types())
}

func TestSupervisorRequestService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.requests.Create(ctx, f.studentActor(), f.outsider.ID, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "thesis already has a second supervisor")

	solo := soloFixture(t)
	_, err = solo.requests.Create(ctx, solo.studentActor(), solo.supervisor.ID, "")
	require.ErrorAs(t, err, &verr)

	_, err = solo.requests.Create(ctx, solo.studentActor(), solo.student.ID, "")
	require.ErrorAs(t, err, &verr)

	_, err = solo.requests.Create(ctx, solo.studentActor(), uuid.New(), "")
	require.ErrorAs(t, err, &verr)

	_, err = solo.requests.Create(ctx, solo.supervisorActor(), solo.second.ID, "")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSupervisorRequestService_CancelAndReject(t *testing.T) {
	f := soloFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, f.studentActor(), f.second.ID, "")
	require.NoError(t, err)

	cancelled, err := f.requests.Cancel(ctx, f.studentActor(), req.ID)
	require.NoError(t, err)
	require.Equal(t, model.SupervisorRequestCancelled, cancelled.Status)

	next, err := f.requests.Create(ctx, f.studentActor(), f.outsider.ID, "")
	require.NoError(t, err)

	rejected, err := f.requests.Reject(ctx, Actor{UserID: f.outsider.ID, Role: model.RoleSupervisor}, next.ID, "full")
	require.NoError(t, err)
	require.Equal(t, model.SupervisorRequestRejected, rejected.Status)

	mine, err := f.requests.List(ctx, f.studentActor())
	require.NoError(t, err)
	require.Len(t, mine, 2)

	theirs, err := f.requests.List(ctx, f.secondActor())
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	require.Equal(t, req.ID, theirs[0].ID)

	_, err = f.requests.Cancel(ctx, f.studentActor(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
