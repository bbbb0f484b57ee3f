package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type pendingThing struct {
	Name string
}

func TestPendingGate(t *testing.T) {
	withPending := uuid.New()
	store := map[uuid.UUID]*pendingThing{withPending: {Name: "existing"}}

	gate := NewPendingGate[pendingThing]("thing", func(_ context.Context, studentID uuid.UUID) (*pendingThing, error) {
		return store[studentID], nil
	})
	ctx := context.Background()

	can, err := gate.CanCreateRequest(ctx, uuid.New())
	require.NoError(t, err)
	require.True(t, can)
	require.NoError(t, gate.Ensure(ctx, uuid.New()))

	can, err = gate.CanCreateRequest(ctx, withPending)
	require.NoError(t, err)
	require.False(t, can)

	err = gate.Ensure(ctx, withPending)
	var pending *PendingRequestExistsError
	require.ErrorAs(t, err, &pending)
	require.Equal(t, "thing", pending.Kind)
	require.Equal(t, "existing", pending.Pending.(*pendingThing).Name)
	require.Contains(t, err.Error(), "pending thing request")
	require.Equal(t, "thing", gate.Kind())
}

func TestPendingGate_FinderError(t *testing.T) {
	boom := errors.New("db down")
	gate := NewPendingGate[pendingThing]("thing", func(context.Context, uuid.UUID) (*pendingThing, error) {
		return nil, boom
	})

	_, err := gate.CanCreateRequest(context.Background(), uuid.New())
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, gate.Ensure(context.Background(), uuid.New()), boom)
}

func TestPendingGates_AreSeparatePools(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.request(t, f.supervisor.ID, at(10, 0), 60)

	can, err := f.guidance.Gate().CanCreateRequest(ctx, f.student.ID)
	require.NoError(t, err)
	require.False(t, can)

	can, err = f.requests.Gate().CanCreateRequest(ctx, f.student.ID)
	require.NoError(t, err)
	require.True(t, can)
}
