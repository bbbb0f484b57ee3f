package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestOverlaps_SymmetricAndBoundaryCorrect(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	base := at(0, 0)
	minute := func(n int) time.Time { return base.Add(time.Duration(n) * time.Minute) }

	for i := 0; i < 2000; i++ {
		s := rng.IntN(600)
		e := s + 1 + rng.IntN(120)
		cs := rng.IntN(600)
		ce := cs + 1 + rng.IntN(120)

		want := cs < e && ce > s
		require.Equal(t, want, Overlaps(minute(cs), minute(ce), minute(s), minute(e)), "slot [%d,%d) candidate [%d,%d)", s, e, cs, ce)
		require.Equal(t, want, Overlaps(minute(s), minute(e), minute(cs), minute(ce)))

		// Касание концами никогда не конфликт
		require.False(t, Overlaps(minute(e), minute(e+30), minute(s), minute(e)))
		require.False(t, Overlaps(minute(s-30), minute(s), minute(s), minute(e)))
	}
}

// Случайные последовательности операций: не больше одной заявки requested на студента,
// терминальные статусы не меняются
func TestGuidanceService_RandomOperationsKeepInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		f := newFixture(t)
		rng := rand.New(rand.NewPCG(seed, seed*31))
		ctx := context.Background()

		supervisors := map[uuid.UUID]Actor{
			f.supervisor.ID: f.supervisorActor(),
			f.second.ID:     f.secondActor(),
		}
		supervisorIDs := []uuid.UUID{f.supervisor.ID, f.second.ID}
		var sessions []uuid.UUID

		for step := 0; step < 60; step++ {
			if len(sessions) == 0 || rng.IntN(3) == 0 {
				supervisorID := supervisorIDs[rng.IntN(len(supervisorIDs))]
				start := at(8+rng.IntN(10), 15*rng.IntN(4)).AddDate(0, 0, rng.IntN(5))
				session, err := f.guidance.Create(ctx, f.studentActor(), CreateGuidanceInput{
					SupervisorID:    supervisorID,
					RequestedDate:   start,
					DurationMinutes: 30 + 15*rng.IntN(4),
				})
				if err == nil {
					sessions = append(sessions, session.ID)
				} else {
					var pending *PendingRequestExistsError
					var conflict *ConflictError
					require.True(t, errors.As(err, &pending) || errors.As(err, &conflict), "seed %d step %d: %v", seed, step, err)
				}
			} else {
				id := sessions[rng.IntN(len(sessions))]
				before, err := f.store.Guidance.GetByID(ctx, id)
				require.NoError(t, err)
				owner := supervisors[before.SupervisorID]

				switch rng.IntN(5) {
				case 0:
					_, err = f.guidance.Cancel(ctx, f.studentActor(), id, "plans changed")
				case 1:
					_, err = f.guidance.Approve(ctx, owner, id, "")
				case 2:
					_, err = f.guidance.Reject(ctx, owner, id, "busy")
				case 3:
					_, err = f.guidance.SubmitSummary(ctx, f.studentActor(), id, "discussed chapter 2", "")
				default:
					_, err = f.guidance.ApproveSummary(ctx, owner, id)
				}

				after, getErr := f.store.Guidance.GetByID(ctx, id)
				require.NoError(t, getErr)

				if before.Status.IsTerminal() {
					var transitionErr *InvalidTransitionError
					require.ErrorAs(t, err, &transitionErr, "seed %d step %d", seed, step)
					require.Equal(t, before.Status, after.Status)
				}
				if err != nil {
					require.Equal(t, before.Status, after.Status, "failed operation must not write")
				}
			}

			requested := model.GuidanceStatusRequested
			pending, err := f.store.Guidance.ListByStudent(ctx, f.student.ID, &requested)
			require.NoError(t, err)
			require.LessOrEqual(t, len(pending), 1, "seed %d step %d", seed, step)
		}
	}
}
