package service

import (
	"testing"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/events"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository/memory"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// fixture студент с работой, основной и второй руководители, сервисы над memory-хранилищем
type fixture struct {
	store     *memory.Store
	recorder  *events.Recorder
	cache     *MemoryCache
	guidance  *GuidanceService
	milestone *MilestoneService
	requests  *SupervisorRequestService
	users     *UserService

	student    model.User
	supervisor model.User
	second     model.User
	outsider   model.User
	thesis     model.Thesis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	store.SetClock(func() time.Time { return testNow })

	f := &fixture{
		store:    store,
		recorder: &events.Recorder{},
		cache:    NewMemoryCache(),
	}
	f.cache.now = func() time.Time { return testNow }

	f.student = store.AddUser(model.User{Name: "Alice Student", Email: "alice@uni.test", Role: model.RoleStudent})
	f.supervisor = store.AddUser(model.User{Name: "Prof. Brown", Email: "brown@uni.test", Role: model.RoleSupervisor})
	f.second = store.AddUser(model.User{Name: "Dr. Clark", Email: "clark@uni.test", Role: model.RoleSupervisor})
	f.outsider = store.AddUser(model.User{Name: "Dr. Outsider", Email: "out@uni.test", Role: model.RoleSupervisor})

	second := f.second.ID
	f.thesis = store.AddThesis(model.Thesis{
		StudentID:          f.student.ID,
		SupervisorID:       f.supervisor.ID,
		SecondSupervisorID: &second,
		Title:              "Scheduling under uncertainty",
	})

	logger := zap.NewNop()
	f.guidance = NewGuidanceService(store.Guidance, store.Theses, f.cache, f.recorder, logger, GuidanceOptions{})
	f.guidance.now = func() time.Time { return testNow }

	f.milestone = NewMilestoneService(store.Milestones, store.Theses, f.cache, time.Minute, f.recorder, logger)
	f.milestone.now = func() time.Time { return testNow }

	f.requests = NewSupervisorRequestService(store.SupervisorRequests, store.Theses, store.Users, f.recorder, logger)
	f.requests.now = func() time.Time { return testNow }

	f.users = NewUserService(store.Users, store.Theses, logger)

	return f
}

func (f *fixture) studentActor() Actor {
	return Actor{UserID: f.student.ID, Role: model.RoleStudent}
}

func (f *fixture) supervisorActor() Actor {
	return Actor{UserID: f.supervisor.ID, Role: model.RoleSupervisor}
}

func (f *fixture) secondActor() Actor {
	return Actor{UserID: f.second.ID, Role: model.RoleSupervisor}
}

// at время на следующий день после testNow
func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 11, hour, minute, 0, 0, time.UTC)
}
