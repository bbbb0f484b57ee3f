// Package memory хранилище в памяти процесса: STORAGE_DRIVER=memory и тесты сервисов.
// Повторяет поведение postgres-репозиториев, включая compare-and-set по статусу
// и уникальность заявки в статусе requested.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository"
	"github.com/google/uuid"
)

type state struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]model.User
	theses     map[uuid.UUID]model.Thesis
	guidance   map[uuid.UUID]model.GuidanceSession
	milestones map[uuid.UUID]model.Milestone
	requests   map[uuid.UUID]model.SupervisorRequest
	now        func() time.Time
}

// Store набор хранилищ над общим состоянием
type Store struct {
	st *state

	Users              *UserStore
	Theses             *ThesisStore
	Guidance           *GuidanceStore
	Milestones         *MilestoneStore
	SupervisorRequests *SupervisorRequestStore
}

func New() *Store {
	st := &state{
		users:      make(map[uuid.UUID]model.User),
		theses:     make(map[uuid.UUID]model.Thesis),
		guidance:   make(map[uuid.UUID]model.GuidanceSession),
		milestones: make(map[uuid.UUID]model.Milestone),
		requests:   make(map[uuid.UUID]model.SupervisorRequest),
		now:        time.Now,
	}

	return &Store{
		st:                 st,
		Users:              &UserStore{st: st},
		Theses:             &ThesisStore{st: st},
		Guidance:           &GuidanceStore{st: st},
		Milestones:         &MilestoneStore{st: st},
		SupervisorRequests: &SupervisorRequestStore{st: st},
	}
}

// SetClock подменяет часы для created_at/updated_at
func (s *Store) SetClock(now func() time.Time) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.now = now
}

// AddUser добавляет пользователя
func (s *Store) AddUser(u model.User) model.User {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.st.now()
	}
	s.st.users[u.ID] = u
	return u
}

// AddThesis регистрирует работу
func (s *Store) AddThesis(t model.Thesis) model.Thesis {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.st.now()
	}
	s.st.theses[t.ID] = t
	return t
}

// Seed начальные данные для локального запуска
type Seed struct {
	Users      []model.User      `json:"users"`
	Theses     []model.Thesis    `json:"theses"`
	Milestones []model.Milestone `json:"milestones"`
}

// LoadSeedFile загружает пользователей, работы и этапы из JSON-файла
func (s *Store) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, u := range seed.Users {
		s.AddUser(u)
	}
	for _, t := range seed.Theses {
		s.AddThesis(t)
	}
	if len(seed.Milestones) > 0 {
		if err := s.Milestones.CreateBatch(context.Background(), seed.Milestones); err != nil {
			return err
		}
	}
	return nil
}

func (st *state) userName(id uuid.UUID) string {
	return st.users[id].Name
}

// ============ Users ============

type UserStore struct {
	st *state
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	u, ok := s.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *UserStore) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	for _, u := range s.st.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *UserStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*model.User, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	users := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.st.users[id]; ok {
			users = append(users, &u)
		}
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (s *UserStore) SetTelegramID(_ context.Context, id uuid.UUID, telegramID *int64) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	u, ok := s.st.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.TelegramID = telegramID
	s.st.users[id] = u
	return nil
}

// ============ Theses ============

type ThesisStore struct {
	st *state
}

func (s *ThesisStore) GetByID(_ context.Context, id uuid.UUID) (*model.Thesis, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	t, ok := s.st.theses[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *ThesisStore) GetByStudent(_ context.Context, studentID uuid.UUID) (*model.Thesis, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	for _, t := range s.st.theses {
		if t.StudentID == studentID {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (s *ThesisStore) ListBySupervisor(_ context.Context, supervisorID uuid.UUID) ([]*model.Thesis, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var theses []*model.Thesis
	for _, t := range s.st.theses {
		if t.HasSupervisor(supervisorID) {
			t := t
			theses = append(theses, &t)
		}
	}
	sort.Slice(theses, func(i, j int) bool {
		if !theses[i].CreatedAt.Equal(theses[j].CreatedAt) {
			return theses[i].CreatedAt.After(theses[j].CreatedAt)
		}
		return theses[i].ID.String() < theses[j].ID.String()
	})
	return theses, nil
}

// ============ Guidance ============

type GuidanceStore struct {
	st *state
}

func (s *GuidanceStore) withNames(g model.GuidanceSession) *model.GuidanceSession {
	g.StudentName = s.st.userName(g.StudentID)
	g.SupervisorName = s.st.userName(g.SupervisorID)
	return &g
}

func (s *GuidanceStore) Create(_ context.Context, g *model.GuidanceSession) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if g.Status == model.GuidanceStatusRequested {
		for _, existing := range s.st.guidance {
			if existing.StudentID == g.StudentID && existing.Status == model.GuidanceStatusRequested {
				return repository.ErrPendingExists
			}
		}
	}

	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	now := s.st.now()
	g.CreatedAt = now
	g.UpdatedAt = now

	stored := *g
	stored.StudentName = ""
	stored.SupervisorName = ""
	s.st.guidance[g.ID] = stored
	return nil
}

func (s *GuidanceStore) GetByID(_ context.Context, id uuid.UUID) (*model.GuidanceSession, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	g, ok := s.st.guidance[id]
	if !ok {
		return nil, nil
	}
	return s.withNames(g), nil
}

func (s *GuidanceStore) FindPendingByStudent(_ context.Context, studentID uuid.UUID) (*model.GuidanceSession, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	for _, g := range s.st.guidance {
		if g.StudentID == studentID && g.Status == model.GuidanceStatusRequested {
			return s.withNames(g), nil
		}
	}
	return nil, nil
}

func (s *GuidanceStore) ListByStudent(_ context.Context, studentID uuid.UUID, status *model.GuidanceStatus) ([]*model.GuidanceSession, error) {
	return s.list(func(g model.GuidanceSession) bool {
		return g.StudentID == studentID && (status == nil || g.Status == *status)
	}), nil
}

func (s *GuidanceStore) ListBySupervisor(_ context.Context, supervisorID uuid.UUID, status *model.GuidanceStatus) ([]*model.GuidanceSession, error) {
	return s.list(func(g model.GuidanceSession) bool {
		return g.SupervisorID == supervisorID && (status == nil || g.Status == *status)
	}), nil
}

func (s *GuidanceStore) list(match func(g model.GuidanceSession) bool) []*model.GuidanceSession {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var sessions []*model.GuidanceSession
	for _, g := range s.st.guidance {
		if match(g) {
			sessions = append(sessions, s.withNames(g))
		}
	}

	// created_at DESC, id как стабильный тай-брейкер
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID.String() < sessions[j].ID.String()
	})
	return sessions
}

func (s *GuidanceStore) ListUpcoming(_ context.Context, userID uuid.UUID, role model.Role, from time.Time) ([]*model.GuidanceSession, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var sessions []*model.GuidanceSession
	for _, g := range s.st.guidance {
		if g.Status != model.GuidanceStatusAccepted || g.ApprovedDate == nil || g.ApprovedDate.Before(from) {
			continue
		}
		switch role {
		case model.RoleStudent:
			if g.StudentID != userID {
				continue
			}
		case model.RoleSupervisor:
			if g.SupervisorID != userID {
				continue
			}
		default:
			return nil, fmt.Errorf("unknown role %q", role)
		}
		sessions = append(sessions, s.withNames(g))
	}

	sort.Slice(sessions, func(i, j int) bool {
		a, b := *sessions[i].ApprovedDate, *sessions[j].ApprovedDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return sessions[i].ID.String() < sessions[j].ID.String()
	})
	return sessions, nil
}

func (s *GuidanceStore) BusySlots(_ context.Context, supervisorID uuid.UUID, from, to time.Time) ([]model.BusySlot, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var slots []model.BusySlot
	for _, g := range s.st.guidance {
		if g.SupervisorID != supervisorID {
			continue
		}
		if g.Status != model.GuidanceStatusRequested && g.Status != model.GuidanceStatusAccepted {
			continue
		}
		start := g.ScheduledAt()
		if start.Before(from) || start.After(to) {
			continue
		}
		id := g.ID
		slots = append(slots, model.BusySlot{
			Start:       start,
			End:         g.EndsAt(),
			StudentName: s.st.userName(g.StudentID),
			SessionID:   &id,
		})
	}

	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Start.Before(slots[j].Start)
		}
		return slots[i].SessionID.String() < slots[j].SessionID.String()
	})
	return slots, nil
}

func (s *GuidanceStore) ApplyTransition(_ context.Context, id uuid.UUID, from, to model.GuidanceStatus, patch model.GuidancePatch) (*model.GuidanceSession, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	g, ok := s.st.guidance[id]
	if !ok || g.Status != from {
		return nil, nil
	}

	g.Status = to
	if patch.RequestedDate != nil {
		g.RequestedDate = *patch.RequestedDate
	}
	if patch.ApprovedDate != nil {
		approved := *patch.ApprovedDate
		g.ApprovedDate = &approved
	}
	if patch.StudentNotes != nil {
		g.StudentNotes = *patch.StudentNotes
	}
	if patch.SessionSummary != nil {
		g.SessionSummary = *patch.SessionSummary
	}
	if patch.ActionItems != nil {
		g.ActionItems = *patch.ActionItems
	}
	if patch.SupervisorMessage != nil {
		g.SupervisorMessage = *patch.SupervisorMessage
	}
	if patch.CancelReason != nil {
		g.CancelReason = *patch.CancelReason
	}
	g.UpdatedAt = s.st.now()

	s.st.guidance[id] = g
	return s.withNames(g), nil
}

// ============ Milestones ============

type MilestoneStore struct {
	st *state
}

func (s *MilestoneStore) ListByThesis(_ context.Context, thesisID uuid.UUID) ([]model.Milestone, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var milestones []model.Milestone
	for _, m := range s.st.milestones {
		if m.ThesisID == thesisID {
			milestones = append(milestones, m)
		}
	}

	sort.Slice(milestones, func(i, j int) bool {
		if milestones[i].OrderIndex != milestones[j].OrderIndex {
			return milestones[i].OrderIndex < milestones[j].OrderIndex
		}
		return milestones[i].ID.String() < milestones[j].ID.String()
	})
	return milestones, nil
}

func (s *MilestoneStore) GetByID(_ context.Context, id uuid.UUID) (*model.Milestone, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	m, ok := s.st.milestones[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *MilestoneStore) CreateBatch(_ context.Context, milestones []model.Milestone) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for _, m := range milestones {
		if _, exists := s.st.milestones[m.ID]; exists && m.ID != uuid.Nil {
			return fmt.Errorf("milestone %s already exists", m.ID)
		}
	}
	for _, m := range milestones {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		if m.Status == "" {
			m.Status = model.MilestoneStatusNotStarted
		}
		s.st.milestones[m.ID] = m
	}
	return nil
}

func (s *MilestoneStore) Update(_ context.Context, m *model.Milestone, expected model.MilestoneStatus) (bool, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	current, ok := s.st.milestones[m.ID]
	if !ok || current.Status != expected {
		return false, nil
	}
	s.st.milestones[m.ID] = *m
	return true, nil
}

// ============ Supervisor requests ============

type SupervisorRequestStore struct {
	st *state
}

func (s *SupervisorRequestStore) withNames(r model.SupervisorRequest) *model.SupervisorRequest {
	r.StudentName = s.st.userName(r.StudentID)
	r.SupervisorName = s.st.userName(r.SupervisorID)
	return &r
}

func (s *SupervisorRequestStore) Create(_ context.Context, req *model.SupervisorRequest) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if req.Status == model.SupervisorRequestRequested {
		for _, existing := range s.st.requests {
			if existing.StudentID == req.StudentID && existing.IsPending() {
				return repository.ErrPendingExists
			}
		}
	}

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := s.st.now()
	req.CreatedAt = now
	req.UpdatedAt = now

	stored := *req
	stored.StudentName = ""
	stored.SupervisorName = ""
	s.st.requests[req.ID] = stored
	return nil
}

func (s *SupervisorRequestStore) GetByID(_ context.Context, id uuid.UUID) (*model.SupervisorRequest, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	r, ok := s.st.requests[id]
	if !ok {
		return nil, nil
	}
	return s.withNames(r), nil
}

func (s *SupervisorRequestStore) FindPendingByStudent(_ context.Context, studentID uuid.UUID) (*model.SupervisorRequest, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	for _, r := range s.st.requests {
		if r.StudentID == studentID && r.IsPending() {
			return s.withNames(r), nil
		}
	}
	return nil, nil
}

func (s *SupervisorRequestStore) ListByStudent(_ context.Context, studentID uuid.UUID) ([]*model.SupervisorRequest, error) {
	return s.list(func(r model.SupervisorRequest) bool { return r.StudentID == studentID }), nil
}

func (s *SupervisorRequestStore) ListBySupervisor(_ context.Context, supervisorID uuid.UUID) ([]*model.SupervisorRequest, error) {
	return s.list(func(r model.SupervisorRequest) bool { return r.SupervisorID == supervisorID }), nil
}

func (s *SupervisorRequestStore) list(match func(r model.SupervisorRequest) bool) []*model.SupervisorRequest {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var requests []*model.SupervisorRequest
	for _, r := range s.st.requests {
		if match(r) {
			requests = append(requests, s.withNames(r))
		}
	}

	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.After(requests[j].CreatedAt)
		}
		return requests[i].ID.String() < requests[j].ID.String()
	})
	return requests
}

func (s *SupervisorRequestStore) UpdateStatus(_ context.Context, id uuid.UUID, to model.SupervisorRequestStatus, response string) (*model.SupervisorRequest, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	return s.resolveLocked(id, to, response), nil
}

func (s *SupervisorRequestStore) ApproveAndAssign(_ context.Context, id uuid.UUID, response string) (*model.SupervisorRequest, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	r, ok := s.st.requests[id]
	if !ok || !r.IsPending() {
		return nil, nil
	}

	t, ok := s.st.theses[r.ThesisID]
	if !ok || t.SecondSupervisorID != nil || t.SupervisorID == r.SupervisorID {
		return nil, nil
	}

	supervisorID := r.SupervisorID
	t.SecondSupervisorID = &supervisorID
	s.st.theses[t.ID] = t

	return s.resolveLocked(id, model.SupervisorRequestApproved, response), nil
}

func (s *SupervisorRequestStore) resolveLocked(id uuid.UUID, to model.SupervisorRequestStatus, response string) *model.SupervisorRequest {
	r, ok := s.st.requests[id]
	if !ok || !r.IsPending() {
		return nil
	}

	r.Status = to
	r.ResponseMessage = response
	r.UpdatedAt = s.st.now()
	s.st.requests[id] = r
	return s.withNames(r)
}
