package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/events"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	maxDurationMinutes = 8 * 60
	maxWindowDays      = 31
)

var actionEvents = map[Action]string{
	ActionReschedule:     events.GuidanceRescheduled,
	ActionCancel:         events.GuidanceCancelled,
	ActionApprove:        events.GuidanceApproved,
	ActionReject:         events.GuidanceRejected,
	ActionSubmitSummary:  events.GuidanceSummarySubmitted,
	ActionApproveSummary: events.GuidanceCompleted,
	ActionUpdateNotes:    events.GuidanceNotesUpdated,
}

// GuidanceOptions настройки сервиса консультаций
type GuidanceOptions struct {
	CacheTTL               time.Duration
	DefaultDurationMinutes int
}

// CreateGuidanceInput данные новой заявки на консультацию
type CreateGuidanceInput struct {
	SupervisorID    uuid.UUID
	RequestedDate   time.Time
	DurationMinutes int
	StudentNotes    string
	MilestoneID     *uuid.UUID
}

// GuidanceService владеет статусом сессий консультаций: только он двигает статус по графу переходов
type GuidanceService struct {
	store     GuidanceStore
	theses    ThesisStore
	checker   *AvailabilityChecker
	gate      *PendingGate[model.GuidanceSession]
	cache     Cache
	inflight  *InFlight
	publisher events.Publisher
	logger    *zap.Logger
	opts      GuidanceOptions
	now       func() time.Time

	// mutations растёт после каждой записи статуса; Get сверяет его, чтобы не вернуть в кэш старую строку
	mutations atomic.Uint64
}

func NewGuidanceService(
	store GuidanceStore,
	theses ThesisStore,
	cache Cache,
	publisher events.Publisher,
	logger *zap.Logger,
	opts GuidanceOptions,
) *GuidanceService {
	if opts.DefaultDurationMinutes <= 0 {
		opts.DefaultDurationMinutes = 60
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}

	return &GuidanceService{
		store:     store,
		theses:    theses,
		checker:   NewAvailabilityChecker(store, logger),
		gate:      NewPendingGate[model.GuidanceSession]("guidance", store.FindPendingByStudent),
		cache:     cache,
		inflight:  NewInFlight(),
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Checker возвращает проверку занятости, которую использует сервис
func (s *GuidanceService) Checker() *AvailabilityChecker {
	return s.checker
}

// Gate возвращает правило одной неразобранной заявки на консультацию
func (s *GuidanceService) Gate() *PendingGate[model.GuidanceSession] {
	return s.gate
}

// ============ Создание ============

// Create создаёт заявку на консультацию в статусе requested
func (s *GuidanceService) Create(ctx context.Context, actor Actor, in CreateGuidanceInput) (session *model.GuidanceSession, err error) {
	ctx, span := startSpan(ctx, "GuidanceService.Create", attribute.String("supervisor.id", in.SupervisorID.String()))
	defer func() {
		observeTransition("create", err)
		endSpan(span, err)
	}()

	if err := requireRole(actor, model.RoleStudent, "request guidance"); err != nil {
		return nil, err
	}

	if in.DurationMinutes == 0 {
		in.DurationMinutes = s.opts.DefaultDurationMinutes
	}
	if err := s.validateSchedule(in.SupervisorID, in.RequestedDate, in.DurationMinutes); err != nil {
		return nil, err
	}

	release, ok := s.inflight.Acquire("guidance:create:" + actor.UserID.String())
	if !ok {
		return nil, ErrOperationInFlight
	}
	defer release()

	thesis, err := s.theses.GetByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("get thesis: %w", err)
	}
	if thesis == nil {
		return nil, newValidationError("thesis", "register your thesis before requesting guidance")
	}
	if !thesis.HasSupervisor(in.SupervisorID) {
		return nil, fmt.Errorf("%w: supervisor is not assigned to your thesis", ErrForbidden)
	}

	if err := s.gate.Ensure(ctx, actor.UserID); err != nil {
		return nil, err
	}

	if err := s.checker.Check(ctx, in.SupervisorID, in.RequestedDate, in.DurationMinutes).Err(); err != nil {
		return nil, err
	}

	session = &model.GuidanceSession{
		StudentID:       actor.UserID,
		SupervisorID:    in.SupervisorID,
		Status:          model.GuidanceStatusRequested,
		RequestedDate:   in.RequestedDate,
		DurationMinutes: in.DurationMinutes,
		StudentNotes:    strings.TrimSpace(in.StudentNotes),
		MilestoneID:     in.MilestoneID,
	}

	if err := s.store.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrPendingExists) {
			// Параллельная заявка успела раньше: показываем её пользователю
			if gateErr := s.gate.Ensure(ctx, actor.UserID); gateErr != nil {
				return nil, gateErr
			}
		}
		return nil, fmt.Errorf("create guidance: %w", err)
	}

	span.SetAttributes(attribute.String("guidance.id", session.ID.String()))
	s.publish(ctx, events.GuidanceRequested, session)

	s.logger.Info("Guidance requested",
		zap.String("session_id", session.ID.String()),
		zap.String("student_id", actor.UserID.String()),
		zap.String("supervisor_id", in.SupervisorID.String()),
		zap.Time("requested_date", in.RequestedDate),
		zap.Int("duration_minutes", in.DurationMinutes),
	)

	return session, nil
}

// ============ Переходы ============

// Reschedule переносит ещё не разобранную заявку на новое время
func (s *GuidanceService) Reschedule(ctx context.Context, actor Actor, id uuid.UUID, newDate time.Time, notes string) (*model.GuidanceSession, error) {
	return s.transition(ctx, actor, id, ActionReschedule, func(current *model.GuidanceSession) (model.GuidancePatch, error) {
		if err := s.validateSchedule(current.SupervisorID, newDate, current.DurationMinutes); err != nil {
			return model.GuidancePatch{}, err
		}

		result := s.checker.CheckExcluding(ctx, current.SupervisorID, newDate, current.DurationMinutes, current.ID)
		if err := result.Err(); err != nil {
			return model.GuidancePatch{}, err
		}

		notes = strings.TrimSpace(notes)
		return model.GuidancePatch{RequestedDate: &newDate, StudentNotes: &notes}, nil
	})
}

// Cancel отменяет заявку по инициативе студента
func (s *GuidanceService) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*model.GuidanceSession, error) {
	return s.transition(ctx, actor, id, ActionCancel, func(*model.GuidanceSession) (model.GuidancePatch, error) {
		reason = strings.TrimSpace(reason)
		return model.GuidancePatch{CancelReason: &reason}, nil
	})
}

// Approve одобряет заявку; согласованное время равно запрошенному
func (s *GuidanceService) Approve(ctx context.Context, actor Actor, id uuid.UUID, message string) (*model.GuidanceSession, error) {
	return s.transition(ctx, actor, id, ActionApprove, func(current *model.GuidanceSession) (model.GuidancePatch, error) {
		approved := current.RequestedDate
		message = strings.TrimSpace(message)
		return model.GuidancePatch{ApprovedDate: &approved, SupervisorMessage: &message}, nil
	})
}

// Reject отклоняет заявку
func (s *GuidanceService) Reject(ctx context.Context, actor Actor, id uuid.UUID, message string) (*model.GuidanceSession, error) {
	return s.transition(ctx, actor, id, ActionReject, func(*model.GuidanceSession) (model.GuidancePatch, error) {
		message = strings.TrimSpace(message)
		return model.GuidancePatch{SupervisorMessage: &message}, nil
	})
}

// SubmitSummary студент отправляет итоги встречи
func (s *GuidanceService) SubmitSummary(ctx context.Context, actor Actor, id uuid.UUID, summary, actionItems string) (*model.GuidanceSession, error) {
	return s.transition(ctx, actor, id, ActionSubmitSummary, func(*model.GuidanceSession) (model.GuidancePatch, error) {
		summary = strings.TrimSpace(summary)
		if summary == "" {
			return model.GuidancePatch{}, newValidationError("sessionSummary", "summary is required")
		}
		actionItems = strings.TrimSpace(actionItems)
		return model.GuidancePatch{SessionSummary: &summary, ActionItems: &actionItems}, nil
	})
}

// ApproveSummary руководитель принимает итоги, сессия завершена
func (s *GuidanceService) ApproveSummary(ctx context.Context, actor Actor, id uuid.UUID) (*model.GuidanceSession, error) {
	return s.transition(ctx, actor, id, ActionApproveSummary, func(*model.GuidanceSession) (model.GuidancePatch, error) {
		return model.GuidancePatch{}, nil
	})
}

// UpdateNotes меняет заметки студента без смены статуса
func (s *GuidanceService) UpdateNotes(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*model.GuidanceSession, error) {
	return s.transition(ctx, actor, id, ActionUpdateNotes, func(*model.GuidanceSession) (model.GuidancePatch, error) {
		notes = strings.TrimSpace(notes)
		return model.GuidancePatch{StudentNotes: &notes}, nil
	})
}

// transition общий путь всех переходов: проверка прав, поиск ребра графа,
// сборка изменений и compare-and-set запись. При любой ошибке сессия не меняется.
func (s *GuidanceService) transition(
	ctx context.Context,
	actor Actor,
	id uuid.UUID,
	action Action,
	build func(current *model.GuidanceSession) (model.GuidancePatch, error),
) (updated *model.GuidanceSession, err error) {
	ctx, span := startSpan(ctx, "GuidanceService."+string(action), attribute.String("guidance.id", id.String()))
	defer func() {
		observeTransition(string(action), err)
		endSpan(span, err)
	}()

	key := CacheKey(cacheEntityGuidance, id)
	release, ok := s.inflight.Acquire(key)
	if !ok {
		return nil, ErrOperationInFlight
	}
	defer release()

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get guidance: %w", err)
	}
	if current == nil {
		return nil, ErrNotFound
	}

	if err := ownsGuidance(actor, current); err != nil {
		return nil, err
	}

	tr, ok := TransitionFor(current.Status, action)
	if !ok {
		s.logger.Warn("Invalid guidance transition",
			zap.String("session_id", id.String()),
			zap.String("status", string(current.Status)),
			zap.String("action", string(action)),
			zap.String("actor_id", actor.UserID.String()))
		return nil, &InvalidTransitionError{From: string(current.Status), Action: action}
	}
	if tr.Role != actor.Role {
		return nil, fmt.Errorf("%w: %s is not allowed for %s", ErrForbidden, action, actor.Role)
	}

	patch, err := build(current)
	if err != nil {
		return nil, err
	}

	updated, err = s.store.ApplyTransition(ctx, id, tr.From, tr.To, patch)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", action, err)
	}
	if updated == nil {
		// Статус поменялся между чтением и записью
		return nil, &InvalidTransitionError{From: string(current.Status), Action: action}
	}

	s.mutations.Add(1)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.Warn("Failed to invalidate guidance cache", zap.String("key", key), zap.Error(err))
	}

	s.publish(ctx, actionEvents[action], updated)

	s.logger.Info("Guidance transition applied",
		zap.String("session_id", id.String()),
		zap.String("action", string(action)),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("actor_id", actor.UserID.String()),
	)

	return updated, nil
}

// ============ Чтение ============

// Get возвращает сессию, если пользователь в ней участвует
func (s *GuidanceService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.GuidanceSession, error) {
	key := CacheKey(cacheEntityGuidance, id)

	var cached model.GuidanceSession
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("Failed to read guidance cache", zap.String("key", key), zap.Error(err))
	}

	session := &cached
	if !hit {
		seen := s.mutations.Load()
		session, err = s.store.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get guidance: %w", err)
		}
		if session == nil {
			return nil, ErrNotFound
		}
		s.fillCache(ctx, key, session, seen)
	}

	if err := ownsGuidance(actor, session); err != nil {
		return nil, err
	}
	return session, nil
}

// fillCache кладёт прочитанную сессию в кэш. Если за время чтения прошёл переход,
// строка могла устареть: запись снимается, следующий Get перечитает хранилище.
func (s *GuidanceService) fillCache(ctx context.Context, key string, session *model.GuidanceSession, seen uint64) {
	if err := s.cache.Set(ctx, key, session, s.opts.CacheTTL); err != nil {
		s.logger.Warn("Failed to write guidance cache", zap.String("key", key), zap.Error(err))
		return
	}
	if s.mutations.Load() == seen {
		return
	}
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.Warn("Failed to invalidate guidance cache", zap.String("key", key), zap.Error(err))
	}
}

// List возвращает историю сессий пользователя, новые первыми
func (s *GuidanceService) List(ctx context.Context, actor Actor, status *model.GuidanceStatus) ([]*model.GuidanceSession, error) {
	if status != nil && !status.Valid() {
		return nil, newValidationError("status", fmt.Sprintf("unknown status %q", *status))
	}

	var (
		sessions []*model.GuidanceSession
		err      error
	)
	switch actor.Role {
	case model.RoleStudent:
		sessions, err = s.store.ListByStudent(ctx, actor.UserID, status)
	case model.RoleSupervisor:
		sessions, err = s.store.ListBySupervisor(ctx, actor.UserID, status)
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}
	if err != nil {
		return nil, fmt.Errorf("list guidance: %w", err)
	}

	return sessions, nil
}

// Upcoming возвращает одобренные будущие встречи, ближайшие первыми
func (s *GuidanceService) Upcoming(ctx context.Context, actor Actor) ([]*model.GuidanceSession, error) {
	sessions, err := s.store.ListUpcoming(ctx, actor.UserID, actor.Role, s.now())
	if err != nil {
		return nil, fmt.Errorf("list upcoming guidance: %w", err)
	}
	return sessions, nil
}

// FindPending возвращает неразобранную заявку студента
func (s *GuidanceService) FindPending(ctx context.Context, actor Actor) (*model.GuidanceSession, error) {
	if err := requireRole(actor, model.RoleStudent, "have pending requests"); err != nil {
		return nil, err
	}
	return s.gate.FindPending(ctx, actor.UserID)
}

// BusySlots занятость руководителя в окне [from, to]
func (s *GuidanceService) BusySlots(ctx context.Context, supervisorID uuid.UUID, from, to time.Time) ([]model.BusySlot, error) {
	if !to.After(from) {
		return nil, newValidationError("end", "end must be after start")
	}
	if to.Sub(from) > maxWindowDays*24*time.Hour {
		return nil, newValidationError("end", fmt.Sprintf("window must not exceed %d days", maxWindowDays))
	}

	slots, err := s.store.BusySlots(ctx, supervisorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get busy slots: %w", err)
	}
	if slots == nil {
		slots = []model.BusySlot{}
	}
	return slots, nil
}

// CheckAvailability проверка кандидатного времени для формы заявки
func (s *GuidanceService) CheckAvailability(ctx context.Context, supervisorID uuid.UUID, start time.Time, durationMinutes int) (ConflictResult, error) {
	if durationMinutes == 0 {
		durationMinutes = s.opts.DefaultDurationMinutes
	}
	if err := s.validateSchedule(supervisorID, start, durationMinutes); err != nil {
		return ConflictResult{}, err
	}
	return s.checker.Check(ctx, supervisorID, start, durationMinutes), nil
}

func (s *GuidanceService) validateSchedule(supervisorID uuid.UUID, start time.Time, durationMinutes int) error {
	if supervisorID == uuid.Nil {
		return newValidationError("supervisorId", "supervisor is required")
	}
	if start.IsZero() {
		return newValidationError("requestedDate", "date is required")
	}
	if !start.After(s.now()) {
		return newValidationError("requestedDate", "date must be in the future")
	}
	if durationMinutes <= 0 || durationMinutes > maxDurationMinutes {
		return newValidationError("durationMinutes", fmt.Sprintf("duration must be between 1 and %d minutes", maxDurationMinutes))
	}
	return nil
}

func (s *GuidanceService) publish(ctx context.Context, eventType string, session *model.GuidanceSession) {
	err := s.publisher.Publish(ctx, events.Event{
		EventType:    eventType,
		EntityID:     session.ID,
		StudentID:    session.StudentID,
		SupervisorID: session.SupervisorID,
		Status:       string(session.Status),
		OccurredAt:   s.now(),
	})
	if err != nil {
		s.logger.Warn("Failed to publish guidance event",
			zap.String("event", eventType),
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}
}
