package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/events"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SupervisorRequestService заявки студентов на второго научного руководителя
type SupervisorRequestService struct {
	store     SupervisorRequestStore
	theses    ThesisStore
	users     UserStore
	gate      *PendingGate[model.SupervisorRequest]
	inflight  *InFlight
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewSupervisorRequestService(
	store SupervisorRequestStore,
	theses ThesisStore,
	users UserStore,
	publisher events.Publisher,
	logger *zap.Logger,
) *SupervisorRequestService {
	return &SupervisorRequestService{
		store:     store,
		theses:    theses,
		users:     users,
		gate:      NewPendingGate[model.SupervisorRequest]("supervisor", store.FindPendingByStudent),
		inflight:  NewInFlight(),
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Gate возвращает правило одной неразобранной заявки на второго руководителя
func (s *SupervisorRequestService) Gate() *PendingGate[model.SupervisorRequest] {
	return s.gate
}

// Create студент просит руководителя стать вторым руководителем работы
func (s *SupervisorRequestService) Create(ctx context.Context, actor Actor, supervisorID uuid.UUID, message string) (*model.SupervisorRequest, error) {
	if err := requireRole(actor, model.RoleStudent, "request a supervisor"); err != nil {
		return nil, err
	}
	if supervisorID == uuid.Nil {
		return nil, newValidationError("supervisorId", "supervisor is required")
	}

	release, ok := s.inflight.Acquire("supervisor_request:create:" + actor.UserID.String())
	if !ok {
		return nil, ErrOperationInFlight
	}
	defer release()

	supervisor, err := s.users.GetByID(ctx, supervisorID)
	if err != nil {
		return nil, fmt.Errorf("get supervisor: %w", err)
	}
	if supervisor == nil || !supervisor.IsSupervisor() {
		return nil, newValidationError("supervisorId", "supervisor not found")
	}

	thesis, err := s.theses.GetByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("get thesis: %w", err)
	}
	if thesis == nil {
		return nil, newValidationError("thesis", "register your thesis before requesting a supervisor")
	}
	if thesis.HasSupervisor(supervisorID) {
		return nil, newValidationError("supervisorId", "this supervisor is already assigned to your thesis")
	}
	if thesis.SecondSupervisorID != nil {
		return nil, newValidationError("supervisorId", "your thesis already has a second supervisor")
	}

	if err := s.gate.Ensure(ctx, actor.UserID); err != nil {
		return nil, err
	}

	req := &model.SupervisorRequest{
		StudentID:    actor.UserID,
		SupervisorID: supervisorID,
		ThesisID:     thesis.ID,
		Status:       model.SupervisorRequestRequested,
		Message:      strings.TrimSpace(message),
	}

	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrPendingExists) {
			if gateErr := s.gate.Ensure(ctx, actor.UserID); gateErr != nil {
				return nil, gateErr
			}
		}
		return nil, fmt.Errorf("create supervisor request: %w", err)
	}
	req.SupervisorName = supervisor.Name

	s.publish(ctx, events.SupervisorRequestCreated, req)

	s.logger.Info("Supervisor request created",
		zap.String("request_id", req.ID.String()),
		zap.String("student_id", actor.UserID.String()),
		zap.String("supervisor_id", supervisorID.String()))

	return req, nil
}

// Approve руководитель соглашается, он становится вторым руководителем работы
func (s *SupervisorRequestService) Approve(ctx context.Context, actor Actor, id uuid.UUID, response string) (*model.SupervisorRequest, error) {
	return s.resolve(ctx, actor, id, ActionApprove, model.RoleSupervisor, events.SupervisorRequestApproved, func() (*model.SupervisorRequest, error) {
		return s.store.ApproveAndAssign(ctx, id, strings.TrimSpace(response))
	})
}

// Reject руководитель отказывается
func (s *SupervisorRequestService) Reject(ctx context.Context, actor Actor, id uuid.UUID, response string) (*model.SupervisorRequest, error) {
	return s.resolve(ctx, actor, id, ActionReject, model.RoleSupervisor, events.SupervisorRequestRejected, func() (*model.SupervisorRequest, error) {
		return s.store.UpdateStatus(ctx, id, model.SupervisorRequestRejected, strings.TrimSpace(response))
	})
}

// Cancel студент отзывает свою заявку
func (s *SupervisorRequestService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*model.SupervisorRequest, error) {
	return s.resolve(ctx, actor, id, ActionCancel, model.RoleStudent, events.SupervisorRequestCancelled, func() (*model.SupervisorRequest, error) {
		return s.store.UpdateStatus(ctx, id, model.SupervisorRequestCancelled, "")
	})
}

// List заявки пользователя: отправленные студентом или адресованные руководителю
func (s *SupervisorRequestService) List(ctx context.Context, actor Actor) ([]*model.SupervisorRequest, error) {
	var (
		requests []*model.SupervisorRequest
		err      error
	)
	switch actor.Role {
	case model.RoleStudent:
		requests, err = s.store.ListByStudent(ctx, actor.UserID)
	case model.RoleSupervisor:
		requests, err = s.store.ListBySupervisor(ctx, actor.UserID)
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}
	if err != nil {
		return nil, fmt.Errorf("list supervisor requests: %w", err)
	}
	return requests, nil
}

func (s *SupervisorRequestService) resolve(
	ctx context.Context,
	actor Actor,
	id uuid.UUID,
	action Action,
	role model.Role,
	eventType string,
	apply func() (*model.SupervisorRequest, error),
) (*model.SupervisorRequest, error) {
	if err := requireRole(actor, role, string(action)+" supervisor requests"); err != nil {
		return nil, err
	}

	release, ok := s.inflight.Acquire("supervisor_request:" + id.String())
	if !ok {
		return nil, ErrOperationInFlight
	}
	defer release()

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get supervisor request: %w", err)
	}
	if current == nil {
		return nil, ErrNotFound
	}
	if err := ownsSupervisorRequest(actor, current); err != nil {
		return nil, err
	}
	if !current.IsPending() {
		return nil, &InvalidTransitionError{From: string(current.Status), Action: action}
	}

	updated, err := apply()
	if err != nil {
		return nil, fmt.Errorf("resolve supervisor request: %w", err)
	}
	if updated == nil {
		return nil, &InvalidTransitionError{From: string(current.Status), Action: action}
	}

	s.publish(ctx, eventType, updated)

	s.logger.Info("Supervisor request resolved",
		zap.String("request_id", id.String()),
		zap.String("status", string(updated.Status)),
		zap.String("actor_id", actor.UserID.String()))

	return updated, nil
}

func (s *SupervisorRequestService) publish(ctx context.Context, eventType string, req *model.SupervisorRequest) {
	err := s.publisher.Publish(ctx, events.Event{
		EventType:    eventType,
		EntityID:     req.ID,
		StudentID:    req.StudentID,
		SupervisorID: req.SupervisorID,
		Status:       string(req.Status),
		OccurredAt:   s.now(),
	})
	if err != nil {
		s.logger.Warn("Failed to publish supervisor request event", zap.String("event", eventType), zap.Error(err))
	}
}
