package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/google/uuid"
)

// Хранилища, с которыми работают сервисы. Реализации: repository (postgres) и repository/memory.
// Все методы Get*/Find* возвращают nil, nil если запись не найдена.

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.User, error)
	SetTelegramID(ctx context.Context, id uuid.UUID, telegramID *int64) error
}

type ThesisStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Thesis, error)
	GetByStudent(ctx context.Context, studentID uuid.UUID) (*model.Thesis, error)
	ListBySupervisor(ctx context.Context, supervisorID uuid.UUID) ([]*model.Thesis, error)
}

type GuidanceStore interface {
	BusySlotFetcher

	Create(ctx context.Context, session *model.GuidanceSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.GuidanceSession, error)
	FindPendingByStudent(ctx context.Context, studentID uuid.UUID) (*model.GuidanceSession, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, status *model.GuidanceStatus) ([]*model.GuidanceSession, error)
	ListBySupervisor(ctx context.Context, supervisorID uuid.UUID, status *model.GuidanceStatus) ([]*model.GuidanceSession, error)
	ListUpcoming(ctx context.Context, userID uuid.UUID, role model.Role, from time.Time) ([]*model.GuidanceSession, error)

	// ApplyTransition меняет статус только если текущий статус равен from.
	// Возвращает nil, nil если статус успел измениться.
	ApplyTransition(ctx context.Context, id uuid.UUID, from, to model.GuidanceStatus, patch model.GuidancePatch) (*model.GuidanceSession, error)
}

type MilestoneStore interface {
	ListByThesis(ctx context.Context, thesisID uuid.UUID) ([]model.Milestone, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Milestone, error)
	CreateBatch(ctx context.Context, milestones []model.Milestone) error

	// Update сохраняет этап только если текущий статус равен expected; false если нет
	Update(ctx context.Context, milestone *model.Milestone, expected model.MilestoneStatus) (bool, error)
}

type SupervisorRequestStore interface {
	Create(ctx context.Context, req *model.SupervisorRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SupervisorRequest, error)
	FindPendingByStudent(ctx context.Context, studentID uuid.UUID) (*model.SupervisorRequest, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.SupervisorRequest, error)
	ListBySupervisor(ctx context.Context, supervisorID uuid.UUID) ([]*model.SupervisorRequest, error)

	// UpdateStatus compare-and-set по статусу requested; nil, nil если заявка уже разобрана
	UpdateStatus(ctx context.Context, id uuid.UUID, to model.SupervisorRequestStatus, response string) (*model.SupervisorRequest, error)
	// ApproveAndAssign одобряет заявку и назначает второго руководителя в одной транзакции
	ApproveAndAssign(ctx context.Context, id uuid.UUID, response string) (*model.SupervisorRequest, error)
}
