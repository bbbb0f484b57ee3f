package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService struct {
	users  UserStore
	theses ThesisStore
	logger *zap.Logger
}

func NewUserService(users UserStore, theses ThesisStore, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		theses: theses,
		logger: logger,
	}
}

// GetByTelegramID получает пользователя по Telegram ID, nil если чат не привязан
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// BindTelegram привязывает чат бота к пользователю
func (s *UserService) BindTelegram(ctx context.Context, actor Actor, telegramID int64) (*model.User, error) {
	if telegramID <= 0 {
		return nil, newValidationError("telegramId", "telegram id must be positive")
	}

	existing, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check telegram binding: %w", err)
	}
	if existing != nil && existing.ID != actor.UserID {
		return nil, newValidationError("telegramId", "this telegram account is bound to another user")
	}

	user, err := s.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetTelegramID(ctx, user.ID, &telegramID); err != nil {
		return nil, fmt.Errorf("bind telegram: %w", err)
	}
	user.TelegramID = &telegramID

	s.logger.Info("Telegram bound",
		zap.String("user_id", user.ID.String()),
		zap.Int64("telegram_id", telegramID),
	)

	return user, nil
}

// UnbindTelegram отвязывает чат бота
func (s *UserService) UnbindTelegram(ctx context.Context, actor Actor) error {
	if err := s.users.SetTelegramID(ctx, actor.UserID, nil); err != nil {
		return fmt.Errorf("unbind telegram: %w", err)
	}

	s.logger.Info("Telegram unbound", zap.String("user_id", actor.UserID.String()))
	return nil
}

// ThesisOf возвращает работу студента, nil если работа не зарегистрирована
func (s *UserService) ThesisOf(ctx context.Context, actor Actor) (*model.Thesis, error) {
	if err := requireRole(actor, model.RoleStudent, "have a thesis"); err != nil {
		return nil, err
	}

	thesis, err := s.theses.GetByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("get thesis: %w", err)
	}
	return thesis, nil
}

// SupervisorsOf возвращает руководителей работы студента: основной первым
func (s *UserService) SupervisorsOf(ctx context.Context, actor Actor) ([]*model.User, error) {
	thesis, err := s.ThesisOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	if thesis == nil {
		return nil, nil
	}

	ids := []uuid.UUID{thesis.SupervisorID}
	if thesis.SecondSupervisorID != nil {
		ids = append(ids, *thesis.SecondSupervisorID)
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get supervisors: %w", err)
	}

	byID := make(map[uuid.UUID]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	supervisors := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			supervisors = append(supervisors, u)
		}
	}
	return supervisors, nil
}

// SupervisedTheses работы, в которых пользователь основной или второй руководитель
func (s *UserService) SupervisedTheses(ctx context.Context, actor Actor) ([]*model.Thesis, error) {
	if err := requireRole(actor, model.RoleSupervisor, "supervise theses"); err != nil {
		return nil, err
	}

	theses, err := s.theses.ListBySupervisor(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list theses: %w", err)
	}
	return theses, nil
}
