package service

import (
	"fmt"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/google/uuid"
)

// Actor пользователь, от имени которого выполняется операция
type Actor struct {
	UserID uuid.UUID
	Role   model.Role
}

// ownsGuidance проверяет, участвует ли пользователь в сессии в своей роли
func ownsGuidance(actor Actor, g *model.GuidanceSession) error {
	switch actor.Role {
	case model.RoleStudent:
		if g.StudentID != actor.UserID {
			return ErrForbidden
		}
	case model.RoleSupervisor:
		if g.SupervisorID != actor.UserID {
			return ErrForbidden
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}
	return nil
}

// ownsSupervisorRequest та же проверка для заявок на второго руководителя
func ownsSupervisorRequest(actor Actor, r *model.SupervisorRequest) error {
	switch actor.Role {
	case model.RoleStudent:
		if r.StudentID != actor.UserID {
			return ErrForbidden
		}
	case model.RoleSupervisor:
		if r.SupervisorID != actor.UserID {
			return ErrForbidden
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}
	return nil
}

// canAccessThesis студент работы или один из её руководителей
func canAccessThesis(actor Actor, t *model.Thesis) error {
	switch actor.Role {
	case model.RoleStudent:
		if t.StudentID != actor.UserID {
			return ErrForbidden
		}
	case model.RoleSupervisor:
		if !t.HasSupervisor(actor.UserID) {
			return ErrForbidden
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}
	return nil
}

func requireRole(actor Actor, role model.Role, what string) error {
	if actor.Role != role {
		return fmt.Errorf("%w: only %ss can %s", ErrForbidden, role, what)
	}
	return nil
}
