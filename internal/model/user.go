package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role роль пользователя, приходит из внешнего identity-провайдера
type Role string

const (
	RoleStudent    Role = "student"
	RoleSupervisor Role = "supervisor"
)

// ParseRole разбирает роль из claims токена
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleSupervisor:
		return RoleSupervisor, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type User struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	TelegramID *int64    `json:"telegram_id,omitempty"` // привязка к чату бота
	CreatedAt  time.Time `json:"created_at"`
}

// IsSupervisor проверяет, является ли пользователь научным руководителем
func (u *User) IsSupervisor() bool {
	return u.Role == RoleSupervisor
}
