package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PendingFinder находит неразобранную заявку студента, nil если её нет
type PendingFinder[T any] func(ctx context.Context, studentID uuid.UUID) (*T, error)

// PendingGate правило "не более одной неразобранной заявки на студента".
// Одно и то же правило применяется к разным типам заявок.
type PendingGate[T any] struct {
	kind string
	find PendingFinder[T]
}

func NewPendingGate[T any](kind string, find PendingFinder[T]) *PendingGate[T] {
	return &PendingGate[T]{kind: kind, find: find}
}

// FindPending возвращает текущую неразобранную заявку студента
func (g *PendingGate[T]) FindPending(ctx context.Context, studentID uuid.UUID) (*T, error) {
	pending, err := g.find(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("find pending %s request: %w", g.kind, err)
	}
	return pending, nil
}

// CanCreateRequest проверяет, может ли студент создать новую заявку
func (g *PendingGate[T]) CanCreateRequest(ctx context.Context, studentID uuid.UUID) (bool, error) {
	pending, err := g.FindPending(ctx, studentID)
	if err != nil {
		return false, err
	}
	return pending == nil, nil
}

// Ensure возвращает PendingRequestExistsError с существующей заявкой, если она есть
func (g *PendingGate[T]) Ensure(ctx context.Context, studentID uuid.UUID) error {
	pending, err := g.FindPending(ctx, studentID)
	if err != nil {
		return err
	}
	if pending != nil {
		return &PendingRequestExistsError{Kind: g.kind, Pending: pending}
	}
	return nil
}

// Kind возвращает тип заявок, которые охраняет правило
func (g *PendingGate[T]) Kind() string {
	return g.kind
}
