package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrPendingExists у студента уже есть заявка в статусе requested (частичный уникальный индекс)
var ErrPendingExists = errors.New("pending request already exists")

const uniqueViolation = "23505"

// isUniqueViolation проверяет нарушение уникального индекса
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
