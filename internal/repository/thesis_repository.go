package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository/base"
	"github.com/google/uuid"
)

const thesisColumns = `id, student_id, supervisor_id, second_supervisor_id, title, created_at`

type ThesisRepository struct {
	db base.DB
}

func NewThesisRepository(db base.DB) *ThesisRepository {
	return &ThesisRepository{db: db}
}

func scanThesis(row base.Scanner) (*model.Thesis, error) {
	var t model.Thesis
	err := row.Scan(
		&t.ID,
		&t.StudentID,
		&t.SupervisorID,
		&t.SecondSupervisorID,
		&t.Title,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create регистрирует работу студента
func (r *ThesisRepository) Create(ctx context.Context, t *model.Thesis) error {
	query := `
		INSERT INTO theses (id, student_id, supervisor_id, second_supervisor_id, title)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		t.ID,
		t.StudentID,
		t.SupervisorID,
		t.SecondSupervisorID,
		t.Title,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create thesis: %w", err)
	}

	return nil
}

// GetByID получает работу по ID
func (r *ThesisRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Thesis, error) {
	query := `SELECT ` + thesisColumns + ` FROM theses WHERE id = $1`

	t, err := scanThesis(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get thesis: %w", err)
	}
	return t, nil
}

// GetByStudent получает работу студента (у студента одна работа)
func (r *ThesisRepository) GetByStudent(ctx context.Context, studentID uuid.UUID) (*model.Thesis, error) {
	query := `SELECT ` + thesisColumns + ` FROM theses WHERE student_id = $1`

	t, err := scanThesis(r.db.QueryRow(ctx, query, studentID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get thesis by student: %w", err)
	}
	return t, nil
}

// ListBySupervisor работы, где пользователь основной или второй руководитель
func (r *ThesisRepository) ListBySupervisor(ctx context.Context, supervisorID uuid.UUID) ([]*model.Thesis, error) {
	query := `
		SELECT ` + thesisColumns + `
		FROM theses
		WHERE supervisor_id = $1 OR second_supervisor_id = $1
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.Query(ctx, query, supervisorID)
	if err != nil {
		return nil, fmt.Errorf("list theses: %w", err)
	}
	defer rows.Close()

	var theses []*model.Thesis
	for rows.Next() {
		t, err := scanThesis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thesis: %w", err)
		}
		theses = append(theses, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate theses: %w", err)
	}

	return theses, nil
}
