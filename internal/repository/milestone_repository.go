package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const milestoneColumns = `id, thesis_id, title, order_index, status, progress_percentage, student_notes, supervisor_feedback, updated_at`

type MilestoneRepository struct {
	db base.DB
}

func NewMilestoneRepository(db base.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

func scanMilestone(row base.Scanner) (*model.Milestone, error) {
	var m model.Milestone
	err := row.Scan(
		&m.ID,
		&m.ThesisID,
		&m.Title,
		&m.OrderIndex,
		&m.Status,
		&m.ProgressPercentage,
		&m.StudentNotes,
		&m.SupervisorFeedback,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByThesis этапы работы по порядку
func (r *MilestoneRepository) ListByThesis(ctx context.Context, thesisID uuid.UUID) ([]model.Milestone, error) {
	query := `
		SELECT ` + milestoneColumns + `
		FROM milestones
		WHERE thesis_id = $1
		ORDER BY order_index, id
	`

	rows, err := r.db.Query(ctx, query, thesisID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var milestones []model.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		milestones = append(milestones, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}

	return milestones, nil
}

// GetByID получает этап по ID
func (r *MilestoneRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = $1`

	m, err := scanMilestone(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get milestone: %w", err)
	}
	return m, nil
}

// CreateBatch создаёт набор этапов в одной транзакции
func (r *MilestoneRepository) CreateBatch(ctx context.Context, milestones []model.Milestone) error {
	query := `
		INSERT INTO milestones (id, thesis_id, title, order_index, status, progress_percentage, student_notes, supervisor_feedback, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	return base.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, m := range milestones {
			_, err := tx.Exec(ctx, query,
				m.ID,
				m.ThesisID,
				m.Title,
				m.OrderIndex,
				m.Status,
				m.ProgressPercentage,
				m.StudentNotes,
				m.SupervisorFeedback,
				m.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("create milestone %q: %w", m.Title, err)
			}
		}
		return nil
	})
}

// Update сохраняет этап, если его статус всё ещё expected
func (r *MilestoneRepository) Update(ctx context.Context, m *model.Milestone, expected model.MilestoneStatus) (bool, error) {
	query := `
		UPDATE milestones
		SET status = $3, progress_percentage = $4, student_notes = $5, supervisor_feedback = $6, updated_at = $7
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query,
		m.ID,
		expected,
		m.Status,
		m.ProgressPercentage,
		m.StudentNotes,
		m.SupervisorFeedback,
		m.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update milestone: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
