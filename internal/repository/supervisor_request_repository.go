package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const supervisorRequestPendingConstraint = "supervisor_requests_one_pending_per_student"

const supervisorRequestSelect = `
	SELECT r.id, r.student_id, r.supervisor_id, r.thesis_id, r.status, r.message,
	       r.response_message, r.created_at, r.updated_at, sv.name, st.name
`

const supervisorRequestJoins = `
	JOIN users sv ON sv.id = r.supervisor_id
	JOIN users st ON st.id = r.student_id
`

type SupervisorRequestRepository struct {
	db base.DB
}

func NewSupervisorRequestRepository(db base.DB) *SupervisorRequestRepository {
	return &SupervisorRequestRepository{db: db}
}

func scanSupervisorRequest(row base.Scanner) (*model.SupervisorRequest, error) {
	var req model.SupervisorRequest
	err := row.Scan(
		&req.ID,
		&req.StudentID,
		&req.SupervisorID,
		&req.ThesisID,
		&req.Status,
		&req.Message,
		&req.ResponseMessage,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.SupervisorName,
		&req.StudentName,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create создаёт заявку; ErrPendingExists если у студента уже есть неразобранная
func (r *SupervisorRequestRepository) Create(ctx context.Context, req *model.SupervisorRequest) error {
	query := `
		INSERT INTO supervisor_requests (id, student_id, supervisor_id, thesis_id, status, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		req.ID,
		req.StudentID,
		req.SupervisorID,
		req.ThesisID,
		req.Status,
		req.Message,
	).Scan(&req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, supervisorRequestPendingConstraint) {
			return ErrPendingExists
		}
		return fmt.Errorf("create supervisor request: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *SupervisorRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SupervisorRequest, error) {
	query := supervisorRequestSelect + `FROM supervisor_requests r` + supervisorRequestJoins + `WHERE r.id = $1`

	req, err := scanSupervisorRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supervisor request: %w", err)
	}
	return req, nil
}

// FindPendingByStudent неразобранная заявка студента
func (r *SupervisorRequestRepository) FindPendingByStudent(ctx context.Context, studentID uuid.UUID) (*model.SupervisorRequest, error) {
	query := supervisorRequestSelect + `FROM supervisor_requests r` + supervisorRequestJoins + `
		WHERE r.student_id = $1 AND r.status = $2
		LIMIT 1
	`

	req, err := scanSupervisorRequest(r.db.QueryRow(ctx, query, studentID, model.SupervisorRequestRequested))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending supervisor request: %w", err)
	}
	return req, nil
}

// ListByStudent заявки студента, новые первыми
func (r *SupervisorRequestRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.SupervisorRequest, error) {
	return r.listBy(ctx, "r.student_id", studentID)
}

// ListBySupervisor заявки, адресованные руководителю, новые первыми
func (r *SupervisorRequestRepository) ListBySupervisor(ctx context.Context, supervisorID uuid.UUID) ([]*model.SupervisorRequest, error) {
	return r.listBy(ctx, "r.supervisor_id", supervisorID)
}

func (r *SupervisorRequestRepository) listBy(ctx context.Context, column string, userID uuid.UUID) ([]*model.SupervisorRequest, error) {
	query := supervisorRequestSelect + `FROM supervisor_requests r` + supervisorRequestJoins + `
		WHERE ` + column + ` = $1
		ORDER BY r.created_at DESC, r.id
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list supervisor requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.SupervisorRequest
	for rows.Next() {
		req, err := scanSupervisorRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan supervisor request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate supervisor requests: %w", err)
	}

	return requests, nil
}

// UpdateStatus переводит заявку из requested в to; nil, nil если заявка уже разобрана
func (r *SupervisorRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to model.SupervisorRequestStatus, response string) (*model.SupervisorRequest, error) {
	return resolveSupervisorRequest(ctx, r.db, id, to, response)
}

// ApproveAndAssign одобряет заявку и назначает второго руководителя в одной транзакции.
// nil, nil если заявка уже разобрана или у работы уже есть второй руководитель.
func (r *SupervisorRequestRepository) ApproveAndAssign(ctx context.Context, id uuid.UUID, response string) (*model.SupervisorRequest, error) {
	assignQuery := `
		UPDATE theses
		SET second_supervisor_id = $2
		WHERE id = $1 AND second_supervisor_id IS NULL AND supervisor_id <> $2
	`

	var approved *model.SupervisorRequest
	err := base.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		req, err := resolveSupervisorRequest(ctx, tx, id, model.SupervisorRequestApproved, response)
		if err != nil || req == nil {
			return err
		}

		result, err := tx.Exec(ctx, assignQuery, req.ThesisID, req.SupervisorID)
		if err != nil {
			return fmt.Errorf("assign second supervisor: %w", err)
		}
		if result.RowsAffected() == 0 {
			return errSecondSupervisorTaken
		}

		approved = req
		return nil
	})
	if errors.Is(err, errSecondSupervisorTaken) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return approved, nil
}

var errSecondSupervisorTaken = errors.New("second supervisor already assigned")

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func resolveSupervisorRequest(ctx context.Context, q rowQuerier, id uuid.UUID, to model.SupervisorRequestStatus, response string) (*model.SupervisorRequest, error) {
	query := `
		WITH r AS (
			UPDATE supervisor_requests
			SET status = $3, response_message = $4, updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING *
		)
	` + supervisorRequestSelect + `FROM r` + supervisorRequestJoins

	req, err := scanSupervisorRequest(q.QueryRow(ctx, query, id, model.SupervisorRequestRequested, to, response))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("update supervisor request: %w", err)
	}
	return req, nil
}
