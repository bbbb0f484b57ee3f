package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Частичный уникальный индекс: не более одной заявки в статусе requested на студента
const guidancePendingConstraint = "guidance_sessions_one_pending_per_student"

const guidanceSelect = `
	SELECT g.id, g.student_id, g.supervisor_id, g.status, g.requested_date, g.approved_date,
	       g.duration_minutes, g.student_notes, g.session_summary, g.action_items,
	       g.supervisor_message, g.cancel_reason, g.milestone_id, g.document,
	       g.created_at, g.updated_at, st.name, sv.name
`

const guidanceJoins = `
	JOIN users st ON st.id = g.student_id
	JOIN users sv ON sv.id = g.supervisor_id
`

type GuidanceRepository struct {
	db base.DB
}

func NewGuidanceRepository(db base.DB) *GuidanceRepository {
	return &GuidanceRepository{db: db}
}

func scanGuidance(row base.Scanner) (*model.GuidanceSession, error) {
	var g model.GuidanceSession
	err := row.Scan(
		&g.ID,
		&g.StudentID,
		&g.SupervisorID,
		&g.Status,
		&g.RequestedDate,
		&g.ApprovedDate,
		&g.DurationMinutes,
		&g.StudentNotes,
		&g.SessionSummary,
		&g.ActionItems,
		&g.SupervisorMessage,
		&g.CancelReason,
		&g.MilestoneID,
		&g.Document,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.StudentName,
		&g.SupervisorName,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func collectGuidance(rows pgx.Rows) ([]*model.GuidanceSession, error) {
	defer rows.Close()

	var sessions []*model.GuidanceSession
	for rows.Next() {
		g, err := scanGuidance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guidance: %w", err)
		}
		sessions = append(sessions, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guidance: %w", err)
	}

	return sessions, nil
}

// Create создаёт заявку; ErrPendingExists если у студента уже есть заявка requested
func (r *GuidanceRepository) Create(ctx context.Context, g *model.GuidanceSession) error {
	query := `
		INSERT INTO guidance_sessions (
			id, student_id, supervisor_id, status, requested_date, duration_minutes,
			student_notes, milestone_id, document
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}

	err := r.db.QueryRow(
		ctx, query,
		g.ID,
		g.StudentID,
		g.SupervisorID,
		g.Status,
		g.RequestedDate,
		g.DurationMinutes,
		g.StudentNotes,
		g.MilestoneID,
		g.Document,
	).Scan(&g.CreatedAt, &g.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, guidancePendingConstraint) {
			return ErrPendingExists
		}
		return fmt.Errorf("create guidance: %w", err)
	}

	return nil
}

// GetByID получает сессию по ID
func (r *GuidanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.GuidanceSession, error) {
	query := guidanceSelect + `FROM guidance_sessions g` + guidanceJoins + `WHERE g.id = $1`

	g, err := scanGuidance(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get guidance: %w", err)
	}
	return g, nil
}

// FindPendingByStudent заявка студента в статусе requested (у любого руководителя)
func (r *GuidanceRepository) FindPendingByStudent(ctx context.Context, studentID uuid.UUID) (*model.GuidanceSession, error) {
	query := guidanceSelect + `FROM guidance_sessions g` + guidanceJoins + `
		WHERE g.student_id = $1 AND g.status = $2
		LIMIT 1
	`

	g, err := scanGuidance(r.db.QueryRow(ctx, query, studentID, model.GuidanceStatusRequested))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending guidance: %w", err)
	}
	return g, nil
}

// ListByStudent история сессий студента, новые первыми
func (r *GuidanceRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, status *model.GuidanceStatus) ([]*model.GuidanceSession, error) {
	return r.listBy(ctx, "g.student_id", studentID, status)
}

// ListBySupervisor сессии руководителя, новые первыми
func (r *GuidanceRepository) ListBySupervisor(ctx context.Context, supervisorID uuid.UUID, status *model.GuidanceStatus) ([]*model.GuidanceSession, error) {
	return r.listBy(ctx, "g.supervisor_id", supervisorID, status)
}

func (r *GuidanceRepository) listBy(ctx context.Context, column string, userID uuid.UUID, status *model.GuidanceStatus) ([]*model.GuidanceSession, error) {
	query := guidanceSelect + `FROM guidance_sessions g` + guidanceJoins + `
		WHERE ` + column + ` = $1 AND ($2::text IS NULL OR g.status = $2)
		ORDER BY g.created_at DESC, g.id
	`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.db.Query(ctx, query, userID, statusArg)
	if err != nil {
		return nil, fmt.Errorf("list guidance: %w", err)
	}
	return collectGuidance(rows)
}

// ListUpcoming одобренные встречи начиная с from, ближайшие первыми
func (r *GuidanceRepository) ListUpcoming(ctx context.Context, userID uuid.UUID, role model.Role, from time.Time) ([]*model.GuidanceSession, error) {
	var column string
	switch role {
	case model.RoleStudent:
		column = "g.student_id"
	case model.RoleSupervisor:
		column = "g.supervisor_id"
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	query := guidanceSelect + `FROM guidance_sessions g` + guidanceJoins + `
		WHERE ` + column + ` = $1 AND g.status = $2 AND g.approved_date >= $3
		ORDER BY g.approved_date ASC, g.id
	`

	rows, err := r.db.Query(ctx, query, userID, model.GuidanceStatusAccepted, from)
	if err != nil {
		return nil, fmt.Errorf("list upcoming guidance: %w", err)
	}
	return collectGuidance(rows)
}

// BusySlots занятые интервалы руководителя: заявки requested и accepted, начинающиеся в окне [from, to]
func (r *GuidanceRepository) BusySlots(ctx context.Context, supervisorID uuid.UUID, from, to time.Time) ([]model.BusySlot, error) {
	query := `
		SELECT g.id, COALESCE(g.approved_date, g.requested_date) AS start_at, g.duration_minutes, st.name
		FROM guidance_sessions g
		JOIN users st ON st.id = g.student_id
		WHERE g.supervisor_id = $1
		  AND g.status IN ($2, $3)
		  AND COALESCE(g.approved_date, g.requested_date) BETWEEN $4 AND $5
		ORDER BY start_at, g.id
	`

	rows, err := r.db.Query(ctx, query,
		supervisorID,
		model.GuidanceStatusRequested,
		model.GuidanceStatusAccepted,
		from,
		to,
	)
	if err != nil {
		return nil, fmt.Errorf("get busy slots: %w", err)
	}
	defer rows.Close()

	var slots []model.BusySlot
	for rows.Next() {
		var (
			id       uuid.UUID
			start    time.Time
			duration int
			name     string
		)
		if err := rows.Scan(&id, &start, &duration, &name); err != nil {
			return nil, fmt.Errorf("scan busy slot: %w", err)
		}
		slots = append(slots, model.BusySlot{
			Start:       start,
			End:         start.Add(time.Duration(duration) * time.Minute),
			StudentName: name,
			SessionID:   &id,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate busy slots: %w", err)
	}

	return slots, nil
}

// ApplyTransition compare-and-set по статусу; nil, nil если статус уже не from
func (r *GuidanceRepository) ApplyTransition(ctx context.Context, id uuid.UUID, from, to model.GuidanceStatus, patch model.GuidancePatch) (*model.GuidanceSession, error) {
	query := `
		WITH g AS (
			UPDATE guidance_sessions
			SET status = $3,
			    requested_date = COALESCE($4, requested_date),
			    approved_date = COALESCE($5, approved_date),
			    student_notes = COALESCE($6, student_notes),
			    session_summary = COALESCE($7, session_summary),
			    action_items = COALESCE($8, action_items),
			    supervisor_message = COALESCE($9, supervisor_message),
			    cancel_reason = COALESCE($10, cancel_reason),
			    updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING *
		)
	` + guidanceSelect + `FROM g` + guidanceJoins

	g, err := scanGuidance(r.db.QueryRow(ctx, query,
		id,
		from,
		to,
		patch.RequestedDate,
		patch.ApprovedDate,
		patch.StudentNotes,
		patch.SessionSummary,
		patch.ActionItems,
		patch.SupervisorMessage,
		patch.CancelReason,
	))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Статус успел измениться
		}
		if isUniqueViolation(err, guidancePendingConstraint) {
			return nil, ErrPendingExists
		}
		return nil, fmt.Errorf("apply guidance transition: %w", err)
	}

	return g, nil
}
