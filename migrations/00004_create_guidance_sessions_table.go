package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateGuidanceSessionsTable, downCreateGuidanceSessionsTable)
}

func upCreateGuidanceSessionsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE guidance_sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			student_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			supervisor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'requested'
				CHECK (status IN ('requested', 'accepted', 'rejected', 'summary_pending', 'completed', 'cancelled')),
			requested_date TIMESTAMP WITH TIME ZONE NOT NULL,
			approved_date TIMESTAMP WITH TIME ZONE,
			duration_minutes INT NOT NULL CHECK (duration_minutes > 0),
			student_notes TEXT NOT NULL DEFAULT '',
			session_summary TEXT NOT NULL DEFAULT '',
			action_items TEXT NOT NULL DEFAULT '',
			supervisor_message TEXT NOT NULL DEFAULT '',
			cancel_reason TEXT NOT NULL DEFAULT '',
			milestone_id UUID REFERENCES milestones(id) ON DELETE SET NULL,
			document TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		);

		CREATE UNIQUE INDEX guidance_sessions_one_pending_per_student
			ON guidance_sessions(student_id) WHERE status = 'requested';
		CREATE INDEX idx_guidance_supervisor_schedule
			ON guidance_sessions(supervisor_id, status, requested_date);
		CREATE INDEX idx_guidance_student_created ON guidance_sessions(student_id, created_at DESC);
	`

	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}

	return nil
}

func downCreateGuidanceSessionsTable(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS guidance_sessions;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}

	return nil
}
