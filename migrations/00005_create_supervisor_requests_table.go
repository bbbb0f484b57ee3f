package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateSupervisorRequestsTable, downCreateSupervisorRequestsTable)
}

func upCreateSupervisorRequestsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE supervisor_requests (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			student_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			supervisor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			thesis_id UUID NOT NULL REFERENCES theses(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'requested'
				CHECK (status IN ('requested', 'approved', 'rejected', 'cancelled')),
			message TEXT NOT NULL DEFAULT '',
			response_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		);

		CREATE UNIQUE INDEX supervisor_requests_one_pending_per_student
			ON supervisor_requests(student_id) WHERE status = 'requested';
		CREATE INDEX idx_supervisor_requests_supervisor ON supervisor_requests(supervisor_id, created_at DESC);
	`

	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}

	return nil
}

func downCreateSupervisorRequestsTable(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS supervisor_requests;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}

	return nil
}
