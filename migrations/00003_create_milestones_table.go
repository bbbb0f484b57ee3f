package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateMilestonesTable, downCreateMilestonesTable)
}

func upCreateMilestonesTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE milestones (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			thesis_id UUID NOT NULL REFERENCES theses(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			order_index INT NOT NULL,
			status TEXT NOT NULL DEFAULT 'not_started'
				CHECK (status IN ('not_started', 'in_progress', 'revision_needed', 'completed')),
			progress_percentage INT NOT NULL DEFAULT 0 CHECK (progress_percentage BETWEEN 0 AND 100),
			student_notes TEXT NOT NULL DEFAULT '',
			supervisor_feedback TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		);

		CREATE INDEX idx_milestones_thesis ON milestones(thesis_id, order_index);
	`

	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}

	return nil
}

func downCreateMilestonesTable(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS milestones;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}

	return nil
}
