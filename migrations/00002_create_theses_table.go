package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateThesesTable, downCreateThesesTable)
}

func upCreateThesesTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE theses (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			student_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			supervisor_id UUID NOT NULL REFERENCES users(id),
			second_supervisor_id UUID REFERENCES users(id),
			title TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			CHECK (second_supervisor_id IS NULL OR second_supervisor_id <> supervisor_id)
		);

		CREATE INDEX idx_theses_supervisor ON theses(supervisor_id);
		CREATE INDEX idx_theses_second_supervisor ON theses(second_supervisor_id);
	`

	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}

	return nil
}

func downCreateThesesTable(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS theses;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}

	return nil
}
