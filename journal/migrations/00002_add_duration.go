package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func init() {
	goose.AddMigrationContext(upAddDuration, downAddDuration)
}

func upAddDuration(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`ALTER TABLE query_log ADD COLUMN duration_us INTEGER NOT NULL DEFAULT 0;`)
	if err != nil {
		return fmt.Errorf("adding duration column : %w", err)
	}
	return nil
}

func downAddDuration(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`ALTER TABLE query_log DROP COLUMN duration_us;`)
	if err != nil {
		return fmt.Errorf("dropping duration column : %w", err)
	}
	return nil
}
