package sqlite

import "database/sql"

func RunMigrations(db *sql.DB) error {
	stmts := []string{

		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			status TEXT NOT NULL,
			idempotency_key TEXT NOT NULL UNIQUE,
			provider_reference_id TEXT,
			reference_is_sentinel INTEGER NOT NULL DEFAULT 0,
			transaction_reference TEXT NOT NULL UNIQUE,
			provider TEXT NOT NULL,
			created_by TEXT NOT NULL,
			last_modified_by TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			version INTEGER NOT NULL
		);`,

		// sentinel references (local failures) may repeat; provider ids may not
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_provider_reference
			ON transactions (provider_reference_id)
			WHERE provider_reference_id IS NOT NULL AND reference_is_sentinel = 0;`,

		`CREATE INDEX IF NOT EXISTS ix_transactions_created_at
			ON transactions (created_at);`,

		`CREATE TABLE IF NOT EXISTS outbox_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload BLOB NOT NULL,
			published INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			published_at TEXT
		);`,

		`CREATE INDEX IF NOT EXISTS ix_outbox_events_unpublished
			ON outbox_events (published, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
