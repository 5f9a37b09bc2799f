package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/event"
)

// fixed width so lexical order is chronological order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Save(ctx context.Context, evt OutboxEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, published, created_at)
		VALUES (?, ?, ?, 0, ?)
	`,
		evt.ID,
		string(evt.Type),
		evt.Payload,
		evt.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save outbox event %s: %w", evt.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) FindUnpublished(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_type, payload, created_at
		FROM outbox_events
		WHERE published = 0
		ORDER BY created_at, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OutboxEvent

	for rows.Next() {
		var (
			evt       OutboxEvent
			eventType string
			createdAt string
		)
		if err := rows.Scan(&evt.ID, &eventType, &evt.Payload, &createdAt); err != nil {
			return nil, err
		}

		evt.Type = event.Type(eventType)
		if evt.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("outbox event %s: bad created_at: %w", evt.ID, err)
		}
		events = append(events, evt)
	}

	return events, rows.Err()
}

func (r *SQLiteRepository) MarkPublished(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET published = 1, published_at = ?
		WHERE id = ?
	`, r.now().UTC().Format(timeLayout), id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return nil
}
