package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRecord is one staged domain event. Records are written in the
// same transaction as the state change they describe and drained to the
// broker afterwards, so an event is never emitted for a rolled-back
// write.
type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	DedupeKey     string
}

func (r *Repository) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
	`, record.ID, record.AggregateType, record.AggregateID, record.EventType, record.Payload, record.DedupeKey)
	return err
}

// GetUnpublishedOutbox reads the pending backlog without locking it.
// Draining goes through DrainOutbox; this is for inspection.
func (r *Repository) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return scanOutbox(rows)
}

// DrainOutbox claims up to limit pending records, hands each to publish,
// and marks the ones that went out. The claim, the publishes, and the
// marks all happen inside one transaction: SKIP LOCKED only keeps
// concurrent drainers off each other's batch while the claiming
// transaction is still open. A record whose publish fails stays NEW and
// is picked up on a later pass.
func (r *Repository) DrainOutbox(ctx context.Context, limit int, publish func(OutboxRecord) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return err
	}
	records, err := scanOutbox(rows)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if err := publish(rec); err != nil {
			continue
		}
		_, err = tx.Exec(ctx, `
			UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
		`, rec.ID, r.clock.Now())
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanOutbox(rows pgx.Rows) ([]OutboxRecord, error) {
	defer rows.Close()
	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
