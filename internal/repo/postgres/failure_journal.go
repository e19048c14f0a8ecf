package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gunvolt24/kafka_transformer/internal/domain"
	"github.com/Gunvolt24/kafka_transformer/internal/ports"
)

// Проверка, что FailureJournal удовлетворяет интерфейсу ports.FailureJournal.
var _ ports.FailureJournal = (*FailureJournal)(nil)

// FailureJournal — журнал ошибок записей в Postgres (таблица record_failures).
type FailureJournal struct {
	pool *pgxpool.Pool
}

func NewFailureJournal(pool *pgxpool.Pool) *FailureJournal { return &FailureJournal{pool: pool} }

// Record — идемпотентный upsert по (topic, partition, offset, stage):
// повторная доставка обновляет текст ошибки, время и счётчик попыток.
func (r *FailureJournal) Record(ctx context.Context, f domain.Failure) error {
	if f.Topic == "" || f.Stage == "" {
		return fmt.Errorf("failure: topic and stage are required")
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.At.IsZero() {
		f.At = time.Now()
	}

	if _, err := r.pool.Exec(ctx, `
		INSERT INTO record_failures (
			id, stage, topic, kafka_partition, kafka_offset, record_key, error, attempts, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8)
		ON CONFLICT (topic, kafka_partition, kafka_offset, stage) DO UPDATE SET
			error = EXCLUDED.error,
			record_key = EXCLUDED.record_key,
			occurred_at = EXCLUDED.occurred_at,
			attempts = record_failures.attempts + 1
	`, f.ID, f.Stage, f.Topic, f.Partition, f.Offset, f.Key, f.Error, f.At.UTC()); err != nil {
		return fmt.Errorf("upsert failure: %w", err)
	}
	return nil
}

// Recent — постраничный список ошибок, новые первыми.
func (r *FailureJournal) Recent(ctx context.Context, limit, offset int) ([]domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, stage, topic, kafka_partition, kafka_offset, record_key, error, attempts, occurred_at
		FROM record_failures
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select failures: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Failure, 0, limit)
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(
			&f.ID, &f.Stage, &f.Topic, &f.Partition, &f.Offset, &f.Key, &f.Error, &f.Attempts, &f.At,
		); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failure rows: %w", err)
	}
	return out, nil
}
