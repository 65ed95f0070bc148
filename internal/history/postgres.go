package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresBackend stores run records in a single requests table. The result
// column holds the final pipeline state as jsonb.
type PostgresBackend struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresBackend(dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open postgres: %w", err)
	}
	return &PostgresBackend{db: db}, nil
}

func (b *PostgresBackend) ensureSchema(ctx context.Context) error {
	b.schemaOnce.Do(func() {
		_, b.schemaErr = b.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS requests (
				id           TEXT PRIMARY KEY,
				user_input   TEXT NOT NULL,
				status       TEXT NOT NULL,
				created_at   TIMESTAMPTZ NOT NULL,
				completed_at TIMESTAMPTZ,
				result       JSONB
			)`)
	})
	return b.schemaErr
}

func (b *PostgresBackend) Put(ctx context.Context, rec Record) error {
	if err := b.ensureSchema(ctx); err != nil {
		return err
	}
	var resultJSON []byte
	if rec.Result != nil {
		raw, err := json.Marshal(rec.Result)
		if err != nil {
			return fmt.Errorf("history: marshal result: %w", err)
		}
		resultJSON = raw
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO requests (id, user_input, status, created_at, completed_at, result)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			result = EXCLUDED.result`,
		rec.ID, rec.UserInput, rec.Status, rec.CreatedAt, rec.CompletedAt, resultJSON)
	return err
}

func (b *PostgresBackend) Get(ctx context.Context, id string) (Record, error) {
	if err := b.ensureSchema(ctx); err != nil {
		return Record{}, err
	}
	row := b.db.QueryRowContext(ctx, `
		SELECT id, user_input, status, created_at, completed_at, result
		FROM requests WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (b *PostgresBackend) List(ctx context.Context, limit int) ([]Record, error) {
	if err := b.ensureSchema(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, user_input, status, created_at, completed_at, result
		FROM requests ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec       Record
		completed sql.NullTime
		rawResult []byte
	)
	if err := row.Scan(&rec.ID, &rec.UserInput, &rec.Status, &rec.CreatedAt, &completed, &rawResult); err != nil {
		return Record{}, err
	}
	if completed.Valid {
		t := completed.Time
		rec.CompletedAt = &t
	}
	if len(rawResult) > 0 {
		if err := json.Unmarshal(rawResult, &rec.Result); err != nil {
			return Record{}, fmt.Errorf("history: decode result: %w", err)
		}
	}
	return rec, nil
}
