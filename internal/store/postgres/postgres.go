// Package postgres implements the record store on a single jsonb-documents
// table keyed by (kind, id).
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mobistock/mobistock/internal/platform/db"
	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/shared"
	"github.com/mobistock/mobistock/internal/store"
)

const uniqueViolation = "23505"

// Store persists normalized records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs the store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the records table when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS records (
	kind text NOT NULL,
	id text NOT NULL,
	doc jsonb NOT NULL,
	PRIMARY KEY (kind, id)
)`)
	if err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// RunAtomic wraps fn in a RepeatableRead transaction.
func (s *Store) RunAtomic(ctx context.Context, fn func(store.Tx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&sqlTx{ctx: ctx, tx: tx})
	})
}

type sqlTx struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *sqlTx) Get(kind record.Kind, id string) (record.Record, error) {
	var doc []byte
	err := t.tx.QueryRow(t.ctx, `SELECT doc FROM records WHERE kind=$1 AND id=$2`, string(kind), id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get %s/%s: %w", kind, id, err)
	}
	return record.Decode(kind, doc)
}

func (t *sqlTx) GetOrCreate(kind record.Kind, id string) (record.Record, error) {
	if id == "" {
		return nil, nil
	}
	rec, err := t.Get(kind, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	placeholder, err := record.New(kind, id)
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(placeholder)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode placeholder %s/%s: %w", kind, id, err)
	}
	_, err = t.tx.Exec(t.ctx, `INSERT INTO records (kind, id, doc) VALUES ($1, $2, $3)`, string(kind), id, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return t.Get(kind, id)
		}
		return nil, fmt.Errorf("postgres: create placeholder %s/%s: %w", kind, id, err)
	}
	return placeholder, nil
}

func (t *sqlTx) Upsert(rec record.Record) error {
	if rec == nil || rec.RecordID() == "" {
		return fmt.Errorf("postgres: upsert requires a record with an id")
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("postgres: encode %s/%s: %w", rec.RecordKind(), rec.RecordID(), err)
	}
	_, err = t.tx.Exec(t.ctx, `INSERT INTO records (kind, id, doc) VALUES ($1, $2, $3)
ON CONFLICT (kind, id) DO UPDATE SET doc = EXCLUDED.doc`, string(rec.RecordKind()), rec.RecordID(), doc)
	if err != nil {
		return fmt.Errorf("postgres: upsert %s/%s: %w", rec.RecordKind(), rec.RecordID(), err)
	}
	return nil
}

func (t *sqlTx) Delete(kind record.Kind, id string) error {
	_, err := t.tx.Exec(t.ctx, `DELETE FROM records WHERE kind=$1 AND id=$2`, string(kind), id)
	if err != nil {
		return fmt.Errorf("postgres: delete %s/%s: %w", kind, id, err)
	}
	return nil
}

func (t *sqlTx) Query(kind record.Kind) ([]record.Record, error) {
	rows, err := t.tx.Query(t.ctx, `SELECT doc FROM records WHERE kind=$1 ORDER BY id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s: %w", kind, err)
	}
	defer rows.Close()
	var out []record.Record
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		rec, err := record.Decode(kind, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
