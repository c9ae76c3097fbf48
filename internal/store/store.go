// Package store defines the single I/O boundary of the data consistency
// core. Sync integration, migration and allocation all mutate the normalized
// store through Tx primitives inside one RunAtomic unit; readers observe a
// consistent snapshot after each committed unit.
package store

import (
	"context"

	"github.com/mobistock/mobistock/internal/record"
)

// Tx exposes the store primitives available inside an atomic unit. No two
// units interleave their writes.
type Tx interface {
	// Get returns the record or shared.ErrNotFound.
	Get(kind record.Kind, id string) (record.Record, error)
	// GetOrCreate resolves a foreign reference by external identifier,
	// creating a placeholder when absent. A blank id resolves to nil with no
	// error: an absent foreign key is not a reference.
	GetOrCreate(kind record.Kind, id string) (record.Record, error)
	// Upsert writes the record keyed by its kind and identifier.
	Upsert(rec record.Record) error
	// Delete removes the record. Deleting an absent record is a no-op.
	Delete(kind record.Kind, id string) error
	// Query returns a snapshot of every record of the kind. The snapshot does
	// not auto-update; callers re-query after each committed unit.
	Query(kind record.Kind) ([]record.Record, error)
}

// Store runs atomic units of work with all-or-nothing visibility.
type Store interface {
	RunAtomic(ctx context.Context, fn func(Tx) error) error
}
