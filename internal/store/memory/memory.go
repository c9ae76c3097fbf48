// Package memory provides an in-memory Store used by tests and embedded
// deployments without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/shared"
	"github.com/mobistock/mobistock/internal/store"
)

// Store keeps records in a two-level map keyed by kind then id. RunAtomic
// operates on a working copy and swaps it in on success, so a failed unit
// leaves no trace.
type Store struct {
	mu   sync.Mutex
	data map[record.Kind]map[string]record.Record
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[record.Kind]map[string]record.Record)}
}

// RunAtomic executes fn against a working copy under the store lock.
func (s *Store) RunAtomic(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := make(map[record.Kind]map[string]record.Record, len(s.data))
	for kind, records := range s.data {
		inner := make(map[string]record.Record, len(records))
		for id, rec := range records {
			inner[id] = rec
		}
		working[kind] = inner
	}

	tx := &memTx{data: working}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = working
	return nil
}

type memTx struct {
	data map[record.Kind]map[string]record.Record
}

func (t *memTx) Get(kind record.Kind, id string) (record.Record, error) {
	records, ok := t.data[kind]
	if !ok {
		return nil, shared.ErrNotFound
	}
	rec, ok := records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return record.Clone(rec)
}

func (t *memTx) GetOrCreate(kind record.Kind, id string) (record.Record, error) {
	if id == "" {
		return nil, nil
	}
	rec, err := t.Get(kind, id)
	if err == nil {
		return rec, nil
	}
	if err != shared.ErrNotFound {
		return nil, err
	}
	placeholder, err := record.New(kind, id)
	if err != nil {
		return nil, err
	}
	if err := t.Upsert(placeholder); err != nil {
		return nil, err
	}
	return record.Clone(placeholder)
}

func (t *memTx) Upsert(rec record.Record) error {
	if rec == nil || rec.RecordID() == "" {
		return fmt.Errorf("memory: upsert requires a record with an id")
	}
	stored, err := record.Clone(rec)
	if err != nil {
		return err
	}
	kind := rec.RecordKind()
	if t.data[kind] == nil {
		t.data[kind] = make(map[string]record.Record)
	}
	t.data[kind][rec.RecordID()] = stored
	return nil
}

func (t *memTx) Delete(kind record.Kind, id string) error {
	if records, ok := t.data[kind]; ok {
		delete(records, id)
	}
	return nil
}

func (t *memTx) Query(kind record.Kind) ([]record.Record, error) {
	records := t.data[kind]
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		clone, err := record.Clone(records[id])
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	return out, nil
}
