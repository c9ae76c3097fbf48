package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/shared"
	"github.com/mobistock/mobistock/internal/store"
)

func TestRunAtomicRollsBackOnError(t *testing.T) {
	st := New()
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		return tx.Upsert(&record.Item{ID: "item1", Name: "Amoxicillin"})
	}))

	err := st.RunAtomic(ctx, func(tx store.Tx) error {
		if err := tx.Upsert(&record.Item{ID: "item2"}); err != nil {
			return err
		}
		if err := tx.Delete(record.KindItem, "item1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The failed unit left no trace.
	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		_, err := tx.Get(record.KindItem, "item1")
		require.NoError(t, err)
		_, err = tx.Get(record.KindItem, "item2")
		require.ErrorIs(t, err, shared.ErrNotFound)
		return nil
	}))
}

func TestGetReturnsIsolatedClones(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		return tx.Upsert(&record.Item{ID: "item1", BatchIDs: []string{"b1"}})
	}))

	// Mutating a read copy must not leak into the store without an Upsert.
	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		rec, err := tx.Get(record.KindItem, "item1")
		require.NoError(t, err)
		item := rec.(*record.Item)
		item.Name = "changed"
		item.BatchIDs = append(item.BatchIDs, "b2")
		return nil
	}))

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		rec, err := tx.Get(record.KindItem, "item1")
		require.NoError(t, err)
		item := rec.(*record.Item)
		require.Empty(t, item.Name)
		require.Equal(t, []string{"b1"}, item.BatchIDs)
		return nil
	}))
}

func TestUpsertStoresAClone(t *testing.T) {
	st := New()
	ctx := context.Background()

	item := &record.Item{ID: "item1", BatchIDs: []string{"b1"}}
	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		return tx.Upsert(item)
	}))

	// Mutations after the upsert are invisible.
	item.BatchIDs[0] = "poisoned"

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		rec, err := tx.Get(record.KindItem, "item1")
		require.NoError(t, err)
		require.Equal(t, []string{"b1"}, rec.(*record.Item).BatchIDs)
		return nil
	}))
}

func TestGetOrCreate(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		// A blank id resolves to nothing rather than an error.
		rec, err := tx.GetOrCreate(record.KindItem, "")
		require.NoError(t, err)
		require.Nil(t, rec)

		// A missing id mints a placeholder that persists in the unit.
		created, err := tx.GetOrCreate(record.KindItem, "item1")
		require.NoError(t, err)
		require.Equal(t, "item1", created.RecordID())

		fetched, err := tx.Get(record.KindItem, "item1")
		require.NoError(t, err)
		require.Equal(t, record.KindItem, fetched.RecordKind())

		// An existing record comes back as is.
		require.NoError(t, tx.Upsert(&record.Item{ID: "item2", Name: "Paracetamol"}))
		existing, err := tx.GetOrCreate(record.KindItem, "item2")
		require.NoError(t, err)
		require.Equal(t, "Paracetamol", existing.(*record.Item).Name)
		return nil
	}))
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	st := New()
	require.NoError(t, st.RunAtomic(context.Background(), func(tx store.Tx) error {
		return tx.Delete(record.KindItem, "ghost")
	}))
}

func TestQueryReturnsSortedSnapshot(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		for _, id := range []string{"charlie", "alpha", "bravo"} {
			if err := tx.Upsert(&record.Item{ID: id}); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		records, err := tx.Query(record.KindItem)
		require.NoError(t, err)
		require.Len(t, records, 3)
		require.Equal(t, "alpha", records[0].RecordID())
		require.Equal(t, "bravo", records[1].RecordID())
		require.Equal(t, "charlie", records[2].RecordID())

		empty, err := tx.Query(record.KindName)
		require.NoError(t, err)
		require.Empty(t, empty)
		return nil
	}))
}

func TestRunAtomicHonoursCancelledContext(t *testing.T) {
	st := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.RunAtomic(ctx, func(tx store.Tx) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
