package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/settings"
	"github.com/mobistock/mobistock/internal/shared"
	"github.com/mobistock/mobistock/internal/store"
	"github.com/mobistock/mobistock/internal/store/memory"
)

func newTestRunner(t *testing.T) (*Runner, *memory.Store, *settings.MemorySettings) {
	t.Helper()
	st := memory.New()
	set := settings.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(st, set, logger), st, set
}

func TestRunnerFreshInstallRecordsVersionOnly(t *testing.T) {
	runner, _, set := newTestRunner(t)
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx, "2.3.6"))

	version, err := set.Get(ctx, settings.KeyAppVersion)
	require.NoError(t, err)
	require.Equal(t, "2.3.6", version)

	// No migration ran: the initialisation flag was never backfilled.
	flag, err := set.Get(ctx, settings.KeySyncIsInitialised)
	require.NoError(t, err)
	require.Empty(t, flag)
}

func TestRunnerRunsPendingStepsOnce(t *testing.T) {
	runner, _, set := newTestRunner(t)
	ctx := context.Background()

	require.NoError(t, set.Set(ctx, settings.KeyAppVersion, "1.0.0"))
	require.NoError(t, set.Set(ctx, settings.KeySyncURL, "https://sync.example.com"))
	require.NoError(t, set.Set(ctx, settings.KeySupplyingStoreNameID, "supplier-name"))

	require.NoError(t, runner.Run(ctx, "2.3.6"))

	flag, err := set.Get(ctx, settings.KeySyncIsInitialised)
	require.NoError(t, err)
	require.Equal(t, "true", flag)

	// A second run from the recorded version is a no-op.
	require.NoError(t, set.Delete(ctx, settings.KeySyncIsInitialised))
	require.NoError(t, runner.Run(ctx, "2.3.6"))
	flag, err = set.Get(ctx, settings.KeySyncIsInitialised)
	require.NoError(t, err)
	require.Empty(t, flag)
}

func TestRunnerDiscoversLegacyVersionRecord(t *testing.T) {
	runner, st, set := newTestRunner(t)
	ctx := context.Background()

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		return tx.Upsert(&record.Setting{ID: "AppVersion", Value: "1.0.0"})
	}))
	require.NoError(t, set.Set(ctx, settings.KeySyncURL, "https://sync.example.com"))

	require.NoError(t, runner.Run(ctx, "1.0.30"))

	flag, err := set.Get(ctx, settings.KeySyncIsInitialised)
	require.NoError(t, err)
	require.Equal(t, "true", flag)

	// The legacy record moved into the settings store.
	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		_, err := tx.Get(record.KindSetting, "AppVersion")
		require.ErrorIs(t, err, shared.ErrNotFound)
		return nil
	}))
	version, err := set.Get(ctx, settings.KeyAppVersion)
	require.NoError(t, err)
	require.Equal(t, "1.0.30", version)
}

// brokenStore fails every unit of work, standing in for an unreadable main
// store.
type brokenStore struct {
	err error
}

func (s brokenStore) RunAtomic(_ context.Context, _ func(store.Tx) error) error {
	return s.err
}

func TestRunnerToleratesUnreadableLegacyStore(t *testing.T) {
	set := settings.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := NewRunner(brokenStore{err: errors.New("legacy store unreadable")}, set, logger)
	ctx := context.Background()

	// No recorded version anywhere and the fallback location cannot be read:
	// the install proceeds as fresh rather than failing startup.
	require.NoError(t, runner.Run(ctx, "2.3.6"))

	version, err := set.Get(ctx, settings.KeyAppVersion)
	require.NoError(t, err)
	require.Equal(t, "2.3.6", version)
}

func TestRunnerStepFailureAbortsWithoutAdvancing(t *testing.T) {
	runner, _, set := newTestRunner(t)
	ctx := context.Background()

	// 2.0.0-rc0 needs the supplying store setting; leaving it unset fails.
	require.NoError(t, set.Set(ctx, settings.KeyAppVersion, "1.0.30"))

	err := runner.Run(ctx, "2.0.0")
	require.Error(t, err)
	require.ErrorIs(t, err, shared.ErrMigrationFailure)

	version, getErr := set.Get(ctx, settings.KeyAppVersion)
	require.NoError(t, getErr)
	require.Equal(t, "1.0.30", version)
}

func TestRunnerBackfillsRequisitionSupplier(t *testing.T) {
	runner, st, set := newTestRunner(t)
	ctx := context.Background()

	require.NoError(t, set.Set(ctx, settings.KeyAppVersion, "1.0.30"))
	require.NoError(t, set.Set(ctx, settings.KeySupplyingStoreNameID, "supplier-name"))

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		if err := tx.Upsert(&record.Requisition{
			ID:     "req1",
			Type:   record.RequisitionTypeRequest,
			Status: record.StatusNew,
		}); err != nil {
			return err
		}
		if err := tx.Upsert(&record.Requisition{
			ID:     "req2",
			Type:   record.RequisitionTypeRequest,
			Status: record.StatusFinalised,
		}); err != nil {
			return err
		}
		return tx.Upsert(&record.Requisition{
			ID:               "req3",
			Type:             record.RequisitionTypeResponse,
			OtherStoreNameID: "someone",
		})
	}))

	require.NoError(t, runner.Run(ctx, "2.0.0"))

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		first, err := tx.Get(record.KindRequisition, "req1")
		require.NoError(t, err)
		req1 := first.(*record.Requisition)
		require.Equal(t, "supplier-name", req1.OtherStoreNameID)
		require.Equal(t, record.StatusSuggested, req1.Status)

		second, err := tx.Get(record.KindRequisition, "req2")
		require.NoError(t, err)
		req2 := second.(*record.Requisition)
		require.Equal(t, "supplier-name", req2.OtherStoreNameID)
		require.Equal(t, record.StatusFinalised, req2.Status)

		third, err := tx.Get(record.KindRequisition, "req3")
		require.NoError(t, err)
		require.Equal(t, "someone", third.(*record.Requisition).OtherStoreNameID)
		return nil
	}))
}

func TestRunnerRemovesDuplicateAdjustmentEntries(t *testing.T) {
	runner, st, set := newTestRunner(t)
	ctx := context.Background()

	require.NoError(t, set.Set(ctx, settings.KeyAppVersion, "2.1.0-rc9"))

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		if err := tx.Upsert(&record.Transaction{
			ID:          "adj1",
			Type:        record.TransactionTypeInventoryAdjustment,
			Status:      record.StatusConfirmed,
			ItemLineIDs: []string{"line1"},
		}); err != nil {
			return err
		}
		if err := tx.Upsert(&record.TransactionItem{
			ID:            "line1",
			TransactionID: "adj1",
			ItemID:        "item1",
			BatchIDs:      []string{"entry1", "entry2", "entry3"},
		}); err != nil {
			return err
		}
		for _, entry := range []*record.TransactionBatch{
			{ID: "entry1", TransactionID: "adj1", ItemBatchID: "batch1", NumberOfPacks: 4},
			{ID: "entry2", TransactionID: "adj1", ItemBatchID: "batch1", NumberOfPacks: 4},
			{ID: "entry3", TransactionID: "adj1", ItemBatchID: "batch2", NumberOfPacks: 1},
		} {
			if err := tx.Upsert(entry); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, runner.Run(ctx, "2.1.0-rc10"))

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		line, err := tx.Get(record.KindTransactionItem, "line1")
		require.NoError(t, err)
		require.Equal(t, []string{"entry1", "entry3"}, line.(*record.TransactionItem).BatchIDs)

		_, err = tx.Get(record.KindTransactionBatch, "entry2")
		require.ErrorIs(t, err, shared.ErrNotFound)
		return nil
	}))
}

func TestRunnerBackfillsItemBatchSuppliers(t *testing.T) {
	runner, st, set := newTestRunner(t)
	ctx := context.Background()

	require.NoError(t, set.Set(ctx, settings.KeyAppVersion, "2.3.5"))

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		if err := tx.Upsert(&record.Transaction{
			ID:           "si1",
			Type:         record.TransactionTypeSupplierInvoice,
			Status:       record.StatusFinalised,
			OtherPartyID: "supplier1",
		}); err != nil {
			return err
		}
		if err := tx.Upsert(&record.TransactionBatch{
			ID:            "entry1",
			TransactionID: "si1",
			ItemBatchID:   "batch1",
		}); err != nil {
			return err
		}
		return tx.Upsert(&record.ItemBatch{
			ID:                  "batch1",
			ItemID:              "item1",
			TransactionBatchIDs: []string{"entry1"},
		})
	}))

	require.NoError(t, runner.Run(ctx, "2.3.6"))

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		batch, err := tx.Get(record.KindItemBatch, "batch1")
		require.NoError(t, err)
		require.Equal(t, "supplier1", batch.(*record.ItemBatch).SupplierID)
		return nil
	}))
}
