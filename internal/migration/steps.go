package migration

import (
	"context"
	"errors"

	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/settings"
	"github.com/mobistock/mobistock/internal/shared"
	"github.com/mobistock/mobistock/internal/store"
)

// Step migrates data to one version. Steps run inside their own atomic unit
// and must be written to be safe to re-run.
type Step struct {
	Version string
	Migrate func(ctx context.Context, tx store.Tx, set settings.Settings) error
}

// Steps lists every data migration in sequential order. Each entry's Version
// is the version that step migrates to.
var Steps = []Step{
	{Version: "1.0.30", Migrate: migrateSyncInitialisedFlag},
	{Version: "2.0.0-rc0", Migrate: migrateRequisitionSupplier},
	{Version: "2.1.0-rc10", Migrate: migrateDuplicateAdjustmentBatches},
	{Version: "2.3.6", Migrate: migrateItemBatchSuppliers},
}

// migrateSyncInitialisedFlag backfills the explicit initialisation flag for
// installs that predate it, where a recorded sync URL implied a completed
// initial sync.
func migrateSyncInitialisedFlag(ctx context.Context, _ store.Tx, set settings.Settings) error {
	syncURL, err := set.Get(ctx, settings.KeySyncURL)
	if err != nil {
		return err
	}
	if syncURL == "" {
		return nil
	}
	return set.Set(ctx, settings.KeySyncIsInitialised, "true")
}

// migrateRequisitionSupplier points every request requisition without an
// other-party at the main supplying store. Requisitions that never finalised
// are reset to suggested so the new workflow picks them up.
func migrateRequisitionSupplier(ctx context.Context, tx store.Tx, set settings.Settings) error {
	supplyingStoreNameID, err := set.Get(ctx, settings.KeySupplyingStoreNameID)
	if err != nil {
		return err
	}
	if supplyingStoreNameID == "" {
		return errors.New("supplying store name id missing from settings")
	}
	if _, err := tx.GetOrCreate(record.KindName, supplyingStoreNameID); err != nil {
		return err
	}

	requisitions, err := tx.Query(record.KindRequisition)
	if err != nil {
		return err
	}
	for _, candidate := range requisitions {
		requisition := candidate.(*record.Requisition)
		if requisition.Type != record.RequisitionTypeRequest || requisition.OtherStoreNameID != "" {
			continue
		}
		requisition.OtherStoreNameID = supplyingStoreNameID
		if !requisition.IsFinalised() {
			requisition.Status = record.StatusSuggested
		}
		if err := tx.Upsert(requisition); err != nil {
			return err
		}
	}
	return nil
}

// migrateDuplicateAdjustmentBatches removes duplicate ledger entries left by
// double-finalised stocktakes. Within each line of an inventory adjustment,
// at most one entry per item batch survives; stock levels were never
// affected, only the ledger.
func migrateDuplicateAdjustmentBatches(_ context.Context, tx store.Tx, _ settings.Settings) error {
	transactions, err := tx.Query(record.KindTransaction)
	if err != nil {
		return err
	}
	for _, candidate := range transactions {
		transaction := candidate.(*record.Transaction)
		if transaction.Type != record.TransactionTypeInventoryAdjustment {
			continue
		}
		for _, lineID := range transaction.ItemLineIDs {
			if err := dedupeLineBatches(tx, lineID); err != nil {
				return err
			}
		}
	}
	return nil
}

func dedupeLineBatches(tx store.Tx, lineID string) error {
	candidate, err := tx.Get(record.KindTransactionItem, lineID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	line := candidate.(*record.TransactionItem)

	seen := make(map[string]bool, len(line.BatchIDs))
	var duplicates []string
	for _, batchID := range line.BatchIDs {
		entry, err := tx.Get(record.KindTransactionBatch, batchID)
		if err != nil {
			continue
		}
		batch := entry.(*record.TransactionBatch)
		if seen[batch.ItemBatchID] {
			duplicates = append(duplicates, batchID)
			continue
		}
		seen[batch.ItemBatchID] = true
	}
	if len(duplicates) == 0 {
		return nil
	}
	for _, batchID := range duplicates {
		line.RemoveBatch(batchID)
		if err := tx.Delete(record.KindTransactionBatch, batchID); err != nil {
			return err
		}
	}
	return tx.Upsert(line)
}

// migrateItemBatchSuppliers backfills each item batch's supplier from the
// finalised supplier invoice that introduced it. Earlier releases overwrote
// the supplier with the default supplying store on sync out.
func migrateItemBatchSuppliers(_ context.Context, tx store.Tx, _ settings.Settings) error {
	batches, err := tx.Query(record.KindItemBatch)
	if err != nil {
		return err
	}
	for _, candidate := range batches {
		batch := candidate.(*record.ItemBatch)
		if len(batch.TransactionBatchIDs) == 0 {
			continue
		}
		// There should be exactly one supplier invoice per item batch; if the
		// data holds more, the last one wins.
		var supplierID string
		for _, entryID := range batch.TransactionBatchIDs {
			entry, err := tx.Get(record.KindTransactionBatch, entryID)
			if err != nil {
				continue
			}
			transactionID := entry.(*record.TransactionBatch).TransactionID
			parent, err := tx.Get(record.KindTransaction, transactionID)
			if err != nil {
				continue
			}
			transaction := parent.(*record.Transaction)
			if transaction.Type != record.TransactionTypeSupplierInvoice || !transaction.IsFinalised() {
				continue
			}
			if transaction.OtherPartyID != "" {
				supplierID = transaction.OtherPartyID
			}
		}
		if supplierID == "" {
			continue
		}
		batch.SupplierID = supplierID
		if err := tx.Upsert(batch); err != nil {
			return err
		}
	}
	return nil
}
