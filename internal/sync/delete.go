package sync

import (
	"errors"

	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/shared"
	"github.com/mobistock/mobistock/internal/store"
)

// deleteRecord removes the identified record together with the dependents it
// owns. Deleting a record that never arrived is a successful no-op so the
// remote can retract records this store filtered out.
func (in *Integrator) deleteRecord(tx store.Tx, kind syncKind, rec ChangeRecord) Outcome {
	switch kind {
	case syncItem:
		return in.deleteItem(tx, rec)
	case syncItemBatch:
		return in.deleteItemBatch(tx, rec)
	case syncRequisition:
		return in.deleteRequisition(tx, rec)
	case syncStocktake:
		return in.deleteStocktake(tx, rec)
	case syncTransaction:
		return in.deleteTransaction(tx, rec)
	}

	target, ok := deletableKinds[kind]
	if !ok {
		return in.skip(rec, "record kind cannot be deleted")
	}
	if err := tx.Delete(target, rec.RecordID); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

// deletableKinds maps the kinds whose deletion needs no cascade.
var deletableKinds = map[syncKind]record.Kind{
	syncItemCategory:        record.KindItemCategory,
	syncItemDepartment:      record.KindItemDepartment,
	syncItemStoreJoin:       record.KindItemStoreJoin,
	syncLocalListItem:       record.KindMasterListItem,
	syncMasterList:          record.KindMasterList,
	syncMasterListItem:      record.KindMasterListItem,
	syncMasterListNameJoin:  record.KindMasterListNameJoin,
	syncName:                record.KindName,
	syncNameStoreJoin:       record.KindNameStoreJoin,
	syncOptions:             record.KindOption,
	syncPeriod:              record.KindPeriod,
	syncPeriodSchedule:      record.KindPeriodSchedule,
	syncRequisitionItem:     record.KindRequisitionItem,
	syncStocktakeBatch:      record.KindStocktakeBatch,
	syncTransactionCategory: record.KindTransactionCategory,
	syncTransactionBatch:    record.KindTransactionBatch,
}

func (in *Integrator) deleteItem(tx store.Tx, rec ChangeRecord) Outcome {
	item, err := getIfExists(tx, record.KindItem, rec.RecordID)
	if err != nil {
		return Outcome{Err: err}
	}
	if item != nil {
		for _, batchID := range item.(*record.Item).BatchIDs {
			if err := tx.Delete(record.KindItemBatch, batchID); err != nil {
				return Outcome{Err: err}
			}
		}
	}
	if err := tx.Delete(record.KindItem, rec.RecordID); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

func (in *Integrator) deleteItemBatch(tx store.Tx, rec ChangeRecord) Outcome {
	batch, err := getIfExists(tx, record.KindItemBatch, rec.RecordID)
	if err != nil {
		return Outcome{Err: err}
	}
	if batch != nil {
		typed := batch.(*record.ItemBatch)
		item, err := getIfExists(tx, record.KindItem, typed.ItemID)
		if err != nil {
			return Outcome{Err: err}
		}
		if item != nil {
			owner := item.(*record.Item)
			owner.RemoveBatch(typed.ID)
			if err := tx.Upsert(owner); err != nil {
				return Outcome{Err: err}
			}
		}
	}
	if err := tx.Delete(record.KindItemBatch, rec.RecordID); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

func (in *Integrator) deleteRequisition(tx store.Tx, rec ChangeRecord) Outcome {
	requisition, err := getIfExists(tx, record.KindRequisition, rec.RecordID)
	if err != nil {
		return Outcome{Err: err}
	}
	if requisition != nil {
		for _, itemID := range requisition.(*record.Requisition).ItemIDs {
			if err := tx.Delete(record.KindRequisitionItem, itemID); err != nil {
				return Outcome{Err: err}
			}
		}
	}
	if err := tx.Delete(record.KindRequisition, rec.RecordID); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

func (in *Integrator) deleteStocktake(tx store.Tx, rec ChangeRecord) Outcome {
	stocktake, err := getIfExists(tx, record.KindStocktake, rec.RecordID)
	if err != nil {
		return Outcome{Err: err}
	}
	if stocktake != nil {
		for _, batchID := range stocktake.(*record.Stocktake).BatchIDs {
			if err := tx.Delete(record.KindStocktakeBatch, batchID); err != nil {
				return Outcome{Err: err}
			}
		}
	}
	if err := tx.Delete(record.KindStocktake, rec.RecordID); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

// deleteTransaction refuses to delete finalised transactions, they are the
// local ledger of record.
func (in *Integrator) deleteTransaction(tx store.Tx, rec ChangeRecord) Outcome {
	transaction, err := getIfExists(tx, record.KindTransaction, rec.RecordID)
	if err != nil {
		return Outcome{Err: err}
	}
	if transaction != nil {
		typed := transaction.(*record.Transaction)
		if typed.IsFinalised() {
			return in.skip(rec, "refusing to delete finalised transaction")
		}
		for _, lineID := range typed.ItemLineIDs {
			line, err := getIfExists(tx, record.KindTransactionItem, lineID)
			if err != nil {
				return Outcome{Err: err}
			}
			if line != nil {
				for _, batchID := range line.(*record.TransactionItem).BatchIDs {
					if err := tx.Delete(record.KindTransactionBatch, batchID); err != nil {
						return Outcome{Err: err}
					}
				}
			}
			if err := tx.Delete(record.KindTransactionItem, lineID); err != nil {
				return Outcome{Err: err}
			}
		}
	}
	if err := tx.Delete(record.KindTransaction, rec.RecordID); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

func getIfExists(tx store.Tx, kind record.Kind, id string) (record.Record, error) {
	if id == "" {
		return nil, nil
	}
	rec, err := tx.Get(kind, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}
