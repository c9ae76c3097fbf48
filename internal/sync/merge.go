package sync

import (
	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/store"
)

const (
	mergeKeepField   = "mergeIdToKeep"
	mergeDeleteField = "mergeIdToDelete"
)

// mergeRecord folds one record into another. The keep record absorbs every
// reference held by the mergee, then the mergee is removed. Only items and
// names merge; for anything else the change is skipped, a later release of
// the remote may introduce more.
func (in *Integrator) mergeRecord(tx store.Tx, kind syncKind, rec ChangeRecord) Outcome {
	if rec.Data == nil {
		return in.skip(rec, "missing data")
	}
	keepID := rec.Data[mergeKeepField]
	deleteID := rec.Data[mergeDeleteField]
	if keepID == "" || deleteID == "" || keepID == deleteID {
		return in.skip(rec, "invalid merge ids")
	}

	switch kind {
	case syncItem:
		return in.mergeItems(tx, rec, keepID, deleteID)
	case syncName:
		return in.mergeNames(tx, rec, keepID, deleteID)
	}
	return in.skip(rec, "merge not supported for record kind")
}

func (in *Integrator) mergeItems(tx store.Tx, rec ChangeRecord, keepID, deleteID string) Outcome {
	keep, err := getIfExists(tx, record.KindItem, keepID)
	if err != nil {
		return Outcome{Err: err}
	}
	mergee, err := getIfExists(tx, record.KindItem, deleteID)
	if err != nil {
		return Outcome{Err: err}
	}
	if mergee == nil {
		// Nothing to fold in; the merge is already effective locally.
		return Outcome{Applied: true}
	}
	if keep == nil {
		created, err := tx.GetOrCreate(record.KindItem, keepID)
		if err != nil {
			return Outcome{Err: err}
		}
		keep = created
	}
	keepItem := keep.(*record.Item)
	mergeeItem := mergee.(*record.Item)

	for _, batchID := range mergeeItem.BatchIDs {
		batch, err := getIfExists(tx, record.KindItemBatch, batchID)
		if err != nil {
			return Outcome{Err: err}
		}
		if batch == nil {
			continue
		}
		typed := batch.(*record.ItemBatch)
		typed.ItemID = keepItem.ID
		if err := tx.Upsert(typed); err != nil {
			return Outcome{Err: err}
		}
		keepItem.AddBatch(typed.ID)
	}
	keepItem.IsVisible = keepItem.IsVisible || mergeeItem.IsVisible
	if err := tx.Upsert(keepItem); err != nil {
		return Outcome{Err: err}
	}

	if err := repointItemReferences(tx, deleteID, keepID); err != nil {
		return Outcome{Err: err}
	}
	if err := tx.Delete(record.KindItem, deleteID); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

// repointItemReferences rewrites every record that names the mergee item so
// nothing dangles after the merge.
func repointItemReferences(tx store.Tx, fromID, toID string) error {
	masterListItems, err := tx.Query(record.KindMasterListItem)
	if err != nil {
		return err
	}
	for _, candidate := range masterListItems {
		item := candidate.(*record.MasterListItem)
		if item.ItemID == fromID {
			item.ItemID = toID
			if err := tx.Upsert(item); err != nil {
				return err
			}
		}
	}

	requisitionItems, err := tx.Query(record.KindRequisitionItem)
	if err != nil {
		return err
	}
	for _, candidate := range requisitionItems {
		item := candidate.(*record.RequisitionItem)
		if item.ItemID == fromID {
			item.ItemID = toID
			if err := tx.Upsert(item); err != nil {
				return err
			}
		}
	}

	transactionItems, err := tx.Query(record.KindTransactionItem)
	if err != nil {
		return err
	}
	for _, candidate := range transactionItems {
		item := candidate.(*record.TransactionItem)
		if item.ItemID == fromID {
			item.ItemID = toID
			if err := tx.Upsert(item); err != nil {
				return err
			}
		}
	}

	items, err := tx.Query(record.KindItem)
	if err != nil {
		return err
	}
	for _, candidate := range items {
		item := candidate.(*record.Item)
		if item.CrossReferenceItemID == fromID {
			item.CrossReferenceItemID = toID
			if err := tx.Upsert(item); err != nil {
				return err
			}
		}
	}
	return nil
}

func (in *Integrator) mergeNames(tx store.Tx, rec ChangeRecord, keepID, deleteID string) Outcome {
	keep, err := getIfExists(tx, record.KindName, keepID)
	if err != nil {
		return Outcome{Err: err}
	}
	mergee, err := getIfExists(tx, record.KindName, deleteID)
	if err != nil {
		return Outcome{Err: err}
	}
	if mergee == nil {
		return Outcome{Applied: true}
	}
	if keep == nil {
		created, err := tx.GetOrCreate(record.KindName, keepID)
		if err != nil {
			return Outcome{Err: err}
		}
		keep = created
	}
	keepName := keep.(*record.Name)
	mergeeName := mergee.(*record.Name)

	for _, listID := range mergeeName.MasterListIDs {
		keepName.AddMasterList(listID)
	}
	for _, transactionID := range mergeeName.TransactionIDs {
		keepName.AddTransaction(transactionID)
	}
	keepName.IsVisible = keepName.IsVisible || mergeeName.IsVisible
	if err := tx.Upsert(keepName); err != nil {
		return Outcome{Err: err}
	}

	if err := repointNameReferences(tx, deleteID, keepID); err != nil {
		return Outcome{Err: err}
	}
	if err := tx.Delete(record.KindName, deleteID); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

func repointNameReferences(tx store.Tx, fromID, toID string) error {
	transactions, err := tx.Query(record.KindTransaction)
	if err != nil {
		return err
	}
	for _, candidate := range transactions {
		transaction := candidate.(*record.Transaction)
		if transaction.OtherPartyID == fromID {
			transaction.OtherPartyID = toID
			if err := tx.Upsert(transaction); err != nil {
				return err
			}
		}
	}

	requisitions, err := tx.Query(record.KindRequisition)
	if err != nil {
		return err
	}
	for _, candidate := range requisitions {
		requisition := candidate.(*record.Requisition)
		if requisition.OtherStoreNameID == fromID {
			requisition.OtherStoreNameID = toID
			if err := tx.Upsert(requisition); err != nil {
				return err
			}
		}
	}

	joins, err := tx.Query(record.KindNameStoreJoin)
	if err != nil {
		return err
	}
	for _, candidate := range joins {
		join := candidate.(*record.NameStoreJoin)
		if join.NameID == fromID {
			join.NameID = toID
			if err := tx.Upsert(join); err != nil {
				return err
			}
		}
	}

	listJoins, err := tx.Query(record.KindMasterListNameJoin)
	if err != nil {
		return err
	}
	for _, candidate := range listJoins {
		join := candidate.(*record.MasterListNameJoin)
		if join.NameID == fromID {
			join.NameID = toID
			if err := tx.Upsert(join); err != nil {
				return err
			}
		}
	}
	return nil
}
