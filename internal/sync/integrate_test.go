package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/settings"
	"github.com/mobistock/mobistock/internal/store"
	"github.com/mobistock/mobistock/internal/store/memory"
)

const testStoreID = "store1"

func newTestIntegrator(t *testing.T) (*Integrator, *memory.Store, *CollectorSink) {
	t.Helper()
	st := memory.New()
	set := settings.NewMemory()
	require.NoError(t, set.Set(context.Background(), settings.KeyThisStoreID, testStoreID))
	sink := &CollectorSink{}
	return NewIntegrator(st, set, sink), st, sink
}

func getRecord(t *testing.T, st *memory.Store, kind record.Kind, id string) record.Record {
	t.Helper()
	var out record.Record
	require.NoError(t, st.RunAtomic(context.Background(), func(tx store.Tx) error {
		rec, err := tx.Get(kind, id)
		if err != nil {
			return err
		}
		out = rec
		return nil
	}))
	return out
}

func countRecords(t *testing.T, st *memory.Store, kind record.Kind) int {
	t.Helper()
	var n int
	require.NoError(t, st.RunAtomic(context.Background(), func(tx store.Tx) error {
		records, err := tx.Query(kind)
		if err != nil {
			return err
		}
		n = len(records)
		return nil
	}))
	return n
}

func itemBatchChange(id, itemID, quantity, packSize string) ChangeRecord {
	return ChangeRecord{
		RecordType: "item_line",
		SyncType:   "update",
		RecordID:   id,
		Data: map[string]string{
			"ID":          id,
			"item_ID":     itemID,
			"quantity":    quantity,
			"pack_size":   packSize,
			"batch":       "B1",
			"expiry_date": "2027-06-30",
			"cost_price":  "10",
			"sell_price":  "12",
		},
	}
}

func itemChange(id, code, name string) ChangeRecord {
	return ChangeRecord{
		RecordType: "item",
		SyncType:   "update",
		RecordID:   id,
		Data: map[string]string{
			"ID":                id,
			"code":              code,
			"item_name":         name,
			"default_pack_size": "10",
		},
	}
}

func TestIntegrateItemBatchBeforeItem(t *testing.T) {
	in, st, _ := newTestIntegrator(t)
	ctx := context.Background()

	outcome, err := in.Integrate(ctx, itemBatchChange("batch1", "item1", "5", "10"))
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	// The item exists as a placeholder with the batch attached.
	item := getRecord(t, st, record.KindItem, "item1").(*record.Item)
	require.Equal(t, []string{"batch1"}, item.BatchIDs)
	require.Empty(t, item.Name)

	// Quantities and prices normalize to pack size one.
	batch := getRecord(t, st, record.KindItemBatch, "batch1").(*record.ItemBatch)
	require.Equal(t, float64(50), batch.NumberOfPacks)
	require.Equal(t, float64(1), batch.PackSize)
	require.Equal(t, float64(1), batch.CostPrice)
	require.Equal(t, 1.2, batch.SellPrice)

	// The real item arrives later and fills in the placeholder without
	// losing the attachment.
	outcome, err = in.Integrate(ctx, itemChange("item1", "AMOX", "Amoxicillin"))
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	item = getRecord(t, st, record.KindItem, "item1").(*record.Item)
	require.Equal(t, "Amoxicillin", item.Name)
	require.Equal(t, []string{"batch1"}, item.BatchIDs)
}

func TestIntegrateIsIdempotent(t *testing.T) {
	in, st, _ := newTestIntegrator(t)
	ctx := context.Background()

	change := itemBatchChange("batch1", "item1", "5", "10")
	for i := 0; i < 3; i++ {
		outcome, err := in.Integrate(ctx, change)
		require.NoError(t, err)
		require.True(t, outcome.Applied)
	}

	item := getRecord(t, st, record.KindItem, "item1").(*record.Item)
	require.Equal(t, []string{"batch1"}, item.BatchIDs)
	require.Equal(t, 1, countRecords(t, st, record.KindItemBatch))
}

func TestIntegrateSkipsForeignStoreTransaction(t *testing.T) {
	in, st, sink := newTestIntegrator(t)

	outcome, err := in.Integrate(context.Background(), ChangeRecord{
		RecordType: "transact",
		SyncType:   "new",
		RecordID:   "txn1",
		Data: map[string]string{
			"ID":          "txn1",
			"name_ID":     "name1",
			"type":        "ci",
			"status":      "fn",
			"store_ID":    "somewhere-else",
			"invoice_num": "7",
			"entry_date":  "2026-01-05",
		},
	})
	require.NoError(t, err)
	require.False(t, outcome.Applied)

	require.Equal(t, 0, countRecords(t, st, record.KindTransaction))
	events := sink.Events()
	require.Len(t, events, 1)
	require.Equal(t, "transaction not for this store", events[0].Reason)
}

func TestIntegrateAcceptsSequenceOnlyOnce(t *testing.T) {
	in, st, sink := newTestIntegrator(t)
	ctx := context.Background()

	sequence := func(id, value string) ChangeRecord {
		return ChangeRecord{
			RecordType: "number",
			SyncType:   "update",
			RecordID:   id,
			Data: map[string]string{
				"ID":    id,
				"name":  "customer_invoice_number_for_store_" + testStoreID,
				"value": value,
			},
		}
	}

	outcome, err := in.Integrate(ctx, sequence("seq1", "40"))
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	// A replayed sequence for the same key must not rewind local numbering.
	outcome, err = in.Integrate(ctx, sequence("seq2", "10"))
	require.NoError(t, err)
	require.False(t, outcome.Applied)

	require.Equal(t, 1, countRecords(t, st, record.KindNumberSequence))
	first := getRecord(t, st, record.KindNumberSequence, "seq1").(*record.NumberSequence)
	require.Equal(t, float64(40), first.HighestNumberUsed)

	events := sink.Events()
	require.Len(t, events, 1)
	require.Equal(t, "sequence already recorded", events[0].Reason)
}

func TestIntegrateSkipsSequenceForOtherStore(t *testing.T) {
	in, st, _ := newTestIntegrator(t)

	outcome, err := in.Integrate(context.Background(), ChangeRecord{
		RecordType: "number",
		SyncType:   "update",
		RecordID:   "seq1",
		Data: map[string]string{
			"ID":    "seq1",
			"name":  "customer_invoice_number_for_store_another",
			"value": "12",
		},
	})
	require.NoError(t, err)
	require.False(t, outcome.Applied)
	require.Equal(t, 0, countRecords(t, st, record.KindNumberSequence))
}

func TestIntegrateRefusesToDeleteFinalisedTransaction(t *testing.T) {
	in, st, sink := newTestIntegrator(t)
	ctx := context.Background()

	require.NoError(t, st.RunAtomic(ctx, func(tx store.Tx) error {
		return tx.Upsert(&record.Transaction{
			ID:     "txn1",
			Type:   record.TransactionTypeCustomerInvoice,
			Status: record.StatusFinalised,
		})
	}))

	outcome, err := in.Integrate(ctx, ChangeRecord{
		RecordType: "transact",
		SyncType:   "delete",
		RecordID:   "txn1",
	})
	require.NoError(t, err)
	require.False(t, outcome.Applied)
	require.Equal(t, 1, countRecords(t, st, record.KindTransaction))
	require.Len(t, sink.Events(), 1)
}

func TestIntegrateDeleteCascadesItemBatches(t *testing.T) {
	in, st, _ := newTestIntegrator(t)
	ctx := context.Background()

	_, err := in.Integrate(ctx, itemBatchChange("batch1", "item1", "5", "1"))
	require.NoError(t, err)
	_, err = in.Integrate(ctx, itemChange("item1", "AMOX", "Amoxicillin"))
	require.NoError(t, err)

	outcome, err := in.Integrate(ctx, ChangeRecord{
		RecordType: "item",
		SyncType:   "delete",
		RecordID:   "item1",
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	require.Equal(t, 0, countRecords(t, st, record.KindItem))
	require.Equal(t, 0, countRecords(t, st, record.KindItemBatch))
}

func TestIntegrateMergesItems(t *testing.T) {
	in, st, _ := newTestIntegrator(t)
	ctx := context.Background()

	_, err := in.Integrate(ctx, itemChange("keep", "AMOX", "Amoxicillin"))
	require.NoError(t, err)
	_, err = in.Integrate(ctx, itemBatchChange("batch1", "gone", "5", "1"))
	require.NoError(t, err)

	outcome, err := in.Integrate(ctx, ChangeRecord{
		RecordType: "item",
		SyncType:   "merge",
		Data: map[string]string{
			"mergeIdToKeep":   "keep",
			"mergeIdToDelete": "gone",
		},
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	require.Equal(t, 1, countRecords(t, st, record.KindItem))
	keep := getRecord(t, st, record.KindItem, "keep").(*record.Item)
	require.Contains(t, keep.BatchIDs, "batch1")
	batch := getRecord(t, st, record.KindItemBatch, "batch1").(*record.ItemBatch)
	require.Equal(t, "keep", batch.ItemID)
}

func TestIntegrateDeduplicatesAddresses(t *testing.T) {
	in, st, _ := newTestIntegrator(t)
	ctx := context.Background()

	name := func(id string) ChangeRecord {
		return ChangeRecord{
			RecordType: "name",
			SyncType:   "update",
			RecordID:   id,
			Data: map[string]string{
				"ID":            id,
				"name":          "Clinic " + id,
				"code":          "C" + id,
				"type":          "facility",
				"customer":      "true",
				"supplier":      "false",
				"manufacturer":  "false",
				"bill_address1": "1 Main St",
				"bill_address2": "Suva",
			},
		}
	}

	for _, id := range []string{"name1", "name2"} {
		outcome, err := in.Integrate(ctx, name(id))
		require.NoError(t, err)
		require.True(t, outcome.Applied)
	}

	require.Equal(t, 1, countRecords(t, st, record.KindAddress))
	first := getRecord(t, st, record.KindName, "name1").(*record.Name)
	second := getRecord(t, st, record.KindName, "name2").(*record.Name)
	require.Equal(t, first.BillingAddressID, second.BillingAddressID)
	require.NotEmpty(t, first.BillingAddressID)
}

func TestIntegrateTransactionBatchBuildsLine(t *testing.T) {
	in, st, _ := newTestIntegrator(t)
	ctx := context.Background()

	_, err := in.Integrate(ctx, ChangeRecord{
		RecordType: "transact",
		SyncType:   "new",
		RecordID:   "txn1",
		Data: map[string]string{
			"ID":          "txn1",
			"name_ID":     "name1",
			"type":        "si",
			"status":      "cn",
			"store_ID":    testStoreID,
			"invoice_num": "3",
			"entry_date":  "2026-02-01",
		},
	})
	require.NoError(t, err)

	outcome, err := in.Integrate(ctx, ChangeRecord{
		RecordType: "trans_line",
		SyncType:   "new",
		RecordID:   "entry1",
		Data: map[string]string{
			"ID":             "entry1",
			"transaction_ID": "txn1",
			"item_ID":        "item1",
			"item_line_ID":   "batch1",
			"item_name":      "Amoxicillin",
			"expiry_date":    "2027-01-31",
			"quantity":       "4",
			"pack_size":      "5",
			"cost_price":     "10",
			"sell_price":     "15",
			"batch":          "B7",
		},
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	// A line for the item was minted and wired both ways.
	transaction := getRecord(t, st, record.KindTransaction, "txn1").(*record.Transaction)
	require.Len(t, transaction.ItemLineIDs, 1)

	line := getRecord(t, st, record.KindTransactionItem, transaction.ItemLineIDs[0]).(*record.TransactionItem)
	require.Equal(t, "item1", line.ItemID)
	require.Equal(t, []string{"entry1"}, line.BatchIDs)

	entry := getRecord(t, st, record.KindTransactionBatch, "entry1").(*record.TransactionBatch)
	require.Equal(t, line.ID, entry.TransactionItemID)
	require.Equal(t, float64(20), entry.NumberOfPacks)

	itemBatch := getRecord(t, st, record.KindItemBatch, "batch1").(*record.ItemBatch)
	require.Equal(t, []string{"entry1"}, itemBatch.TransactionBatchIDs)
	require.Equal(t, "item1", itemBatch.ItemID)
}

func TestIntegrateLocalListItem(t *testing.T) {
	in, st, _ := newTestIntegrator(t)

	outcome, err := in.Integrate(context.Background(), ChangeRecord{
		RecordType: "list_local_line",
		SyncType:   "new",
		RecordID:   "lli1",
		Data: map[string]string{
			"ID":                       "lli1",
			"item_ID":                  "item1",
			"list_master_name_join_ID": "join1",
		},
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	item := getRecord(t, st, record.KindMasterListItem, "lli1").(*record.MasterListItem)
	require.Equal(t, "join1", item.MasterListID)
	list := getRecord(t, st, record.KindMasterList, "join1").(*record.MasterList)
	require.Equal(t, []string{"lli1"}, list.ItemIDs)
}

func TestIntegrateBatchReportsOutcomes(t *testing.T) {
	in, _, _ := newTestIntegrator(t)

	report, err := in.IntegrateBatch(context.Background(), []ChangeRecord{
		itemChange("item1", "AMOX", "Amoxicillin"),
		{RecordType: "unknown_kind", SyncType: "update", RecordID: "x", Data: map[string]string{"ID": "x"}},
		itemBatchChange("batch1", "item1", "5", "1"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.Applied)
	require.Equal(t, 1, report.Skipped)
	require.Empty(t, report.Failures)
}

func TestIntegrateSanityCheckRejectsIncompleteRecords(t *testing.T) {
	in, st, sink := newTestIntegrator(t)

	outcome, err := in.Integrate(context.Background(), ChangeRecord{
		RecordType: "item",
		SyncType:   "new",
		RecordID:   "item1",
		Data: map[string]string{
			"ID":   "item1",
			"code": "AMOX",
			// item_name missing entirely.
			"default_pack_size": "1",
		},
	})
	require.NoError(t, err)
	require.False(t, outcome.Applied)
	require.Equal(t, 0, countRecords(t, st, record.KindItem))
	require.Len(t, sink.Events(), 1)
	require.Equal(t, "sanity check failed", sink.Events()[0].Reason)
}

func TestIntegrateVisibilityFollowsStoreJoins(t *testing.T) {
	in, st, _ := newTestIntegrator(t)
	ctx := context.Background()

	outcome, err := in.Integrate(ctx, ChangeRecord{
		RecordType: "item_store_join",
		SyncType:   "new",
		RecordID:   "isj1",
		Data: map[string]string{
			"ID":       "isj1",
			"item_ID":  "item1",
			"store_ID": testStoreID,
			"inactive": "false",
		},
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	item := getRecord(t, st, record.KindItem, "item1").(*record.Item)
	require.True(t, item.IsVisible)

	// A join for another store leaves visibility untouched.
	_, err = in.Integrate(ctx, ChangeRecord{
		RecordType: "name_store_join",
		SyncType:   "new",
		RecordID:   "nsj1",
		Data: map[string]string{
			"ID":       "nsj1",
			"name_ID":  "name1",
			"store_ID": "somewhere-else",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 0, countRecords(t, st, record.KindName))
}
