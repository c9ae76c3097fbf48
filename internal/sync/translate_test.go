package sync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobistock/mobistock/internal/record"
)

func TestTranslateItemNormalizesPackSize(t *testing.T) {
	translation, err := translate(syncItem, "item1", "s1", map[string]string{
		"code":              "AMOX",
		"item_name":         "Amoxicillin",
		"default_pack_size": "100",
		"buy_price":         "250",
		"doses":             "2",
	})
	require.NoError(t, err)

	item := translation.Record.(*record.Item)
	require.Equal(t, float64(1), item.DefaultPackSize)
	require.Equal(t, 2.5, item.DefaultPrice)
	require.Equal(t, float64(2), item.DosesPerUnit)
}

func TestTranslateItemBatchScalesQuantityAndPrices(t *testing.T) {
	translation, err := translate(syncItemBatch, "batch1", "s1", map[string]string{
		"item_ID":     "item1",
		"quantity":    "3",
		"pack_size":   "12",
		"batch":       "B9",
		"expiry_date": "2027-11-30",
		"cost_price":  "24",
		"sell_price":  "36",
	})
	require.NoError(t, err)

	batch := translation.Record.(*record.ItemBatch)
	require.Equal(t, float64(36), batch.NumberOfPacks)
	require.Equal(t, float64(1), batch.PackSize)
	require.Equal(t, float64(2), batch.CostPrice)
	require.Equal(t, float64(3), batch.SellPrice)
	require.NotNil(t, batch.ExpiryDate)

	require.Contains(t, translation.Ensure, Ref{Kind: record.KindItem, ID: "item1"})
}

func TestTranslateItemBatchDefaultsPackSizeToOne(t *testing.T) {
	translation, err := translate(syncItemBatch, "batch1", "s1", map[string]string{
		"item_ID":     "item1",
		"quantity":    "8",
		"pack_size":   "",
		"batch":       "",
		"expiry_date": "",
		"cost_price":  "5",
		"sell_price":  "6",
	})
	require.NoError(t, err)

	batch := translation.Record.(*record.ItemBatch)
	require.Equal(t, float64(8), batch.NumberOfPacks)
	require.Equal(t, float64(5), batch.CostPrice)
	require.Nil(t, batch.ExpiryDate)
}

func TestTranslateTransactionForThisStore(t *testing.T) {
	translation, err := translate(syncTransaction, "txn1", "s1", map[string]string{
		"name_ID":     "name1",
		"type":        "ci",
		"status":      "cn",
		"store_ID":    "s1",
		"invoice_num": "17",
		"entry_date":  "2026-04-01",
	})
	require.NoError(t, err)
	require.Empty(t, translation.Skip)

	transaction := translation.Record.(*record.Transaction)
	require.Equal(t, record.TransactionTypeCustomerInvoice, transaction.Type)
	require.Equal(t, record.StatusConfirmed, transaction.Status)
	require.Equal(t, "17", transaction.SerialNumber)
	require.True(t, transaction.IsOutgoing())
}

func TestTranslateTransactionForOtherStoreSkips(t *testing.T) {
	translation, err := translate(syncTransaction, "txn1", "s1", map[string]string{
		"name_ID":  "name1",
		"type":     "ci",
		"status":   "cn",
		"store_ID": "s2",
	})
	require.NoError(t, err)
	require.NotEmpty(t, translation.Skip)
	require.Nil(t, translation.Record)
}

func TestTranslateRequisitionWebStatuses(t *testing.T) {
	base := map[string]string{
		"type":         "request",
		"daysToSupply": "30",
	}
	cases := map[string]record.TransactionStatus{
		"wp": record.StatusNew,
		"wf": record.StatusFinalised,
		"sg": record.StatusSuggested,
		"fn": record.StatusFinalised,
	}
	for external, want := range cases {
		data := map[string]string{"status": external}
		for k, v := range base {
			data[k] = v
		}
		translation, err := translate(syncRequisition, "req1", "s1", data)
		require.NoError(t, err)
		require.Equal(t, want, translation.Record.(*record.Requisition).Status, "status %q", external)
	}
}

func TestTranslateNameCarriesAddressContent(t *testing.T) {
	translation, err := translate(syncName, "name1", "s1", map[string]string{
		"name":          "District Hospital",
		"code":          "DH",
		"type":          "facility",
		"customer":      "true",
		"supplier":      "false",
		"manufacturer":  "false",
		"bill_address1": "12 Beach Rd",
		"bill_postal_zip_code": "0500",
	})
	require.NoError(t, err)

	name := translation.Record.(*record.Name)
	require.True(t, name.IsCustomer)
	require.False(t, name.IsSupplier)
	require.Equal(t, "facility", name.Type)

	require.NotNil(t, translation.Address)
	require.Equal(t, "12 Beach Rd", translation.Address.Line1)
	require.Equal(t, "0500", translation.Address.ZipCode)
}

func TestTranslateStocktakeBatchCountedQuantity(t *testing.T) {
	translation, err := translate(syncStocktakeBatch, "sb1", "s1", map[string]string{
		"stock_take_ID":     "st1",
		"item_line_ID":      "batch1",
		"item_ID":           "item1",
		"snapshot_qty":      "10",
		"snapshot_packsize": "6",
		"stock_take_qty":    "9",
		"expiry":            "",
		"Batch":             "",
		"cost_price":        "12",
		"sell_price":        "18",
		"optionID":          "",
	})
	require.NoError(t, err)

	batch := translation.Record.(*record.StocktakeBatch)
	require.Equal(t, float64(60), batch.SnapshotNumberOfPacks)
	require.NotNil(t, batch.CountedNumberOfPacks)
	require.Equal(t, float64(54), *batch.CountedNumberOfPacks)
	require.Equal(t, float64(2), batch.CostPrice)
	require.Equal(t, float64(3), batch.SellPrice)
}

func TestTranslateUnknownKindFails(t *testing.T) {
	_, err := translate(syncKind("Widget"), "w1", "s1", map[string]string{})
	require.Error(t, err)
}
