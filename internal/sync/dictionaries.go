package sync

import (
	"strings"

	"github.com/mobistock/mobistock/internal/record"
)

// ChangeType classifies an incoming change record.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
	ChangeMerge  ChangeType = "merge"
)

// changeTypes maps external SyncType tags to internal change types.
var changeTypes = map[string]ChangeType{
	"new":    ChangeCreate,
	"update": ChangeUpdate,
	"delete": ChangeDelete,
	"merge":  ChangeMerge,
}

// syncKind is the per-record-kind dispatch key. It is a superset of
// record.Kind: LocalListItem has no store-resident type of its own and is
// persisted as a MasterListItem.
type syncKind string

const (
	syncItem                syncKind = syncKind(record.KindItem)
	syncItemCategory        syncKind = syncKind(record.KindItemCategory)
	syncItemDepartment      syncKind = syncKind(record.KindItemDepartment)
	syncItemBatch           syncKind = syncKind(record.KindItemBatch)
	syncItemStoreJoin       syncKind = syncKind(record.KindItemStoreJoin)
	syncLocalListItem       syncKind = "LocalListItem"
	syncMasterList          syncKind = syncKind(record.KindMasterList)
	syncMasterListItem      syncKind = syncKind(record.KindMasterListItem)
	syncMasterListNameJoin  syncKind = syncKind(record.KindMasterListNameJoin)
	syncName                syncKind = syncKind(record.KindName)
	syncNameStoreJoin       syncKind = syncKind(record.KindNameStoreJoin)
	syncNumberSequence      syncKind = syncKind(record.KindNumberSequence)
	syncNumberToReuse       syncKind = syncKind(record.KindNumberToReuse)
	syncOptions             syncKind = "Options"
	syncPeriod              syncKind = syncKind(record.KindPeriod)
	syncPeriodSchedule      syncKind = syncKind(record.KindPeriodSchedule)
	syncRequisition         syncKind = syncKind(record.KindRequisition)
	syncRequisitionItem     syncKind = syncKind(record.KindRequisitionItem)
	syncStocktake           syncKind = syncKind(record.KindStocktake)
	syncStocktakeBatch      syncKind = syncKind(record.KindStocktakeBatch)
	syncTransaction         syncKind = syncKind(record.KindTransaction)
	syncTransactionCategory syncKind = syncKind(record.KindTransactionCategory)
	syncTransactionBatch    syncKind = syncKind(record.KindTransactionBatch)
)

// recordTypes maps external table names to sync kinds. External kinds absent
// from this table are skipped silently: the stream deliberately tolerates
// record kinds this install does not support.
var recordTypes = map[string]syncKind{
	"item":                  syncItem,
	"item_category":         syncItemCategory,
	"item_department":       syncItemDepartment,
	"item_line":             syncItemBatch,
	"item_store_join":       syncItemStoreJoin,
	"list_local_line":       syncLocalListItem,
	"list_master":           syncMasterList,
	"list_master_line":      syncMasterListItem,
	"list_master_name_join": syncMasterListNameJoin,
	"name":                  syncName,
	"name_store_join":       syncNameStoreJoin,
	"number":                syncNumberSequence,
	"number_reuse":          syncNumberToReuse,
	"options":               syncOptions,
	"period":                syncPeriod,
	"periodSchedule":        syncPeriodSchedule,
	"requisition":           syncRequisition,
	"requisition_line":      syncRequisitionItem,
	"Stock_take":            syncStocktake,
	"Stock_take_lines":      syncStocktakeBatch,
	"transact":              syncTransaction,
	"transaction_category":  syncTransactionCategory,
	"trans_line":            syncTransactionBatch,
}

// statuses maps external status codes to internal statuses.
var statuses = map[string]record.TransactionStatus{
	"nw": record.StatusNew,
	"sg": record.StatusSuggested,
	"cn": record.StatusConfirmed,
	"fn": record.StatusFinalised,
}

// requisitionStatuses covers the web-requisition special codes checked before
// the regular status table.
var requisitionStatuses = map[string]record.TransactionStatus{
	"wp": record.StatusNew,
	"wf": record.StatusFinalised,
}

var transactionTypes = map[string]record.TransactionType{
	"ci": record.TransactionTypeCustomerInvoice,
	"si": record.TransactionTypeSupplierInvoice,
	"cc": record.TransactionTypeCustomerCredit,
	"sc": record.TransactionTypeSupplierCredit,
	"in": record.TransactionTypeInventoryAdjustment,
}

var requisitionTypes = map[string]record.RequisitionType{
	"request":  record.RequisitionTypeRequest,
	"response": record.RequisitionTypeResponse,
	"imprest":  record.RequisitionTypeImprest,
	"sh":       record.RequisitionTypeResponse,
}

var nameTypes = map[string]string{
	"facility": "facility",
	"patient":  "patient",
	"build":    "build",
	"store":    "store",
	"repack":   "repack",
	"invad":    "inventory_adjustment",
}

// sequenceKeyBases maps external sequence base names to internal sequence
// keys. External names arrive as "<base>_for_store_<storeID>".
var sequenceKeyBases = map[string]string{
	"customer_invoice_number":            "customer_invoice_serial_number",
	"supplier_invoice_number":            "supplier_invoice_serial_number",
	"inventory_adjustment_serial_number": "inventory_adjustment_serial_number",
	"requisition_serial_number":          "requisition_serial_number",
	"stocktake_number":                   "stocktake_serial_number",
}

const sequenceStoreMarker = "_for_store_"

// sequenceKeyFor resolves an external sequence name to the internal key, or
// "" when the sequence belongs to another store or is unrecognized.
func sequenceKeyFor(externalName, thisStoreID string) string {
	idx := strings.LastIndex(externalName, sequenceStoreMarker)
	if idx < 0 {
		return ""
	}
	base, storeID := externalName[:idx], externalName[idx+len(sequenceStoreMarker):]
	if thisStoreID == "" || storeID != thisStoreID {
		return ""
	}
	return sequenceKeyBases[base]
}

func translateStatus(external string) record.TransactionStatus {
	return statuses[external]
}

func translateRequisitionStatus(external string) record.TransactionStatus {
	if status, ok := requisitionStatuses[external]; ok {
		return status
	}
	return statuses[external]
}
