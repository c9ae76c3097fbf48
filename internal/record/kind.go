package record

import (
	"encoding/json"
	"fmt"
)

// Kind identifies a normalized record type in the local store.
type Kind string

const (
	KindAddress             Kind = "Address"
	KindItem                Kind = "Item"
	KindItemBatch           Kind = "ItemBatch"
	KindItemCategory        Kind = "ItemCategory"
	KindItemDepartment      Kind = "ItemDepartment"
	KindItemStoreJoin       Kind = "ItemStoreJoin"
	KindMasterList          Kind = "MasterList"
	KindMasterListItem      Kind = "MasterListItem"
	KindMasterListNameJoin  Kind = "MasterListNameJoin"
	KindName                Kind = "Name"
	KindNameStoreJoin       Kind = "NameStoreJoin"
	KindNumberSequence      Kind = "NumberSequence"
	KindNumberToReuse       Kind = "NumberToReuse"
	KindOption              Kind = "Option"
	KindPeriod              Kind = "Period"
	KindPeriodSchedule      Kind = "PeriodSchedule"
	KindRequisition         Kind = "Requisition"
	KindRequisitionItem     Kind = "RequisitionItem"
	KindSetting             Kind = "Setting"
	KindStocktake           Kind = "Stocktake"
	KindStocktakeBatch      Kind = "StocktakeBatch"
	KindTransaction         Kind = "Transaction"
	KindTransactionBatch    Kind = "TransactionBatch"
	KindTransactionCategory Kind = "TransactionCategory"
	KindTransactionItem     Kind = "TransactionItem"
	KindUser                Kind = "User"
)

// Record is implemented by every store-resident entity.
type Record interface {
	RecordID() string
	RecordKind() Kind
}

// factories mints an empty placeholder of each kind. Placeholders carry only
// their identifier and are filled in when the record's own change arrives.
var factories = map[Kind]func(id string) Record{
	KindAddress:             func(id string) Record { return &Address{ID: id} },
	KindItem:                func(id string) Record { return &Item{ID: id} },
	KindItemBatch:           func(id string) Record { return &ItemBatch{ID: id, PackSize: 1} },
	KindItemCategory:        func(id string) Record { return &ItemCategory{ID: id} },
	KindItemDepartment:      func(id string) Record { return &ItemDepartment{ID: id} },
	KindItemStoreJoin:       func(id string) Record { return &ItemStoreJoin{ID: id} },
	KindMasterList:          func(id string) Record { return &MasterList{ID: id} },
	KindMasterListItem:      func(id string) Record { return &MasterListItem{ID: id} },
	KindMasterListNameJoin:  func(id string) Record { return &MasterListNameJoin{ID: id} },
	KindName:                func(id string) Record { return &Name{ID: id} },
	KindNameStoreJoin:       func(id string) Record { return &NameStoreJoin{ID: id} },
	KindNumberSequence:      func(id string) Record { return &NumberSequence{ID: id} },
	KindNumberToReuse:       func(id string) Record { return &NumberToReuse{ID: id} },
	KindOption:              func(id string) Record { return &Option{ID: id} },
	KindPeriod:              func(id string) Record { return &Period{ID: id} },
	KindPeriodSchedule:      func(id string) Record { return &PeriodSchedule{ID: id} },
	KindRequisition:         func(id string) Record { return &Requisition{ID: id} },
	KindRequisitionItem:     func(id string) Record { return &RequisitionItem{ID: id} },
	KindSetting:             func(id string) Record { return &Setting{ID: id} },
	KindStocktake:           func(id string) Record { return &Stocktake{ID: id} },
	KindStocktakeBatch:      func(id string) Record { return &StocktakeBatch{ID: id, PackSize: 1} },
	KindTransaction:         func(id string) Record { return &Transaction{ID: id} },
	KindTransactionBatch:    func(id string) Record { return &TransactionBatch{ID: id, PackSize: 1} },
	KindTransactionCategory: func(id string) Record { return &TransactionCategory{ID: id} },
	KindTransactionItem:     func(id string) Record { return &TransactionItem{ID: id} },
	KindUser:                func(id string) Record { return &User{ID: id} },
}

// Known reports whether the kind is part of the registry.
func Known(kind Kind) bool {
	_, ok := factories[kind]
	return ok
}

// New returns an empty placeholder record of the given kind.
func New(kind Kind, id string) (Record, error) {
	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("record: unknown kind %q", kind)
	}
	return factory(id), nil
}

// Decode unmarshals a stored document into its concrete type.
func Decode(kind Kind, doc []byte) (Record, error) {
	rec, err := New(kind, "")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, rec); err != nil {
		return nil, fmt.Errorf("record: decode %s: %w", kind, err)
	}
	return rec, nil
}

// Clone deep-copies a record through its JSON representation so that store
// snapshots never alias caller-held values.
func Clone(rec Record) (Record, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("record: encode %s: %w", rec.RecordKind(), err)
	}
	return Decode(rec.RecordKind(), doc)
}
