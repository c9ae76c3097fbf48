package sync

import (
	"fmt"

	"github.com/mobistock/mobistock/internal/record"
)

// Ref names a foreign reference the integrator must resolve by get-or-create
// before the owning record is written. The translator never fabricates
// identifiers; blank references are dropped here.
type Ref struct {
	Kind record.Kind
	ID   string
}

// Translation is the output of mapping one external record to its internal
// shape. Record is nil when Skip is set.
type Translation struct {
	Record record.Record
	// Ensure lists foreign references to materialize as placeholders before
	// the primary upsert, so partially-synced graphs never dangle.
	Ensure []Ref
	// Address carries the content of a deduplicated address for Name records;
	// the integrator resolves or mints the identifier.
	Address *record.Address
	// Skip holds a reason when the record is filtered rather than translated,
	// e.g. a transaction belonging to another store.
	Skip string
}

func (t *Translation) ensure(kind record.Kind, id string) string {
	if id == "" {
		return ""
	}
	t.Ensure = append(t.Ensure, Ref{Kind: kind, ID: id})
	return id
}

// translate maps the external record fields to a typed internal record. The
// input has already passed the structural sanity check; field content is
// parsed tolerantly per the wire contract (bad numbers and dates become "no
// value", unknown enum codes become empty).
func translate(kind syncKind, id, thisStoreID string, data map[string]string) (Translation, error) {
	switch kind {
	case syncItem:
		return translateItem(id, data), nil
	case syncItemCategory:
		return wrap(&record.ItemCategory{ID: id, Name: data["Description"]}), nil
	case syncItemDepartment:
		return wrap(&record.ItemDepartment{ID: id, Name: data["department"]}), nil
	case syncItemBatch:
		return translateItemBatch(id, data), nil
	case syncItemStoreJoin:
		return wrap(&record.ItemStoreJoin{
			ID:             id,
			ItemID:         data["item_ID"],
			JoinsThisStore: thisStoreID != "" && data["store_ID"] == thisStoreID,
		}), nil
	case syncLocalListItem:
		return translateLocalListItem(id, data), nil
	case syncMasterList:
		return wrap(&record.MasterList{
			ID:              id,
			Name:            data["description"],
			Note:            data["note"],
			IsProgram:       parseBoolean(data["isProgram"]),
			ProgramSettings: data["programSettings"],
		}), nil
	case syncMasterListItem:
		return translateMasterListItem(id, data), nil
	case syncMasterListNameJoin:
		return translateMasterListNameJoin(id, data), nil
	case syncName:
		return translateName(id, data), nil
	case syncNameStoreJoin:
		return wrap(&record.NameStoreJoin{
			ID:             id,
			NameID:         data["name_ID"],
			JoinsThisStore: thisStoreID != "" && data["store_ID"] == thisStoreID,
		}), nil
	case syncNumberSequence:
		return translateNumberSequence(id, thisStoreID, data), nil
	case syncNumberToReuse:
		return translateNumberToReuse(id, thisStoreID, data), nil
	case syncOptions:
		return wrap(&record.Option{
			ID:       id,
			Name:     data["name"],
			Type:     data["type"],
			IsActive: parseBoolean(data["isActive"]),
		}), nil
	case syncPeriod:
		return translatePeriod(id, data), nil
	case syncPeriodSchedule:
		return wrap(&record.PeriodSchedule{ID: id, Name: data["name"]}), nil
	case syncRequisition:
		return translateRequisition(id, data), nil
	case syncRequisitionItem:
		return translateRequisitionItem(id, data), nil
	case syncStocktake:
		return translateStocktake(id, data), nil
	case syncStocktakeBatch:
		return translateStocktakeBatch(id, data), nil
	case syncTransaction:
		return translateTransaction(id, thisStoreID, data), nil
	case syncTransactionCategory:
		return wrap(&record.TransactionCategory{
			ID:   id,
			Name: data["category"],
			Code: data["code"],
			Type: transactionTypes[data["type"]],
		}), nil
	case syncTransactionBatch:
		return translateTransactionBatch(id, data), nil
	}
	return Translation{}, fmt.Errorf("sync: no translator for kind %q", kind)
}

func wrap(rec record.Record) Translation {
	return Translation{Record: rec}
}

func translateItem(id string, data map[string]string) Translation {
	packSize := parseNumber(data["default_pack_size"])
	item := &record.Item{
		ID:          id,
		Code:        data["code"],
		Name:        data["item_name"],
		Description: data["description"],
		// Every batch on mobile is stored pack-to-one.
		DefaultPackSize: 1,
		DefaultPrice:    unitPrice(parseNumber(data["buy_price"]), numberOr(packSize, 0)),
		DosesPerUnit:    numberOr(parseNumber(data["doses"]), 0),
	}
	t := wrap(item)
	item.CategoryID = t.ensure(record.KindItemCategory, data["category_ID"])
	item.DepartmentID = t.ensure(record.KindItemDepartment, data["department_ID"])
	item.CrossReferenceItemID = t.ensure(record.KindItem, data["cross_ref_item_ID"])
	return t
}

func translateItemBatch(id string, data map[string]string) Translation {
	packSize := numberOr(parseNumber(data["pack_size"]), 1)
	batch := &record.ItemBatch{
		ID: id,
		// Pack-to-one: quantity x pack size collapses into NumberOfPacks.
		PackSize:      1,
		NumberOfPacks: numberOr(parseNumber(data["quantity"]), 0) * packSize,
		ExpiryDate:    parseDate(data["expiry_date"], ""),
		Batch:         data["batch"],
		CostPrice:     unitPrice(parseNumber(data["cost_price"]), packSize),
		SellPrice:     unitPrice(parseNumber(data["sell_price"]), packSize),
	}
	t := wrap(batch)
	batch.ItemID = t.ensure(record.KindItem, data["item_ID"])
	batch.SupplierID = t.ensure(record.KindName, data["name_ID"])
	return t
}

func translateLocalListItem(id string, data map[string]string) Translation {
	// The join's own id stands in for a MasterList on mobile; the item is
	// stored as a regular MasterListItem against it.
	item := &record.MasterListItem{
		ID:              id,
		ImprestQuantity: parseNumber(data["imprest_quantity"]),
	}
	t := wrap(item)
	item.ItemID = t.ensure(record.KindItem, data["item_ID"])
	item.MasterListID = t.ensure(record.KindMasterList, data["list_master_name_join_ID"])
	return t
}

func translateMasterListItem(id string, data map[string]string) Translation {
	item := &record.MasterListItem{
		ID:              id,
		ImprestQuantity: parseNumber(data["imprest_quan"]),
	}
	t := wrap(item)
	item.ItemID = t.ensure(record.KindItem, data["item_ID"])
	item.MasterListID = t.ensure(record.KindMasterList, data["item_master_ID"])
	return t
}

func translateMasterListNameJoin(id string, data map[string]string) Translation {
	join := &record.MasterListNameJoin{ID: id}
	t := wrap(join)
	join.NameID = t.ensure(record.KindName, data["name_ID"])
	join.MasterListID = t.ensure(record.KindMasterList, data["list_master_ID"])
	return t
}

func translateName(id string, data map[string]string) Translation {
	name := &record.Name{
		ID:               id,
		Name:             data["name"],
		Code:             data["code"],
		PhoneNumber:      data["phone"],
		EmailAddress:     data["email"],
		Type:             nameTypes[data["type"]],
		IsCustomer:       parseBoolean(data["customer"]),
		IsSupplier:       parseBoolean(data["supplier"]),
		IsManufacturer:   parseBoolean(data["manufacturer"]),
		SupplyingStoreID: data["supplying_store_id"],
	}
	t := wrap(name)
	t.Address = &record.Address{
		Line1:   data["bill_address1"],
		Line2:   data["bill_address2"],
		Line3:   data["bill_address3"],
		Line4:   data["bill_address4"],
		ZipCode: data["bill_postal_zip_code"],
	}
	return t
}

func translateNumberSequence(id, thisStoreID string, data map[string]string) Translation {
	sequenceKey := sequenceKeyFor(data["name"], thisStoreID)
	if sequenceKey == "" {
		return Translation{Skip: "sequence not for this store"}
	}
	return wrap(&record.NumberSequence{
		ID:                id,
		SequenceKey:       sequenceKey,
		HighestNumberUsed: numberOr(parseNumber(data["value"]), 0),
	})
}

func translateNumberToReuse(id, thisStoreID string, data map[string]string) Translation {
	sequenceKey := sequenceKeyFor(data["name"], thisStoreID)
	if sequenceKey == "" {
		return Translation{Skip: "sequence not for this store"}
	}
	return wrap(&record.NumberToReuse{
		ID:          id,
		SequenceKey: sequenceKey,
		Number:      numberOr(parseNumber(data["number_to_use"]), 0),
	})
}

func translatePeriod(id string, data map[string]string) Translation {
	period := &record.Period{
		ID:        id,
		Name:      data["name"],
		StartDate: parseDate(data["startDate"], ""),
		EndDate:   parseDate(data["endDate"], ""),
	}
	t := wrap(period)
	period.PeriodScheduleID = t.ensure(record.KindPeriodSchedule, data["periodScheduleID"])
	return t
}

func translateRequisition(id string, data map[string]string) Translation {
	requisition := &record.Requisition{
		ID:                 id,
		Status:             translateRequisitionStatus(data["status"]),
		Type:               requisitionTypes[data["type"]],
		EntryDate:          parseDate(data["date_entered"], ""),
		DaysToSupply:       numberOr(parseNumber(data["daysToSupply"]), 0),
		SerialNumber:       data["serial_number"],
		RequesterReference: data["requester_reference"],
		Comment:            data["comment"],
	}
	t := wrap(requisition)
	requisition.EnteredByID = t.ensure(record.KindUser, data["user_ID"])
	requisition.OtherStoreNameID = t.ensure(record.KindName, data["name_ID"])
	requisition.ProgramID = t.ensure(record.KindMasterList, data["programID"])
	requisition.PeriodID = t.ensure(record.KindPeriod, data["periodID"])
	return t
}

func translateRequisitionItem(id string, data map[string]string) Translation {
	item := &record.RequisitionItem{
		ID:               id,
		StockOnHand:      parseNumber(data["stock_on_hand"]),
		DailyUsage:       parseNumber(data["daily_usage"]),
		RequiredQuantity: parseNumber(data["Cust_stock_order"]),
		SuppliedQuantity: parseNumber(data["actualQuan"]),
		Comment:          data["comment"],
		SortIndex:        parseNumber(data["line_number"]),
	}
	t := wrap(item)
	item.RequisitionID = t.ensure(record.KindRequisition, data["requisition_ID"])
	item.ItemID = t.ensure(record.KindItem, data["item_ID"])
	item.OptionID = t.ensure(record.KindOption, data["optionID"])
	return t
}

func translateStocktake(id string, data map[string]string) Translation {
	stocktake := &record.Stocktake{
		ID:            id,
		Name:          data["Description"],
		CreatedDate:   parseDate(data["stock_take_created_date"], ""),
		StocktakeDate: parseDate(data["stock_take_date"], data["stock_take_time"]),
		Status:        translateStatus(data["status"]),
		Comment:       data["comment"],
		SerialNumber:  data["serial_number"],
	}
	t := wrap(stocktake)
	stocktake.CreatedByID = t.ensure(record.KindUser, data["created_by_ID"])
	stocktake.FinalisedByID = t.ensure(record.KindUser, data["finalised_by_ID"])
	stocktake.AdditionsID = t.ensure(record.KindTransaction, data["invad_additions_ID"])
	stocktake.ReductionsID = t.ensure(record.KindTransaction, data["invad_reductions_ID"])
	stocktake.ProgramID = t.ensure(record.KindMasterList, data["programID"])
	return t
}

func translateStocktakeBatch(id string, data map[string]string) Translation {
	packSize := numberOr(parseNumber(data["snapshot_packsize"]), 1)
	batch := &record.StocktakeBatch{
		ID:                    id,
		PackSize:              1,
		SnapshotNumberOfPacks: numberOr(parseNumber(data["snapshot_qty"]), 0) * packSize,
		ExpiryDate:            parseDate(data["expiry"], ""),
		Batch:                 data["Batch"],
		CostPrice:             unitPrice(parseNumber(data["cost_price"]), packSize),
		SellPrice:             unitPrice(parseNumber(data["sell_price"]), packSize),
		SortIndex:             parseNumber(data["line_number"]),
	}
	if counted := parseNumber(data["stock_take_qty"]); counted != nil {
		scaled := *counted * packSize
		batch.CountedNumberOfPacks = &scaled
	}
	t := wrap(batch)
	batch.StocktakeID = t.ensure(record.KindStocktake, data["stock_take_ID"])
	batch.ItemBatchID = t.ensure(record.KindItemBatch, data["item_line_ID"])
	batch.OptionID = t.ensure(record.KindOption, data["optionID"])
	// The item reference is bound onto the batch by the integrator.
	t.ensure(record.KindItem, data["item_ID"])
	return t
}

func translateTransaction(id, thisStoreID string, data map[string]string) Translation {
	if data["store_ID"] != thisStoreID {
		return Translation{Skip: "transaction not for this store"}
	}
	transaction := &record.Transaction{
		ID:           id,
		SerialNumber: data["invoice_num"],
		Comment:      data["comment"],
		EntryDate:    parseDate(data["entry_date"], ""),
		ConfirmDate:  parseDate(data["confirm_date"], ""),
		Type:         transactionTypes[data["type"]],
		Status:       translateStatus(data["status"]),
		TheirRef:     data["their_ref"],
	}
	t := wrap(transaction)
	transaction.OtherPartyID = t.ensure(record.KindName, data["name_ID"])
	transaction.EnteredByID = t.ensure(record.KindUser, data["user_ID"])
	transaction.LinkedRequisitionID = t.ensure(record.KindRequisition, data["requisition_ID"])
	transaction.CategoryID = t.ensure(record.KindTransactionCategory, data["category_ID"])
	return t
}

func translateTransactionBatch(id string, data map[string]string) Translation {
	packSize := numberOr(parseNumber(data["pack_size"]), 1)
	quantity := numberOr(parseNumber(data["quantity"]), 0) * packSize
	batch := &record.TransactionBatch{
		ID:                id,
		ItemName:          data["item_name"],
		PackSize:          1,
		NumberOfPacks:     quantity,
		NumberOfPacksSent: quantity,
		Note:              data["note"],
		ExpiryDate:        parseDate(data["expiry_date"], ""),
		Batch:             data["batch"],
		CostPrice:         unitPrice(parseNumber(data["cost_price"]), packSize),
		SellPrice:         unitPrice(parseNumber(data["sell_price"]), packSize),
		SortIndex:         parseNumber(data["line_number"]),
	}
	t := wrap(batch)
	batch.TransactionID = t.ensure(record.KindTransaction, data["transaction_ID"])
	batch.ItemBatchID = t.ensure(record.KindItemBatch, data["item_line_ID"])
	batch.ItemID = t.ensure(record.KindItem, data["item_ID"])
	return t
}
