package sync

// fieldContract lists the structural requirements for one record kind.
// cannotBeBlank fields must be present with a non-empty value; canBeBlank
// fields must be present but may be empty. This is a structural check only,
// field content is validated by the translator.
type fieldContract struct {
	cannotBeBlank []string
	canBeBlank    []string
}

var fieldContracts = map[syncKind]fieldContract{
	syncItem: {
		cannotBeBlank: []string{"code", "item_name"},
		canBeBlank:    []string{"default_pack_size"},
	},
	syncItemCategory: {
		canBeBlank: []string{"Description"},
	},
	syncItemDepartment: {
		canBeBlank: []string{"department"},
	},
	syncItemBatch: {
		cannotBeBlank: []string{"item_ID", "quantity"},
		canBeBlank:    []string{"pack_size", "batch", "expiry_date", "cost_price", "sell_price"},
	},
	syncItemStoreJoin: {
		cannotBeBlank: []string{"item_ID", "store_ID"},
	},
	syncLocalListItem: {
		cannotBeBlank: []string{"item_ID", "list_master_name_join_ID"},
	},
	syncMasterList: {
		canBeBlank: []string{"description", "programSettings", "isProgram"},
	},
	syncMasterListItem: {
		cannotBeBlank: []string{"item_ID"},
	},
	syncMasterListNameJoin: {
		cannotBeBlank: []string{"name_ID", "list_master_ID"},
		canBeBlank:    []string{"description"},
	},
	syncName: {
		cannotBeBlank: []string{"type", "customer", "supplier", "manufacturer"},
		canBeBlank:    []string{"name", "code"},
	},
	syncNameStoreJoin: {
		cannotBeBlank: []string{"name_ID", "store_ID"},
	},
	syncNumberSequence: {
		cannotBeBlank: []string{"name", "value"},
	},
	syncNumberToReuse: {
		cannotBeBlank: []string{"name", "number_to_use"},
	},
	syncOptions: {
		cannotBeBlank: []string{"name", "type", "isActive"},
	},
	syncPeriod: {
		cannotBeBlank: []string{"name", "startDate", "endDate", "periodScheduleID"},
	},
	syncPeriodSchedule: {
		cannotBeBlank: []string{"name"},
	},
	syncRequisition: {
		cannotBeBlank: []string{"status", "type", "daysToSupply"},
		canBeBlank:    []string{"date_entered", "serial_number", "requester_reference", "programID", "periodID"},
	},
	syncRequisitionItem: {
		cannotBeBlank: []string{"requisition_ID", "item_ID"},
		canBeBlank:    []string{"stock_on_hand", "Cust_stock_order", "optionID"},
	},
	syncStocktake: {
		cannotBeBlank: []string{"status"},
		canBeBlank:    []string{"Description", "stock_take_created_date", "serial_number", "program"},
	},
	syncStocktakeBatch: {
		cannotBeBlank: []string{"stock_take_ID", "item_line_ID", "item_ID", "snapshot_qty", "snapshot_packsize"},
		canBeBlank:    []string{"expiry", "Batch", "cost_price", "sell_price", "optionID"},
	},
	syncTransaction: {
		cannotBeBlank: []string{"name_ID", "type", "status", "store_ID"},
		canBeBlank:    []string{"invoice_num", "entry_date"},
	},
	syncTransactionCategory: {
		canBeBlank: []string{"category", "code", "type"},
	},
	syncTransactionBatch: {
		cannotBeBlank: []string{"item_ID", "item_line_ID", "expiry_date", "quantity", "cost_price", "sell_price"},
		canBeBlank:    []string{"item_name", "batch", "pack_size"},
	},
}

// sanityCheck verifies the record carries enough structure to build an
// internal record of the kind: an identifier, every required field non-blank
// and every blankable field at least present.
func sanityCheck(kind syncKind, id string, data map[string]string) bool {
	if id == "" {
		return false
	}
	contract, ok := fieldContracts[kind]
	if !ok {
		return false
	}
	for _, field := range contract.cannotBeBlank {
		if data[field] == "" {
			return false
		}
	}
	for _, field := range contract.canBeBlank {
		if _, present := data[field]; !present {
			return false
		}
	}
	return true
}
