package record

import "time"

// TransactionStatus tracks the monotonic new -> confirmed -> finalised flow.
type TransactionStatus string

const (
	StatusNew       TransactionStatus = "new"
	StatusSuggested TransactionStatus = "suggested"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusFinalised TransactionStatus = "finalised"
)

// TransactionType enumerates supported invoice and adjustment types.
type TransactionType string

const (
	TransactionTypeCustomerInvoice     TransactionType = "customer_invoice"
	TransactionTypeSupplierInvoice     TransactionType = "supplier_invoice"
	TransactionTypeCustomerCredit      TransactionType = "customer_credit"
	TransactionTypeSupplierCredit      TransactionType = "supplier_credit"
	TransactionTypeInventoryAdjustment TransactionType = "inventory_adjustment"
)

// RequisitionType distinguishes request and response requisitions.
type RequisitionType string

const (
	RequisitionTypeRequest  RequisitionType = "request"
	RequisitionTypeResponse RequisitionType = "response"
	RequisitionTypeImprest  RequisitionType = "imprest"
)

// Address is deduplicated by content; see sync.getOrCreateAddress.
type Address struct {
	ID      string `json:"id"`
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
	Line3   string `json:"line3,omitempty"`
	Line4   string `json:"line4,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

func (r *Address) RecordID() string { return r.ID }
func (r *Address) RecordKind() Kind { return KindAddress }

// Item is a stock item. Batches are owned downward as identifier lists; the
// batch holds the upward ItemID for store lookups.
type Item struct {
	ID                   string   `json:"id"`
	Code                 string   `json:"code"`
	Name                 string   `json:"name"`
	Description          string   `json:"description,omitempty"`
	DefaultPackSize      float64  `json:"defaultPackSize"`
	DefaultPrice         float64  `json:"defaultPrice"`
	DosesPerUnit         float64  `json:"dosesPerUnit,omitempty"`
	IsVisible            bool     `json:"isVisible"`
	CategoryID           string   `json:"categoryId,omitempty"`
	DepartmentID         string   `json:"departmentId,omitempty"`
	CrossReferenceItemID string   `json:"crossReferenceItemId,omitempty"`
	BatchIDs             []string `json:"batchIds,omitempty"`
}

func (r *Item) RecordID() string { return r.ID }
func (r *Item) RecordKind() Kind { return KindItem }

// AddBatch attaches a batch id exactly once.
func (r *Item) AddBatch(batchID string) {
	for _, id := range r.BatchIDs {
		if id == batchID {
			return
		}
	}
	r.BatchIDs = append(r.BatchIDs, batchID)
}

// RemoveBatch detaches a batch id if present.
func (r *Item) RemoveBatch(batchID string) {
	for i, id := range r.BatchIDs {
		if id == batchID {
			r.BatchIDs = append(r.BatchIDs[:i], r.BatchIDs[i+1:]...)
			return
		}
	}
}

// ItemBatch holds physical stock at pack size 1. A nil expiry sorts as the
// earliest possible date so undated stock is issued first.
type ItemBatch struct {
	ID                  string     `json:"id"`
	ItemID              string     `json:"itemId"`
	PackSize            float64    `json:"packSize"`
	NumberOfPacks       float64    `json:"numberOfPacks"`
	ExpiryDate          *time.Time `json:"expiryDate,omitempty"`
	Batch               string     `json:"batch,omitempty"`
	CostPrice           float64    `json:"costPrice"`
	SellPrice           float64    `json:"sellPrice"`
	SupplierID          string     `json:"supplierId,omitempty"`
	TransactionBatchIDs []string   `json:"transactionBatchIds,omitempty"`
}

func (r *ItemBatch) RecordID() string { return r.ID }
func (r *ItemBatch) RecordKind() Kind { return KindItemBatch }

// AddTransactionBatch attaches a ledger entry id exactly once.
func (r *ItemBatch) AddTransactionBatch(id string) {
	for _, existing := range r.TransactionBatchIDs {
		if existing == id {
			return
		}
	}
	r.TransactionBatchIDs = append(r.TransactionBatchIDs, id)
}

// RemoveTransactionBatch detaches a ledger entry id if present.
func (r *ItemBatch) RemoveTransactionBatch(id string) {
	for i, existing := range r.TransactionBatchIDs {
		if existing == id {
			r.TransactionBatchIDs = append(r.TransactionBatchIDs[:i], r.TransactionBatchIDs[i+1:]...)
			return
		}
	}
}

type ItemCategory struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (r *ItemCategory) RecordID() string { return r.ID }
func (r *ItemCategory) RecordKind() Kind { return KindItemCategory }

type ItemDepartment struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (r *ItemDepartment) RecordID() string { return r.ID }
func (r *ItemDepartment) RecordKind() Kind { return KindItemDepartment }

// ItemStoreJoin records a store-to-item visibility join. Only joins matching
// the configured store identifier mutate local visibility.
type ItemStoreJoin struct {
	ID             string `json:"id"`
	ItemID         string `json:"itemId"`
	JoinsThisStore bool   `json:"joinsThisStore"`
}

func (r *ItemStoreJoin) RecordID() string { return r.ID }
func (r *ItemStoreJoin) RecordKind() Kind { return KindItemStoreJoin }

type MasterList struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Note            string   `json:"note,omitempty"`
	IsProgram       bool     `json:"isProgram,omitempty"`
	ProgramSettings string   `json:"programSettings,omitempty"`
	ItemIDs         []string `json:"itemIds,omitempty"`
}

func (r *MasterList) RecordID() string { return r.ID }
func (r *MasterList) RecordKind() Kind { return KindMasterList }

// AddItem attaches a list item id exactly once.
func (r *MasterList) AddItem(itemID string) {
	for _, id := range r.ItemIDs {
		if id == itemID {
			return
		}
	}
	r.ItemIDs = append(r.ItemIDs, itemID)
}

type MasterListItem struct {
	ID              string   `json:"id"`
	MasterListID    string   `json:"masterListId"`
	ItemID          string   `json:"itemId"`
	ImprestQuantity *float64 `json:"imprestQuantity,omitempty"`
}

func (r *MasterListItem) RecordID() string { return r.ID }
func (r *MasterListItem) RecordKind() Kind { return KindMasterListItem }

type MasterListNameJoin struct {
	ID           string `json:"id"`
	NameID       string `json:"nameId"`
	MasterListID string `json:"masterListId"`
}

func (r *MasterListNameJoin) RecordID() string { return r.ID }
func (r *MasterListNameJoin) RecordKind() Kind { return KindMasterListNameJoin }

// Name models an external party: customer, supplier, store or facility.
type Name struct {
	ID               string   `json:"id"`
	Name             string   `json:"name,omitempty"`
	Code             string   `json:"code,omitempty"`
	Type             string   `json:"type,omitempty"`
	PhoneNumber      string   `json:"phoneNumber,omitempty"`
	EmailAddress     string   `json:"emailAddress,omitempty"`
	BillingAddressID string   `json:"billingAddressId,omitempty"`
	IsCustomer       bool     `json:"isCustomer"`
	IsSupplier       bool     `json:"isSupplier"`
	IsManufacturer   bool     `json:"isManufacturer"`
	IsVisible        bool     `json:"isVisible"`
	SupplyingStoreID string   `json:"supplyingStoreId,omitempty"`
	MasterListIDs    []string `json:"masterListIds,omitempty"`
	TransactionIDs   []string `json:"transactionIds,omitempty"`
}

func (r *Name) RecordID() string { return r.ID }
func (r *Name) RecordKind() Kind { return KindName }

// AddMasterList attaches a master list id exactly once.
func (r *Name) AddMasterList(id string) {
	for _, existing := range r.MasterListIDs {
		if existing == id {
			return
		}
	}
	r.MasterListIDs = append(r.MasterListIDs, id)
}

// AddTransaction attaches a transaction id exactly once.
func (r *Name) AddTransaction(id string) {
	for _, existing := range r.TransactionIDs {
		if existing == id {
			return
		}
	}
	r.TransactionIDs = append(r.TransactionIDs, id)
}

type NameStoreJoin struct {
	ID             string `json:"id"`
	NameID         string `json:"nameId"`
	JoinsThisStore bool   `json:"joinsThisStore"`
}

func (r *NameStoreJoin) RecordID() string { return r.ID }
func (r *NameStoreJoin) RecordKind() Kind { return KindNameStoreJoin }

// NumberSequence tracks the highest serial number used for one sequence key.
// Remote updates to an existing sequence are ignored so replay cannot rewind
// local numbering.
type NumberSequence struct {
	ID                string   `json:"id"`
	SequenceKey       string   `json:"sequenceKey"`
	HighestNumberUsed float64  `json:"highestNumberUsed"`
	NumberToReuseIDs  []string `json:"numberToReuseIds,omitempty"`
}

func (r *NumberSequence) RecordID() string { return r.ID }
func (r *NumberSequence) RecordKind() Kind { return KindNumberSequence }

// AddNumberToReuse attaches a reusable number id exactly once.
func (r *NumberSequence) AddNumberToReuse(id string) {
	for _, existing := range r.NumberToReuseIDs {
		if existing == id {
			return
		}
	}
	r.NumberToReuseIDs = append(r.NumberToReuseIDs, id)
}

type NumberToReuse struct {
	ID               string  `json:"id"`
	NumberSequenceID string  `json:"numberSequenceId"`
	SequenceKey      string  `json:"sequenceKey"`
	Number           float64 `json:"number"`
}

func (r *NumberToReuse) RecordID() string { return r.ID }
func (r *NumberToReuse) RecordKind() Kind { return KindNumberToReuse }

type Option struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
	IsActive bool   `json:"isActive"`
}

func (r *Option) RecordID() string { return r.ID }
func (r *Option) RecordKind() Kind { return KindOption }

type Period struct {
	ID               string     `json:"id"`
	Name             string     `json:"name,omitempty"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	PeriodScheduleID string     `json:"periodScheduleId,omitempty"`
}

func (r *Period) RecordID() string { return r.ID }
func (r *Period) RecordKind() Kind { return KindPeriod }

type PeriodSchedule struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	PeriodIDs []string `json:"periodIds,omitempty"`
}

func (r *PeriodSchedule) RecordID() string { return r.ID }
func (r *PeriodSchedule) RecordKind() Kind { return KindPeriodSchedule }

// AddPeriod attaches a period id exactly once.
func (r *PeriodSchedule) AddPeriod(id string) {
	for _, existing := range r.PeriodIDs {
		if existing == id {
			return
		}
	}
	r.PeriodIDs = append(r.PeriodIDs, id)
}

type Requisition struct {
	ID                  string            `json:"id"`
	Status              TransactionStatus `json:"status,omitempty"`
	Type                RequisitionType   `json:"type,omitempty"`
	EntryDate           *time.Time        `json:"entryDate,omitempty"`
	DaysToSupply        float64           `json:"daysToSupply"`
	SerialNumber        string            `json:"serialNumber,omitempty"`
	RequesterReference  string            `json:"requesterReference,omitempty"`
	Comment             string            `json:"comment,omitempty"`
	EnteredByID         string            `json:"enteredById,omitempty"`
	OtherStoreNameID    string            `json:"otherStoreNameId,omitempty"`
	ProgramID           string            `json:"programId,omitempty"`
	PeriodID            string            `json:"periodId,omitempty"`
	LinkedTransactionID string            `json:"linkedTransactionId,omitempty"`
	ItemIDs             []string          `json:"itemIds,omitempty"`
}

func (r *Requisition) RecordID() string { return r.ID }
func (r *Requisition) RecordKind() Kind { return KindRequisition }

// IsFinalised reports whether the requisition is terminal.
func (r *Requisition) IsFinalised() bool { return r.Status == StatusFinalised }

// AddItem attaches a requisition item id exactly once.
func (r *Requisition) AddItem(id string) {
	for _, existing := range r.ItemIDs {
		if existing == id {
			return
		}
	}
	r.ItemIDs = append(r.ItemIDs, id)
}

type RequisitionItem struct {
	ID               string   `json:"id"`
	RequisitionID    string   `json:"requisitionId"`
	ItemID           string   `json:"itemId"`
	StockOnHand      *float64 `json:"stockOnHand,omitempty"`
	DailyUsage       *float64 `json:"dailyUsage,omitempty"`
	RequiredQuantity *float64 `json:"requiredQuantity,omitempty"`
	SuppliedQuantity *float64 `json:"suppliedQuantity,omitempty"`
	Comment          string   `json:"comment,omitempty"`
	SortIndex        *float64 `json:"sortIndex,omitempty"`
	OptionID         string   `json:"optionId,omitempty"`
}

func (r *RequisitionItem) RecordID() string { return r.ID }
func (r *RequisitionItem) RecordKind() Kind { return KindRequisitionItem }

// Setting is the legacy settings record kept inside the main store. Newer
// installs persist settings in the lightweight settings store instead.
type Setting struct {
	ID    string `json:"id"`
	Value string `json:"value,omitempty"`
}

func (r *Setting) RecordID() string { return r.ID }
func (r *Setting) RecordKind() Kind { return KindSetting }

type Stocktake struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	CreatedDate   *time.Time        `json:"createdDate,omitempty"`
	StocktakeDate *time.Time        `json:"stocktakeDate,omitempty"`
	Status        TransactionStatus `json:"status,omitempty"`
	CreatedByID   string            `json:"createdById,omitempty"`
	FinalisedByID string            `json:"finalisedById,omitempty"`
	Comment       string            `json:"comment,omitempty"`
	SerialNumber  string            `json:"serialNumber,omitempty"`
	AdditionsID   string            `json:"additionsId,omitempty"`
	ReductionsID  string            `json:"reductionsId,omitempty"`
	ProgramID     string            `json:"programId,omitempty"`
	BatchIDs      []string          `json:"batchIds,omitempty"`
}

func (r *Stocktake) RecordID() string { return r.ID }
func (r *Stocktake) RecordKind() Kind { return KindStocktake }

// IsFinalised reports whether the stocktake is terminal.
func (r *Stocktake) IsFinalised() bool { return r.Status == StatusFinalised }

// AddBatch attaches a stocktake batch id exactly once.
func (r *Stocktake) AddBatch(id string) {
	for _, existing := range r.BatchIDs {
		if existing == id {
			return
		}
	}
	r.BatchIDs = append(r.BatchIDs, id)
}

type StocktakeBatch struct {
	ID                    string     `json:"id"`
	StocktakeID           string     `json:"stocktakeId"`
	ItemBatchID           string     `json:"itemBatchId"`
	PackSize              float64    `json:"packSize"`
	SnapshotNumberOfPacks float64    `json:"snapshotNumberOfPacks"`
	CountedNumberOfPacks  *float64   `json:"countedNumberOfPacks,omitempty"`
	ExpiryDate            *time.Time `json:"expiryDate,omitempty"`
	Batch                 string     `json:"batch,omitempty"`
	CostPrice             float64    `json:"costPrice"`
	SellPrice             float64    `json:"sellPrice"`
	SortIndex             *float64   `json:"sortIndex,omitempty"`
	OptionID              string     `json:"optionId,omitempty"`
}

func (r *StocktakeBatch) RecordID() string { return r.ID }
func (r *StocktakeBatch) RecordKind() Kind { return KindStocktakeBatch }

type Transaction struct {
	ID                  string            `json:"id"`
	SerialNumber        string            `json:"serialNumber,omitempty"`
	Type                TransactionType   `json:"type,omitempty"`
	Status              TransactionStatus `json:"status,omitempty"`
	EntryDate           *time.Time        `json:"entryDate,omitempty"`
	ConfirmDate         *time.Time        `json:"confirmDate,omitempty"`
	Comment             string            `json:"comment,omitempty"`
	TheirRef            string            `json:"theirRef,omitempty"`
	CategoryID          string            `json:"categoryId,omitempty"`
	EnteredByID         string            `json:"enteredById,omitempty"`
	OtherPartyID        string            `json:"otherPartyId,omitempty"`
	LinkedRequisitionID string            `json:"linkedRequisitionId,omitempty"`
	ItemLineIDs         []string          `json:"itemLineIds,omitempty"`
}

func (r *Transaction) RecordID() string { return r.ID }
func (r *Transaction) RecordKind() Kind { return KindTransaction }

// IsOutgoing reports whether the transaction issues stock out of this store.
func (r *Transaction) IsOutgoing() bool {
	return r.Type == TransactionTypeCustomerInvoice || r.Type == TransactionTypeSupplierCredit
}

// IsConfirmed reports whether the transaction has reached confirmed status.
func (r *Transaction) IsConfirmed() bool { return r.Status == StatusConfirmed }

// IsFinalised reports whether the transaction is terminal and immutable.
func (r *Transaction) IsFinalised() bool { return r.Status == StatusFinalised }

// AddItemLine attaches a transaction item id exactly once.
func (r *Transaction) AddItemLine(id string) {
	for _, existing := range r.ItemLineIDs {
		if existing == id {
			return
		}
	}
	r.ItemLineIDs = append(r.ItemLineIDs, id)
}

type TransactionCategory struct {
	ID   string          `json:"id"`
	Name string          `json:"name,omitempty"`
	Code string          `json:"code,omitempty"`
	Type TransactionType `json:"type,omitempty"`
}

func (r *TransactionCategory) RecordID() string { return r.ID }
func (r *TransactionCategory) RecordKind() Kind { return KindTransactionCategory }

// TransactionItem is one invoice line. It owns its allocation ledger
// (TransactionBatch ids) downward and references item and transaction upward.
type TransactionItem struct {
	ID            string   `json:"id"`
	TransactionID string   `json:"transactionId"`
	ItemID        string   `json:"itemId"`
	BatchIDs      []string `json:"batchIds,omitempty"`
}

func (r *TransactionItem) RecordID() string { return r.ID }
func (r *TransactionItem) RecordKind() Kind { return KindTransactionItem }

// AddBatch attaches a ledger entry id exactly once.
func (r *TransactionItem) AddBatch(id string) {
	for _, existing := range r.BatchIDs {
		if existing == id {
			return
		}
	}
	r.BatchIDs = append(r.BatchIDs, id)
}

// RemoveBatch detaches a ledger entry id.
func (r *TransactionItem) RemoveBatch(id string) {
	for i, existing := range r.BatchIDs {
		if existing == id {
			r.BatchIDs = append(r.BatchIDs[:i], r.BatchIDs[i+1:]...)
			return
		}
	}
}

// TransactionBatch is the ledger entry attributing a quantity of one
// ItemBatch to one transaction line. NumberOfPacksSent is immutable once the
// parent transaction is confirmed.
type TransactionBatch struct {
	ID                string     `json:"id"`
	TransactionID     string     `json:"transactionId"`
	TransactionItemID string     `json:"transactionItemId,omitempty"`
	ItemID            string     `json:"itemId"`
	ItemName          string     `json:"itemName,omitempty"`
	ItemBatchID       string     `json:"itemBatchId"`
	PackSize          float64    `json:"packSize"`
	NumberOfPacks     float64    `json:"numberOfPacks"`
	NumberOfPacksSent float64    `json:"numberOfPacksSent"`
	Doses             float64    `json:"doses,omitempty"`
	ExpiryDate        *time.Time `json:"expiryDate,omitempty"`
	Batch             string     `json:"batch,omitempty"`
	CostPrice         float64    `json:"costPrice"`
	SellPrice         float64    `json:"sellPrice"`
	SortIndex         *float64   `json:"sortIndex,omitempty"`
	Note              string     `json:"note,omitempty"`
}

func (r *TransactionBatch) RecordID() string { return r.ID }
func (r *TransactionBatch) RecordKind() Kind { return KindTransactionBatch }

type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

func (r *User) RecordID() string { return r.ID }
func (r *User) RecordKind() Kind { return KindUser }
