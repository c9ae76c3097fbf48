// Package allocation distributes quantity and dose changes across the batch
// ledger of a transaction line. Increases follow first-expiry-first-out,
// decreases come off the longest expiry first; an undated batch sorts as the
// earliest possible expiry so it is always issued first.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/shared"
	"github.com/mobistock/mobistock/internal/store"
)

// Service runs allocation operations, each inside one atomic unit.
type Service struct {
	store store.Store
}

// NewService builds an allocation service over the store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// SetQuantity sets the total quantity of a transaction line, spreading the
// difference across its batch ledger. The whole unit rolls back when the
// difference cannot be fully placed.
func (s *Service) SetQuantity(ctx context.Context, lineID string, quantity float64) error {
	return s.store.RunAtomic(ctx, func(tx store.Tx) error {
		return setQuantity(tx, lineID, quantity)
	})
}

// SetDoses distributes a dose count across the line's batch ledger in
// proportion to each batch's quantity.
func (s *Service) SetDoses(ctx context.Context, lineID string, doses float64) error {
	return s.store.RunAtomic(ctx, func(tx store.Tx) error {
		return setDoses(tx, lineID, doses)
	})
}

type lineContext struct {
	line        *record.TransactionItem
	transaction *record.Transaction
	item        *record.Item
	entries     []*record.TransactionBatch
}

func loadLine(tx store.Tx, lineID string) (*lineContext, error) {
	candidate, err := tx.Get(record.KindTransactionItem, lineID)
	if err != nil {
		return nil, err
	}
	line := candidate.(*record.TransactionItem)

	parent, err := tx.Get(record.KindTransaction, line.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("load transaction %s: %w", line.TransactionID, err)
	}
	owner, err := tx.Get(record.KindItem, line.ItemID)
	if err != nil {
		return nil, fmt.Errorf("load item %s: %w", line.ItemID, err)
	}

	lc := &lineContext{
		line:        line,
		transaction: parent.(*record.Transaction),
		item:        owner.(*record.Item),
	}
	for _, entryID := range line.BatchIDs {
		entry, err := tx.Get(record.KindTransactionBatch, entryID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		lc.entries = append(lc.entries, entry.(*record.TransactionBatch))
	}
	return lc, nil
}

func (lc *lineContext) totalQuantity() float64 {
	var total float64
	for _, entry := range lc.entries {
		total += entry.NumberOfPacks
	}
	return total
}

// itemStock sums the physical stock across the item's batches.
func itemStock(tx store.Tx, item *record.Item) (float64, error) {
	var total float64
	for _, batchID := range item.BatchIDs {
		batch, err := tx.Get(record.KindItemBatch, batchID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return 0, err
		}
		total += batch.(*record.ItemBatch).NumberOfPacks
	}
	return total, nil
}

// availableQuantity is how much can be issued in total. For confirmed or
// finalised outgoing transactions the line's own quantity has already been
// taken off the stock, so it is added back.
func (lc *lineContext) availableQuantity(tx store.Tx) (float64, error) {
	stock, err := itemStock(tx, lc.item)
	if err != nil {
		return 0, err
	}
	if lc.transaction.IsOutgoing() && (lc.transaction.IsConfirmed() || lc.transaction.IsFinalised()) {
		return stock + lc.totalQuantity(), nil
	}
	return stock, nil
}

func setQuantity(tx store.Tx, lineID string, quantity float64) error {
	if quantity < 0 {
		return fmt.Errorf("%w: negative quantity %g", shared.ErrInvalidArgument, quantity)
	}
	lc, err := loadLine(tx, lineID)
	if err != nil {
		return err
	}
	if lc.transaction.IsFinalised() {
		return fmt.Errorf("%w: cannot set quantity on a finalised transaction", shared.ErrInvalidState)
	}

	capped := quantity
	if lc.transaction.IsOutgoing() {
		available, err := lc.availableQuantity(tx)
		if err != nil {
			return err
		}
		capped = math.Min(quantity, available)
	}

	difference := capped - lc.totalQuantity()
	if err := allocateDifference(tx, lc, difference); err != nil {
		return err
	}
	return pruneEmptyEntries(tx, lc)
}

// allocateDifference spreads the difference across existing ledger entries,
// topping up with new entries from the item's batches when an increase does
// not fit.
func allocateDifference(tx store.Tx, lc *lineContext, difference float64) error {
	entries := make([]*record.TransactionBatch, len(lc.entries))
	copy(entries, lc.entries)
	sortEntriesByExpiry(entries, difference < 0)

	remainder := difference
	for _, entry := range entries {
		if remainder == 0 {
			break
		}
		allocated, err := allocateToEntry(tx, lc, entry, remainder)
		if err != nil {
			return err
		}
		remainder -= allocated
	}

	if remainder > 0 {
		var err error
		remainder, err = allocateToNewEntries(tx, lc, remainder)
		if err != nil {
			return err
		}
	}

	if remainder > 0 {
		return &shared.AllocationError{
			ItemID:    lc.item.ID,
			Remainder: remainder,
			Requested: difference,
		}
	}
	return nil
}

// allocateToEntry applies as much of the difference as the entry allows: it
// cannot go below empty, and an outgoing transaction cannot issue more of a
// batch than is physically in stock.
func allocateToEntry(tx store.Tx, lc *lineContext, entry *record.TransactionBatch, difference float64) (float64, error) {
	lower := -entry.NumberOfPacks
	upper := math.Inf(1)
	if lc.transaction.IsOutgoing() {
		batch, err := getItemBatch(tx, entry.ItemBatchID)
		if err != nil {
			return 0, err
		}
		// Stock is only taken off the item batch at confirmation, so before
		// then the entry's own quantity still counts against the stock.
		upper = 0
		if batch != nil {
			upper = batch.NumberOfPacks
			if !lc.transaction.IsConfirmed() && !lc.transaction.IsFinalised() {
				upper -= entry.NumberOfPacks
			}
			upper = math.Max(upper, 0)
		}
	}

	allocated := math.Min(math.Max(difference, lower), upper)
	if allocated == 0 {
		return 0, nil
	}
	entry.NumberOfPacks += allocated
	if err := tx.Upsert(entry); err != nil {
		return 0, err
	}
	return allocated, nil
}

// allocateToNewEntries adds ledger entries for item batches not yet in the
// line. Batches holding stock are preferred, shortest expiry first; when none
// hold stock the batch most recently in stock, longest expiry, is used.
func allocateToNewEntries(tx store.Tx, lc *lineContext, remainder float64) (float64, error) {
	attached := make(map[string]bool, len(lc.entries))
	for _, entry := range lc.entries {
		attached[entry.ItemBatchID] = true
	}

	var withStock, all []*record.ItemBatch
	for _, batchID := range lc.item.BatchIDs {
		batch, err := getItemBatch(tx, batchID)
		if err != nil {
			return 0, err
		}
		if batch == nil || attached[batch.ID] {
			continue
		}
		all = append(all, batch)
		if batch.NumberOfPacks > 0 {
			withStock = append(withStock, batch)
		}
	}

	candidates := withStock
	if len(candidates) == 0 {
		candidates = all
		sortBatchesByExpiry(candidates, true)
	} else {
		sortBatchesByExpiry(candidates, false)
	}

	for _, batch := range candidates {
		if remainder == 0 {
			break
		}
		entry := &record.TransactionBatch{
			ID:                uuid.NewString(),
			TransactionID:     lc.transaction.ID,
			TransactionItemID: lc.line.ID,
			ItemID:            lc.item.ID,
			ItemName:          lc.item.Name,
			ItemBatchID:       batch.ID,
			PackSize:          1,
			ExpiryDate:        batch.ExpiryDate,
			Batch:             batch.Batch,
			CostPrice:         batch.CostPrice,
			SellPrice:         batch.SellPrice,
		}
		lc.line.AddBatch(entry.ID)
		lc.entries = append(lc.entries, entry)
		batch.AddTransactionBatch(entry.ID)
		if err := tx.Upsert(batch); err != nil {
			return 0, err
		}

		allocated, err := allocateToEntry(tx, lc, entry, remainder)
		if err != nil {
			return 0, err
		}
		remainder -= allocated
	}
	if err := tx.Upsert(lc.line); err != nil {
		return 0, err
	}
	return remainder, nil
}

// pruneEmptyEntries drops ledger entries that no longer contribute anything,
// keeping entries with a sent quantity since those document dispatch.
func pruneEmptyEntries(tx store.Tx, lc *lineContext) error {
	kept := lc.entries[:0]
	for _, entry := range lc.entries {
		if entry.NumberOfPacks != 0 || entry.NumberOfPacksSent != 0 {
			kept = append(kept, entry)
			continue
		}
		lc.line.RemoveBatch(entry.ID)
		batch, err := getItemBatch(tx, entry.ItemBatchID)
		if err != nil {
			return err
		}
		if batch != nil {
			batch.RemoveTransactionBatch(entry.ID)
			if err := tx.Upsert(batch); err != nil {
				return err
			}
		}
		if err := tx.Delete(record.KindTransactionBatch, entry.ID); err != nil {
			return err
		}
	}
	lc.entries = kept
	return tx.Upsert(lc.line)
}

func setDoses(tx store.Tx, lineID string, doses float64) error {
	lc, err := loadLine(tx, lineID)
	if err != nil {
		return err
	}
	if lc.transaction.IsFinalised() {
		return fmt.Errorf("%w: cannot set doses on a finalised transaction", shared.ErrInvalidState)
	}

	total := lc.totalQuantity()
	remaining := clampDoses(doses, total, lc.item.DosesPerUnit)

	entries := make([]*record.TransactionBatch, len(lc.entries))
	copy(entries, lc.entries)
	sortEntriesByExpiry(entries, true)

	remainingQuantity := total
	for _, entry := range entries {
		entry.Doses = 0
		if remainingQuantity > 0 {
			entry.Doses = math.Floor(remaining / remainingQuantity * entry.NumberOfPacks)
		}
		remaining -= entry.Doses
		remainingQuantity -= entry.NumberOfPacks
		if err := tx.Upsert(entry); err != nil {
			return err
		}
	}
	return nil
}

// clampDoses bounds the requested dose count: every unit carries at least one
// dose and at most the item's doses per unit.
func clampDoses(doses, quantity, dosesPerUnit float64) float64 {
	maximum := quantity * dosesPerUnit
	if doses >= maximum {
		return maximum
	}
	if doses <= quantity {
		return quantity
	}
	return doses
}

func getItemBatch(tx store.Tx, id string) (*record.ItemBatch, error) {
	if id == "" {
		return nil, nil
	}
	batch, err := tx.Get(record.KindItemBatch, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return batch.(*record.ItemBatch), nil
}

// sortEntriesByExpiry orders ledger entries by expiry. A nil expiry is the
// earliest possible date. Ties keep their relative order.
func sortEntriesByExpiry(entries []*record.TransactionBatch, descending bool) {
	sort.SliceStable(entries, func(i, j int) bool {
		if descending {
			return expiryBefore(entries[j].ExpiryDate, entries[i].ExpiryDate)
		}
		return expiryBefore(entries[i].ExpiryDate, entries[j].ExpiryDate)
	})
}

func sortBatchesByExpiry(batches []*record.ItemBatch, descending bool) {
	sort.SliceStable(batches, func(i, j int) bool {
		if descending {
			return expiryBefore(batches[j].ExpiryDate, batches[i].ExpiryDate)
		}
		return expiryBefore(batches[i].ExpiryDate, batches[j].ExpiryDate)
	})
}

func expiryBefore(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return true
	case b == nil:
		return false
	}
	return a.Before(*b)
}
