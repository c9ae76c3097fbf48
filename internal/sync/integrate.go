package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/settings"
	"github.com/mobistock/mobistock/internal/shared"
	"github.com/mobistock/mobistock/internal/store"
)

// ChangeRecord is the wire shape of one change delivered by the remote
// authority. All scalar fields arrive as strings or are absent; parsing is
// this core's responsibility.
type ChangeRecord struct {
	RecordType string            `json:"RecordType" validate:"required"`
	SyncType   string            `json:"SyncType" validate:"required,oneof=new update delete merge"`
	RecordID   string            `json:"RecordID"`
	Data       map[string]string `json:"data,omitempty"`
}

// Outcome reports how one change record was handled.
type Outcome struct {
	Applied bool
	Reason  string
	Err     error
}

// BatchReport summarises one IntegrateBatch call.
type BatchReport struct {
	Applied  int
	Skipped  int
	Failures []RecordFailure
}

// RecordFailure identifies a record whose integration was aborted by a
// downstream invariant violation. The rest of the batch continues.
type RecordFailure struct {
	RecordID   string
	RecordType string
	Err        error
}

const defaultChunkSize = 500

// Integrator consumes ordered change records and applies them to the local
// store. Records are integrated strictly one at a time, in delivery order.
type Integrator struct {
	store     store.Store
	settings  settings.Settings
	sink      EventSink
	chunkSize int
}

// NewIntegrator builds an Integrator. A nil sink discards skip diagnostics.
func NewIntegrator(st store.Store, set settings.Settings, sink EventSink) *Integrator {
	return &Integrator{store: st, settings: set, sink: sink, chunkSize: defaultChunkSize}
}

// SetChunkSize overrides how many records share one atomic unit.
func (in *Integrator) SetChunkSize(n int) {
	if n > 0 {
		in.chunkSize = n
	}
}

func (in *Integrator) skip(rec ChangeRecord, reason string) Outcome {
	return Outcome{Reason: reason}
}

// emit publishes a skip diagnostic. Emission happens after the atomic unit
// commits so a rolled-back chunk cannot double-report during replay.
func (in *Integrator) emit(rec ChangeRecord, outcome Outcome) {
	if in.sink == nil || outcome.Applied || outcome.Reason == "" {
		return
	}
	in.sink.RecordSkipped(SkipEvent{RecordID: rec.RecordID, RecordType: rec.RecordType, Reason: outcome.Reason})
}

// IntegrateBatch applies the records in delivery order, chunked into atomic
// units for responsiveness. A chunk never splits one record's
// primary-upsert-plus-dual-write unit; when a record inside a chunk fails,
// the chunk is rolled back and replayed one record per unit so the failing
// record alone is reported and the remainder proceeds. Cancellation is
// honored at record boundaries only.
func (in *Integrator) IntegrateBatch(ctx context.Context, records []ChangeRecord) (BatchReport, error) {
	thisStoreID, err := in.settings.Get(ctx, settings.KeyThisStoreID)
	if err != nil {
		return BatchReport{}, fmt.Errorf("sync: read store id: %w", err)
	}

	var report BatchReport
	for start := 0; start < len(records); start += in.chunkSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := start + in.chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		var outcomes []Outcome
		err := in.store.RunAtomic(ctx, func(tx store.Tx) error {
			outcomes = outcomes[:0]
			for _, rec := range chunk {
				outcome := in.integrateOne(tx, thisStoreID, rec)
				if outcome.Err != nil {
					return &chunkFailure{outcome: outcome}
				}
				outcomes = append(outcomes, outcome)
			}
			return nil
		})
		if err != nil {
			var failure *chunkFailure
			if !errors.As(err, &failure) {
				return report, err
			}
			// The chunk rolled back; replay it one record per unit so only
			// the failing record is lost.
			in.replayChunk(ctx, thisStoreID, chunk, &report)
			continue
		}
		for i, outcome := range outcomes {
			in.emit(chunk[i], outcome)
			if outcome.Applied {
				report.Applied++
			} else {
				report.Skipped++
			}
		}
	}
	return report, nil
}

type chunkFailure struct {
	outcome Outcome
}

func (f *chunkFailure) Error() string { return f.outcome.Err.Error() }

func (in *Integrator) replayChunk(ctx context.Context, thisStoreID string, chunk []ChangeRecord, report *BatchReport) {
	for _, rec := range chunk {
		if ctx.Err() != nil {
			return
		}
		var outcome Outcome
		err := in.store.RunAtomic(ctx, func(tx store.Tx) error {
			outcome = in.integrateOne(tx, thisStoreID, rec)
			return outcome.Err
		})
		switch {
		case err != nil:
			report.Failures = append(report.Failures, RecordFailure{RecordID: rec.RecordID, RecordType: rec.RecordType, Err: err})
		case outcome.Applied:
			report.Applied++
		default:
			in.emit(rec, outcome)
			report.Skipped++
		}
	}
}

// Integrate applies a single change record inside its own atomic unit.
func (in *Integrator) Integrate(ctx context.Context, rec ChangeRecord) (Outcome, error) {
	thisStoreID, err := in.settings.Get(ctx, settings.KeyThisStoreID)
	if err != nil {
		return Outcome{}, fmt.Errorf("sync: read store id: %w", err)
	}
	var outcome Outcome
	err = in.store.RunAtomic(ctx, func(tx store.Tx) error {
		outcome = in.integrateOne(tx, thisStoreID, rec)
		return outcome.Err
	})
	if err != nil {
		return outcome, err
	}
	in.emit(rec, outcome)
	return outcome, nil
}

func (in *Integrator) integrateOne(tx store.Tx, thisStoreID string, rec ChangeRecord) Outcome {
	if rec.RecordType == "" || rec.SyncType == "" {
		return in.skip(rec, "missing record or sync type")
	}
	change, ok := changeTypes[rec.SyncType]
	if !ok {
		return in.skip(rec, "unsupported sync type")
	}
	kind, ok := recordTypes[rec.RecordType]
	if !ok {
		return in.skip(rec, "unsupported record kind")
	}

	switch change {
	case ChangeCreate, ChangeUpdate:
		if rec.Data == nil {
			return in.skip(rec, "missing data")
		}
		return in.upsertRecord(tx, thisStoreID, kind, rec)
	case ChangeDelete:
		if rec.RecordID == "" {
			return in.skip(rec, "missing record id")
		}
		return in.deleteRecord(tx, kind, rec)
	case ChangeMerge:
		return in.mergeRecord(tx, kind, rec)
	}
	return in.skip(rec, "unsupported sync type")
}

func (in *Integrator) upsertRecord(tx store.Tx, thisStoreID string, kind syncKind, rec ChangeRecord) Outcome {
	id := rec.Data["ID"]
	if id == "" {
		id = rec.RecordID
	}
	if !sanityCheck(kind, id, rec.Data) {
		return in.skip(rec, "sanity check failed")
	}

	translation, err := translate(kind, id, thisStoreID, rec.Data)
	if err != nil {
		return in.skip(rec, "no translator for record kind")
	}
	if translation.Skip != "" {
		return in.skip(rec, translation.Skip)
	}

	// Materialize every foreign reference before the owning record is
	// written so partially-synced graphs never dangle.
	for _, ref := range translation.Ensure {
		if _, err := tx.GetOrCreate(ref.Kind, ref.ID); err != nil {
			return Outcome{Err: fmt.Errorf("%w: resolve %s/%s: %v", shared.ErrReferential, ref.Kind, ref.ID, err)}
		}
	}

	switch kind {
	case syncNumberSequence:
		return in.upsertNumberSequence(tx, rec, translation)
	case syncNumberToReuse:
		return in.upsertNumberToReuse(tx, rec, translation)
	case syncName:
		if outcome, done := in.resolveNameAddress(tx, translation); done {
			return outcome
		}
	}

	if err := carryLocalState(tx, translation.Record); err != nil {
		return Outcome{Err: err}
	}
	if err := tx.Upsert(translation.Record); err != nil {
		return Outcome{Err: err}
	}
	if err := in.applySideEffects(tx, kind, rec.Data, translation.Record); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

// carryLocalState copies onto the incoming record the state this store built
// up locally and the wire never carries: ownership id lists and visibility.
// Without this an update would orphan every dependent attached so far.
func carryLocalState(tx store.Tx, incoming record.Record) error {
	existing, err := tx.Get(incoming.RecordKind(), incoming.RecordID())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	switch current := incoming.(type) {
	case *record.Item:
		previous := existing.(*record.Item)
		current.BatchIDs = previous.BatchIDs
		current.IsVisible = previous.IsVisible
	case *record.ItemBatch:
		current.TransactionBatchIDs = existing.(*record.ItemBatch).TransactionBatchIDs
	case *record.MasterList:
		current.ItemIDs = existing.(*record.MasterList).ItemIDs
	case *record.Name:
		previous := existing.(*record.Name)
		current.MasterListIDs = previous.MasterListIDs
		current.TransactionIDs = previous.TransactionIDs
		current.IsVisible = previous.IsVisible
	case *record.PeriodSchedule:
		current.PeriodIDs = existing.(*record.PeriodSchedule).PeriodIDs
	case *record.Requisition:
		previous := existing.(*record.Requisition)
		current.ItemIDs = previous.ItemIDs
		if current.LinkedTransactionID == "" {
			current.LinkedTransactionID = previous.LinkedTransactionID
		}
	case *record.Stocktake:
		current.BatchIDs = existing.(*record.Stocktake).BatchIDs
	case *record.Transaction:
		current.ItemLineIDs = existing.(*record.Transaction).ItemLineIDs
	}
	return nil
}

// resolveNameAddress points the name at a content-matched address, minting
// one only when no identical address exists.
func (in *Integrator) resolveNameAddress(tx store.Tx, translation Translation) (Outcome, bool) {
	name, ok := translation.Record.(*record.Name)
	if !ok || translation.Address == nil {
		return Outcome{}, false
	}
	existing, err := tx.Query(record.KindAddress)
	if err != nil {
		return Outcome{Err: err}, true
	}
	want := translation.Address
	for _, candidate := range existing {
		address := candidate.(*record.Address)
		if address.Line1 == want.Line1 && address.Line2 == want.Line2 &&
			address.Line3 == want.Line3 && address.Line4 == want.Line4 &&
			address.ZipCode == want.ZipCode {
			name.BillingAddressID = address.ID
			return Outcome{}, false
		}
	}
	minted := *want
	minted.ID = uuid.NewString()
	if err := tx.Upsert(&minted); err != nil {
		return Outcome{Err: err}, true
	}
	name.BillingAddressID = minted.ID
	return Outcome{}, false
}

// upsertNumberSequence accepts a sequence only once per key so remote replay
// cannot rewind local numbering.
func (in *Integrator) upsertNumberSequence(tx store.Tx, rec ChangeRecord, translation Translation) Outcome {
	sequence := translation.Record.(*record.NumberSequence)
	existing, err := findSequenceByKey(tx, sequence.SequenceKey)
	if err != nil {
		return Outcome{Err: err}
	}
	if existing != nil {
		return in.skip(rec, "sequence already recorded")
	}
	if err := tx.Upsert(sequence); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

func (in *Integrator) upsertNumberToReuse(tx store.Tx, rec ChangeRecord, translation Translation) Outcome {
	reuse := translation.Record.(*record.NumberToReuse)
	sequence, err := findSequenceByKey(tx, reuse.SequenceKey)
	if err != nil {
		return Outcome{Err: err}
	}
	if sequence == nil {
		sequence = &record.NumberSequence{ID: uuid.NewString(), SequenceKey: reuse.SequenceKey}
	}
	reuse.NumberSequenceID = sequence.ID
	if err := tx.Upsert(reuse); err != nil {
		return Outcome{Err: err}
	}
	sequence.AddNumberToReuse(reuse.ID)
	if err := tx.Upsert(sequence); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Applied: true}
}

func findSequenceByKey(tx store.Tx, sequenceKey string) (*record.NumberSequence, error) {
	sequences, err := tx.Query(record.KindNumberSequence)
	if err != nil {
		return nil, err
	}
	for _, candidate := range sequences {
		sequence := candidate.(*record.NumberSequence)
		if sequence.SequenceKey == sequenceKey {
			return sequence, nil
		}
	}
	return nil, nil
}

// applySideEffects performs the per-kind dual writes that must land in the
// same atomic unit as the primary upsert.
func (in *Integrator) applySideEffects(tx store.Tx, kind syncKind, data map[string]string, rec record.Record) error {
	switch kind {
	case syncItemBatch:
		batch := rec.(*record.ItemBatch)
		return attachBatchToItem(tx, batch.ItemID, batch.ID)

	case syncItemStoreJoin:
		join := rec.(*record.ItemStoreJoin)
		if !join.JoinsThisStore {
			return nil
		}
		item, err := tx.GetOrCreate(record.KindItem, join.ItemID)
		if err != nil || item == nil {
			return err
		}
		typed := item.(*record.Item)
		typed.IsVisible = !parseBoolean(data["inactive"])
		return tx.Upsert(typed)

	case syncNameStoreJoin:
		join := rec.(*record.NameStoreJoin)
		if !join.JoinsThisStore {
			return nil
		}
		name, err := tx.GetOrCreate(record.KindName, join.NameID)
		if err != nil || name == nil {
			return err
		}
		typed := name.(*record.Name)
		typed.IsVisible = !parseBoolean(data["inactive"])
		return tx.Upsert(typed)

	case syncLocalListItem, syncMasterListItem:
		item := rec.(*record.MasterListItem)
		list, err := tx.GetOrCreate(record.KindMasterList, item.MasterListID)
		if err != nil || list == nil {
			return err
		}
		typed := list.(*record.MasterList)
		typed.AddItem(item.ID)
		return tx.Upsert(typed)

	case syncMasterListNameJoin:
		join := rec.(*record.MasterListNameJoin)
		name, err := tx.GetOrCreate(record.KindName, join.NameID)
		if err != nil || name == nil {
			return err
		}
		typed := name.(*record.Name)
		typed.AddMasterList(join.MasterListID)
		return tx.Upsert(typed)

	case syncPeriod:
		period := rec.(*record.Period)
		if period.PeriodScheduleID == "" {
			return nil
		}
		schedule, err := tx.GetOrCreate(record.KindPeriodSchedule, period.PeriodScheduleID)
		if err != nil || schedule == nil {
			return err
		}
		typed := schedule.(*record.PeriodSchedule)
		typed.AddPeriod(period.ID)
		return tx.Upsert(typed)

	case syncRequisitionItem:
		item := rec.(*record.RequisitionItem)
		requisition, err := tx.GetOrCreate(record.KindRequisition, item.RequisitionID)
		if err != nil || requisition == nil {
			return err
		}
		typed := requisition.(*record.Requisition)
		typed.AddItem(item.ID)
		return tx.Upsert(typed)

	case syncStocktakeBatch:
		return in.attachStocktakeBatch(tx, data, rec.(*record.StocktakeBatch))

	case syncTransaction:
		return in.attachTransaction(tx, rec.(*record.Transaction))

	case syncTransactionBatch:
		return in.attachTransactionBatch(tx, rec.(*record.TransactionBatch))
	}
	return nil
}

func attachBatchToItem(tx store.Tx, itemID, batchID string) error {
	item, err := tx.GetOrCreate(record.KindItem, itemID)
	if err != nil || item == nil {
		return err
	}
	typed := item.(*record.Item)
	typed.AddBatch(batchID)
	return tx.Upsert(typed)
}

// attachStocktakeBatch binds the referenced item batch to its item and
// attaches the stocktake line to its stocktake.
func (in *Integrator) attachStocktakeBatch(tx store.Tx, data map[string]string, batch *record.StocktakeBatch) error {
	itemBatch, err := tx.GetOrCreate(record.KindItemBatch, batch.ItemBatchID)
	if err != nil {
		return err
	}
	if itemBatch != nil {
		typed := itemBatch.(*record.ItemBatch)
		typed.ItemID = data["item_ID"]
		if err := tx.Upsert(typed); err != nil {
			return err
		}
		if err := attachBatchToItem(tx, typed.ItemID, typed.ID); err != nil {
			return err
		}
	}
	stocktake, err := tx.GetOrCreate(record.KindStocktake, batch.StocktakeID)
	if err != nil || stocktake == nil {
		return err
	}
	typed := stocktake.(*record.Stocktake)
	typed.AddBatch(batch.ID)
	return tx.Upsert(typed)
}

// attachTransaction back-links a linked requisition and registers the
// transaction with its other party.
func (in *Integrator) attachTransaction(tx store.Tx, transaction *record.Transaction) error {
	if transaction.LinkedRequisitionID != "" {
		requisition, err := tx.GetOrCreate(record.KindRequisition, transaction.LinkedRequisitionID)
		if err != nil {
			return err
		}
		typed := requisition.(*record.Requisition)
		typed.LinkedTransactionID = transaction.ID
		if err := tx.Upsert(typed); err != nil {
			return err
		}
	}
	if transaction.OtherPartyID == "" {
		return nil
	}
	otherParty, err := tx.GetOrCreate(record.KindName, transaction.OtherPartyID)
	if err != nil || otherParty == nil {
		return err
	}
	typed := otherParty.(*record.Name)
	typed.AddTransaction(transaction.ID)
	return tx.Upsert(typed)
}

// attachTransactionBatch files the ledger entry under the transaction's line
// for its item, creating the line when absent, and cross-links the item
// batch.
func (in *Integrator) attachTransactionBatch(tx store.Tx, batch *record.TransactionBatch) error {
	transaction, err := tx.GetOrCreate(record.KindTransaction, batch.TransactionID)
	if err != nil || transaction == nil {
		return err
	}
	typedTransaction := transaction.(*record.Transaction)

	line, err := findLineForItem(tx, typedTransaction, batch.ItemID)
	if err != nil {
		return err
	}
	if line == nil {
		line = &record.TransactionItem{
			ID:            uuid.NewString(),
			TransactionID: typedTransaction.ID,
			ItemID:        batch.ItemID,
		}
	}
	line.AddBatch(batch.ID)
	if err := tx.Upsert(line); err != nil {
		return err
	}
	typedTransaction.AddItemLine(line.ID)
	if err := tx.Upsert(typedTransaction); err != nil {
		return err
	}

	batch.TransactionItemID = line.ID
	if err := tx.Upsert(batch); err != nil {
		return err
	}

	itemBatch, err := tx.GetOrCreate(record.KindItemBatch, batch.ItemBatchID)
	if err != nil {
		return err
	}
	if itemBatch != nil {
		typed := itemBatch.(*record.ItemBatch)
		typed.ItemID = batch.ItemID
		typed.AddTransactionBatch(batch.ID)
		if err := tx.Upsert(typed); err != nil {
			return err
		}
		if err := attachBatchToItem(tx, typed.ItemID, typed.ID); err != nil {
			return err
		}
	}
	return nil
}

func findLineForItem(tx store.Tx, transaction *record.Transaction, itemID string) (*record.TransactionItem, error) {
	for _, lineID := range transaction.ItemLineIDs {
		candidate, err := tx.Get(record.KindTransactionItem, lineID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		line := candidate.(*record.TransactionItem)
		if line.ItemID == itemID {
			return line, nil
		}
	}
	return nil, nil
}
