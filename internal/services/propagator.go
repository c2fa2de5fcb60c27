package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tesoreria/internal/audit"
	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// Propagator pushes a field-level patch from a recurrence to every
// transaction it has generated. Writes happen in bounded batches with
// no cross-batch atomicity: a failure mid-pass leaves earlier batches
// committed, and retrying is safe because the patch is idempotent.
type Propagator struct {
	store storage.Store
	audit audit.Recorder
}

func NewPropagator(store storage.Store, auditRec audit.Recorder) *Propagator {
	return &Propagator{store: store, audit: auditRec}
}

// Propagate applies the allow-listed subset of patch to all instances
// of the recurrence and to the recurrence itself, so future-generated
// instances inherit it. Returns the number of updated transactions.
// A patch with no allow-listed field fails before any write.
func (p *Propagator) Propagate(ctx context.Context, ownerID string, recurrenceID int64, patch map[string]string) (int, error) {
	rec, err := ownedRecurrence(ctx, p.store, ownerID, recurrenceID)
	if err != nil {
		return 0, err
	}

	filtered := core.FilterPropagable(patch)
	if len(filtered) == 0 {
		return 0, fmt.Errorf("recurrence %d: %w", recurrenceID, core.ErrNoValidFields)
	}
	if dropped := len(patch) - len(filtered); dropped > 0 {
		slog.WarnContext(ctx, "Dropped non-propagable patch fields",
			"recurrence_id", recurrenceID, "dropped", dropped)
	}

	txs, err := p.store.ListTransactionsByRecurrence(ctx, recurrenceID)
	if err != nil {
		return 0, fmt.Errorf("list generated instances: %w", err)
	}

	ids := make([]int64, len(txs))
	for i, t := range txs {
		ids[i] = t.ID
	}

	now := time.Now()
	updated := 0
	for _, chunk := range chunkIDs(ids, storage.MaxBatchWrites) {
		if err := p.store.UpdateTransactionFields(ctx, chunk, filtered, now); err != nil {
			return updated, fmt.Errorf("propagate batch after %d updates: %w", updated, err)
		}
		updated += len(chunk)
	}

	if err := p.store.UpdateRecurrenceFields(ctx, recurrenceID, filtered, now); err != nil {
		return updated, fmt.Errorf("update recurrence fields: %w", err)
	}

	slog.InfoContext(ctx, "Field patch propagated",
		"recurrence_id", recurrenceID,
		"fields", len(filtered),
		"updated", updated)

	record(ctx, p.audit, audit.Entry{
		Action:     "propagate",
		EntityType: "recurrence",
		EntityID:   recurrenceID,
		OwnerID:    ownerID,
		Before:     rec,
		After:      filtered,
	})
	return updated, nil
}
