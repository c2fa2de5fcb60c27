// Package services implements the projection engine: occurrence
// projection, amendment versioning, loan amortization, bulk field
// propagation and duplicate resolution. Every entry point takes the
// authenticated owner identity and enforces ownership before touching
// data.
package services

import (
	"context"
	"fmt"

	"tesoreria/internal/audit"
	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

func ownedRecurrence(ctx context.Context, store storage.Store, ownerID string, id int64) (*core.Recurrence, error) {
	rec, err := store.GetRecurrence(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != ownerID {
		return nil, fmt.Errorf("recurrence %d: %w", id, core.ErrInvalidOwnership)
	}
	return rec, nil
}

func ownedLoan(ctx context.Context, store storage.Store, ownerID string, id int64) (*core.Loan, error) {
	loan, err := store.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.OwnerID != ownerID {
		return nil, fmt.Errorf("loan %d: %w", id, core.ErrInvalidOwnership)
	}
	return loan, nil
}

// record forwards to the audit recorder when one is configured.
// Auditing never fails the primary operation.
func record(ctx context.Context, rec audit.Recorder, e audit.Entry) {
	if rec == nil {
		return
	}
	rec.Record(ctx, e)
}

// chunkIDs splits ids into slices of at most size elements, preserving
// order. Used to respect the store's batch write limits.
func chunkIDs(ids []int64, size int) [][]int64 {
	if size < 1 {
		size = 1
	}
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
