package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"tesoreria/internal/audit"
	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// Deduper collapses duplicate transactions and recurrences under a
// canonical identity key, retaining the earliest-created member of
// each group. It is a best-effort maintenance pass invoked explicitly
// after bulk imports or generation bugs, not a write-time constraint.
type Deduper struct {
	store storage.Store
	audit audit.Recorder
}

func NewDeduper(store storage.Store, auditRec audit.Recorder) *Deduper {
	return &Deduper{store: store, audit: auditRec}
}

// DedupeReport is the outcome of one pass. Deletion errors are
// collected instead of aborting: partial success is valid for
// maintenance operations.
type DedupeReport struct {
	Examined int      `json:"examined"`
	Deleted  int      `json:"deleted"`
	Errors   []string `json:"errors,omitempty"`
}

// DedupeTransactions removes duplicate transactions of the owner. Two
// transactions are duplicates when company, type, amount, description
// and day-truncated due date all match.
func (d *Deduper) DedupeTransactions(ctx context.Context, ownerID string) (DedupeReport, error) {
	txs, err := d.store.ListTransactionsByOwner(ctx, ownerID)
	if err != nil {
		return DedupeReport{}, fmt.Errorf("list transactions: %w", err)
	}

	groups := map[string][]core.Transaction{}
	for _, t := range txs {
		key := fmt.Sprintf("%s|%s|%d|%s|%s",
			t.CompanyID, t.Type, t.Amount.Cents, t.Description, t.DueDate.Format("2006-01-02"))
		groups[key] = append(groups[key], t)
	}

	var doomed []int64
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
		for _, t := range group[1:] {
			doomed = append(doomed, t.ID)
		}
	}

	report := DedupeReport{Examined: len(txs)}
	for _, chunk := range chunkIDs(doomed, storage.MaxBatchDeletes) {
		if err := d.store.DeleteTransactions(ctx, chunk); err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Deleted += len(chunk)
	}

	d.logAndRecord(ctx, ownerID, "transactions", report)
	return report, nil
}

// DedupeRecurrences removes duplicate recurrences of the owner, keyed
// by company, name, type and frequency.
func (d *Deduper) DedupeRecurrences(ctx context.Context, ownerID string) (DedupeReport, error) {
	recs, err := d.store.ListRecurrencesByOwner(ctx, ownerID)
	if err != nil {
		return DedupeReport{}, fmt.Errorf("list recurrences: %w", err)
	}

	groups := map[string][]core.Recurrence{}
	for _, r := range recs {
		key := fmt.Sprintf("%s|%s|%s|%s", r.CompanyID, r.Name, r.Type, r.Frequency)
		groups[key] = append(groups[key], r)
	}

	var doomed []int64
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
		for _, r := range group[1:] {
			doomed = append(doomed, r.ID)
		}
	}

	report := DedupeReport{Examined: len(recs)}
	for _, chunk := range chunkIDs(doomed, storage.MaxBatchDeletes) {
		if err := d.store.DeleteRecurrences(ctx, chunk); err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Deleted += len(chunk)
	}

	d.logAndRecord(ctx, ownerID, "recurrences", report)
	return report, nil
}

func (d *Deduper) logAndRecord(ctx context.Context, ownerID, entityType string, report DedupeReport) {
	slog.InfoContext(ctx, "Dedupe pass complete",
		"entity_type", entityType,
		"owner", ownerID,
		"examined", report.Examined,
		"deleted", report.Deleted,
		"errors", len(report.Errors))

	record(ctx, d.audit, audit.Entry{
		Action:     "dedupe",
		EntityType: entityType,
		OwnerID:    ownerID,
		After:      report,
	})
}
