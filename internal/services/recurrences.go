package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tesoreria/internal/audit"
	"tesoreria/internal/core"
	"tesoreria/internal/schedule"
	"tesoreria/internal/storage"
)

// RecurrenceService manages the lifecycle of recurrence templates.
type RecurrenceService struct {
	store storage.Store
	audit audit.Recorder
}

func NewRecurrenceService(store storage.Store, auditRec audit.Recorder) *RecurrenceService {
	return &RecurrenceService{store: store, audit: auditRec}
}

// Create persists a new recurrence together with its initial amendment
// version (version 1, active, open-ended) so the version-chain
// invariant holds from the start.
func (s *RecurrenceService) Create(ctx context.Context, rec core.Recurrence) (*core.Recurrence, error) {
	if rec.Status == "" {
		rec.Status = core.StatusActive
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("validate recurrence: %w", err)
	}

	first, err := schedule.FirstOccurrence(rec.StartDate, schedule.RuleFor(rec))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec.NextOccurrence = first
	rec.LastGenerated = time.Time{}
	rec.CurrentVersion = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now

	version := core.RecurrenceVersion{
		Amount:        rec.Amount,
		EffectiveFrom: core.Day(rec.StartDate),
		Version:       1,
		Active:        true,
		Reason:        "initial",
		CreatedAt:     now,
	}

	if err := s.store.CreateRecurrence(ctx, &rec, &version); err != nil {
		return nil, fmt.Errorf("create recurrence: %w", err)
	}

	slog.InfoContext(ctx, "Recurrence created",
		"id", rec.ID,
		"name", rec.Name,
		"amount_cents", rec.Amount.Cents,
		"frequency", rec.Frequency,
		"next_occurrence", first.Format("2006-01-02"))

	record(ctx, s.audit, audit.Entry{
		Action:     "create",
		EntityType: "recurrence",
		EntityID:   rec.ID,
		OwnerID:    rec.OwnerID,
		After:      rec,
	})
	return &rec, nil
}

// End transitions a recurrence to the ended status. Recurrences are
// never physically removed while generated instances reference them.
func (s *RecurrenceService) End(ctx context.Context, ownerID string, id int64) error {
	rec, err := ownedRecurrence(ctx, s.store, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.UpdateRecurrenceStatus(ctx, id, core.StatusEnded); err != nil {
		return fmt.Errorf("end recurrence: %w", err)
	}
	record(ctx, s.audit, audit.Entry{
		Action:     "end",
		EntityType: "recurrence",
		EntityID:   id,
		OwnerID:    ownerID,
		Before:     rec,
	})
	return nil
}

// Delete removes a recurrence and its version chain. Blocked while
// generated transactions still reference it.
func (s *RecurrenceService) Delete(ctx context.Context, ownerID string, id int64) error {
	rec, err := ownedRecurrence(ctx, s.store, ownerID, id)
	if err != nil {
		return err
	}
	n, err := s.store.CountTransactionsByRecurrence(ctx, id)
	if err != nil {
		return fmt.Errorf("count dependent transactions: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("recurrence %d has %d generated transactions: %w", id, n, core.ErrDependentRecordsExist)
	}
	if err := s.store.DeleteRecurrences(ctx, []int64{id}); err != nil {
		return fmt.Errorf("delete recurrence: %w", err)
	}
	record(ctx, s.audit, audit.Entry{
		Action:     "delete",
		EntityType: "recurrence",
		EntityID:   id,
		OwnerID:    ownerID,
		Before:     rec,
	})
	return nil
}

// List returns the caller's recurrences.
func (s *RecurrenceService) List(ctx context.Context, ownerID string) ([]core.Recurrence, error) {
	return s.store.ListRecurrencesByOwner(ctx, ownerID)
}
