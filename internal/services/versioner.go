package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tesoreria/internal/audit"
	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// Versioner manages the effective-dated amendment chain of a
// recurrence. The chain is append-only: amendments close the active
// version and open a new one; only the newest version can be reverted.
type Versioner struct {
	store storage.Store
	audit audit.Recorder
}

func NewVersioner(store storage.Store, auditRec audit.Recorder) *Versioner {
	return &Versioner{store: store, audit: auditRec}
}

// Amend records a new amount effective from the given date. Future
// projections pick up the new amount; already-generated instances are
// untouched unless the caller explicitly propagates.
func (v *Versioner) Amend(ctx context.Context, ownerID string, recurrenceID int64, amount core.Money, effectiveFrom time.Time, reason string) (*core.RecurrenceVersion, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if effectiveFrom.IsZero() {
		return nil, errors.New("effective-from date is required")
	}
	effectiveFrom = core.Day(effectiveFrom)

	rec, err := ownedRecurrence(ctx, v.store, ownerID, recurrenceID)
	if err != nil {
		return nil, err
	}

	active, err := v.store.GetActiveVersion(ctx, recurrenceID)
	if err != nil {
		return nil, err
	}
	if effectiveFrom.Before(active.EffectiveFrom) {
		return nil, fmt.Errorf("amendment effective %s overlaps version %d effective %s",
			effectiveFrom.Format("2006-01-02"), active.Version, active.EffectiveFrom.Format("2006-01-02"))
	}

	closed := *active
	closed.EffectiveTo = effectiveFrom
	closed.Active = false

	created := &core.RecurrenceVersion{
		RecurrenceID:  recurrenceID,
		Amount:        amount,
		EffectiveFrom: effectiveFrom,
		Version:       active.Version + 1,
		Active:        true,
		Reason:        reason,
		CreatedAt:     time.Now(),
	}

	updated := *rec
	updated.Amount = amount
	updated.CurrentVersion = created.Version

	if err := v.store.ApplyAmendment(ctx, closed, created, updated); err != nil {
		return nil, fmt.Errorf("apply amendment: %w", err)
	}

	slog.InfoContext(ctx, "Recurrence amended",
		"id", recurrenceID,
		"version", created.Version,
		"amount_cents", amount.Cents,
		"effective_from", effectiveFrom.Format("2006-01-02"))

	record(ctx, v.audit, audit.Entry{
		Action:     "amend",
		EntityType: "recurrence",
		EntityID:   recurrenceID,
		OwnerID:    ownerID,
		Before:     active,
		After:      created,
	})
	return created, nil
}

// Revert deletes the given version and reactivates its predecessor.
// Only the active (newest) version can be reverted; older history is
// immutable. Version 1 has no predecessor and cannot be reverted.
func (v *Versioner) Revert(ctx context.Context, ownerID string, recurrenceID int64, versionNumber int) error {
	rec, err := ownedRecurrence(ctx, v.store, ownerID, recurrenceID)
	if err != nil {
		return err
	}

	versions, err := v.store.ListVersions(ctx, recurrenceID)
	if err != nil {
		return err
	}

	var target, previous *core.RecurrenceVersion
	for i := range versions {
		switch versions[i].Version {
		case versionNumber:
			target = &versions[i]
		case versionNumber - 1:
			previous = &versions[i]
		}
	}
	if target == nil {
		return fmt.Errorf("version %d of recurrence %d: %w", versionNumber, recurrenceID, core.ErrNotFound)
	}
	if !target.Active {
		return fmt.Errorf("version %d of recurrence %d: %w", versionNumber, recurrenceID, core.ErrNotNewestVersion)
	}
	if previous == nil {
		return fmt.Errorf("version %d of recurrence %d has no predecessor to reactivate", versionNumber, recurrenceID)
	}

	updated := *rec
	updated.Amount = previous.Amount
	updated.CurrentVersion = previous.Version

	if err := v.store.ApplyReversion(ctx, target.ID, *previous, updated); err != nil {
		return fmt.Errorf("apply reversion: %w", err)
	}

	slog.InfoContext(ctx, "Recurrence amendment reverted",
		"id", recurrenceID,
		"deleted_version", versionNumber,
		"active_version", previous.Version,
		"amount_cents", previous.Amount.Cents)

	record(ctx, v.audit, audit.Entry{
		Action:     "revert",
		EntityType: "recurrence",
		EntityID:   recurrenceID,
		OwnerID:    ownerID,
		Before:     target,
		After:      previous,
	})
	return nil
}

// History returns the full amendment chain ordered by version number.
func (v *Versioner) History(ctx context.Context, ownerID string, recurrenceID int64) ([]core.RecurrenceVersion, error) {
	if _, err := ownedRecurrence(ctx, v.store, ownerID, recurrenceID); err != nil {
		return nil, err
	}
	return v.store.ListVersions(ctx, recurrenceID)
}
