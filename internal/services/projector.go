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

// Projector expands a recurrence into concrete transaction instances
// across a look-ahead window. Idempotence comes from the watermark:
// generation always resumes from the stored next-occurrence pointer,
// never from duplicate-key lookups.
type Projector struct {
	store storage.Store
	audit audit.Recorder
}

func NewProjector(store storage.Store, auditRec audit.Recorder) *Projector {
	return &Projector{store: store, audit: auditRec}
}

// ProjectionResult reports one projection run.
type ProjectionResult struct {
	Generated      int       `json:"generated"`
	Watermark      time.Time `json:"watermark"`
	NextOccurrence time.Time `json:"next_occurrence"`
}

// Project generates all pending occurrences up to now plus the
// recurrence's look-ahead horizon. Generation stops early at the
// recurrence's end date; reaching it is not an error. Non-active
// recurrences are a no-op.
func (p *Projector) Project(ctx context.Context, ownerID string, recurrenceID int64, now time.Time) (ProjectionResult, error) {
	rec, err := ownedRecurrence(ctx, p.store, ownerID, recurrenceID)
	if err != nil {
		return ProjectionResult{}, err
	}

	result := ProjectionResult{
		Watermark:      rec.LastGenerated,
		NextOccurrence: rec.NextOccurrence,
	}

	if rec.Status != core.StatusActive {
		slog.InfoContext(ctx, "Skipping projection of non-active recurrence",
			"id", rec.ID, "status", rec.Status)
		return result, nil
	}

	rule := schedule.RuleFor(*rec)
	next := rec.NextOccurrence
	if next.IsZero() {
		next, err = schedule.FirstOccurrence(rec.StartDate, rule)
		if err != nil {
			return result, err
		}
	}

	horizon := core.Day(now).AddDate(0, rec.MonthsAhead, 0)

	var batch []core.Transaction
	created := time.Now()
	for !next.After(horizon) {
		if !rec.EndDate.IsZero() && next.After(rec.EndDate) {
			break
		}
		batch = append(batch, core.Transaction{
			OwnerID:          rec.OwnerID,
			CompanyID:        rec.CompanyID,
			Type:             rec.Type,
			Description:      rec.Name,
			Amount:           rec.Amount,
			DueDate:          next,
			Status:           core.TxPending,
			Category:         rec.Category,
			CounterpartyID:   rec.CounterpartyID,
			PaymentMethod:    rec.PaymentMethod,
			ChargeAccountID:  rec.ChargeAccountID,
			CounterpartyBank: rec.CounterpartyBank,
			CounterpartyTax:  rec.CounterpartyTax,
			RecurrenceID:     rec.ID,
			CreatedAt:        created,
			UpdatedAt:        created,
		})
		next, err = schedule.NextOccurrence(next, rule)
		if err != nil {
			return result, err
		}
	}

	if len(batch) == 0 {
		slog.InfoContext(ctx, "Projection up to date",
			"id", rec.ID, "horizon", horizon.Format("2006-01-02"))
		return result, nil
	}

	for start := 0; start < len(batch); start += storage.MaxBatchWrites {
		end := start + storage.MaxBatchWrites
		if end > len(batch) {
			end = len(batch)
		}
		if _, err := p.store.CreateTransactions(ctx, batch[start:end]); err != nil {
			return result, fmt.Errorf("persist projected instances: %w", err)
		}
	}

	watermark := batch[len(batch)-1].DueDate
	if err := p.store.UpdateRecurrenceProjection(ctx, rec.ID, watermark, next); err != nil {
		return result, fmt.Errorf("advance watermark: %w", err)
	}

	result.Generated = len(batch)
	result.Watermark = watermark
	result.NextOccurrence = next

	slog.InfoContext(ctx, "Projection complete",
		"id", rec.ID,
		"generated", len(batch),
		"watermark", watermark.Format("2006-01-02"),
		"next_occurrence", next.Format("2006-01-02"))

	record(ctx, p.audit, audit.Entry{
		Action:     "project",
		EntityType: "recurrence",
		EntityID:   rec.ID,
		OwnerID:    ownerID,
		After:      result,
	})
	return result, nil
}

// ProjectAll runs Project over every active recurrence and returns the
// total number of generated instances. Failures are scoped to one
// recurrence and do not abort the pass.
func (p *Projector) ProjectAll(ctx context.Context, now time.Time) (int, error) {
	recs, err := p.store.ListActiveRecurrences(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active recurrences: %w", err)
	}

	total := 0
	for _, rec := range recs {
		res, err := p.Project(ctx, rec.OwnerID, rec.ID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Projection failed",
				"id", rec.ID, "name", rec.Name, "error", err)
			continue
		}
		total += res.Generated
	}
	return total, nil
}
