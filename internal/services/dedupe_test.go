package services

import (
	"context"
	"testing"
	"time"

	"tesoreria/internal/core"
	"tesoreria/internal/storage/memory"
)

func TestDedupeTransactionsKeepsEarliest(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	deduper := NewDeduper(store, nil)

	base := core.Transaction{
		OwnerID:     "owner-1",
		CompanyID:   "acme",
		Type:        core.Expense,
		Description: "Office rent",
		Amount:      core.Money{Cents: 50000},
		DueDate:     core.NewDate(2025, 1, 15),
		Status:      core.TxPending,
	}

	dup1 := base
	dup1.CreatedAt = time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	dup2 := base
	dup2.CreatedAt = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC) // earliest, must survive
	dup3 := base
	dup3.CreatedAt = time.Date(2025, 1, 3, 8, 0, 0, 0, time.UTC)

	distinct := base
	distinct.Description = "Cleaning service"
	distinct.CreatedAt = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	if _, err := store.CreateTransactions(ctx, []core.Transaction{dup1, dup2, dup3, distinct}); err != nil {
		t.Fatalf("seed transactions: %v", err)
	}

	report, err := deduper.DedupeTransactions(ctx, "owner-1")
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if report.Examined != 4 || report.Deleted != 2 || len(report.Errors) != 0 {
		t.Fatalf("report = %+v, want examined 4, deleted 2, no errors", report)
	}

	remaining, _ := store.ListTransactionsByOwner(ctx, "owner-1")
	if len(remaining) != 2 {
		t.Fatalf("got %d surviving transactions, want 2", len(remaining))
	}
	for _, tx := range remaining {
		if tx.Description == "Office rent" && !tx.CreatedAt.Equal(dup2.CreatedAt) {
			t.Errorf("survivor created %v, want earliest %v", tx.CreatedAt, dup2.CreatedAt)
		}
	}
}

func TestDedupeTransactionsDistinguishesKeys(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	deduper := NewDeduper(store, nil)

	base := core.Transaction{
		OwnerID:     "owner-1",
		CompanyID:   "acme",
		Type:        core.Expense,
		Description: "Office rent",
		Amount:      core.Money{Cents: 50000},
		DueDate:     core.NewDate(2025, 1, 15),
		CreatedAt:   time.Now(),
	}
	otherDate := base
	otherDate.DueDate = core.NewDate(2025, 2, 15)
	otherAmount := base
	otherAmount.Amount = core.Money{Cents: 50001}
	otherCompany := base
	otherCompany.CompanyID = "globex"

	if _, err := store.CreateTransactions(ctx, []core.Transaction{base, otherDate, otherAmount, otherCompany}); err != nil {
		t.Fatalf("seed transactions: %v", err)
	}

	report, err := deduper.DedupeTransactions(ctx, "owner-1")
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if report.Deleted != 0 {
		t.Fatalf("deleted %d transactions with distinct keys, want 0", report.Deleted)
	}
}

func TestDedupeRecurrencesKeepsEarliest(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	deduper := NewDeduper(store, nil)

	mk := func(created time.Time) {
		rec := testRecurrence()
		rec.Status = core.StatusActive
		rec.CurrentVersion = 1
		rec.CreatedAt = created
		v := core.RecurrenceVersion{Amount: rec.Amount, EffectiveFrom: rec.StartDate, Version: 1, Active: true}
		if err := store.CreateRecurrence(ctx, &rec, &v); err != nil {
			t.Fatalf("seed recurrence: %v", err)
		}
	}
	earliest := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mk(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
	mk(earliest)
	mk(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC))

	report, err := deduper.DedupeRecurrences(ctx, "owner-1")
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if report.Examined != 3 || report.Deleted != 2 {
		t.Fatalf("report = %+v, want examined 3, deleted 2", report)
	}

	remaining, _ := store.ListRecurrencesByOwner(ctx, "owner-1")
	if len(remaining) != 1 {
		t.Fatalf("got %d surviving recurrences, want 1", len(remaining))
	}
	if !remaining[0].CreatedAt.Equal(earliest) {
		t.Errorf("survivor created %v, want earliest %v", remaining[0].CreatedAt, earliest)
	}
}
