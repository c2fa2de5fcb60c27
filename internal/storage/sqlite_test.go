package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tesoreria/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedRecurrence(t *testing.T, repo *SQLiteRepository) *core.Recurrence {
	t.Helper()
	rec := core.Recurrence{
		OwnerID:        "owner-1",
		CompanyID:      "acme",
		Type:           core.Expense,
		Name:           "Office rent",
		Amount:         core.Money{Cents: 50000},
		Category:       "rent",
		Frequency:      core.Monthly,
		DayOfMonth:     15,
		StartDate:      core.NewDate(2025, 1, 15),
		MonthsAhead:    3,
		NextOccurrence: core.NewDate(2025, 1, 15),
		Status:         core.StatusActive,
		CurrentVersion: 1,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	v := core.RecurrenceVersion{
		Amount:        rec.Amount,
		EffectiveFrom: rec.StartDate,
		Version:       1,
		Active:        true,
		Reason:        "initial",
		CreatedAt:     time.Now(),
	}
	if err := repo.CreateRecurrence(context.Background(), &rec, &v); err != nil {
		t.Fatalf("create recurrence: %v", err)
	}
	return &rec
}

func TestRecurrenceRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := seedRecurrence(t, repo)
	if rec.ID == 0 {
		t.Fatal("recurrence ID not assigned")
	}

	got, err := repo.GetRecurrence(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get recurrence: %v", err)
	}
	if got.Name != rec.Name || got.Amount != rec.Amount || got.Frequency != rec.Frequency {
		t.Errorf("got %+v, want fields of %+v", got, rec)
	}
	if !got.StartDate.Equal(rec.StartDate) || !got.EndDate.IsZero() {
		t.Errorf("dates got start=%v end=%v, want start=%v end=zero", got.StartDate, got.EndDate, rec.StartDate)
	}

	versions, err := repo.ListVersions(ctx, rec.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 1 || !versions[0].Active {
		t.Fatalf("versions = %+v, want one active initial version", versions)
	}

	if _, err := repo.GetRecurrence(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing id error = %v, want ErrNotFound", err)
	}
}

func TestAmendmentRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := seedRecurrence(t, repo)
	active, err := repo.GetActiveVersion(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get active version: %v", err)
	}

	closed := *active
	closed.EffectiveTo = core.NewDate(2025, 3, 1)
	closed.Active = false
	created := &core.RecurrenceVersion{
		RecurrenceID:  rec.ID,
		Amount:        core.Money{Cents: 60000},
		EffectiveFrom: core.NewDate(2025, 3, 1),
		Version:       2,
		Active:        true,
		Reason:        "indexation",
		CreatedAt:     time.Now(),
	}
	updated := *rec
	updated.Amount = created.Amount
	updated.CurrentVersion = 2

	if err := repo.ApplyAmendment(ctx, closed, created, updated); err != nil {
		t.Fatalf("apply amendment: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("new version ID not assigned")
	}

	nowActive, err := repo.GetActiveVersion(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get active version: %v", err)
	}
	if nowActive.Version != 2 || nowActive.Amount.Cents != 60000 {
		t.Fatalf("active version = %+v, want v2 at 60000", nowActive)
	}
	after, _ := repo.GetRecurrence(ctx, rec.ID)
	if after.Amount.Cents != 60000 || after.CurrentVersion != 2 {
		t.Errorf("recurrence = %+v, want amount and pointer advanced", after)
	}

	// Reversion restores the predecessor as the open active version.
	if err := repo.ApplyReversion(ctx, created.ID, closed, *rec); err != nil {
		t.Fatalf("apply reversion: %v", err)
	}
	versions, _ := repo.ListVersions(ctx, rec.ID)
	if len(versions) != 1 {
		t.Fatalf("versions after reversion = %d, want 1", len(versions))
	}
	if !versions[0].Active || !versions[0].EffectiveTo.IsZero() {
		t.Errorf("reactivated version = %+v, want active open-ended", versions[0])
	}
}

func TestTransactionBatchesAndPatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := seedRecurrence(t, repo)
	batch := make([]core.Transaction, 3)
	for i := range batch {
		batch[i] = core.Transaction{
			OwnerID:      "owner-1",
			CompanyID:    "acme",
			Type:         core.Expense,
			Description:  "Office rent",
			Amount:       core.Money{Cents: 50000},
			DueDate:      core.NewDate(2025, i+1, 15),
			Status:       core.TxPending,
			RecurrenceID: rec.ID,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
	}
	n, err := repo.CreateTransactions(ctx, batch)
	if err != nil || n != 3 {
		t.Fatalf("create transactions = %d, %v, want 3", n, err)
	}

	count, err := repo.CountTransactionsByRecurrence(ctx, rec.ID)
	if err != nil || count != 3 {
		t.Fatalf("count = %d, %v, want 3", count, err)
	}

	ids := []int64{batch[0].ID, batch[1].ID, batch[2].ID}
	patch := map[string]string{core.FieldPaymentMethod: "direct_debit"}
	if err := repo.UpdateTransactionFields(ctx, ids, patch, time.Now()); err != nil {
		t.Fatalf("update fields: %v", err)
	}
	txs, err := repo.ListTransactionsByRecurrence(ctx, rec.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, tx := range txs {
		if tx.PaymentMethod != "direct_debit" {
			t.Errorf("transaction %d payment method %q, want patched", tx.ID, tx.PaymentMethod)
		}
	}

	if err := repo.UpdateTransactionFields(ctx, ids, map[string]string{"amount_cents": "1"}, time.Now()); !errors.Is(err, core.ErrNoValidFields) {
		t.Errorf("non-allow-listed patch error = %v, want ErrNoValidFields", err)
	}

	if err := repo.DeleteTransactions(ctx, ids[:1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	count, _ = repo.CountTransactionsByRecurrence(ctx, rec.ID)
	if count != 2 {
		t.Errorf("count after delete = %d, want 2", count)
	}
}

func TestBatchLimits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tooManyWrites := make([]core.Transaction, MaxBatchWrites+1)
	if _, err := repo.CreateTransactions(ctx, tooManyWrites); err == nil {
		t.Error("oversized write batch accepted")
	}

	tooManyDeletes := make([]int64, MaxBatchDeletes+1)
	if err := repo.DeleteTransactions(ctx, tooManyDeletes); err == nil {
		t.Error("oversized delete batch accepted")
	}
}

func TestLoanRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	loan := core.Loan{
		OwnerID:               "owner-1",
		CompanyID:             "acme",
		Lender:                "Banco Uno",
		Principal:             core.Money{Cents: 1200000},
		AnnualRatePercent:     4.5,
		TotalInstallments:     12,
		RemainingInstallments: 12,
		MonthlyPayment:        core.Money{Cents: 102454},
		PaymentDay:            31,
		FirstPendingDue:       core.NewDate(2025, 1, 31),
		CreatedAt:             time.Now(),
	}
	if err := repo.CreateLoan(ctx, &loan); err != nil {
		t.Fatalf("create loan: %v", err)
	}

	got, err := repo.GetLoan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("get loan: %v", err)
	}
	if got.Lender != loan.Lender || got.AnnualRatePercent != 4.5 || got.MonthlyPayment != loan.MonthlyPayment {
		t.Errorf("got %+v, want fields of %+v", got, loan)
	}

	installments := []core.Transaction{
		{OwnerID: "owner-1", CompanyID: "acme", Type: core.Expense, Description: "Installment 1/12 - Banco Uno",
			Amount: loan.MonthlyPayment, DueDate: core.NewDate(2025, 1, 31), Status: core.TxPending,
			LoanID: loan.ID, Installment: 1, CreatedAt: time.Now(), UpdatedAt: time.Now()},
		{OwnerID: "owner-1", CompanyID: "acme", Type: core.Expense, Description: "Installment 2/12 - Banco Uno",
			Amount: loan.MonthlyPayment, DueDate: core.NewDate(2025, 2, 28), Status: core.TxPending,
			LoanID: loan.ID, Installment: 2, CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}
	if _, err := repo.CreateTransactions(ctx, installments); err != nil {
		t.Fatalf("create installments: %v", err)
	}
	count, err := repo.CountTransactionsByLoan(ctx, loan.ID)
	if err != nil || count != 2 {
		t.Fatalf("count by loan = %d, %v, want 2", count, err)
	}
	count, err = repo.CountTransactionsByLoan(ctx, loan.ID+1)
	if err != nil || count != 0 {
		t.Fatalf("count for other loan = %d, %v, want 0", count, err)
	}

	if err := repo.UpdateLoanProgress(ctx, loan.ID, 1, core.NewDate(2025, 2, 28)); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	got, _ = repo.GetLoan(ctx, loan.ID)
	if got.PaidInstallments != 1 || !got.FirstPendingDue.Equal(core.NewDate(2025, 2, 28)) {
		t.Errorf("progress = paid %d due %v, want 1 and 2025-02-28", got.PaidInstallments, got.FirstPendingDue)
	}
}
