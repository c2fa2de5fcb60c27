package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"tesoreria/internal/audit"
	"tesoreria/internal/core"
	"tesoreria/internal/schedule"
	"tesoreria/internal/storage"
)

// MonthlyPayment computes the fixed installment of a French/annuity
// amortization: P*r*(1+r)^n / ((1+r)^n - 1) with r the monthly rate.
// A zero interest rate degenerates to an even split. The result is
// rounded to cents.
func MonthlyPayment(principal core.Money, annualRatePercent float64, months int) (core.Money, error) {
	if months < 1 {
		return core.Money{}, errors.New("months must be at least 1")
	}
	if err := principal.Validate(); err != nil {
		return core.Money{}, err
	}
	if annualRatePercent < 0 {
		return core.Money{}, errors.New("negative interest rate")
	}

	r := annualRatePercent / 100 / 12
	if r == 0 {
		return core.Money{Cents: int64(math.Round(float64(principal.Cents) / float64(months)))}, nil
	}
	factor := math.Pow(1+r, float64(months))
	payment := float64(principal.Cents) * r * factor / (factor - 1)
	return core.Money{Cents: int64(math.Round(payment))}, nil
}

// Amortizer manages fixed-term amortizing loans: installment schedule
// generation, progress summaries and payment registration.
type Amortizer struct {
	store storage.Store
	audit audit.Recorder
}

func NewAmortizer(store storage.Store, auditRec audit.Recorder) *Amortizer {
	return &Amortizer{store: store, audit: auditRec}
}

// CreateLoan computes the monthly payment and persists the loan. The
// payment is fixed for the life of the loan.
func (a *Amortizer) CreateLoan(ctx context.Context, loan core.Loan) (*core.Loan, error) {
	if loan.RemainingInstallments == 0 {
		loan.RemainingInstallments = loan.TotalInstallments
	}
	payment, err := MonthlyPayment(loan.Principal, loan.AnnualRatePercent, loan.TotalInstallments)
	if err != nil {
		return nil, err
	}
	loan.MonthlyPayment = payment
	loan.CreatedAt = time.Now()
	if err := loan.Validate(); err != nil {
		return nil, fmt.Errorf("validate loan: %w", err)
	}
	if err := a.store.CreateLoan(ctx, &loan); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}
	record(ctx, a.audit, audit.Entry{
		Action:     "create",
		EntityType: "loan",
		EntityID:   loan.ID,
		OwnerID:    loan.OwnerID,
		After:      loan,
	})
	return &loan, nil
}

// GenerateInstallments emits one pending transaction per remaining
// installment, due dates projected from the first pending due date
// with the payment day clamped to each month's length. Installment
// numbers stay unique per loan: a second invocation is refused while
// the previous schedule still exists.
func (a *Amortizer) GenerateInstallments(ctx context.Context, ownerID string, loanID int64) ([]core.Transaction, error) {
	loan, err := ownedLoan(ctx, a.store, ownerID, loanID)
	if err != nil {
		return nil, err
	}

	existing, err := a.store.CountTransactionsByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("count existing installments: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("loan %d already has %d generated installments: %w", loanID, existing, core.ErrDependentRecordsExist)
	}

	created := time.Now()
	batch := make([]core.Transaction, 0, loan.RemainingInstallments)
	for i := 1; i <= loan.RemainingInstallments; i++ {
		batch = append(batch, core.Transaction{
			OwnerID:         loan.OwnerID,
			CompanyID:       loan.CompanyID,
			Type:            core.Expense,
			Description:     fmt.Sprintf("Installment %d/%d - %s", i, loan.TotalInstallments, loan.Lender),
			Amount:          loan.MonthlyPayment,
			DueDate:         schedule.InstallmentDate(loan.FirstPendingDue, i, loan.PaymentDay),
			Status:          core.TxPending,
			Category:        "loans",
			ChargeAccountID: loan.ChargeAccountID,
			LoanID:          loan.ID,
			Installment:     i,
			CreatedAt:       created,
			UpdatedAt:       created,
		})
	}

	for start := 0; start < len(batch); start += storage.MaxBatchWrites {
		end := start + storage.MaxBatchWrites
		if end > len(batch) {
			end = len(batch)
		}
		if _, err := a.store.CreateTransactions(ctx, batch[start:end]); err != nil {
			return nil, fmt.Errorf("persist installments: %w", err)
		}
	}

	slog.InfoContext(ctx, "Loan installments generated",
		"loan_id", loan.ID,
		"lender", loan.Lender,
		"count", len(batch))

	record(ctx, a.audit, audit.Entry{
		Action:     "generate_installments",
		EntityType: "loan",
		EntityID:   loan.ID,
		OwnerID:    ownerID,
		After:      len(batch),
	})
	return batch, nil
}

// List returns the caller's loans.
func (a *Amortizer) List(ctx context.Context, ownerID string) ([]core.Loan, error) {
	return a.store.ListLoansByOwner(ctx, ownerID)
}

// LoanSummary is the progress report of a loan.
type LoanSummary struct {
	TotalRemaining  core.Money `json:"total_remaining"`
	RemainingCount  int        `json:"remaining_count"`
	NextPaymentDate *time.Time `json:"next_payment_date"`
	ProgressPercent int        `json:"progress_percent"`
}

// Summary computes the outstanding balance and progress of a loan.
// The next payment date is nil once nothing is pending.
func (a *Amortizer) Summary(ctx context.Context, ownerID string, loanID int64) (LoanSummary, error) {
	loan, err := ownedLoan(ctx, a.store, ownerID, loanID)
	if err != nil {
		return LoanSummary{}, err
	}

	pending := loan.RemainingInstallments - loan.PaidInstallments
	s := LoanSummary{
		TotalRemaining: loan.MonthlyPayment.Mul(pending),
		RemainingCount: pending,
	}
	if loan.RemainingInstallments > 0 {
		s.ProgressPercent = int(math.Round(float64(loan.PaidInstallments) / float64(loan.RemainingInstallments) * 100))
	}
	if pending > 0 {
		next := loan.FirstPendingDue
		s.NextPaymentDate = &next
	}
	return s, nil
}

// RegisterPayment records one settled installment: the paid counter
// advances and the first pending due date rolls one month forward.
func (a *Amortizer) RegisterPayment(ctx context.Context, ownerID string, loanID int64) (*core.Loan, error) {
	loan, err := ownedLoan(ctx, a.store, ownerID, loanID)
	if err != nil {
		return nil, err
	}
	if loan.PaidInstallments >= loan.RemainingInstallments {
		return nil, fmt.Errorf("loan %d has no pending installments", loanID)
	}

	before := *loan
	loan.PaidInstallments++
	loan.FirstPendingDue = schedule.InstallmentDate(loan.FirstPendingDue, 2, loan.PaymentDay)

	if err := a.store.UpdateLoanProgress(ctx, loan.ID, loan.PaidInstallments, loan.FirstPendingDue); err != nil {
		return nil, fmt.Errorf("update loan progress: %w", err)
	}

	slog.InfoContext(ctx, "Loan payment registered",
		"loan_id", loan.ID,
		"paid", loan.PaidInstallments,
		"next_due", loan.FirstPendingDue.Format("2006-01-02"))

	record(ctx, a.audit, audit.Entry{
		Action:     "register_payment",
		EntityType: "loan",
		EntityID:   loan.ID,
		OwnerID:    ownerID,
		Before:     before,
		After:      loan,
	})
	return loan, nil
}
