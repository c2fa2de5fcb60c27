// Package storage defines the ports to the document store and the
// SQLite adapter behind them. The engine only relies on equality
// fetches, document-level CRUD and a bounded atomic multi-write; any
// multi-field ordering happens in memory after a broad fetch.
package storage

import (
	"context"
	"time"

	"tesoreria/internal/core"
)

// Batch size limits of the store's atomic multi-write primitive.
// Callers chunk their write sets accordingly; chunks are issued
// sequentially and each chunk commits independently.
const (
	MaxBatchWrites  = 400
	MaxBatchDeletes = 500
)

type RecurrenceStore interface {
	// CreateRecurrence persists a recurrence together with its initial
	// version (version 1, active, open-ended) in one atomic write and
	// fills in both IDs.
	CreateRecurrence(ctx context.Context, r *core.Recurrence, v *core.RecurrenceVersion) error
	GetRecurrence(ctx context.Context, id int64) (*core.Recurrence, error)
	ListRecurrencesByOwner(ctx context.Context, ownerID string) ([]core.Recurrence, error)
	ListActiveRecurrences(ctx context.Context) ([]core.Recurrence, error)
	// UpdateRecurrenceProjection advances the generation watermark and
	// the next-occurrence pointer.
	UpdateRecurrenceProjection(ctx context.Context, id int64, lastGenerated, nextOccurrence time.Time) error
	// UpdateRecurrenceFields applies an already-filtered field patch.
	UpdateRecurrenceFields(ctx context.Context, id int64, fields map[string]string, updatedAt time.Time) error
	UpdateRecurrenceStatus(ctx context.Context, id int64, status core.RecurrenceStatus) error
	DeleteRecurrences(ctx context.Context, ids []int64) error
}

type VersionStore interface {
	ListVersions(ctx context.Context, recurrenceID int64) ([]core.RecurrenceVersion, error)
	GetActiveVersion(ctx context.Context, recurrenceID int64) (*core.RecurrenceVersion, error)
	// ApplyAmendment closes the previous version, inserts the new one
	// and rewrites the recurrence's cached amount and version pointer,
	// all in one atomic write. The created version's ID is filled in.
	ApplyAmendment(ctx context.Context, closed core.RecurrenceVersion, created *core.RecurrenceVersion, rec core.Recurrence) error
	// ApplyReversion deletes the active version, reactivates its
	// predecessor and rolls the recurrence's cached state back, all in
	// one atomic write.
	ApplyReversion(ctx context.Context, deletedID int64, reactivated core.RecurrenceVersion, rec core.Recurrence) error
}

type TransactionStore interface {
	// CreateTransactions persists the given instances atomically.
	// Callers keep len(txs) within MaxBatchWrites.
	CreateTransactions(ctx context.Context, txs []core.Transaction) (int, error)
	ListTransactionsByRecurrence(ctx context.Context, recurrenceID int64) ([]core.Transaction, error)
	ListTransactionsByOwner(ctx context.Context, ownerID string) ([]core.Transaction, error)
	CountTransactionsByRecurrence(ctx context.Context, recurrenceID int64) (int, error)
	CountTransactionsByLoan(ctx context.Context, loanID int64) (int, error)
	// UpdateTransactionFields applies an already-filtered field patch to
	// the given instances. Callers keep len(ids) within MaxBatchWrites.
	UpdateTransactionFields(ctx context.Context, ids []int64, fields map[string]string, updatedAt time.Time) error
	// DeleteTransactions removes the given instances. Callers keep
	// len(ids) within MaxBatchDeletes.
	DeleteTransactions(ctx context.Context, ids []int64) error
}

type LoanStore interface {
	CreateLoan(ctx context.Context, l *core.Loan) error
	GetLoan(ctx context.Context, id int64) (*core.Loan, error)
	ListLoansByOwner(ctx context.Context, ownerID string) ([]core.Loan, error)
	// UpdateLoanProgress records a settled installment: the new paid
	// count and the new first-pending due date.
	UpdateLoanProgress(ctx context.Context, id int64, paidInstallments int, firstPendingDue time.Time) error
}

// Store is the full document-store contract consumed by the engine.
type Store interface {
	RecurrenceStore
	VersionStore
	TransactionStore
	LoanStore
	Close() error
}
