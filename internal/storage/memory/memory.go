// Package memory is an in-memory implementation of the storage ports.
// It backs the service tests and works as a zero-setup backend for
// local experiments. Batch limits are enforced the same way the SQLite
// adapter enforces them so callers cannot rely on looser behavior.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

type Store struct {
	mu sync.Mutex

	recurrences  map[int64]core.Recurrence
	versions     map[int64]core.RecurrenceVersion
	transactions map[int64]core.Transaction
	loans        map[int64]core.Loan

	nextID int64
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		recurrences:  map[int64]core.Recurrence{},
		versions:     map[int64]core.RecurrenceVersion{},
		transactions: map[int64]core.Transaction{},
		loans:        map[int64]core.Loan{},
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateRecurrence(_ context.Context, r *core.Recurrence, v *core.RecurrenceVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	v.ID = s.id()
	v.RecurrenceID = r.ID
	s.recurrences[r.ID] = *r
	s.versions[v.ID] = *v
	return nil
}

func (s *Store) GetRecurrence(_ context.Context, id int64) (*core.Recurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurrences[id]
	if !ok {
		return nil, fmt.Errorf("recurrence %d: %w", id, core.ErrNotFound)
	}
	return &r, nil
}

func (s *Store) ListRecurrencesByOwner(_ context.Context, ownerID string) ([]core.Recurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Recurrence
	for _, r := range s.recurrences {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sortByID(out, func(r core.Recurrence) int64 { return r.ID })
	return out, nil
}

func (s *Store) ListActiveRecurrences(_ context.Context) ([]core.Recurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Recurrence
	for _, r := range s.recurrences {
		if r.Status == core.StatusActive {
			out = append(out, r)
		}
	}
	sortByID(out, func(r core.Recurrence) int64 { return r.ID })
	return out, nil
}

func (s *Store) UpdateRecurrenceProjection(_ context.Context, id int64, lastGenerated, nextOccurrence time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurrences[id]
	if !ok {
		return fmt.Errorf("recurrence %d: %w", id, core.ErrNotFound)
	}
	r.LastGenerated = lastGenerated
	r.NextOccurrence = nextOccurrence
	r.UpdatedAt = time.Now()
	s.recurrences[id] = r
	return nil
}

func (s *Store) UpdateRecurrenceFields(_ context.Context, id int64, fields map[string]string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurrences[id]
	if !ok {
		return fmt.Errorf("recurrence %d: %w", id, core.ErrNotFound)
	}
	if err := applyPatch(fields, &r.PaymentMethod, &r.ChargeAccountID, &r.CounterpartyBank, &r.CounterpartyTax); err != nil {
		return err
	}
	r.UpdatedAt = updatedAt
	s.recurrences[id] = r
	return nil
}

func (s *Store) UpdateRecurrenceStatus(_ context.Context, id int64, status core.RecurrenceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurrences[id]
	if !ok {
		return fmt.Errorf("recurrence %d: %w", id, core.ErrNotFound)
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	s.recurrences[id] = r
	return nil
}

func (s *Store) DeleteRecurrences(_ context.Context, ids []int64) error {
	if len(ids) > storage.MaxBatchDeletes {
		return fmt.Errorf("delete batch of %d exceeds limit %d", len(ids), storage.MaxBatchDeletes)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.recurrences, id)
		for vid, v := range s.versions {
			if v.RecurrenceID == id {
				delete(s.versions, vid)
			}
		}
	}
	return nil
}

func (s *Store) ListVersions(_ context.Context, recurrenceID int64) ([]core.RecurrenceVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurrenceVersion
	for _, v := range s.versions {
		if v.RecurrenceID == recurrenceID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *Store) GetActiveVersion(_ context.Context, recurrenceID int64) (*core.RecurrenceVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.RecurrenceID == recurrenceID && v.Active {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("active version of recurrence %d: %w", recurrenceID, core.ErrNotFound)
}

func (s *Store) ApplyAmendment(_ context.Context, closed core.RecurrenceVersion, created *core.RecurrenceVersion, rec core.Recurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.versions[closed.ID]; !ok {
		return fmt.Errorf("version %d: %w", closed.ID, core.ErrNotFound)
	}
	s.versions[closed.ID] = closed
	created.ID = s.id()
	s.versions[created.ID] = *created

	r, ok := s.recurrences[rec.ID]
	if !ok {
		return fmt.Errorf("recurrence %d: %w", rec.ID, core.ErrNotFound)
	}
	r.Amount = rec.Amount
	r.CurrentVersion = rec.CurrentVersion
	r.UpdatedAt = time.Now()
	s.recurrences[rec.ID] = r
	return nil
}

func (s *Store) ApplyReversion(_ context.Context, deletedID int64, reactivated core.RecurrenceVersion, rec core.Recurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.versions[deletedID]; !ok {
		return fmt.Errorf("version %d: %w", deletedID, core.ErrNotFound)
	}
	delete(s.versions, deletedID)
	reactivated.Active = true
	reactivated.EffectiveTo = time.Time{}
	s.versions[reactivated.ID] = reactivated

	r, ok := s.recurrences[rec.ID]
	if !ok {
		return fmt.Errorf("recurrence %d: %w", rec.ID, core.ErrNotFound)
	}
	r.Amount = rec.Amount
	r.CurrentVersion = rec.CurrentVersion
	r.UpdatedAt = time.Now()
	s.recurrences[rec.ID] = r
	return nil
}

func (s *Store) CreateTransactions(_ context.Context, txs []core.Transaction) (int, error) {
	if len(txs) > storage.MaxBatchWrites {
		return 0, fmt.Errorf("write batch of %d exceeds limit %d", len(txs), storage.MaxBatchWrites)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range txs {
		txs[i].ID = s.id()
		s.transactions[txs[i].ID] = txs[i]
	}
	return len(txs), nil
}

func (s *Store) ListTransactionsByRecurrence(_ context.Context, recurrenceID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.RecurrenceID == recurrenceID {
			out = append(out, t)
		}
	}
	sortByID(out, func(t core.Transaction) int64 { return t.ID })
	return out, nil
}

func (s *Store) ListTransactionsByOwner(_ context.Context, ownerID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sortByID(out, func(t core.Transaction) int64 { return t.ID })
	return out, nil
}

func (s *Store) CountTransactionsByRecurrence(_ context.Context, recurrenceID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.transactions {
		if t.RecurrenceID == recurrenceID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountTransactionsByLoan(_ context.Context, loanID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.transactions {
		if t.LoanID == loanID {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateTransactionFields(_ context.Context, ids []int64, fields map[string]string, updatedAt time.Time) error {
	if len(ids) > storage.MaxBatchWrites {
		return fmt.Errorf("update batch of %d exceeds limit %d", len(ids), storage.MaxBatchWrites)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		t, ok := s.transactions[id]
		if !ok {
			return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
		}
		if err := applyPatch(fields, &t.PaymentMethod, &t.ChargeAccountID, &t.CounterpartyBank, &t.CounterpartyTax); err != nil {
			return err
		}
		t.UpdatedAt = updatedAt
		s.transactions[id] = t
	}
	return nil
}

func (s *Store) DeleteTransactions(_ context.Context, ids []int64) error {
	if len(ids) > storage.MaxBatchDeletes {
		return fmt.Errorf("delete batch of %d exceeds limit %d", len(ids), storage.MaxBatchDeletes)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.transactions, id)
	}
	return nil
}

func (s *Store) CreateLoan(_ context.Context, l *core.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.id()
	s.loans[l.ID] = *l
	return nil
}

func (s *Store) GetLoan(_ context.Context, id int64) (*core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, fmt.Errorf("loan %d: %w", id, core.ErrNotFound)
	}
	return &l, nil
}

func (s *Store) ListLoansByOwner(_ context.Context, ownerID string) ([]core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Loan
	for _, l := range s.loans {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	sortByID(out, func(l core.Loan) int64 { return l.ID })
	return out, nil
}

func (s *Store) UpdateLoanProgress(_ context.Context, id int64, paidInstallments int, firstPendingDue time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return fmt.Errorf("loan %d: %w", id, core.ErrNotFound)
	}
	l.PaidInstallments = paidInstallments
	l.FirstPendingDue = firstPendingDue
	s.loans[id] = l
	return nil
}

func applyPatch(fields map[string]string, paymentMethod, chargeAccount, counterpartyBank, counterpartyTax *string) error {
	for k, v := range fields {
		switch k {
		case core.FieldPaymentMethod:
			*paymentMethod = v
		case core.FieldChargeAccount:
			*chargeAccount = v
		case core.FieldCounterpartyBank:
			*counterpartyBank = v
		case core.FieldCounterpartyTax:
			*counterpartyTax = v
		default:
			return fmt.Errorf("%w: unknown field %q", core.ErrNoValidFields, k)
		}
	}
	if len(fields) == 0 {
		return core.ErrNoValidFields
	}
	return nil
}

func sortByID[T any](items []T, id func(T) int64) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}
