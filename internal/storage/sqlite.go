package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tesoreria/internal/core"

	_ "modernc.org/sqlite"
)

const (
	dayFormat = "2006-01-02"
	tsFormat  = time.RFC3339Nano
)

// SQLiteRepository implements Store on a local SQLite database. Each
// batch method runs inside one transaction, which is the bounded
// atomic multi-write primitive the engine relies on.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func fmtDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dayFormat)
}

func parseDay(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dayFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func fmtTS(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(tsFormat)
}

func parseTS(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(tsFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// patchColumns maps allow-listed patch keys to their column names.
// Patch keys never reach SQL text unless they appear here.
var patchColumns = map[string]string{
	core.FieldPaymentMethod:    "payment_method",
	core.FieldChargeAccount:    "charge_account_id",
	core.FieldCounterpartyBank: "counterparty_bank",
	core.FieldCounterpartyTax:  "counterparty_tax_id",
}

// buildPatchSet renders "col1 = ?, col2 = ?" for the patch and returns
// the matching argument list. Unknown keys are rejected outright.
func buildPatchSet(fields map[string]string) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, core.ErrNoValidFields
	}
	cols := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for k, v := range fields {
		col, ok := patchColumns[k]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q", core.ErrNoValidFields, k)
		}
		cols = append(cols, col+" = ?")
		args = append(args, v)
	}
	return strings.Join(cols, ", "), args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// --- recurrences ---

const recurrenceColumns = `id, owner_id, company_id, type, name, amount_cents, category,
counterparty_id, frequency, day_of_month, day_of_week, start_date, end_date,
months_ahead, last_generated, next_occurrence, status, current_version,
payment_method, charge_account_id, counterparty_bank, counterparty_tax_id,
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecurrence(row rowScanner) (*core.Recurrence, error) {
	var rec core.Recurrence
	var startDate, endDate, lastGenerated, nextOccurrence, createdAt, updatedAt string
	var dayOfWeek int
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.CompanyID, &rec.Type, &rec.Name, &rec.Amount.Cents,
		&rec.Category, &rec.CounterpartyID, &rec.Frequency, &rec.DayOfMonth, &dayOfWeek,
		&startDate, &endDate, &rec.MonthsAhead, &lastGenerated, &nextOccurrence,
		&rec.Status, &rec.CurrentVersion, &rec.PaymentMethod, &rec.ChargeAccountID,
		&rec.CounterpartyBank, &rec.CounterpartyTax, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.DayOfWeek = time.Weekday(dayOfWeek)
	rec.StartDate = parseDay(startDate)
	rec.EndDate = parseDay(endDate)
	rec.LastGenerated = parseDay(lastGenerated)
	rec.NextOccurrence = parseDay(nextOccurrence)
	rec.CreatedAt = parseTS(createdAt)
	rec.UpdatedAt = parseTS(updatedAt)
	return &rec, nil
}

func (r *SQLiteRepository) CreateRecurrence(ctx context.Context, rec *core.Recurrence, v *core.RecurrenceVersion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO recurrences (owner_id, company_id, type, name,
amount_cents, category, counterparty_id, frequency, day_of_month, day_of_week,
start_date, end_date, months_ahead, last_generated, next_occurrence, status,
current_version, payment_method, charge_account_id, counterparty_bank,
counterparty_tax_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.OwnerID, rec.CompanyID, rec.Type, rec.Name, rec.Amount.Cents, rec.Category,
		rec.CounterpartyID, rec.Frequency, rec.DayOfMonth, int(rec.DayOfWeek),
		fmtDay(rec.StartDate), fmtDay(rec.EndDate), rec.MonthsAhead,
		fmtDay(rec.LastGenerated), fmtDay(rec.NextOccurrence), rec.Status,
		rec.CurrentVersion, rec.PaymentMethod, rec.ChargeAccountID, rec.CounterpartyBank,
		rec.CounterpartyTax, fmtTS(rec.CreatedAt), fmtTS(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert recurrence: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("recurrence id: %w", err)
	}

	v.RecurrenceID = rec.ID
	res, err = tx.ExecContext(ctx, `INSERT INTO recurrence_versions (recurrence_id, amount_cents,
effective_from, effective_to, version, active, reason, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.RecurrenceID, v.Amount.Cents, fmtDay(v.EffectiveFrom), fmtDay(v.EffectiveTo),
		v.Version, boolToInt(v.Active), v.Reason, fmtTS(v.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert initial version: %w", err)
	}
	v.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("version id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recurrence: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRecurrence(ctx context.Context, id int64) (*core.Recurrence, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurrenceColumns+` FROM recurrences WHERE id = ?`, id)
	rec, err := scanRecurrence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recurrence %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get recurrence: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) listRecurrences(ctx context.Context, where string, args ...any) ([]core.Recurrence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurrenceColumns+` FROM recurrences WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurrences: %w", err)
	}
	defer rows.Close()

	var out []core.Recurrence
	for rows.Next() {
		rec, err := scanRecurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurrence: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListRecurrencesByOwner(ctx context.Context, ownerID string) ([]core.Recurrence, error) {
	return r.listRecurrences(ctx, "owner_id = ?", ownerID)
}

func (r *SQLiteRepository) ListActiveRecurrences(ctx context.Context) ([]core.Recurrence, error) {
	return r.listRecurrences(ctx, "status = ?", core.StatusActive)
}

func (r *SQLiteRepository) UpdateRecurrenceProjection(ctx context.Context, id int64, lastGenerated, nextOccurrence time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurrences SET last_generated = ?, next_occurrence = ?, updated_at = ? WHERE id = ?`,
		fmtDay(lastGenerated), fmtDay(nextOccurrence), fmtTS(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update projection watermark: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateRecurrenceFields(ctx context.Context, id int64, fields map[string]string, updatedAt time.Time) error {
	set, args, err := buildPatchSet(fields)
	if err != nil {
		return err
	}
	args = append(args, fmtTS(updatedAt), id)
	_, err = r.db.ExecContext(ctx,
		`UPDATE recurrences SET `+set+`, updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update recurrence fields: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateRecurrenceStatus(ctx context.Context, id int64, status core.RecurrenceStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurrences SET status = ?, updated_at = ? WHERE id = ?`,
		status, fmtTS(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update recurrence status: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteRecurrences(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxBatchDeletes {
		return fmt.Errorf("delete batch of %d exceeds limit %d", len(ids), MaxBatchDeletes)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recurrence_versions WHERE recurrence_id IN (`+placeholders(len(ids))+`)`, args...); err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recurrences WHERE id IN (`+placeholders(len(ids))+`)`, args...); err != nil {
		return fmt.Errorf("delete recurrences: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// --- recurrence versions ---

const versionColumns = `id, recurrence_id, amount_cents, effective_from, effective_to,
version, active, reason, created_at`

func scanVersion(row rowScanner) (*core.RecurrenceVersion, error) {
	var v core.RecurrenceVersion
	var effectiveFrom, effectiveTo, createdAt string
	var active int
	err := row.Scan(&v.ID, &v.RecurrenceID, &v.Amount.Cents, &effectiveFrom,
		&effectiveTo, &v.Version, &active, &v.Reason, &createdAt)
	if err != nil {
		return nil, err
	}
	v.Active = active != 0
	v.EffectiveFrom = parseDay(effectiveFrom)
	v.EffectiveTo = parseDay(effectiveTo)
	v.CreatedAt = parseTS(createdAt)
	return &v, nil
}

func (r *SQLiteRepository) ListVersions(ctx context.Context, recurrenceID int64) ([]core.RecurrenceVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM recurrence_versions WHERE recurrence_id = ? ORDER BY version`,
		recurrenceID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurrenceVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetActiveVersion(ctx context.Context, recurrenceID int64) (*core.RecurrenceVersion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM recurrence_versions WHERE recurrence_id = ? AND active = 1`,
		recurrenceID)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active version of recurrence %d: %w", recurrenceID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get active version: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) ApplyAmendment(ctx context.Context, closed core.RecurrenceVersion, created *core.RecurrenceVersion, rec core.Recurrence) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE recurrence_versions SET effective_to = ?, active = 0 WHERE id = ?`,
		fmtDay(closed.EffectiveTo), closed.ID); err != nil {
		return fmt.Errorf("close previous version: %w", err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO recurrence_versions (recurrence_id, amount_cents,
effective_from, effective_to, version, active, reason, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		created.RecurrenceID, created.Amount.Cents, fmtDay(created.EffectiveFrom),
		fmtDay(created.EffectiveTo), created.Version, boolToInt(created.Active),
		created.Reason, fmtTS(created.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert new version: %w", err)
	}
	created.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("version id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE recurrences SET amount_cents = ?, current_version = ?, updated_at = ? WHERE id = ?`,
		rec.Amount.Cents, rec.CurrentVersion, fmtTS(time.Now()), rec.ID); err != nil {
		return fmt.Errorf("update recurrence pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit amendment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ApplyReversion(ctx context.Context, deletedID int64, reactivated core.RecurrenceVersion, rec core.Recurrence) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recurrence_versions WHERE id = ?`, deletedID); err != nil {
		return fmt.Errorf("delete reverted version: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE recurrence_versions SET effective_to = '', active = 1 WHERE id = ?`,
		reactivated.ID); err != nil {
		return fmt.Errorf("reactivate previous version: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE recurrences SET amount_cents = ?, current_version = ?, updated_at = ? WHERE id = ?`,
		rec.Amount.Cents, rec.CurrentVersion, fmtTS(time.Now()), rec.ID); err != nil {
		return fmt.Errorf("roll back recurrence pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reversion: %w", err)
	}
	return nil
}

// --- transactions ---

const transactionColumns = `id, owner_id, company_id, type, description, amount_cents,
due_date, status, category, counterparty_id, payment_method, charge_account_id,
counterparty_bank, counterparty_tax_id, recurrence_id, loan_id, installment,
created_at, updated_at`

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var t core.Transaction
	var dueDate, createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.OwnerID, &t.CompanyID, &t.Type, &t.Description,
		&t.Amount.Cents, &dueDate, &t.Status, &t.Category, &t.CounterpartyID,
		&t.PaymentMethod, &t.ChargeAccountID, &t.CounterpartyBank, &t.CounterpartyTax,
		&t.RecurrenceID, &t.LoanID, &t.Installment, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.DueDate = parseDay(dueDate)
	t.CreatedAt = parseTS(createdAt)
	t.UpdatedAt = parseTS(updatedAt)
	return &t, nil
}

func (r *SQLiteRepository) CreateTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	if len(txs) > MaxBatchWrites {
		return 0, fmt.Errorf("write batch of %d exceeds limit %d", len(txs), MaxBatchWrites)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions (owner_id, company_id, type,
description, amount_cents, due_date, status, category, counterparty_id,
payment_method, charge_account_id, counterparty_bank, counterparty_tax_id,
recurrence_id, loan_id, installment, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range txs {
		t := &txs[i]
		res, err := stmt.ExecContext(ctx, t.OwnerID, t.CompanyID, t.Type, t.Description,
			t.Amount.Cents, fmtDay(t.DueDate), t.Status, t.Category, t.CounterpartyID,
			t.PaymentMethod, t.ChargeAccountID, t.CounterpartyBank, t.CounterpartyTax,
			t.RecurrenceID, t.LoanID, t.Installment, fmtTS(t.CreatedAt), fmtTS(t.UpdatedAt))
		if err != nil {
			return 0, fmt.Errorf("insert transaction %d: %w", i, err)
		}
		t.ID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("transaction id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transactions: %w", err)
	}
	return len(txs), nil
}

func (r *SQLiteRepository) listTransactions(ctx context.Context, where string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListTransactionsByRecurrence(ctx context.Context, recurrenceID int64) ([]core.Transaction, error) {
	return r.listTransactions(ctx, "recurrence_id = ?", recurrenceID)
}

func (r *SQLiteRepository) ListTransactionsByOwner(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	return r.listTransactions(ctx, "owner_id = ?", ownerID)
}

func (r *SQLiteRepository) CountTransactionsByRecurrence(ctx context.Context, recurrenceID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE recurrence_id = ?`, recurrenceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountTransactionsByLoan(ctx context.Context, loanID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE loan_id = ?`, loanID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) UpdateTransactionFields(ctx context.Context, ids []int64, fields map[string]string, updatedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxBatchWrites {
		return fmt.Errorf("update batch of %d exceeds limit %d", len(ids), MaxBatchWrites)
	}
	set, args, err := buildPatchSet(fields)
	if err != nil {
		return err
	}
	args = append(args, fmtTS(updatedAt))
	for _, id := range ids {
		args = append(args, id)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE transactions SET `+set+`, updated_at = ? WHERE id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("update transaction fields: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxBatchDeletes {
		return fmt.Errorf("delete batch of %d exceeds limit %d", len(ids), MaxBatchDeletes)
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	return nil
}

// --- loans ---

const loanColumns = `id, owner_id, company_id, lender, principal_cents, annual_rate_percent,
total_installments, paid_installments, remaining_installments, monthly_payment_cents,
payment_day, first_pending_due, charge_account_id, created_at`

func scanLoan(row rowScanner) (*core.Loan, error) {
	var l core.Loan
	var firstPending, createdAt string
	err := row.Scan(&l.ID, &l.OwnerID, &l.CompanyID, &l.Lender, &l.Principal.Cents,
		&l.AnnualRatePercent, &l.TotalInstallments, &l.PaidInstallments,
		&l.RemainingInstallments, &l.MonthlyPayment.Cents, &l.PaymentDay,
		&firstPending, &l.ChargeAccountID, &createdAt)
	if err != nil {
		return nil, err
	}
	l.FirstPendingDue = parseDay(firstPending)
	l.CreatedAt = parseTS(createdAt)
	return &l, nil
}

func (r *SQLiteRepository) CreateLoan(ctx context.Context, l *core.Loan) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO loans (owner_id, company_id, lender,
principal_cents, annual_rate_percent, total_installments, paid_installments,
remaining_installments, monthly_payment_cents, payment_day, first_pending_due,
charge_account_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.OwnerID, l.CompanyID, l.Lender, l.Principal.Cents, l.AnnualRatePercent,
		l.TotalInstallments, l.PaidInstallments, l.RemainingInstallments,
		l.MonthlyPayment.Cents, l.PaymentDay, fmtDay(l.FirstPendingDue),
		l.ChargeAccountID, fmtTS(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("loan id: %w", err)
	}
	slog.InfoContext(ctx, "Loan saved",
		"id", l.ID,
		"lender", l.Lender,
		"principal_cents", l.Principal.Cents,
		"installments", l.TotalInstallments)
	return nil
}

func (r *SQLiteRepository) GetLoan(ctx context.Context, id int64) (*core.Loan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	l, err := scanLoan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return l, nil
}

func (r *SQLiteRepository) ListLoansByOwner(ctx context.Context, ownerID string) ([]core.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var out []core.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateLoanProgress(ctx context.Context, id int64, paidInstallments int, firstPendingDue time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE loans SET paid_installments = ?, first_pending_due = ? WHERE id = ?`,
		paidInstallments, fmtDay(firstPendingDue), id)
	if err != nil {
		return fmt.Errorf("update loan progress: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
