package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly Frequency = "monthly"
	Weekly  Frequency = "weekly"
)

const (
	Income  FlowType = "income"
	Expense FlowType = "expense"
)

const (
	StatusActive RecurrenceStatus = "active"
	StatusPaused RecurrenceStatus = "paused"
	StatusEnded  RecurrenceStatus = "ended"
)

const (
	TxPending TransactionStatus = "pending"
	TxSettled TransactionStatus = "settled"
)

type (
	Frequency         string
	FlowType          string
	RecurrenceStatus  string
	TransactionStatus string

	Money struct {
		Cents int64
	}

	// Recurrence is a template describing a periodically repeating
	// monetary obligation. Amount always mirrors the active version.
	Recurrence struct {
		ID             int64
		OwnerID        string
		CompanyID      string
		Type           FlowType
		Name           string
		Amount         Money
		Category       string
		CounterpartyID string
		Frequency      Frequency
		DayOfMonth     int          // monthly: 1-31, clamped to month length
		DayOfWeek      time.Weekday // weekly: 0-6
		StartDate      time.Time
		EndDate        time.Time // zero means open-ended
		MonthsAhead    int       // look-ahead horizon for projection
		LastGenerated  time.Time // watermark, zero means never projected
		NextOccurrence time.Time
		Status         RecurrenceStatus
		CurrentVersion int

		// Propagable payment details, inherited by generated transactions.
		PaymentMethod    string
		ChargeAccountID  string
		CounterpartyBank string
		CounterpartyTax  string

		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// RecurrenceVersion is one immutable effective-dated amendment of a
	// recurrence's amount. Versions form a non-overlapping chain; exactly
	// one is active and open-ended at any time.
	RecurrenceVersion struct {
		ID            int64
		RecurrenceID  int64
		Amount        Money
		EffectiveFrom time.Time
		EffectiveTo   time.Time // zero means open-ended
		Version       int
		Active        bool
		Reason        string
		CreatedAt     time.Time
	}

	// Transaction is one concrete payment or collection occurrence.
	Transaction struct {
		ID             int64
		OwnerID        string
		CompanyID      string
		Type           FlowType
		Description    string
		Amount         Money
		DueDate        time.Time
		Status         TransactionStatus
		Category       string
		CounterpartyID string

		PaymentMethod    string
		ChargeAccountID  string
		CounterpartyBank string
		CounterpartyTax  string

		RecurrenceID int64 // zero when not generated from a recurrence
		LoanID       int64 // zero when not generated from a loan
		Installment  int   // loan installment number, zero otherwise

		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Loan is a fixed-term amortizing debt. MonthlyPayment is fixed for
	// the life of the loan and is not versioned.
	Loan struct {
		ID                    int64
		OwnerID               string
		CompanyID             string
		Lender                string
		Principal             Money
		AnnualRatePercent     float64
		TotalInstallments     int
		PaidInstallments      int
		RemainingInstallments int
		MonthlyPayment        Money
		PaymentDay            int // day of month, clamped to month length
		FirstPendingDue       time.Time
		ChargeAccountID       string
		CreatedAt             time.Time
	}
)

var (
	ErrInvalidFrequency      = errors.New("invalid or incomplete frequency rule")
	ErrInvalidOwnership      = errors.New("record does not belong to caller")
	ErrNotNewestVersion      = errors.New("version is not the active amendment")
	ErrNoValidFields         = errors.New("patch contains no propagable field")
	ErrDependentRecordsExist = errors.New("dependent records exist")
	ErrNotFound              = errors.New("record not found")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidStartDate = errors.New("invalid start date")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (f Frequency) Valid() bool {
	return f == Monthly || f == Weekly
}

func (t FlowType) Valid() bool {
	return t == Income || t == Expense
}

func (r Recurrence) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" || strings.TrimSpace(r.CompanyID) == "" {
		return errors.New("owner and company are required")
	}
	if !r.Type.Valid() {
		return errors.New("invalid flow type")
	}
	if len(strings.TrimSpace(r.Name)) == 0 {
		return ErrEmptyName
	}
	if len(r.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.StartDate.IsZero() {
		return ErrInvalidStartDate
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		return errors.New("end date must not be before start date")
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	switch r.Frequency {
	case Monthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return ErrInvalidFrequency
		}
	case Weekly:
		if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
			return ErrInvalidFrequency
		}
	}
	if r.MonthsAhead < 1 {
		return errors.New("look-ahead horizon must be at least one month")
	}
	return nil
}

func (l Loan) Validate() error {
	if strings.TrimSpace(l.OwnerID) == "" || strings.TrimSpace(l.CompanyID) == "" {
		return errors.New("owner and company are required")
	}
	if len(strings.TrimSpace(l.Lender)) == 0 {
		return errors.New("empty lender")
	}
	if err := l.Principal.Validate(); err != nil {
		return err
	}
	if l.AnnualRatePercent < 0 {
		return errors.New("negative interest rate")
	}
	if l.TotalInstallments < 1 {
		return errors.New("total installments must be at least 1")
	}
	if l.PaidInstallments < 0 || l.RemainingInstallments < l.PaidInstallments {
		return errors.New("installment counters out of range")
	}
	if l.PaymentDay < 1 || l.PaymentDay > 31 {
		return errors.New("payment day out of range")
	}
	if l.FirstPendingDue.IsZero() {
		return errors.New("first pending due date is required")
	}
	return nil
}

// Day returns t truncated to midnight UTC. Due dates and occurrence
// dates are always day-granular.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a day-granular UTC date.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
