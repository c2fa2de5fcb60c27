package core

import (
	"testing"
	"time"
)

func validRecurrence() Recurrence {
	return Recurrence{
		OwnerID:     "owner-1",
		CompanyID:   "acme",
		Type:        Expense,
		Name:        "Office rent",
		Amount:      Money{Cents: 50000},
		Frequency:   Monthly,
		DayOfMonth:  15,
		StartDate:   NewDate(2025, 1, 15),
		MonthsAhead: 3,
		Status:      StatusActive,
	}
}

func TestRecurrenceValidate(t *testing.T) {
	if err := validRecurrence().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Recurrence)
	}{
		{"missing owner", func(r *Recurrence) { r.OwnerID = "" }},
		{"missing company", func(r *Recurrence) { r.CompanyID = "" }},
		{"bad flow type", func(r *Recurrence) { r.Type = "transfer" }},
		{"empty name", func(r *Recurrence) { r.Name = "  " }},
		{"zero amount", func(r *Recurrence) { r.Amount = Money{} }},
		{"zero start", func(r *Recurrence) { r.StartDate = time.Time{} }},
		{"end before start", func(r *Recurrence) { r.EndDate = NewDate(2024, 12, 1) }},
		{"unknown frequency", func(r *Recurrence) { r.Frequency = "quarterly" }},
		{"day of month zero", func(r *Recurrence) { r.DayOfMonth = 0 }},
		{"day of month 32", func(r *Recurrence) { r.DayOfMonth = 32 }},
		{"no horizon", func(r *Recurrence) { r.MonthsAhead = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecurrence()
			tt.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestRecurrenceValidateWeekly(t *testing.T) {
	r := validRecurrence()
	r.Frequency = Weekly
	r.DayOfMonth = 0
	r.DayOfWeek = time.Friday
	if err := r.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	r.DayOfWeek = 7
	if err := r.Validate(); err == nil {
		t.Fatalf("expected error for weekday out of range")
	}
}

func TestLoanValidate(t *testing.T) {
	good := Loan{
		OwnerID:               "owner-1",
		CompanyID:             "acme",
		Lender:                "Banco Norte",
		Principal:             Money{Cents: 1200000},
		AnnualRatePercent:     5,
		TotalInstallments:     12,
		PaidInstallments:      2,
		RemainingInstallments: 12,
		MonthlyPayment:        Money{Cents: 102000},
		PaymentDay:            10,
		FirstPendingDue:       NewDate(2025, 3, 10),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.RemainingInstallments = 1 // below paid count
	if err := bad.Validate(); err == nil {
		t.Errorf("expected error for remaining < paid")
	}

	bad = good
	bad.PaymentDay = 0
	if err := bad.Validate(); err == nil {
		t.Errorf("expected error for payment day 0")
	}
}

func TestDayTruncates(t *testing.T) {
	ts := time.Date(2025, 6, 3, 17, 45, 12, 999, time.UTC)
	got := Day(ts)
	want := NewDate(2025, 6, 3)
	if !got.Equal(want) {
		t.Fatalf("Day() = %v, want %v", got, want)
	}
}
