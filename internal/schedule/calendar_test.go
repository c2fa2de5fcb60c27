package schedule

import (
	"testing"
	"time"

	"tesoreria/internal/core"
)

func TestInstallmentDateStaysInTargetMonth(t *testing.T) {
	// Every payment day from 29 to 31, every month of a leap and a
	// non-leap year, projected up to 24 installments ahead: the result
	// must never spill into the month after the target one.
	starts := []time.Time{core.NewDate(2024, 1, 5), core.NewDate(2025, 1, 5)}
	for _, start := range starts {
		for payDay := 29; payDay <= 31; payDay++ {
			for n := 1; n <= 24; n++ {
				got := InstallmentDate(start, n, payDay)
				wantMonth := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n-1, 0)
				if got.Year() != wantMonth.Year() || got.Month() != wantMonth.Month() {
					t.Fatalf("InstallmentDate(%v, %d, %d) = %v, landed outside target month %v",
						start, n, payDay, got, wantMonth.Month())
				}
				if got.Day() > payDay {
					t.Fatalf("InstallmentDate(%v, %d, %d) = %v, day exceeds payment day", start, n, payDay, got)
				}
			}
		}
	}
}

func TestInstallmentDateFirstKeepsMonth(t *testing.T) {
	for payDay := 1; payDay <= 31; payDay++ {
		d := core.NewDate(2025, 2, 10)
		got := InstallmentDate(d, 1, payDay)
		if got.Month() != d.Month() || got.Year() != d.Year() {
			t.Fatalf("InstallmentDate(%v, 1, %d) = %v, want same month", d, payDay, got)
		}
	}
}

func TestInstallmentDateClampsFebruary(t *testing.T) {
	tests := []struct {
		name  string
		first time.Time
		n     int
		day   int
		want  time.Time
	}{
		{"non-leap February", core.NewDate(2025, 1, 31), 2, 31, core.NewDate(2025, 2, 28)},
		{"leap February", core.NewDate(2024, 1, 31), 2, 31, core.NewDate(2024, 2, 29)},
		{"April from day 31", core.NewDate(2025, 1, 31), 4, 31, core.NewDate(2025, 4, 30)},
		{"year carry", core.NewDate(2025, 11, 15), 3, 15, core.NewDate(2026, 1, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InstallmentDate(tt.first, tt.n, tt.day)
			if !got.Equal(tt.want) {
				t.Errorf("InstallmentDate() = %v, want %v", got, tt.want)
			}
		})
	}
}
