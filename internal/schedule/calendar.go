// Package schedule provides the calendar arithmetic shared by every
// date-generating component: installment date projection for loans and
// occurrence enumeration for recurrences.
package schedule

import "time"

// InstallmentDate returns the due date of the n-th installment counted
// from firstPending (n starts at 1). The target month is firstPending's
// month plus n-1, carrying years. The day is min(paymentDay, last day
// of the target month).
//
// The date is built from a day-1 anchor before the day is applied.
// Constructing the date directly with an out-of-range day (day 31 in
// February) would roll into the next month.
func InstallmentDate(firstPending time.Time, n, paymentDay int) time.Time {
	anchor := time.Date(firstPending.Year(), firstPending.Month(), 1, 0, 0, 0, 0, time.UTC)
	anchor = anchor.AddDate(0, n-1, 0)
	day := paymentDay
	if last := lastDayOfMonth(anchor.Year(), anchor.Month()); day > last {
		day = last
	}
	return time.Date(anchor.Year(), anchor.Month(), day, 0, 0, 0, 0, time.UTC)
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
