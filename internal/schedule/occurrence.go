package schedule

import (
	"fmt"
	"time"

	"tesoreria/internal/core"
)

// Rule is the frequency rule of a recurrence: which days it falls on.
type Rule struct {
	Frequency  core.Frequency
	DayOfMonth int          // monthly only, 1-31
	DayOfWeek  time.Weekday // weekly only
}

// RuleFor extracts the frequency rule from a recurrence.
func RuleFor(r core.Recurrence) Rule {
	return Rule{Frequency: r.Frequency, DayOfMonth: r.DayOfMonth, DayOfWeek: r.DayOfWeek}
}

// occurrenceStrategy enumerates the occurrence dates for one frequency
// type. Implementations assume the rule has already been validated.
type occurrenceStrategy interface {
	// First returns the earliest occurrence on or after start.
	First(start time.Time, rule Rule) time.Time
	// Next returns the first occurrence strictly after prev.
	Next(prev time.Time, rule Rule) time.Time
}

type monthlyStrategy struct{}

func (monthlyStrategy) First(start time.Time, rule Rule) time.Time {
	candidate := InstallmentDate(start, 1, rule.DayOfMonth)
	if candidate.Before(core.Day(start)) {
		candidate = InstallmentDate(start, 2, rule.DayOfMonth)
	}
	return candidate
}

func (monthlyStrategy) Next(prev time.Time, rule Rule) time.Time {
	return InstallmentDate(prev, 2, rule.DayOfMonth)
}

type weeklyStrategy struct{}

func (weeklyStrategy) First(start time.Time, rule Rule) time.Time {
	start = core.Day(start)
	delta := int(rule.DayOfWeek-start.Weekday()+7) % 7
	return start.AddDate(0, 0, delta)
}

func (weeklyStrategy) Next(prev time.Time, rule Rule) time.Time {
	prev = core.Day(prev)
	delta := int(rule.DayOfWeek-prev.Weekday()+7) % 7
	if delta == 0 {
		delta = 7
	}
	return prev.AddDate(0, 0, delta)
}

var occurrenceStrategies = map[core.Frequency]occurrenceStrategy{
	core.Monthly: monthlyStrategy{},
	core.Weekly:  weeklyStrategy{},
}

func strategyFor(rule Rule) (occurrenceStrategy, error) {
	s, ok := occurrenceStrategies[rule.Frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, rule.Frequency)
	}
	switch rule.Frequency {
	case core.Monthly:
		if rule.DayOfMonth < 1 || rule.DayOfMonth > 31 {
			return nil, fmt.Errorf("%w: day of month %d", core.ErrInvalidFrequency, rule.DayOfMonth)
		}
	case core.Weekly:
		if rule.DayOfWeek < time.Sunday || rule.DayOfWeek > time.Saturday {
			return nil, fmt.Errorf("%w: day of week %d", core.ErrInvalidFrequency, rule.DayOfWeek)
		}
	}
	return s, nil
}

// FirstOccurrence returns the earliest occurrence date on or after
// start that matches the rule. It never returns a date before start.
func FirstOccurrence(start time.Time, rule Rule) (time.Time, error) {
	s, err := strategyFor(rule)
	if err != nil {
		return time.Time{}, err
	}
	return s.First(start, rule), nil
}

// NextOccurrence returns the first occurrence strictly after prev.
func NextOccurrence(prev time.Time, rule Rule) (time.Time, error) {
	s, err := strategyFor(rule)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(prev, rule), nil
}
