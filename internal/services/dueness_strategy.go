// Package services orchestrates the stores, the AI collaborator and event
// publishing on behalf of the HTTP layer and the bill worker.
package services

import "time"

// DuenessChecker decides whether a periodic job should run again.
type DuenessChecker interface {
	// IsDue reports whether the job is due at now given its last run.
	// anchorDay is the day of month the job targets; checkers that do not
	// need it ignore it.
	IsDue(lastExecution, now time.Time, anchorDay int) bool
}

// DailyChecker is due once per calendar day.
type DailyChecker struct{}

// IsDue returns true if last execution was before today.
func (DailyChecker) IsDue(lastExecution, now time.Time, _ int) bool {
	if lastExecution.IsZero() {
		return true
	}
	last := lastExecution.In(now.Location())
	return last.Format("2006-01-02") != now.Format("2006-01-02")
}

// MonthlyChecker is due once per calendar month, on or after anchorDay.
type MonthlyChecker struct{}

// IsDue returns true if we're in a new month and have reached the target day.
func (MonthlyChecker) IsDue(lastExecution, now time.Time, anchorDay int) bool {
	if lastExecution.IsZero() {
		return true
	}

	last := lastExecution.In(now.Location())
	if last.Year() == now.Year() && last.Month() == now.Month() {
		return false
	}
	// A clock running backwards must not trigger a second run.
	if last.After(now) {
		return false
	}

	target := anchorDay
	if target < 1 {
		target = 1
	}
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if target > lastDayOfMonth {
		target = lastDayOfMonth
	}
	return now.Day() >= target
}
