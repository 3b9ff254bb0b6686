// Package meditation contains the domain model for the per-user meditation
// ledger: total completed sessions and the consecutive-day streak.
package meditation

import (
	"fmt"
	"time"

	"github.com/stillmind/stillmind-hub/pkg/timeutil"
)

// Stats is the per-user ledger record. It is stored as a single JSON blob
// keyed by fid; the store holds the only authoritative copy.
type Stats struct {
	// TotalSessions counts every completed session, including repeats on
	// the same day. Monotonically non-decreasing.
	TotalSessions int `json:"totalSessions"`

	// CurrentStreak is the number of consecutive UTC calendar days with at
	// least one completed session, as of LastMeditationDate. At least 1
	// whenever LastMeditationDate is set.
	CurrentStreak int `json:"currentStreak"`

	// LastMeditationDate is the UTC calendar day (YYYY-MM-DD) of the most
	// recent completed session, or nil if the user has never meditated.
	LastMeditationDate *string `json:"lastMeditationDate"`
}

// Zero returns the default record for a user with no history.
func Zero() Stats {
	return Stats{}
}

// Validate checks the record's internal invariants.
func (s Stats) Validate() error {
	if s.TotalSessions < 0 {
		return fmt.Errorf("totalSessions must be non-negative, got %d", s.TotalSessions)
	}
	if s.LastMeditationDate == nil {
		if s.TotalSessions != 0 {
			return fmt.Errorf("totalSessions is %d but no last meditation date", s.TotalSessions)
		}
		return nil
	}
	if s.TotalSessions == 0 {
		return fmt.Errorf("last meditation date set but totalSessions is 0")
	}
	if s.CurrentStreak < 1 {
		return fmt.Errorf("currentStreak must be at least 1 when a session exists, got %d", s.CurrentStreak)
	}
	if _, err := timeutil.ParseDay(*s.LastMeditationDate); err != nil {
		return fmt.Errorf("malformed last meditation date %q: %w", *s.LastMeditationDate, err)
	}
	return nil
}

// Advance returns the record after one completed session at time now.
//
// TotalSessions always goes up by one, even for a repeat completion on the
// same day; the streak is what guards same-day repeats. Streak transitions:
//
//	no prior session          -> 1
//	last session yesterday    -> streak + 1
//	last session today        -> unchanged
//	gap of two days or more   -> 1
func (s Stats) Advance(now time.Time) Stats {
	today := timeutil.Day(now)

	next := Stats{
		TotalSessions:      s.TotalSessions + 1,
		CurrentStreak:      1,
		LastMeditationDate: &today,
	}

	if s.LastMeditationDate == nil {
		return next
	}

	switch *s.LastMeditationDate {
	case timeutil.DayBefore(now):
		next.CurrentStreak = s.CurrentStreak + 1
	case today:
		next.CurrentStreak = s.CurrentStreak
	}

	return next
}

// MeditatedOn reports whether the most recent session fell on the given UTC
// calendar day.
func (s Stats) MeditatedOn(day string) bool {
	return s.LastMeditationDate != nil && *s.LastMeditationDate == day
}
