package reminder

import "time"

// Outcome is the per-user result of one dispatch run.
type Outcome string

const (
	// OutcomeSkippedDisabled - the user has reminders turned off.
	OutcomeSkippedDisabled Outcome = "SKIPPED_DISABLED"

	// OutcomeSkippedRecentlyNotified - a reminder went out less than the
	// dedup window ago.
	OutcomeSkippedRecentlyNotified Outcome = "SKIPPED_RECENTLY_NOTIFIED"

	// OutcomeSkippedAlreadyDoneToday - the user already meditated today.
	OutcomeSkippedAlreadyDoneToday Outcome = "SKIPPED_ALREADY_DONE_TODAY"

	// OutcomeSent - a reminder was delivered.
	OutcomeSent Outcome = "SENT"

	// OutcomeFailed - lookup or delivery failed for this user. Isolated:
	// the run continues with the next user.
	OutcomeFailed Outcome = "FAILED"
)

// DispatchError pairs a user with the error that failed them in a run.
type DispatchError struct {
	FID   string `json:"fid"`
	Error string `json:"error"`
}

// DispatchResult aggregates one dispatch run over all stored preferences.
// It is returned even when individual users failed; only an enumeration
// failure aborts the run with no result.
type DispatchResult struct {
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	// Total is the number of preference records examined.
	Total int `json:"total"`

	// Sent lists the fids that received a reminder this run.
	Sent []string `json:"notificationsSent"`

	// Errors lists per-user failures. Empty on a clean run.
	Errors []DispatchError `json:"errors,omitempty"`

	// Outcomes tallies every per-user outcome for observability.
	Outcomes map[Outcome]int `json:"outcomes"`
}

// NewDispatchResult returns an empty result started at the given time.
func NewDispatchResult(startedAt time.Time) *DispatchResult {
	return &DispatchResult{
		StartedAt: startedAt,
		Sent:      make([]string, 0),
		Errors:    make([]DispatchError, 0),
		Outcomes:  make(map[Outcome]int),
	}
}

// Record tallies an outcome for one user.
func (r *DispatchResult) Record(fid string, outcome Outcome, err error) {
	r.Total++
	r.Outcomes[outcome]++

	switch outcome {
	case OutcomeSent:
		r.Sent = append(r.Sent, fid)
	case OutcomeFailed:
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		r.Errors = append(r.Errors, DispatchError{FID: fid, Error: msg})
	}
}
