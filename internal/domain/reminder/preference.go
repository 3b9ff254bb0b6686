// Package reminder contains the domain model for daily reminder opt-in and
// the outcome bookkeeping of a dispatch run.
package reminder

import (
	"time"

	"github.com/stillmind/stillmind-hub/internal/domain/notification"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
	"github.com/stillmind/stillmind-hub/pkg/timeutil"
)

// DedupWindow is the minimum gap between two reminders to the same user.
// Exactly the window elapsed counts as eligible again.
const DedupWindow = 24 * time.Hour

// Preference is the per-user reminder opt-in record. Disabled records are
// retained rather than deleted so that re-enabling reuses history.
type Preference struct {
	// Enabled gates dispatch for this user.
	Enabled bool `json:"enabled"`

	// LastNotificationSent is when the dispatcher last delivered a
	// reminder to this user. Nil until the first delivery.
	LastNotificationSent *time.Time `json:"lastNotificationSent,omitempty"`

	// Token and URL form the delivery address captured at opt-in time.
	// Optional, but always present or absent together.
	Token string `json:"token,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Validate checks the record's internal invariants against the given time.
func (p Preference) Validate(now time.Time) error {
	if (p.Token == "") != (p.URL == "") {
		return shared.NewDomainError("reminder", "Validate", shared.ErrInvalidInput,
			"delivery token and url must be provided together")
	}
	if p.LastNotificationSent != nil && p.LastNotificationSent.After(now) {
		return shared.NewDomainError("reminder", "Validate", shared.ErrInvalidInput,
			"lastNotificationSent cannot be in the future")
	}
	return nil
}

// DeliveryAddress returns the address stored with the preference. The
// returned address may be incomplete; callers check Valid().
func (p Preference) DeliveryAddress() notification.Address {
	return notification.Address{Token: p.Token, URL: p.URL}
}

// RecentlyNotified reports whether a reminder went out within the dedup
// window before now. Never-notified users are not recently notified.
func (p Preference) RecentlyNotified(now time.Time) bool {
	if p.LastNotificationSent == nil {
		return false
	}
	return !timeutil.ElapsedAtLeast(*p.LastNotificationSent, now, DedupWindow)
}
