package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func TestPreference_RecentlyNotified(t *testing.T) {
	sent := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	tests := []struct {
		name     string
		lastSent *time.Time
		want     bool
	}{
		{"never notified", nil, false},
		{"23h ago is recent", sent(23 * time.Hour), true},
		{"exactly 24h ago is eligible again", sent(24 * time.Hour), false},
		{"25h ago is eligible", sent(25 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Preference{Enabled: true, LastNotificationSent: tt.lastSent}
			assert.Equal(t, tt.want, p.RecentlyNotified(now))
		})
	}
}

func TestPreference_Validate(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.NoError(t, Preference{Enabled: true}.Validate(now))
	assert.NoError(t, Preference{Enabled: true, Token: "tok", URL: "https://host/notify"}.Validate(now))
	assert.NoError(t, Preference{LastNotificationSent: &past}.Validate(now))

	assert.Error(t, Preference{Token: "tok"}.Validate(now), "token without url")
	assert.Error(t, Preference{URL: "https://host/notify"}.Validate(now), "url without token")
	assert.Error(t, Preference{LastNotificationSent: &future}.Validate(now), "future timestamp")
}

func TestPreference_DeliveryAddress(t *testing.T) {
	p := Preference{Token: "tok", URL: "https://host/notify"}
	addr := p.DeliveryAddress()

	assert.True(t, addr.Valid())
	assert.Equal(t, "tok", addr.Token)

	assert.False(t, Preference{}.DeliveryAddress().Valid())
	assert.False(t, Preference{Token: "tok"}.DeliveryAddress().Valid())
}

func TestDispatchResult_Record(t *testing.T) {
	r := NewDispatchResult(now)

	r.Record("100", OutcomeSent, nil)
	r.Record("200", OutcomeSkippedDisabled, nil)
	r.Record("300", OutcomeFailed, assert.AnError)

	assert.Equal(t, 3, r.Total)
	assert.Equal(t, []string{"100"}, r.Sent)
	assert.Len(t, r.Errors, 1)
	assert.Equal(t, "300", r.Errors[0].FID)
	assert.Equal(t, 1, r.Outcomes[OutcomeSent])
	assert.Equal(t, 1, r.Outcomes[OutcomeSkippedDisabled])
	assert.Equal(t, 1, r.Outcomes[OutcomeFailed])
}
