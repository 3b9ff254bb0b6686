package jobs

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillmind/stillmind-hub/internal/domain/meditation"
	"github.com/stillmind/stillmind-hub/internal/domain/notification"
	"github.com/stillmind/stillmind-hub/internal/domain/reminder"
	"github.com/stillmind/stillmind-hub/pkg/timeutil"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type fakePrefs struct {
	records map[string]reminder.Preference
	listErr error
	getErr  map[string]error
	saveErr map[string]error
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{
		records: make(map[string]reminder.Preference),
		getErr:  make(map[string]error),
		saveErr: make(map[string]error),
	}
}

func (f *fakePrefs) Get(_ context.Context, fid string) (reminder.Preference, error) {
	if err := f.getErr[fid]; err != nil {
		return reminder.Preference{}, err
	}
	return f.records[fid], nil
}

func (f *fakePrefs) Save(_ context.Context, fid string, pref reminder.Preference) error {
	if err := f.saveErr[fid]; err != nil {
		return err
	}
	f.records[fid] = pref
	return nil
}

func (f *fakePrefs) ListFIDs(_ context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	fids := make([]string, 0, len(f.records))
	for fid := range f.records {
		fids = append(fids, fid)
	}
	sort.Strings(fids)
	return fids, nil
}

func (f *fakePrefs) SubscriberCount(_ context.Context) (int64, error) {
	var n int64
	for _, pref := range f.records {
		if pref.Enabled {
			n++
		}
	}
	return n, nil
}

type fakeStats struct {
	records map[string]meditation.Stats
	getErr  map[string]error
}

func newFakeStats() *fakeStats {
	return &fakeStats{
		records: make(map[string]meditation.Stats),
		getErr:  make(map[string]error),
	}
}

func (f *fakeStats) Get(_ context.Context, fid string) (meditation.Stats, error) {
	if err := f.getErr[fid]; err != nil {
		return meditation.Stats{}, err
	}
	return f.records[fid], nil
}

func (f *fakeStats) Save(_ context.Context, fid string, stats meditation.Stats) error {
	f.records[fid] = stats
	return nil
}

type fakeSender struct {
	sent    []notification.Address
	failFor map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[string]error)}
}

func (f *fakeSender) Send(_ context.Context, addr notification.Address, _, _ string) error {
	if err := f.failFor[addr.Token]; err != nil {
		return err
	}
	f.sent = append(f.sent, addr)
	return nil
}

type fakeResolver struct {
	addrs map[string]notification.Address
}

func (f *fakeResolver) Resolve(_ context.Context, fid string) (notification.Address, error) {
	addr, ok := f.addrs[fid]
	if !ok {
		return notification.Address{}, errors.New("no address on file")
	}
	return addr, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

var dispatchNow = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func enabledPref(token string) reminder.Preference {
	return reminder.Preference{
		Enabled: true,
		Token:   token,
		URL:     "https://notify.example.com/send",
	}
}

func newJob(prefs *fakePrefs, stats *fakeStats, sender *fakeSender, resolver notification.Resolver) *DailyReminderJob {
	return NewDailyReminderJob(prefs, stats, sender, resolver, nil, nil).
		WithClock(func() time.Time { return dispatchNow })
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestDispatch_SendsToEligibleUser(t *testing.T) {
	prefs := newFakePrefs()
	prefs.records["1"] = enabledPref("tok-1")
	sender := newFakeSender()
	job := newJob(prefs, newFakeStats(), sender, nil)

	result, err := job.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, result.Sent)
	assert.Equal(t, 1, result.Outcomes[reminder.OutcomeSent])
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "tok-1", sender.sent[0].Token)

	stamped := prefs.records["1"].LastNotificationSent
	require.NotNil(t, stamped, "send stamps the dedup timestamp")
	assert.True(t, stamped.Equal(dispatchNow))
}

func TestDispatch_SkipsDisabledUser(t *testing.T) {
	prefs := newFakePrefs()
	pref := enabledPref("tok-1")
	pref.Enabled = false
	prefs.records["1"] = pref
	sender := newFakeSender()
	job := newJob(prefs, newFakeStats(), sender, nil)

	result, err := job.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Sent)
	assert.Equal(t, 1, result.Outcomes[reminder.OutcomeSkippedDisabled])
	assert.Empty(t, sender.sent)
}

func TestDispatch_DedupWindowBoundary(t *testing.T) {
	tests := []struct {
		name    string
		sentAgo time.Duration
		want    reminder.Outcome
	}{
		{"23h ago is still recent", 23 * time.Hour, reminder.OutcomeSkippedRecentlyNotified},
		{"exactly 24h ago is eligible", 24 * time.Hour, reminder.OutcomeSent},
		{"25h ago is eligible", 25 * time.Hour, reminder.OutcomeSent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := newFakePrefs()
			pref := enabledPref("tok-1")
			sent := dispatchNow.Add(-tt.sentAgo)
			pref.LastNotificationSent = &sent
			prefs.records["1"] = pref
			job := newJob(prefs, newFakeStats(), newFakeSender(), nil)

			result, err := job.Dispatch(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, result.Outcomes[tt.want])
		})
	}
}

func TestDispatch_SkipsUserWhoMeditatedToday(t *testing.T) {
	prefs := newFakePrefs()
	prefs.records["1"] = enabledPref("tok-1")
	stats := newFakeStats()
	today := timeutil.Day(dispatchNow)
	stats.records["1"] = meditation.Stats{
		TotalSessions:      3,
		CurrentStreak:      3,
		LastMeditationDate: &today,
	}
	sender := newFakeSender()
	job := newJob(prefs, stats, sender, nil)

	result, err := job.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Outcomes[reminder.OutcomeSkippedAlreadyDoneToday])
	assert.Empty(t, sender.sent)
	assert.Nil(t, prefs.records["1"].LastNotificationSent, "skip must not stamp")
}

func TestDispatch_YesterdaySessionDoesNotSkip(t *testing.T) {
	prefs := newFakePrefs()
	prefs.records["1"] = enabledPref("tok-1")
	stats := newFakeStats()
	yesterday := timeutil.DayBefore(dispatchNow)
	stats.records["1"] = meditation.Stats{
		TotalSessions:      3,
		CurrentStreak:      3,
		LastMeditationDate: &yesterday,
	}
	job := newJob(prefs, stats, newFakeSender(), nil)

	result, err := job.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, result.Sent)
}

func TestDispatch_PerUserFailureIsolation(t *testing.T) {
	prefs := newFakePrefs()
	prefs.records["a"] = enabledPref("tok-a")
	prefs.records["b"] = enabledPref("tok-b")
	prefs.records["c"] = enabledPref("tok-c")
	sender := newFakeSender()
	sender.failFor["tok-b"] = errors.New("host rejected token")
	job := newJob(prefs, newFakeStats(), sender, nil)

	result, err := job.Dispatch(context.Background())
	require.NoError(t, err, "per-user failures never abort the run")

	assert.Equal(t, 3, result.Total)
	assert.ElementsMatch(t, []string{"a", "c"}, result.Sent)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "b", result.Errors[0].FID)
	assert.Contains(t, result.Errors[0].Error, "host rejected token")

	assert.Nil(t, prefs.records["b"].LastNotificationSent, "failed send must not stamp")
	require.NotNil(t, prefs.records["a"].LastNotificationSent)
}

func TestDispatch_ResolverFallback(t *testing.T) {
	prefs := newFakePrefs()
	prefs.records["1"] = reminder.Preference{Enabled: true}
	resolver := &fakeResolver{addrs: map[string]notification.Address{
		"1": {Token: "resolved-tok", URL: "https://notify.example.com/send"},
	}}
	sender := newFakeSender()
	job := newJob(prefs, newFakeStats(), sender, resolver)

	result, err := job.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, result.Sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "resolved-tok", sender.sent[0].Token)
}

func TestDispatch_ResolverFallbackAfterStaleAddressFails(t *testing.T) {
	prefs := newFakePrefs()
	prefs.records["1"] = enabledPref("stale-tok")
	resolver := &fakeResolver{addrs: map[string]notification.Address{
		"1": {Token: "fresh-tok", URL: "https://notify.example.com/send"},
	}}
	sender := newFakeSender()
	sender.failFor["stale-tok"] = errors.New("token revoked")
	job := newJob(prefs, newFakeStats(), sender, resolver)

	result, err := job.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, result.Sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "fresh-tok", sender.sent[0].Token)
}

func TestDispatch_ResolverReturningSameAddressDoesNotRetry(t *testing.T) {
	prefs := newFakePrefs()
	prefs.records["1"] = enabledPref("stale-tok")
	resolver := &fakeResolver{addrs: map[string]notification.Address{
		"1": {Token: "stale-tok", URL: "https://notify.example.com/send"},
	}}
	sender := newFakeSender()
	sender.failFor["stale-tok"] = errors.New("token revoked")
	job := newJob(prefs, newFakeStats(), sender, resolver)

	result, err := job.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Outcomes[reminder.OutcomeFailed])
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "token revoked")
}

func TestDispatch_NoAddressAnywhereFails(t *testing.T) {
	prefs := newFakePrefs()
	prefs.records["1"] = reminder.Preference{Enabled: true}
	job := newJob(prefs, newFakeStats(), newFakeSender(), nil)

	result, err := job.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Outcomes[reminder.OutcomeFailed])
	require.Len(t, result.Errors, 1)
}

func TestDispatch_EnumerationFailureAborts(t *testing.T) {
	prefs := newFakePrefs()
	prefs.listErr = errors.New("redis down")
	job := newJob(prefs, newFakeStats(), newFakeSender(), nil)

	result, err := job.Dispatch(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestDispatch_EmptyStore(t *testing.T) {
	job := newJob(newFakePrefs(), newFakeStats(), newFakeSender(), nil)

	result, err := job.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Sent)
}
