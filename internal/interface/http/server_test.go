package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillmind/stillmind-hub/internal/application/command"
	"github.com/stillmind/stillmind-hub/internal/application/query"
	"github.com/stillmind/stillmind-hub/internal/domain/meditation"
	"github.com/stillmind/stillmind-hub/internal/domain/reminder"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type memStatsRepo struct {
	records map[string]meditation.Stats
}

func (m *memStatsRepo) Get(_ context.Context, fid string) (meditation.Stats, error) {
	return m.records[fid], nil
}

func (m *memStatsRepo) Save(_ context.Context, fid string, stats meditation.Stats) error {
	m.records[fid] = stats
	return nil
}

type memPrefRepo struct {
	records map[string]reminder.Preference
}

func (m *memPrefRepo) Get(_ context.Context, fid string) (reminder.Preference, error) {
	return m.records[fid], nil
}

func (m *memPrefRepo) Save(_ context.Context, fid string, pref reminder.Preference) error {
	m.records[fid] = pref
	return nil
}

func (m *memPrefRepo) ListFIDs(_ context.Context) ([]string, error) {
	fids := make([]string, 0, len(m.records))
	for fid := range m.records {
		fids = append(fids, fid)
	}
	return fids, nil
}

func (m *memPrefRepo) SubscriberCount(_ context.Context) (int64, error) {
	return int64(len(m.records)), nil
}

type stubDispatcher struct {
	result *reminder.DispatchResult
	err    error
	called bool
}

func (d *stubDispatcher) Dispatch(_ context.Context) (*reminder.DispatchResult, error) {
	d.called = true
	return d.result, d.err
}

func newTestServer(t *testing.T, dispatcher *stubDispatcher) (*Server, *memStatsRepo, *memPrefRepo) {
	t.Helper()

	stats := &memStatsRepo{records: make(map[string]meditation.Stats)}
	prefs := &memPrefRepo{records: make(map[string]reminder.Preference)}

	if dispatcher == nil {
		dispatcher = &stubDispatcher{result: reminder.NewDispatchResult(time.Now())}
	}

	cfg := DefaultConfig()
	cfg.CronSecret = "test-secret"
	cfg.RateLimitPerMinute = 0

	srv := NewServer(cfg, Dependencies{
		RecordSession: command.NewRecordSessionHandler(stats, nil, nil, nil),
		SetReminder:   command.NewSetReminderHandler(prefs, nil),
		GetStats:      query.NewGetStatsHandler(stats),
		GetReminder:   query.NewGetReminderHandler(prefs),
		GetHistory:    query.NewGetHistoryHandler(nil),
		Dispatcher:    dispatcher,
	})

	return srv, stats, prefs
}

func doRequest(srv *Server, method, path, fid, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if fid != "" {
		req.Header.Set(FIDHeader, fid)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

// ── meditation endpoints ──────────────────────────────────────────────────────

func TestGetStats_MissingFID(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/api/v1/meditation/stats", "", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "missing_identifier", resp.Error.Code)
}

func TestGetStats_UnknownUserReturnsZeroRecord(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/api/v1/meditation/stats", "42", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats meditation.Stats
	decodeBody(t, rec, &stats)
	assert.Equal(t, 0, stats.TotalSessions)
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Nil(t, stats.LastMeditationDate)
}

func TestCompleteSession_RecordsAndReturnsStats(t *testing.T) {
	srv, store, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/meditation/complete", "42", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats meditation.Stats
	decodeBody(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 1, stats.CurrentStreak)
	require.NotNil(t, stats.LastMeditationDate)
	assert.Equal(t, stats, store.records["42"])
}

func TestGetHistory_DisabledReturns404(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/api/v1/meditation/history", "42", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ── reminder endpoints ────────────────────────────────────────────────────────

func TestSetReminder_HappyPath(t *testing.T) {
	srv, _, prefs := newTestServer(t, nil)

	body := `{"enabled":true,"token":"tok-1","url":"https://notify.example.com/send"}`
	rec := doRequest(srv, http.MethodPost, "/api/v1/reminder", "42", body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var pref reminder.Preference
	decodeBody(t, rec, &pref)
	assert.True(t, pref.Enabled)
	assert.Equal(t, "tok-1", pref.Token)
	assert.True(t, prefs.records["42"].Enabled)
}

func TestSetReminder_MissingEnabledField(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/reminder", "42", `{"token":"t","url":"u"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "invalid_input", resp.Error.Code)
}

func TestSetReminder_NonBooleanEnabled(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/reminder", "42", `{"enabled":"yes"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetReminder_TokenWithoutURL(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/reminder", "42", `{"enabled":true,"token":"tok-only"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReminder_DefaultIsDisabled(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/api/v1/reminder", "42", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var pref reminder.Preference
	decodeBody(t, rec, &pref)
	assert.False(t, pref.Enabled)
}

// ── cron endpoint ─────────────────────────────────────────────────────────────

func TestDispatch_RequiresBearer(t *testing.T) {
	dispatcher := &stubDispatcher{result: reminder.NewDispatchResult(time.Now())}
	srv, _, _ := newTestServer(t, dispatcher)

	rec := doRequest(srv, http.MethodGet, "/api/v1/cron/daily-reminder", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/v1/cron/daily-reminder", "", "",
		map[string]string{"Authorization": "Bearer wrong-secret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.False(t, dispatcher.called, "dispatch must not run unauthorized")
}

func TestDispatch_PartialFailureStill200(t *testing.T) {
	result := reminder.NewDispatchResult(time.Now())
	result.Record("a", reminder.OutcomeSent, nil)
	result.Record("b", reminder.OutcomeFailed, errors.New("token rejected"))
	dispatcher := &stubDispatcher{result: result}
	srv, _, _ := newTestServer(t, dispatcher)

	rec := doRequest(srv, http.MethodGet, "/api/v1/cron/daily-reminder", "", "",
		map[string]string{"Authorization": "Bearer test-secret"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool                     `json:"success"`
		Sent    []string                 `json:"notificationsSent"`
		Errors  []reminder.DispatchError `json:"errors"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a"}, resp.Sent)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "b", resp.Errors[0].FID)
}

func TestDispatch_EnumerationFailure500(t *testing.T) {
	dispatcher := &stubDispatcher{err: errors.New("redis down")}
	srv, _, _ := newTestServer(t, dispatcher)

	rec := doRequest(srv, http.MethodGet, "/api/v1/cron/daily-reminder", "", "",
		map[string]string{"Authorization": "Bearer test-secret"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ── probes ────────────────────────────────────────────────────────────────────

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		rec := doRequest(srv, http.MethodGet, path, "", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRoot_UnknownPathIs404(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/nope", "", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
