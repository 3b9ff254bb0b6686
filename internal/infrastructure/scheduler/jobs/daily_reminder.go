// Package jobs contains implementations of scheduled jobs for Stillmind Hub.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stillmind/stillmind-hub/internal/domain/meditation"
	"github.com/stillmind/stillmind-hub/internal/domain/notification"
	"github.com/stillmind/stillmind-hub/internal/domain/reminder"
	"github.com/stillmind/stillmind-hub/internal/infrastructure/metrics"
	"github.com/stillmind/stillmind-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY REMINDER JOB
// Walks every stored reminder preference and sends a meditation nudge to each
// user who opted in, has not been notified inside the dedup window, and has
// not already meditated today.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// ReminderTitle and ReminderBody are the fixed notification copy.
	ReminderTitle = "Daily Meditation Reminder"
	ReminderBody  = "Take a moment to breathe and center yourself with a meditation session."
)

// DailyReminderJob dispatches the daily reminder batch.
//
// Failures are isolated per user: a user whose lookup or delivery fails is
// recorded and the run moves on. Only a failure to enumerate the preference
// keys aborts the whole run.
type DailyReminderJob struct {
	prefs    reminder.Repository
	stats    meditation.Repository
	sender   notification.Sender
	resolver notification.Resolver
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// runTimeout bounds one full dispatch run.
	runTimeout time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewDailyReminderJob creates a DailyReminderJob. resolver and metrics may
// be nil; without a resolver, users with no stored address simply fail.
func NewDailyReminderJob(
	prefs reminder.Repository,
	stats meditation.Repository,
	sender notification.Sender,
	resolver notification.Resolver,
	m *metrics.Metrics,
	logger *slog.Logger,
) *DailyReminderJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyReminderJob{
		prefs:    prefs,
		stats:    stats,
		sender:   sender,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (j *DailyReminderJob) WithClock(now func() time.Time) *DailyReminderJob {
	j.now = now
	return j
}

// WithRunTimeout bounds a full dispatch run. Zero means no bound beyond the
// caller's context.
func (j *DailyReminderJob) WithRunTimeout(d time.Duration) *DailyReminderJob {
	j.runTimeout = d
	return j
}

// Name implements scheduler.Job.
func (j *DailyReminderJob) Name() string {
	return "daily_reminder"
}

// Description implements scheduler.Job.
func (j *DailyReminderJob) Description() string {
	return "Sends the daily meditation reminder to every eligible opted-in user"
}

// Run implements scheduler.Job.
func (j *DailyReminderJob) Run(ctx context.Context) error {
	_, err := j.Dispatch(ctx)
	return err
}

// Dispatch executes one reminder run and returns the aggregate result.
func (j *DailyReminderJob) Dispatch(ctx context.Context) (*reminder.DispatchResult, error) {
	if j.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.runTimeout)
		defer cancel()
	}

	now := j.now().UTC()
	result := reminder.NewDispatchResult(now)

	fids, err := j.prefs.ListFIDs(ctx)
	if err != nil {
		j.recordRun("aborted", now)
		return nil, fmt.Errorf("listing reminder preferences: %w", err)
	}

	j.logger.Info("reminder dispatch started",
		"candidates", len(fids),
		"day", timeutil.Day(now),
	)

	for _, fid := range fids {
		if err := ctx.Err(); err != nil {
			j.recordRun("aborted", now)
			return nil, err
		}

		outcome, err := j.dispatchOne(ctx, fid, now)
		result.Record(fid, outcome, err)
		if j.metrics != nil {
			j.metrics.DispatchOutcomes.WithLabelValues(string(outcome)).Inc()
		}
		if err != nil {
			j.logger.Warn("reminder dispatch failed for user",
				"fid", fid,
				"error", err,
			)
		}
	}

	result.CompletedAt = j.now().UTC()

	if count, err := j.prefs.SubscriberCount(ctx); err == nil && j.metrics != nil {
		j.metrics.Subscribers.Set(float64(count))
	}

	status := "ok"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	j.recordRun(status, now)

	j.logger.Info("reminder dispatch completed",
		"total", result.Total,
		"sent", len(result.Sent),
		"failed", len(result.Errors),
		"duration", result.CompletedAt.Sub(result.StartedAt).String(),
	)

	return result, nil
}

// dispatchOne applies the eligibility chain for one user and sends when every
// guard passes. The guards are ordered cheapest first.
func (j *DailyReminderJob) dispatchOne(ctx context.Context, fid string, now time.Time) (reminder.Outcome, error) {
	pref, err := j.prefs.Get(ctx, fid)
	if err != nil {
		return reminder.OutcomeFailed, err
	}

	if !pref.Enabled {
		return reminder.OutcomeSkippedDisabled, nil
	}

	if pref.RecentlyNotified(now) {
		return reminder.OutcomeSkippedRecentlyNotified, nil
	}

	stats, err := j.stats.Get(ctx, fid)
	if err != nil {
		return reminder.OutcomeFailed, err
	}
	if stats.MeditatedOn(timeutil.Day(now)) {
		return reminder.OutcomeSkippedAlreadyDoneToday, nil
	}

	if err := j.send(ctx, fid, pref); err != nil {
		return reminder.OutcomeFailed, err
	}

	sent := now
	pref.LastNotificationSent = &sent
	if err := j.prefs.Save(ctx, fid, pref); err != nil {
		// The notification went out; a failed stamp only risks one
		// duplicate next run.
		j.logger.Warn("failed to stamp notification time",
			"fid", fid,
			"error", err,
		)
	}

	return reminder.OutcomeSent, nil
}

// send delivers via the address stored with the preference, falling back to
// the resolver when the stored address is missing or the send to it fails.
// The resolver covers records captured before addresses were stored and
// addresses that have since gone stale.
func (j *DailyReminderJob) send(ctx context.Context, fid string, pref reminder.Preference) error {
	stored := pref.DeliveryAddress()

	var sendErr error
	if stored.Valid() {
		sendErr = j.sender.Send(ctx, stored, ReminderTitle, ReminderBody)
		if sendErr == nil {
			return nil
		}
	} else {
		sendErr = errors.New("no delivery address on file")
	}

	if j.resolver == nil {
		return sendErr
	}
	fallback, err := j.resolver.Resolve(ctx, fid)
	if err != nil {
		if stored.Valid() {
			return sendErr
		}
		return err
	}
	if fallback == stored {
		return sendErr
	}
	return j.sender.Send(ctx, fallback, ReminderTitle, ReminderBody)
}

func (j *DailyReminderJob) recordRun(status string, startedAt time.Time) {
	if j.metrics == nil {
		return
	}
	j.metrics.DispatchRuns.WithLabelValues(status).Inc()
	j.metrics.DispatchDuration.Observe(time.Since(startedAt).Seconds())
}
