package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/stillmind/stillmind-hub/internal/domain/reminder"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET REMINDER COMMAND
// Opt a user in or out of daily reminders, optionally capturing the delivery
// address the frame host handed the client.
// ══════════════════════════════════════════════════════════════════════════════

// SetReminderCommand contains the opt-in/opt-out request.
type SetReminderCommand struct {
	// FID identifies the user.
	FID string

	// Enabled is the desired opt-in state.
	Enabled bool

	// Token and URL are the optional delivery address. Both or neither.
	Token string
	URL   string
}

// Validate validates the command.
func (c SetReminderCommand) Validate() error {
	if c.FID == "" {
		return shared.ErrMissingFID
	}
	if (c.Token == "") != (c.URL == "") {
		return shared.NewDomainError("reminder", "SetReminder", shared.ErrInvalidInput,
			"delivery token and url must be provided together")
	}
	return nil
}

// SetReminderHandler handles reminder opt-in and opt-out.
type SetReminderHandler struct {
	prefs  reminder.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewSetReminderHandler creates a SetReminderHandler.
func NewSetReminderHandler(prefs reminder.Repository, logger *slog.Logger) *SetReminderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SetReminderHandler{
		prefs:  prefs,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (h *SetReminderHandler) WithClock(now func() time.Time) *SetReminderHandler {
	h.now = now
	return h
}

// Handle applies the opt-in state and returns the stored preference.
//
// The existing record is merged rather than replaced: opting out keeps the
// notification history, and re-enabling does not reset it, so the dedup
// window keeps working across an off/on cycle. A new delivery address
// replaces the stored one; omitting it keeps whatever was captured before.
func (h *SetReminderHandler) Handle(ctx context.Context, cmd SetReminderCommand) (reminder.Preference, error) {
	if err := cmd.Validate(); err != nil {
		return reminder.Preference{}, err
	}

	pref, err := h.prefs.Get(ctx, cmd.FID)
	if err != nil {
		return reminder.Preference{}, err
	}

	pref.Enabled = cmd.Enabled
	if cmd.Token != "" {
		pref.Token = cmd.Token
		pref.URL = cmd.URL
	}

	if err := pref.Validate(h.now()); err != nil {
		return reminder.Preference{}, err
	}

	if err := h.prefs.Save(ctx, cmd.FID, pref); err != nil {
		return reminder.Preference{}, err
	}

	h.logger.Info("reminder preference updated",
		"fid", cmd.FID,
		"enabled", cmd.Enabled,
		"has_address", pref.DeliveryAddress().Valid(),
	)

	return pref, nil
}
