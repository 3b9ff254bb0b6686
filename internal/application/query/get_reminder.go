package query

import (
	"context"

	"github.com/stillmind/stillmind-hub/internal/domain/reminder"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
)

// GetReminderHandler serves the reminder opt-in state to the UI.
type GetReminderHandler struct {
	prefs reminder.Repository
}

// NewGetReminderHandler creates a GetReminderHandler.
func NewGetReminderHandler(prefs reminder.Repository) *GetReminderHandler {
	return &GetReminderHandler{prefs: prefs}
}

// Handle returns the preference for fid. Users with no record get the zero
// preference (reminders off).
func (h *GetReminderHandler) Handle(ctx context.Context, fid string) (reminder.Preference, error) {
	if fid == "" {
		return reminder.Preference{}, shared.ErrMissingFID
	}
	return h.prefs.Get(ctx, fid)
}
