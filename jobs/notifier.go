package jobs

import (
	"context"
	"errors"

	"github.com/meridian-hcm/meridian/internal/calendar"
)

// CalendarNotifier adapts the Asynq client to the calendar service's
// notification contract.
type CalendarNotifier struct {
	client *Client
}

// NewCalendarNotifier constructs the adapter.
func NewCalendarNotifier(client *Client) *CalendarNotifier {
	return &CalendarNotifier{client: client}
}

// CalendarSaved enqueues the post-save fan-out task.
func (n *CalendarNotifier) CalendarSaved(ctx context.Context, saved calendar.SavedNotification) error {
	if n == nil || n.client == nil {
		return errors.New("jobs: notifier not configured")
	}
	_, err := n.client.EnqueueCalendarSaved(ctx, CalendarSavedPayload{
		PayGroupID: saved.PayGroupID,
		Year:       saved.Year,
		Inserted:   saved.Inserted,
		Replaced:   saved.Replaced,
		ActorID:    saved.ActorID,
	})
	return err
}
