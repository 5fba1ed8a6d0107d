package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-hcm/meridian/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeCalendarSaved is emitted after a payroll calendar batch persists.
	TaskTypeCalendarSaved = "payroll:calendar_saved"
	// TaskTypeHolidayRefresh re-warms the holiday cache after data changes.
	TaskTypeHolidayRefresh = "payroll:holiday_refresh"
)

// CalendarSavedPayload describes a persisted calendar batch.
type CalendarSavedPayload struct {
	PayGroupID int64 `json:"pay_group_id"`
	Year       int   `json:"year"`
	Inserted   int   `json:"inserted"`
	Replaced   int   `json:"replaced"`
	ActorID    int64 `json:"actor_id"`
}

// NewCalendarSavedTask constructs the Asynq task.
func NewCalendarSavedTask(payload CalendarSavedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeCalendarSaved, data), nil
}

// NewCalendarSavedHandler returns the handler processing calendar-saved tasks.
// Downstream fan-out (payroll admin notification) hangs off this hook.
func NewCalendarSavedHandler(logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeCalendarSaved)
		var payload CalendarSavedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		logger.Info("calendar saved",
			slog.Int64("pay_group", payload.PayGroupID),
			slog.Int("year", payload.Year),
			slog.Int("inserted", payload.Inserted),
			slog.Int("replaced", payload.Replaced),
			slog.Int64("actor", payload.ActorID),
		)
		return tracker.End(nil)
	}
}

// HolidayRefreshPayload identifies the holiday cache entry to refresh.
type HolidayRefreshPayload struct {
	CompanyID int64 `json:"company_id"`
	Year      int   `json:"year"`
}

// NewHolidayRefreshTask constructs the Asynq task.
func NewHolidayRefreshTask(payload HolidayRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeHolidayRefresh, data), nil
}

// HolidayInvalidator drops cached holiday sets.
type HolidayInvalidator interface {
	Invalidate(ctx context.Context, companyID int64, year int) error
}

// NewHolidayRefreshHandler returns the handler processing holiday-refresh tasks.
func NewHolidayRefreshHandler(holidays HolidayInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeHolidayRefresh)
		var payload HolidayRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		if err := holidays.Invalidate(ctx, payload.CompanyID, payload.Year); err != nil {
			return tracker.End(err)
		}
		logger.Info("holiday cache invalidated",
			slog.Int64("company", payload.CompanyID),
			slog.Int("year", payload.Year),
		)
		return tracker.End(nil)
	}
}
