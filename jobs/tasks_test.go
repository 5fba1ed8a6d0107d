package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	jobmetrics "github.com/meridian-hcm/meridian/internal/jobs"
)

type stubInvalidator struct {
	companyID int64
	year      int
	calls     int
	err       error
}

func (s *stubInvalidator) Invalidate(_ context.Context, companyID int64, year int) error {
	s.calls++
	s.companyID = companyID
	s.year = year
	return s.err
}

func TestCalendarSavedTaskRoundTrip(t *testing.T) {
	payload := CalendarSavedPayload{PayGroupID: 7, Year: 2025, Inserted: 12, Replaced: 3, ActorID: 42}
	task, err := NewCalendarSavedTask(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TaskTypeCalendarSaved {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	var decoded CalendarSavedPayload
	if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
		t.Fatalf("payload did not decode: %v", err)
	}
	if decoded != payload {
		t.Fatalf("payload mismatch: %+v", decoded)
	}
}

func TestCalendarSavedHandler(t *testing.T) {
	handler := NewCalendarSavedHandler(slog.New(slog.DiscardHandler), nil)

	task, err := NewCalendarSavedTask(CalendarSavedPayload{PayGroupID: 7, Year: 2025, Inserted: 12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
}

func TestCalendarSavedHandlerSkipsRetryOnBadPayload(t *testing.T) {
	handler := NewCalendarSavedHandler(slog.New(slog.DiscardHandler), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := handler(context.Background(), asynq.NewTask(TaskTypeCalendarSaved, []byte("not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHolidayRefreshHandler(t *testing.T) {
	invalidator := &stubInvalidator{}
	handler := NewHolidayRefreshHandler(invalidator, slog.New(slog.DiscardHandler), nil)

	task, err := NewHolidayRefreshTask(HolidayRefreshPayload{CompanyID: 10, Year: 2025})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if invalidator.calls != 1 || invalidator.companyID != 10 || invalidator.year != 2025 {
		t.Fatalf("invalidator not called with payload: %+v", invalidator)
	}
}

func TestHolidayRefreshHandlerPropagatesError(t *testing.T) {
	invalidator := &stubInvalidator{err: errors.New("redis down")}
	handler := NewHolidayRefreshHandler(invalidator, slog.New(slog.DiscardHandler), nil)

	task, err := NewHolidayRefreshTask(HolidayRefreshPayload{CompanyID: 10, Year: 2025})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := handler(context.Background(), task); err == nil {
		t.Fatal("expected error from invalidator")
	}
}
