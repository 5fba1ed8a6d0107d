package calendarhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-hcm/meridian/internal/calendar"
	"github.com/meridian-hcm/meridian/internal/observability"
	"github.com/meridian-hcm/meridian/internal/paygroup"
	"github.com/meridian-hcm/meridian/internal/platform/httpx"
	"github.com/meridian-hcm/meridian/internal/shared"
)

const dateLayout = "2006-01-02"

// CalendarService defines the calendar operations used by the handler.
type CalendarService interface {
	Preview(ctx context.Context, req calendar.GenerateRequest) ([]calendar.GeneratedPeriod, paygroup.Frequency, error)
	Next(ctx context.Context, payGroupID int64, year int) (calendar.Continuation, error)
	Persisted(ctx context.Context, payGroupID int64, year int) ([]calendar.PersistedPeriod, error)
	Save(ctx context.Context, req calendar.SaveRequest) (calendar.SaveResult, error)
}

// Handler wires HTTP endpoints for payroll calendar generation.
type Handler struct {
	logger   *slog.Logger
	service  CalendarService
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler constructs a calendar HTTP handler.
func NewHandler(logger *slog.Logger, service CalendarService, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// MountRoutes registers calendar routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/pay-groups/{id}/calendar", func(r chi.Router) {
		r.Get("/", h.listPersisted)
		r.Get("/next", h.nextCycle)
		r.Post("/preview", h.preview)
		r.Post("/", h.save)
	})
}

type generateRequest struct {
	Year                int    `json:"year" validate:"required,gte=1900,lte=9999"`
	CycleStartDate      string `json:"cycleStartDate" validate:"required"`
	StartingCycleNumber int    `json:"startingCycleNumber" validate:"required,gte=1,lte=53"`
	PayDayOffsetDays    int    `json:"payDayOffsetDays" validate:"gte=-30,lte=30"`
	ConfirmToken        string `json:"confirmToken,omitempty"`
}

type periodView struct {
	PeriodNumber int    `json:"period_number"`
	PeriodStart  string `json:"period_start"`
	PeriodEnd    string `json:"period_end"`
	PayDate      string `json:"pay_date"`
	MondayCount  int    `json:"monday_count"`
}

type previewResponse struct {
	PayGroupID int64        `json:"payGroupId"`
	Frequency  string       `json:"frequency"`
	Year       int          `json:"year"`
	Periods    []periodView `json:"periods"`
}

type continuationResponse struct {
	Year      int    `json:"year"`
	Cycle     int    `json:"cycle"`
	StartDate string `json:"startDate"`
}

type saveResponse struct {
	Inserted int `json:"inserted"`
	Replaced int `json:"replaced"`
}

type conflictResponse struct {
	Conflicts    []periodView `json:"conflicts"`
	ConfirmToken string       `json:"confirmToken"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	payGroupID, ok := h.payGroupID(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeGenerate(w, r)
	if !ok {
		return
	}

	periods, frequency, err := h.service.Preview(r.Context(), toGenerateRequest(payGroupID, req))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.metrics.ObservePreview(string(frequency))

	httpx.JSON(w, http.StatusOK, previewResponse{
		PayGroupID: payGroupID,
		Frequency:  string(frequency),
		Year:       req.Year,
		Periods:    toGeneratedViews(periods),
	})
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	payGroupID, ok := h.payGroupID(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeGenerate(w, r)
	if !ok {
		return
	}

	result, err := h.service.Save(r.Context(), calendar.SaveRequest{
		GenerateRequest: toGenerateRequest(payGroupID, req),
		ConfirmToken:    req.ConfirmToken,
	})
	if err != nil {
		if errors.Is(err, calendar.ErrConfirmationRequired) {
			h.metrics.ObserveSave("conflict", 0)
			httpx.JSON(w, http.StatusConflict, conflictResponse{
				Conflicts:    toPersistedViews(result.Conflicts),
				ConfirmToken: result.ConfirmToken,
			})
			return
		}
		h.metrics.ObserveSave("error", 0)
		h.respondDomainError(w, err)
		return
	}

	h.metrics.ObserveSave("saved", result.Inserted)
	httpx.JSON(w, http.StatusCreated, saveResponse{
		Inserted: result.Inserted,
		Replaced: result.Replaced,
	})
}

func (h *Handler) nextCycle(w http.ResponseWriter, r *http.Request) {
	payGroupID, ok := h.payGroupID(w, r)
	if !ok {
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	next, err := h.service.Next(r.Context(), payGroupID, year)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, continuationResponse{
		Year:      next.Year,
		Cycle:     next.Cycle,
		StartDate: next.Start.Format(dateLayout),
	})
}

func (h *Handler) listPersisted(w http.ResponseWriter, r *http.Request) {
	payGroupID, ok := h.payGroupID(w, r)
	if !ok {
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	periods, err := h.service.Persisted(r.Context(), payGroupID, year)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"payGroupId": payGroupID,
		"year":       year,
		"periods":    toPersistedViews(periods),
	})
}

func (h *Handler) payGroupID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid pay group id")
		return 0, false
	}
	return id, true
}

func (h *Handler) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1900 || year > 9999 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year query parameter is required")
		return 0, false
	}
	return year, true
}

func (h *Handler) decodeGenerate(w http.ResponseWriter, r *http.Request) (generateRequest, bool) {
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	if _, err := time.Parse(dateLayout, req.CycleStartDate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cycleStartDate must be an ISO date")
		return req, false
	}
	return req, true
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "pay group not found")
	case errors.Is(err, calendar.ErrInvalidCycleNumber),
		errors.Is(err, calendar.ErrMissingStartDate),
		errors.Is(err, calendar.ErrInvalidYear),
		errors.Is(err, calendar.ErrOffsetOutOfRange),
		errors.Is(err, paygroup.ErrUnknownFrequency):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, calendar.ErrBusinessDaySearchExhausted),
		errors.Is(err, calendar.ErrPeriodCapExceeded):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Configuration Error", err.Error())
	case errors.Is(err, calendar.ErrConfirmTokenInvalid):
		httpx.Problem(w, http.StatusConflict, "Confirmation Invalid", err.Error())
	case errors.Is(err, calendar.ErrPeriodConflict):
		httpx.Problem(w, http.StatusConflict, "Period Conflict", err.Error())
	default:
		h.logger.Error("calendar request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toGenerateRequest(payGroupID int64, req generateRequest) calendar.GenerateRequest {
	start, _ := time.Parse(dateLayout, req.CycleStartDate)
	return calendar.GenerateRequest{
		PayGroupID:    payGroupID,
		Year:          req.Year,
		StartingCycle: req.StartingCycleNumber,
		CycleStart:    start,
		PayDateOffset: req.PayDayOffsetDays,
	}
}

func toGeneratedViews(periods []calendar.GeneratedPeriod) []periodView {
	views := make([]periodView, 0, len(periods))
	for _, p := range periods {
		views = append(views, periodView{
			PeriodNumber: p.Number,
			PeriodStart:  p.Start.Format(dateLayout),
			PeriodEnd:    p.End.Format(dateLayout),
			PayDate:      p.PayDate.Format(dateLayout),
			MondayCount:  p.MondayCount,
		})
	}
	return views
}

func toPersistedViews(periods []calendar.PersistedPeriod) []periodView {
	views := make([]periodView, 0, len(periods))
	for _, p := range periods {
		views = append(views, periodView{
			PeriodNumber: p.Number,
			PeriodStart:  p.Start.Format(dateLayout),
			PeriodEnd:    p.End.Format(dateLayout),
			PayDate:      p.PayDate.Format(dateLayout),
			MondayCount:  p.MondayCount,
		})
	}
	return views
}
