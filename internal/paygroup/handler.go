package paygroup

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-hcm/meridian/internal/platform/httpx"
	"github.com/meridian-hcm/meridian/internal/shared"
)

// Handler wires HTTP endpoints for pay group configuration.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers pay group routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pay-groups", h.listPayGroups)
	r.Get("/pay-groups/{id}", h.getPayGroup)
}

type payGroupView struct {
	ID                    int64  `json:"id"`
	CompanyID             int64  `json:"company_id"`
	Name                  string `json:"name"`
	Code                  string `json:"code"`
	PayFrequency          string `json:"pay_frequency"`
	UsesNationalInsurance bool   `json:"uses_national_insurance"`
}

type payGroupListResponse struct {
	PayGroups  []payGroupView `json:"pay_groups"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

func (h *Handler) listPayGroups(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id is required")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := h.service.List(r.Context(), companyID, page, perPage)
	if err != nil {
		h.logger.Error("list pay groups", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	views := make([]payGroupView, 0, len(result.Groups))
	for _, pg := range result.Groups {
		views = append(views, toPayGroupView(pg))
	}
	httpx.JSON(w, http.StatusOK, payGroupListResponse{
		PayGroups:  views,
		Page:       result.Paging.Page,
		PerPage:    result.Paging.PerPage,
		Total:      result.Paging.Total,
		TotalPages: result.Paging.TotalPages,
	})
}

func (h *Handler) getPayGroup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid pay group id")
		return
	}
	pg, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "pay group not found")
			return
		}
		h.logger.Error("get pay group", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPayGroupView(pg))
}

func toPayGroupView(pg PayGroup) payGroupView {
	return payGroupView{
		ID:                    pg.ID,
		CompanyID:             pg.CompanyID,
		Name:                  pg.Name,
		Code:                  pg.Code,
		PayFrequency:          string(pg.Frequency),
		UsesNationalInsurance: pg.UsesNationalInsurance,
	}
}
