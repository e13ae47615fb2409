package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bankinsight/churn-insights/internal/engine"
	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/services"
)

// Health reports whether a dataset is loaded.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.SnapshotID()
	if snapshot == "" {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "snapshot_id": snapshot})
}

// Records serves GET /api/v1/records.
func (h *Handlers) Records(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters, err := parsePredicates(query)
	if err != nil {
		h.fail(w, err)
		return
	}
	req := models.RecordsRequest{
		Filters:        filters,
		PageToken:      query.Get(paramPageToken),
		IncludeSummary: query.Get(paramSummary) == "true" || query.Get(paramSummary) == "1",
	}
	if v := query.Get(paramPageSize); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			h.fail(w, fmt.Errorf("%w: page_size %q is not a number", services.ErrInvalidRequest, v))
			return
		}
		req.PageSize = size
	}

	resp, err := h.service.Records(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Breakdown serves GET /api/v1/breakdown/{dimensions}.
func (h *Handlers) Breakdown(w http.ResponseWriter, r *http.Request) {
	filters, err := parsePredicates(r.URL.Query())
	if err != nil {
		h.fail(w, err)
		return
	}
	var dims []string
	for _, d := range strings.Split(chi.URLParam(r, "dimensions"), ",") {
		if d = strings.TrimSpace(d); d != "" {
			dims = append(dims, d)
		}
	}

	resp, err := h.service.Breakdown(r.Context(), models.BreakdownRequest{
		Filters:    filters,
		Dimensions: dims,
		Order:      models.Order(r.URL.Query().Get(paramOrder)),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Segments serves GET /api/v1/segments.
func (h *Handlers) Segments(w http.ResponseWriter, r *http.Request) {
	filters, err := parsePredicates(r.URL.Query())
	if err != nil {
		h.fail(w, err)
		return
	}
	resp, err := h.service.Segments(r.Context(), models.SegmentsRequest{Filters: filters})
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Summary serves GET /api/v1/summary.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	filters, err := parsePredicates(r.URL.Query())
	if err != nil {
		h.fail(w, err)
		return
	}
	resp, err := h.service.Summary(r.Context(), filters)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Insights serves GET /api/v1/insights.
func (h *Handlers) Insights(w http.ResponseWriter, r *http.Request) {
	filters, err := parsePredicates(r.URL.Query())
	if err != nil {
		h.fail(w, err)
		return
	}
	resp, err := h.service.Insights(r.Context(), filters)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// FilterOptions serves GET /api/v1/filters.
func (h *Handlers) FilterOptions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.FilterOptions(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.Error("request failed", slog.Any("error", err))
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownDimension):
		return http.StatusNotFound
	case services.IsInvalid(err):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
