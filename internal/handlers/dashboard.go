package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/mentortab/mentortab/internal/hint"
	"github.com/mentortab/mentortab/internal/web"
)

func (h *Handlers) HandleProblems(w http.ResponseWriter, r *http.Request) {
	if h.Dashboard == nil {
		web.ErrorCode(w, 503, "unavailable", "backend provider not configured")
		return
	}
	problems, err := h.Dashboard.Problems(r.Context())
	if err != nil {
		h.dashboardError(w, err)
		return
	}
	web.JSON(w, 200, map[string]any{"problems": problems})
}

func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.Dashboard == nil {
		web.ErrorCode(w, 503, "unavailable", "backend provider not configured")
		return
	}
	stats, err := h.Dashboard.Stats(r.Context())
	if err != nil {
		h.dashboardError(w, err)
		return
	}
	web.JSON(w, 200, stats)
}

func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.Log == nil {
		web.ErrorCode(w, 503, "unavailable", "history log not configured")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			web.ErrorCode(w, 400, "bad_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	exchanges, err := h.Log.Recent(r.Context(), limit)
	if err != nil {
		web.Error(w, 500, err)
		return
	}
	web.JSON(w, 200, map[string]any{"exchanges": exchanges})
}

func (h *Handlers) dashboardError(w http.ResponseWriter, err error) {
	if errors.Is(err, hint.ErrMissingToken) {
		web.ErrorCode(w, 401, "missing_token", err.Error())
		return
	}
	var httpErr *hint.HTTPError
	if errors.As(err, &httpErr) {
		web.ErrorCode(w, httpErr.Status, "upstream_error", httpErr.Message)
		return
	}
	web.Error(w, 502, err)
}
