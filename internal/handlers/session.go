package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mentortab/mentortab/internal/session"
	"github.com/mentortab/mentortab/internal/web"
)

func (h *Handlers) HandleSessionOpen(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sessions.Open(r.Context())
	if err != nil {
		web.Error(w, 500, err)
		return
	}
	web.JSON(w, 201, v)
}

func (h *Handlers) HandleSessionGet(w http.ResponseWriter, r *http.Request) {
	v, ok := h.Sessions.Get(r.PathValue("id"))
	if !ok {
		web.ErrorCode(w, 404, "not_found", "session not found")
		return
	}
	web.JSON(w, 200, v)
}

func (h *Handlers) HandleSessionAsk(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		web.ErrorCode(w, 400, "bad_request", "invalid JSON body")
		return
	}

	v, err := h.Sessions.Ask(r.Context(), r.PathValue("id"), body.Question)
	switch {
	case errors.Is(err, session.ErrNotFound):
		web.ErrorCode(w, 404, "not_found", err.Error())
	case errors.Is(err, session.ErrEmptyQuestion), errors.Is(err, session.ErrNoProblem):
		web.ErrorCode(w, 400, "bad_request", err.Error())
	case errors.Is(err, session.ErrBusy):
		web.ErrorCode(w, 409, "busy", err.Error())
	case err != nil:
		web.Error(w, 500, err)
	default:
		web.JSON(w, 200, v)
	}
}

func (h *Handlers) HandleSessionClose(w http.ResponseWriter, r *http.Request) {
	if !h.Sessions.Close(r.PathValue("id")) {
		web.ErrorCode(w, 404, "not_found", "session not found")
		return
	}
	web.JSON(w, 200, map[string]string{"status": "closed"})
}
