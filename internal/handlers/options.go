package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mentortab/mentortab/internal/config"
	"github.com/mentortab/mentortab/internal/web"
)

func (h *Handlers) HandleOptionsGet(w http.ResponseWriter, r *http.Request) {
	web.JSON(w, 200, map[string]any{
		"provider":     h.Config.Provider,
		"geminiModel":  h.Config.GeminiModel,
		"geminiApiKey": config.MaskToken(h.Store.GeminiAPIKey()),
	})
}

func (h *Handlers) HandleOptionsSet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GeminiAPIKey *string `json:"geminiApiKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		web.ErrorCode(w, 400, "bad_request", "invalid JSON body")
		return
	}
	if body.GeminiAPIKey == nil {
		web.ErrorCode(w, 400, "bad_request", "geminiApiKey is required")
		return
	}
	if err := h.Store.SetGeminiAPIKey(strings.TrimSpace(*body.GeminiAPIKey)); err != nil {
		web.Error(w, 500, err)
		return
	}
	web.JSON(w, 200, map[string]string{"status": "saved"})
}
