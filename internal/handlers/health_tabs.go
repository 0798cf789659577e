package handlers

import (
	"net/http"

	"github.com/mentortab/mentortab/internal/web"
)

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	tabs, err := h.Tabs.ListTabs()
	if err != nil {
		web.JSON(w, 200, map[string]any{"status": "disconnected", "error": err.Error(), "cdp": h.Config.CdpURL})
		return
	}
	web.JSON(w, 200, map[string]any{"status": "ok", "tabs": len(tabs), "cdp": h.Config.CdpURL})
}

func (h *Handlers) HandleTabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := h.Tabs.ListTabs()
	if err != nil {
		web.Error(w, 500, err)
		return
	}

	out := make([]map[string]any, 0, len(tabs))
	for _, t := range tabs {
		out = append(out, map[string]any{
			"id":    t.ID,
			"url":   t.URL,
			"title": t.Title,
		})
	}
	web.JSON(w, 200, map[string]any{"tabs": out})
}
