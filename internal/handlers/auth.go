package handlers

import (
	"net/http"

	"github.com/mentortab/mentortab/internal/web"
)

func (h *Handlers) HandleAuthStatus(w http.ResponseWriter, r *http.Request) {
	rec := h.Store.Auth()
	if rec == nil {
		web.JSON(w, 200, map[string]any{"loggedIn": false})
		return
	}
	web.JSON(w, 200, map[string]any{"loggedIn": true, "user": rec.User})
}

// HandleAuthLogin opens the dashboard login page in a new tab. The auth
// watcher picks up the callback from there; this handler does not wait.
func (h *Handlers) HandleAuthLogin(w http.ResponseWriter, r *http.Request) {
	tabID, err := h.Tabs.CreateTab(h.Config.LoginURL + "?extension=true")
	if err != nil {
		web.Error(w, 500, err)
		return
	}
	web.JSON(w, 200, map[string]string{"status": "login_opened", "tabId": tabID})
}

func (h *Handlers) HandleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(); err != nil {
		web.Error(w, 500, err)
		return
	}
	web.JSON(w, 200, map[string]string{"status": "logged_out"})
}
