// Package handlers provides the HTTP surface of the daemon: session
// lifecycle, auth, options, dashboard proxies and tab inspection.
package handlers

import (
	"context"
	"net/http"

	"github.com/mentortab/mentortab/internal/bridge"
	"github.com/mentortab/mentortab/internal/config"
	"github.com/mentortab/mentortab/internal/hint"
	"github.com/mentortab/mentortab/internal/record"
	"github.com/mentortab/mentortab/internal/session"
	"github.com/mentortab/mentortab/internal/store"
)

// SessionService is the slice of the session manager the handlers call.
type SessionService interface {
	Open(ctx context.Context) (*session.View, error)
	Get(id string) (*session.View, bool)
	Ask(ctx context.Context, id, question string) (*session.View, error)
	Close(id string) bool
	Logout() error
}

// TabService opens and lists browser tabs.
type TabService interface {
	ListTabs() ([]bridge.TabInfo, error)
	CreateTab(url string) (string, error)
}

// DashboardClient proxies the authenticated dashboard reads.
type DashboardClient interface {
	Problems(ctx context.Context) ([]hint.Problem, error)
	Stats(ctx context.Context) (map[string]any, error)
}

type Handlers struct {
	Sessions  SessionService
	Config    *config.RuntimeConfig
	Store     *store.Store
	Tabs      TabService
	Dashboard DashboardClient
	Log       *record.Log
}

func New(s SessionService, cfg *config.RuntimeConfig, st *store.Store, tabs TabService, dash DashboardClient, log *record.Log) *Handlers {
	return &Handlers{
		Sessions:  s,
		Config:    cfg,
		Store:     st,
		Tabs:      tabs,
		Dashboard: dash,
		Log:       log,
	}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HandleHealth)

	mux.HandleFunc("POST /session", h.HandleSessionOpen)
	mux.HandleFunc("GET /session/{id}", h.HandleSessionGet)
	mux.HandleFunc("POST /session/{id}/ask", h.HandleSessionAsk)
	mux.HandleFunc("DELETE /session/{id}", h.HandleSessionClose)

	mux.HandleFunc("GET /auth", h.HandleAuthStatus)
	mux.HandleFunc("POST /auth/login", h.HandleAuthLogin)
	mux.HandleFunc("POST /auth/logout", h.HandleAuthLogout)

	mux.HandleFunc("GET /options", h.HandleOptionsGet)
	mux.HandleFunc("POST /options", h.HandleOptionsSet)

	mux.HandleFunc("GET /history", h.HandleHistory)
	mux.HandleFunc("GET /problems", h.HandleProblems)
	mux.HandleFunc("GET /stats", h.HandleStats)

	mux.HandleFunc("GET /tabs", h.HandleTabs)
}
