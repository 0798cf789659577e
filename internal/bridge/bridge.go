// Package bridge owns the connection to Chrome: tab contexts, the active-tab
// resolution used by the popup flow, and the one-shot typed request channel
// to the scraper running against a tab.
package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/mentortab/mentortab/internal/config"
)

// Errors surfaced by the messaging channel.
var (
	ErrNoActiveTab        = errors.New("no active tab")
	ErrScraperUnreachable = errors.New("scraper unreachable")
)

// Bridge binds a browser connection to the typed request registry.
type Bridge struct {
	AllocCtx   context.Context
	BrowserCtx context.Context
	Config     *config.RuntimeConfig
	*TabManager

	reqMu    sync.Mutex
	inflight sync.Mutex
	requests map[string]RequestFunc
}

// New creates a Bridge for an already-started browser context.
func New(allocCtx, browserCtx context.Context, cfg *config.RuntimeConfig) *Bridge {
	b := &Bridge{
		AllocCtx:   allocCtx,
		BrowserCtx: browserCtx,
		Config:     cfg,
		requests:   make(map[string]RequestFunc),
	}
	if browserCtx != nil {
		b.TabManager = NewTabManager(browserCtx)
	}
	return b
}
