// Package authwatch captures dashboard logins. The web app finishes its
// login flow on a callback page whose URL carries the token and the user
// profile; the watcher polls open tabs for that page, persists the pair, and
// closes the tab shortly after so the person sees the success page flash by.
package authwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mentortab/mentortab/internal/bridge"
	"github.com/mentortab/mentortab/internal/store"
)

var errNotCallback = errors.New("not an auth callback URL")

// TabWatcher is the slice of the bridge the watcher needs.
type TabWatcher interface {
	ListTabs() ([]bridge.TabInfo, error)
	CloseTab(tabID string) error
}

// Watcher polls tabs for the auth callback page.
type Watcher struct {
	Tabs       TabWatcher
	Store      *store.Store
	Marker     string
	CloseDelay time.Duration
	Interval   time.Duration

	seen map[string]bool
}

// Run polls until ctx is done. Capture errors are logged and the poll
// continues; a broken tab list one tick does not stop the watcher.
func (w *Watcher) Run(ctx context.Context) {
	w.seen = make(map[string]bool)
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	tabs, err := w.Tabs.ListTabs()
	if err != nil {
		slog.Debug("auth watch: list tabs failed", "err", err)
		return
	}
	for _, tab := range tabs {
		if !strings.Contains(tab.URL, w.Marker) || w.seen[tab.ID] {
			continue
		}
		w.seen[tab.ID] = true
		if err := w.capture(tab); err != nil {
			slog.Warn("auth capture failed", "url", tab.URL, "err", err)
		}
	}
}

// capture parses the callback, persists the token/user pair in one write,
// and schedules the tab close.
func (w *Watcher) capture(tab bridge.TabInfo) error {
	rec, err := parseCallback(tab.URL)
	if err != nil {
		return err
	}
	if err := w.Store.SetAuth(*rec); err != nil {
		return fmt.Errorf("persist auth: %w", err)
	}
	slog.Info("auth captured", "user", rec.User.Email, "tab", tab.ID)

	tabID := tab.ID
	time.AfterFunc(w.CloseDelay, func() {
		if err := w.Tabs.CloseTab(tabID); err != nil {
			slog.Debug("close auth tab failed", "tab", tabID, "err", err)
		}
	})
	return nil
}

// parseCallback extracts the token and the URL-encoded user JSON from the
// callback query string. Both must be present and well-formed; otherwise
// nothing is persisted.
func parseCallback(rawURL string) (*store.AuthRecord, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse callback URL: %w", err)
	}
	q := u.Query()
	token := q.Get("token")
	userJSON := q.Get("user")
	if token == "" || userJSON == "" {
		return nil, errNotCallback
	}
	var user store.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, fmt.Errorf("decode callback user: %w", err)
	}
	return &store.AuthRecord{Token: token, User: user}, nil
}
