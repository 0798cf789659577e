package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// TabEntry holds the chromedp context attached to one tab.
type TabEntry struct {
	Ctx    context.Context
	Cancel context.CancelFunc
}

// TabInfo describes a browser tab.
type TabInfo struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// TabManager tracks per-tab chromedp contexts keyed by CDP target ID.
type TabManager struct {
	browserCtx context.Context
	tabs       map[string]*TabEntry
	mu         sync.RWMutex
}

func NewTabManager(browserCtx context.Context) *TabManager {
	return &TabManager{
		browserCtx: browserCtx,
		tabs:       make(map[string]*TabEntry),
	}
}

// RegisterTab registers an externally-created tab (e.g. the initial Chrome tab).
func (tm *TabManager) RegisterTab(tabID string, ctx context.Context) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.tabs[tabID] = &TabEntry{Ctx: ctx}
}

// TabContext returns or creates a context for the given tab ID.
func (tm *TabManager) TabContext(tabID string) (context.Context, error) {
	tm.mu.RLock()
	if entry, ok := tm.tabs[tabID]; ok && entry.Ctx != nil {
		tm.mu.RUnlock()
		return entry.Ctx, nil
	}
	tm.mu.RUnlock()

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if entry, ok := tm.tabs[tabID]; ok && entry.Ctx != nil {
		return entry.Ctx, nil
	}

	if tm.browserCtx == nil {
		return nil, fmt.Errorf("no browser connection")
	}

	ctx, cancel := chromedp.NewContext(tm.browserCtx,
		chromedp.WithTargetID(target.ID(tabID)),
	)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("tab %s not found: %w", tabID, err)
	}

	tm.tabs[tabID] = &TabEntry{Ctx: ctx, Cancel: cancel}
	return ctx, nil
}

// ActiveTab resolves the active tab of the current window: the first page
// target Chrome reports. Returns ErrNoActiveTab when no page target exists.
func (tm *TabManager) ActiveTab() (context.Context, *TabInfo, error) {
	targets, err := tm.ListTargets()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoActiveTab, err)
	}
	if len(targets) == 0 {
		return nil, nil, ErrNoActiveTab
	}

	t := targets[0]
	ctx, err := tm.TabContext(string(t.TargetID))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoActiveTab, err)
	}
	return ctx, &TabInfo{ID: string(t.TargetID), URL: t.URL, Title: t.Title}, nil
}

// ListTargets returns all page-type targets from the browser.
func (tm *TabManager) ListTargets() ([]*target.Info, error) {
	if tm == nil || tm.browserCtx == nil {
		return nil, fmt.Errorf("no browser connection")
	}
	var targets []*target.Info
	if err := chromedp.Run(tm.browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			targets, err = target.GetTargets().Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("get targets: %w", err)
	}

	pages := make([]*target.Info, 0)
	for _, t := range targets {
		if t.Type == "page" {
			pages = append(pages, t)
		}
	}
	return pages, nil
}

// ListTabs returns page targets as plain tab descriptors.
func (tm *TabManager) ListTabs() ([]TabInfo, error) {
	targets, err := tm.ListTargets()
	if err != nil {
		return nil, err
	}
	tabs := make([]TabInfo, 0, len(targets))
	for _, t := range targets {
		tabs = append(tabs, TabInfo{ID: string(t.TargetID), URL: t.URL, Title: t.Title})
	}
	return tabs, nil
}

// CreateTab opens a new tab and navigates it to url.
func (tm *TabManager) CreateTab(url string) (string, error) {
	if tm == nil || tm.browserCtx == nil {
		return "", fmt.Errorf("no browser connection")
	}
	ctx, cancel := chromedp.NewContext(tm.browserCtx)

	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		cancel()
		return "", fmt.Errorf("new tab: %w", err)
	}

	tabID := string(chromedp.FromContext(ctx).Target.TargetID)
	tm.mu.Lock()
	tm.tabs[tabID] = &TabEntry{Ctx: ctx, Cancel: cancel}
	tm.mu.Unlock()

	return tabID, nil
}

// CloseTab closes a tab by ID.
func (tm *TabManager) CloseTab(tabID string) error {
	tm.mu.Lock()
	entry, tracked := tm.tabs[tabID]
	tm.mu.Unlock()

	if tracked && entry.Cancel != nil {
		entry.Cancel()
	}

	closeCtx, closeCancel := context.WithTimeout(tm.browserCtx, 5*time.Second)
	defer closeCancel()

	if err := target.CloseTarget(target.ID(tabID)).Do(cdp.WithExecutor(closeCtx, chromedp.FromContext(closeCtx).Browser)); err != nil {
		if !tracked {
			return nil
		}
		slog.Debug("close target CDP", "tabId", tabID, "err", err)
	}

	tm.mu.Lock()
	delete(tm.tabs, tabID)
	tm.mu.Unlock()

	return nil
}

// CleanStaleTabs periodically removes tabs that no longer exist in Chrome.
func (tm *TabManager) CleanStaleTabs(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		targets, err := tm.ListTargets()
		if err != nil {
			continue
		}

		alive := make(map[string]bool, len(targets))
		for _, t := range targets {
			alive[string(t.TargetID)] = true
		}

		tm.mu.Lock()
		for id, entry := range tm.tabs {
			if !alive[id] {
				if entry.Cancel != nil {
					entry.Cancel()
				}
				delete(tm.tabs, id)
				slog.Info("cleaned stale tab", "id", id)
			}
		}
		tm.mu.Unlock()
	}
}
