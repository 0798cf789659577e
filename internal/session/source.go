package session

import (
	"context"

	"github.com/mentortab/mentortab/internal/bridge"
	"github.com/mentortab/mentortab/internal/scrape"
)

// BridgeSource reads the active tab through the CDP bridge.
type BridgeSource struct {
	Bridge *bridge.Bridge
}

func (s BridgeSource) ActiveTabURL(ctx context.Context) (string, error) {
	if s.Bridge.TabManager == nil {
		return "", bridge.ErrNoActiveTab
	}
	_, info, err := s.Bridge.ActiveTab()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (s BridgeSource) Snapshot(ctx context.Context) (*scrape.Snapshot, error) {
	return scrape.RequestSnapshot(ctx, s.Bridge)
}
