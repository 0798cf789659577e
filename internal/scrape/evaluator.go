package scrape

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/mentortab/mentortab/internal/bridge"
)

// TabEvaluator evaluates expressions through chromedp against a tab context.
type TabEvaluator struct{}

func (TabEvaluator) Eval(ctx context.Context, expr string) (string, error) {
	var out string
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &out)); err != nil {
		return "", fmt.Errorf("evaluate: %w", err)
	}
	return out, nil
}

// Register wires the scraper into the messaging bridge under the
// GET_HINT_DATA request tag.
func Register(b *bridge.Bridge) {
	b.RegisterRequest(bridge.RequestHintData, func(ctx context.Context) (any, error) {
		return Collect(ctx, TabEvaluator{})
	})
}

// RequestSnapshot issues the scrape request over the bridge and returns the
// typed snapshot.
func RequestSnapshot(ctx context.Context, b *bridge.Bridge) (*Snapshot, error) {
	resp, err := b.Request(ctx, bridge.RequestHintData)
	if err != nil {
		return nil, err
	}
	snap, ok := resp.(Snapshot)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected response %T", bridge.ErrScraperUnreachable, resp)
	}
	return &snap, nil
}
