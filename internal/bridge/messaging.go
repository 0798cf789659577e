package bridge

import (
	"context"
	"fmt"
)

// RequestHintData asks the scraper for the problem title, description and
// editor contents of the tab it runs against.
const RequestHintData = "GET_HINT_DATA"

// RequestFunc serves one typed request against a tab context. It responds
// exactly once: a value or an error, never both, never a stream.
type RequestFunc func(ctx context.Context) (any, error)

// RegisterRequest binds a request tag to its handler. Later registrations
// replace earlier ones.
func (b *Bridge) RegisterRequest(tag string, fn RequestFunc) {
	b.reqMu.Lock()
	defer b.reqMu.Unlock()
	b.requests[tag] = fn
}

// Request issues a one-shot request to the scraper in the currently active
// tab and waits for its single response. There are no retries and no
// streaming; a failed handler surfaces as ErrScraperUnreachable. Requests are
// serialized: at most one is outstanding at a time.
func (b *Bridge) Request(ctx context.Context, tag string) (any, error) {
	if b.TabManager == nil {
		return nil, ErrNoActiveTab
	}
	tabCtx, _, err := b.ActiveTab()
	if err != nil {
		return nil, err
	}
	return b.dispatch(ctx, tabCtx, tag)
}

func (b *Bridge) dispatch(ctx, tabCtx context.Context, tag string) (any, error) {
	b.reqMu.Lock()
	fn, ok := b.requests[tag]
	b.reqMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no handler for request %q", ErrScraperUnreachable, tag)
	}

	b.inflight.Lock()
	defer b.inflight.Unlock()

	tCtx, cancel := context.WithTimeout(tabCtx, b.Config.ScrapeTimeout)
	defer cancel()

	// Propagate caller cancellation into the tab-scoped context.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	resp, err := fn(tCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScraperUnreachable, err)
	}
	return resp, nil
}
