package quote

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
)

// SharedProvider collapses concurrent lookups of the same symbol into one upstream call.
// Valuations of many accounts holding the same symbol therefore hit the provider once.
type SharedProvider struct {
	next  Provider
	group singleflight.Group
}

// NewSharedProvider wraps next.
func NewSharedProvider(next Provider) *SharedProvider {
	return &SharedProvider{next: next}
}

// Lookup implements Provider.
//
// The upstream call is detached from the cancellation of the caller that started it,
// so one caller giving up does not fail the others; provider timeouts still apply.
// Each caller returns as soon as its own context is done.
func (p *SharedProvider) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = NormalizeSymbol(symbol)

	ch := p.group.DoChan(symbol, func() (any, error) {
		return p.next.Lookup(context.WithoutCancel(ctx), symbol)
	})

	select {
	case <-ctx.Done():
		return model.Quote{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.Quote{}, res.Err
		}
		return res.Val.(model.Quote), nil
	}
}
