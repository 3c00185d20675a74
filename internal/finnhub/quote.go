package finnhub

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pcdogyu/market-dashboard/internal/quote"
)

// Quote fetches GET /quote. Field c is the current price, pc the previous close.
func (c *Client) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	res, err := c.getJSON(ctx, "/quote", q)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}

	cur := res.Get("c").Float()
	if cur == 0 {
		return quote.Quote{}, fmt.Errorf("quote %s: %w", symbol, ErrNoData)
	}
	out := quote.Quote{
		Symbol:    symbol,
		Price:     cur,
		PrevClose: res.Get("pc").Float(),
		TS:        time.Now().UTC(),
	}
	if ts := res.Get("t").Int(); ts > 0 {
		out.TS = time.Unix(ts, 0).UTC()
	}
	return out, nil
}

var _ quote.Fetcher = (*Client)(nil)
