// Package alpacadata serves quotes and the trading calendar from Alpaca.
package alpacadata

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/pcdogyu/market-dashboard/internal/market"
	"github.com/pcdogyu/market-dashboard/internal/quote"
)

type snapshotClient interface {
	GetSnapshot(symbol string, req marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error)
}

type calendarClient interface {
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
}

type Options struct {
	APIKey    string
	APISecret string
	// BaseURL is the trading API used for the calendar; empty means the SDK default.
	BaseURL string
	Feed    string
}

// Client implements quote.Fetcher and market.HolidaySource.
type Client struct {
	md   snapshotClient
	tr   calendarClient
	feed marketdata.Feed
}

func NewClient(opts Options) *Client {
	md := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
		Feed:      opts.Feed,
	})
	tr := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
		BaseURL:   opts.BaseURL,
	})
	return &Client{
		md:   md,
		tr:   tr,
		feed: opts.Feed,
	}
}

// Quote uses the latest trade as the price and the previous daily bar close
// as the reference. The SDK call is not cancellable; ctx is checked first.
func (c *Client) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	if err := ctx.Err(); err != nil {
		return quote.Quote{}, err
	}
	snap, err := c.md.GetSnapshot(symbol, marketdata.GetSnapshotRequest{Feed: c.feed})
	if err != nil {
		return quote.Quote{}, fmt.Errorf("snapshot %s: %w", symbol, err)
	}
	if snap == nil || snap.LatestTrade == nil || snap.LatestTrade.Price == 0 {
		return quote.Quote{}, fmt.Errorf("snapshot %s: %w", symbol, quote.ErrNoData)
	}

	q := quote.Quote{
		Symbol: symbol,
		Price:  snap.LatestTrade.Price,
		TS:     snap.LatestTrade.Timestamp.UTC(),
	}
	if snap.PrevDailyBar != nil {
		q.PrevClose = snap.PrevDailyBar.Close
	}
	return q, nil
}

func (c *Client) Name() string { return "alpaca" }

// Holidays derives closures from the trading calendar: every weekday between
// the first and last listed session that is not itself listed. Early closes
// are listed sessions and so never count.
func (c *Client) Holidays(ctx context.Context, fromYear, toYear int) ([]market.Date, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	days, err := c.tr.GetCalendar(alpaca.GetCalendarRequest{
		Start: time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(toYear, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return nil, fmt.Errorf("GetCalendar: %w", err)
	}
	return holidaysFromSessions(days)
}

func holidaysFromSessions(days []alpaca.CalendarDay) ([]market.Date, error) {
	if len(days) == 0 {
		return nil, nil
	}
	open := make(map[market.Date]struct{}, len(days))
	var first, last market.Date
	for _, day := range days {
		d, err := market.ParseDate(day.Date)
		if err != nil {
			return nil, err
		}
		open[d] = struct{}{}
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.Before(d) {
			last = d
		}
	}

	var out []market.Date
	for d := first; !last.Before(d); d = d.AddDays(1) {
		if d.IsWeekend() {
			continue
		}
		if _, ok := open[d]; !ok {
			out = append(out, d)
		}
	}
	return out, nil
}

var (
	_ quote.Fetcher        = (*Client)(nil)
	_ market.HolidaySource = (*Client)(nil)
)
