package finnhub

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pcdogyu/market-dashboard/internal/market"
)

// Holiday is one entry of GET /stock/market-holiday.
type Holiday struct {
	Name        string
	Date        market.Date
	TradingHour string // non-empty for early closes
}

// FullDay reports a closure with no trading window.
func (h Holiday) FullDay() bool { return strings.TrimSpace(h.TradingHour) == "" }

func (c *Client) MarketHolidays(ctx context.Context, exchange string) ([]Holiday, error) {
	q := url.Values{}
	q.Set("exchange", exchange)
	res, err := c.getJSON(ctx, "/stock/market-holiday", q)
	if err != nil {
		return nil, fmt.Errorf("market holidays: %w", err)
	}

	var out []Holiday
	var parseErr error
	res.Get("data").ForEach(func(_, v gjson.Result) bool {
		d, err := market.ParseDate(v.Get("atDate").String())
		if err != nil {
			parseErr = err
			return false
		}
		out = append(out, Holiday{
			Name:        v.Get("eventName").String(),
			Date:        d,
			TradingHour: v.Get("tradingHour").String(),
		})
		return true
	})
	if parseErr != nil {
		return nil, fmt.Errorf("market holidays: %w", parseErr)
	}
	return out, nil
}

// HolidaySource adapts MarketHolidays to market.HolidaySource. Early-close
// days are not full closures and are dropped.
type HolidaySource struct {
	Client   *Client
	Exchange string
}

func (s HolidaySource) Name() string { return "finnhub" }

func (s HolidaySource) Holidays(ctx context.Context, fromYear, toYear int) ([]market.Date, error) {
	ex := s.Exchange
	if ex == "" {
		ex = "US"
	}
	hs, err := s.Client.MarketHolidays(ctx, ex)
	if err != nil {
		return nil, err
	}
	out := make([]market.Date, 0, len(hs))
	for _, h := range hs {
		if !h.FullDay() || h.Date.Year < fromYear || h.Date.Year > toYear {
			continue
		}
		out = append(out, h.Date)
	}
	return out, nil
}

var _ market.HolidaySource = HolidaySource{}
