// Package holiday computes NYSE full-day closures from holiday rules.
package holiday

import (
	"context"
	"fmt"

	cal "github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/aa"
	"github.com/rickar/cal/v2/us"

	"github.com/pcdogyu/market-dashboard/internal/market"
)

// juneteenthFirstYear is the first year NYSE closed for Juneteenth.
const juneteenthFirstYear = 2022

var nyse = []*cal.Holiday{
	us.NewYear,
	us.MlkDay,
	us.PresidentsDay,
	aa.GoodFriday,
	us.MemorialDay,
	us.Juneteenth,
	us.IndependenceDay,
	us.LaborDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

// Rules is a market.HolidaySource backed by rickar/cal.
type Rules struct{}

func NewRules() Rules { return Rules{} }

func (Rules) Name() string { return "rules" }

func (Rules) Holidays(ctx context.Context, fromYear, toYear int) ([]market.Date, error) {
	if fromYear > toYear {
		return nil, fmt.Errorf("invalid year range %d-%d", fromYear, toYear)
	}
	out := make([]market.Date, 0, (toYear-fromYear+1)*len(nyse))
	for y := fromYear; y <= toYear; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, ForYear(y)...)
	}
	return out, nil
}

// ForYear returns the observed NYSE closures in year y.
func ForYear(y int) []market.Date {
	out := make([]market.Date, 0, len(nyse))
	for _, h := range nyse {
		if h == us.Juneteenth && y < juneteenthFirstYear {
			continue
		}
		_, observed := h.Calc(y)
		if observed.IsZero() {
			continue
		}
		// NYSE does not close on Dec 31 when Jan 1 is a Saturday.
		if observed.Year() != y {
			continue
		}
		d := market.DateOf(observed)
		if d.IsWeekend() {
			continue
		}
		out = append(out, d)
	}
	return out
}
