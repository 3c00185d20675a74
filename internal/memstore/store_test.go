package memstore

import (
	"math"
	"testing"
	"time"

	"github.com/pcdogyu/market-dashboard/internal/market"
	"github.com/pcdogyu/market-dashboard/internal/quote"
)

var day = market.Date{Year: 2025, Month: time.March, Day: 3}

func at(h, m int) time.Time { return time.Date(2025, 3, 3, h, m, 0, 0, time.UTC) }

func TestRecordAndFrame(t *testing.T) {
	s := New([]string{"SPY", "DIA"})
	s.Reset(day, at(14, 30), at(21, 0))

	if !s.Record(quote.Quote{Symbol: "SPY", Price: 101, PrevClose: 100, TS: at(14, 30)}) {
		t.Fatalf("Record SPY returned false")
	}
	s.Record(quote.Quote{Symbol: "SPY", Price: 102, PrevClose: 100, TS: at(14, 35)})
	if s.Record(quote.Quote{Symbol: "XYZ", Price: 5, TS: at(14, 35)}) {
		t.Fatalf("unknown ticker should be ignored")
	}

	f := s.Frame()
	if f.Session != "2025-03-03" {
		t.Fatalf("session = %q", f.Session)
	}
	if len(f.Tickers) != 2 || f.Tickers[0].Symbol != "SPY" || f.Tickers[1].Symbol != "DIA" {
		t.Fatalf("tickers out of order: %+v", f.Tickers)
	}
	spy := f.Tickers[0]
	if len(spy.Points) != 2 || spy.Price != 102 || spy.Change != "+2.00 (+2.00%)" || !spy.Up {
		t.Fatalf("unexpected SPY frame: %+v", spy)
	}
	dia := f.Tickers[1]
	if dia.PriceText != quote.Missing || dia.Change != quote.Missing || dia.HasRange {
		t.Fatalf("unexpected DIA frame: %+v", dia)
	}
	if !f.UpdatedUTC.Equal(at(14, 35)) {
		t.Fatalf("updated = %v", f.UpdatedUTC)
	}
}

func TestFrameIsACopy(t *testing.T) {
	s := New([]string{"SPY"})
	s.Record(quote.Quote{Symbol: "SPY", Price: 101, TS: at(14, 30)})
	f := s.Frame()
	f.Tickers[0].Points[0].Price = 999
	if got := s.Frame().Tickers[0].Points[0].Price; got != 101 {
		t.Fatalf("frame aliases store: %v", got)
	}
}

func TestResetKeepsPrevClose(t *testing.T) {
	s := New([]string{"SPY"})
	s.Record(quote.Quote{Symbol: "SPY", Price: 101, PrevClose: 100, TS: at(14, 30)})

	next := day.AddDays(1)
	s.Reset(next, at(14, 30).AddDate(0, 0, 1), at(21, 0).AddDate(0, 0, 1))

	f := s.Frame()
	if f.Session != "2025-03-04" {
		t.Fatalf("session = %q", f.Session)
	}
	tf := f.Tickers[0]
	if len(tf.Points) != 0 || tf.Price != 0 || tf.PrevClose != 100 {
		t.Fatalf("unexpected after reset: %+v", tf)
	}
	if !tf.HasRange || math.Abs(tf.YMin-99.5) > 1e-9 || math.Abs(tf.YMax-100.5) > 1e-9 {
		t.Fatalf("range = %v..%v (%v)", tf.YMin, tf.YMax, tf.HasRange)
	}
}

func TestLoadReplacesSession(t *testing.T) {
	s := New([]string{"SPY", "QQQ"})
	s.Record(quote.Quote{Symbol: "SPY", Price: 50, TS: at(14, 30)})

	n := s.Load(day, at(14, 30), at(21, 0), []quote.Quote{
		{Symbol: "SPY", Price: 101, PrevClose: 100, TS: at(14, 30)},
		{Symbol: "QQQ", Price: 401, PrevClose: 400, TS: at(14, 30)},
		{Symbol: "OLD", Price: 1, TS: at(14, 30)},
		{Symbol: "SPY", Price: 102, PrevClose: 100, TS: at(14, 35)},
	})
	if n != 3 {
		t.Fatalf("loaded %d, want 3", n)
	}
	f := s.Frame()
	if len(f.Tickers[0].Points) != 2 || f.Tickers[0].Price != 102 {
		t.Fatalf("unexpected SPY: %+v", f.Tickers[0])
	}
}

func TestSetTickers(t *testing.T) {
	s := New([]string{"SPY", "DIA"})
	s.Record(quote.Quote{Symbol: "SPY", Price: 101, TS: at(14, 30)})
	s.SetTickers([]string{"QQQ", "SPY"})

	f := s.Frame()
	if len(f.Tickers) != 2 || f.Tickers[0].Symbol != "QQQ" || f.Tickers[1].Symbol != "SPY" {
		t.Fatalf("tickers = %+v", f.Tickers)
	}
	if len(f.Tickers[1].Points) != 1 {
		t.Fatalf("SPY series lost")
	}
}

func TestSetStatus(t *testing.T) {
	s := New(nil)
	if !s.SetStatus(false, "Market Closed") {
		t.Fatalf("first status change not reported")
	}
	if s.SetStatus(false, "Market Closed") {
		t.Fatalf("unchanged status reported as change")
	}
	if !s.SetStatus(true, "") {
		t.Fatalf("open transition not reported")
	}
}

func TestYRange(t *testing.T) {
	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
	pts := func(vs ...float64) []Point {
		out := make([]Point, len(vs))
		for i, v := range vs {
			out[i] = Point{Price: v}
		}
		return out
	}

	if _, _, ok := YRange(nil, 0); ok {
		t.Fatalf("expected no range")
	}

	lo, hi, _ := YRange(pts(100, 110), 0)
	if !near(lo, 99.8) || !near(hi, 110.2) {
		t.Fatalf("span: %v..%v", lo, hi)
	}

	lo, hi, _ = YRange(pts(105), 95)
	if !near(lo, 94.8) || !near(hi, 105.2) {
		t.Fatalf("prev close included: %v..%v", lo, hi)
	}

	lo, hi, _ = YRange(pts(50, 50), 0)
	if !near(lo, 49.5) || !near(hi, 50.5) {
		t.Fatalf("flat small: %v..%v", lo, hi)
	}

	lo, hi, _ = YRange(pts(400), 400)
	if !near(lo, 398) || !near(hi, 402) {
		t.Fatalf("flat large: %v..%v", lo, hi)
	}
}
