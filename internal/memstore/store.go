package memstore

import (
	"math"
	"sync"
	"time"

	"github.com/pcdogyu/market-dashboard/internal/market"
	"github.com/pcdogyu/market-dashboard/internal/quote"
)

// Point is one recorded price.
type Point struct {
	TS    time.Time `json:"ts"`
	Price float64   `json:"price"`
}

type series struct {
	points    []Point
	last      float64
	prevClose float64
}

// Store keeps the current session in memory. Renderers read it through
// Frame; the collector is the only writer.
type Store struct {
	mu sync.RWMutex

	session     market.Date
	windowOpen  time.Time
	windowClose time.Time
	open        bool
	status      string
	updatedUTC  time.Time

	tickers []string
	series  map[string]*series
}

func New(tickers []string) *Store {
	s := &Store{series: make(map[string]*series)}
	s.setTickersLocked(tickers)
	return s
}

func (s *Store) SessionDate() market.Date {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Store) Tickers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.tickers...)
}

// SetTickers replaces the ticker list. Series of kept tickers survive.
func (s *Store) SetTickers(tickers []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTickersLocked(tickers)
}

func (s *Store) setTickersLocked(tickers []string) {
	s.tickers = append([]string(nil), tickers...)
	keep := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		keep[t] = struct{}{}
		if _, ok := s.series[t]; !ok {
			s.series[t] = &series{}
		}
	}
	for t := range s.series {
		if _, ok := keep[t]; !ok {
			delete(s.series, t)
		}
	}
}

// Reset starts a new session: points and last prices are cleared, previous
// closes are kept until the next quote replaces them.
func (s *Store) Reset(session market.Date, windowOpen, windowClose time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.windowOpen = windowOpen
	s.windowClose = windowClose
	for _, sr := range s.series {
		sr.points = nil
		sr.last = 0
	}
}

// Load replaces the session with stored quotes, oldest first.
func (s *Store) Load(session market.Date, windowOpen, windowClose time.Time, rows []quote.Quote) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.windowOpen = windowOpen
	s.windowClose = windowClose
	for _, sr := range s.series {
		sr.points = nil
		sr.last = 0
	}
	n := 0
	for _, q := range rows {
		if s.recordLocked(q) {
			n++
		}
	}
	return n
}

// Record appends one successful quote. Unknown tickers are ignored.
func (s *Store) Record(q quote.Quote) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.recordLocked(q)
	if ok && q.TS.After(s.updatedUTC) {
		s.updatedUTC = q.TS.UTC()
	}
	return ok
}

func (s *Store) recordLocked(q quote.Quote) bool {
	sr, ok := s.series[q.Symbol]
	if !ok || q.Price == 0 {
		return false
	}
	sr.points = append(sr.points, Point{TS: q.TS, Price: q.Price})
	sr.last = q.Price
	if q.PrevClose != 0 {
		sr.prevClose = q.PrevClose
	}
	return true
}

// SetStatus records market state and the status line. It reports whether
// either changed.
func (s *Store) SetStatus(open bool, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.open != open || s.status != text
	s.open = open
	s.status = text
	return changed
}

func (s *Store) MarkUpdated(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedUTC = t.UTC()
}

// TickerFrame is the render state of one ticker.
type TickerFrame struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	PriceText string  `json:"price_text"`
	PrevClose float64 `json:"prev_close"`
	Change    string  `json:"change"`
	Up        bool    `json:"up"`
	HasChange bool    `json:"has_change"`
	Points    []Point `json:"points"`
	YMin      float64 `json:"y_min"`
	YMax      float64 `json:"y_max"`
	HasRange  bool    `json:"has_range"`
}

// Frame is an immutable copy of everything a renderer draws.
type Frame struct {
	Session     string        `json:"session"`
	WindowOpen  time.Time     `json:"window_open"`
	WindowClose time.Time     `json:"window_close"`
	Open        bool          `json:"open"`
	Status      string        `json:"status"`
	UpdatedUTC  time.Time     `json:"updated_utc"`
	Tickers     []TickerFrame `json:"tickers"`
}

func (s *Store) Frame() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := Frame{
		WindowOpen:  s.windowOpen,
		WindowClose: s.windowClose,
		Open:        s.open,
		Status:      s.status,
		UpdatedUTC:  s.updatedUTC,
		Tickers:     make([]TickerFrame, 0, len(s.tickers)),
	}
	if !s.session.IsZero() {
		f.Session = s.session.String()
	}
	for _, t := range s.tickers {
		sr := s.series[t]
		tf := TickerFrame{
			Symbol:    t,
			Price:     sr.last,
			PriceText: quote.FormatPrice(sr.last),
			PrevClose: sr.prevClose,
			Points:    append([]Point(nil), sr.points...),
		}
		ch := quote.ComputeChange(sr.last, sr.prevClose)
		tf.Change = ch.String()
		tf.Up = ch.Up()
		tf.HasChange = ch.OK
		tf.YMin, tf.YMax, tf.HasRange = YRange(sr.points, sr.prevClose)
		f.Tickers = append(f.Tickers, tf)
	}
	return f
}

// YRange returns padded chart bounds covering the points and the previous
// close (0 means none). A flat range is padded by max(0.5, 0.5% of the value),
// otherwise by 2% of the span. With only a previous close the range is ±0.5%.
func YRange(points []Point, prevClose float64) (lo, hi float64, ok bool) {
	if len(points) == 0 {
		if prevClose == 0 {
			return 0, 0, false
		}
		return prevClose * 0.995, prevClose * 1.005, true
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range points {
		lo = math.Min(lo, p.Price)
		hi = math.Max(hi, p.Price)
	}
	if prevClose != 0 {
		lo = math.Min(lo, prevClose)
		hi = math.Max(hi, prevClose)
	}
	var pad float64
	if lo == hi {
		base := lo
		if base == 0 {
			base = 1
		}
		pad = math.Max(0.5, 0.005*base)
	} else {
		pad = 0.02 * (hi - lo)
	}
	return lo - pad, hi + pad, true
}
