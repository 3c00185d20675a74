package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pcdogyu/market-dashboard/internal/config"
	"github.com/pcdogyu/market-dashboard/internal/market"
	"github.com/pcdogyu/market-dashboard/internal/memstore"
	"github.com/pcdogyu/market-dashboard/internal/quote"
	"github.com/pcdogyu/market-dashboard/internal/store/sqlite"
)

// Status line texts while frozen.
const (
	StatusClosedDay      = "Market Closed (Holiday/Weekend) — holding last session"
	StatusClosedHoursFmt = "Market Closed — charts reset next market day %s"
)

// State of the refresh loop.
type State int

const (
	ClosedFrozen State = iota
	OpenActive
)

func (s State) String() string {
	if s == OpenActive {
		return "open_active"
	}
	return "closed_frozen"
}

// CfgProvider returns the current configuration. runtimecfg.Manager
// satisfies it.
type CfgProvider interface {
	Get() config.Config
}

// Renderer receives a frame after every change. Render must not block.
type Renderer interface {
	Render(f memstore.Frame)
}

// Archiver persists a finished session.
type Archiver interface {
	ArchiveSession(sessionDate string) (string, error)
}

// Collector is the market-hours gated refresh loop. A single goroutine runs
// Tick, so ticks never overlap.
type Collector struct {
	cfgp    CfgProvider
	clock   *market.Clock
	fetcher quote.Fetcher
	mem     *memstore.Store
	db      *sql.DB
	log     *slog.Logger

	archiver  Archiver
	renderers []Renderer
	refreshCh chan struct{}
	now       func() time.Time

	state          State
	coverageWarned market.Date
}

// New builds a collector. db may be nil to keep points in memory only.
func New(cfgp CfgProvider, clock *market.Clock, fetcher quote.Fetcher, mem *memstore.Store, db *sql.DB, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		cfgp:      cfgp,
		clock:     clock,
		fetcher:   fetcher,
		mem:       mem,
		db:        db,
		log:       logger.With("component", "collector"),
		refreshCh: make(chan struct{}, 1),
		now:       time.Now,
		state:     ClosedFrozen,
	}
}

func (c *Collector) AddRenderer(r Renderer) { c.renderers = append(c.renderers, r) }

func (c *Collector) SetArchiver(a Archiver) { c.archiver = a }

func (c *Collector) State() State { return c.state }

// RequestRefresh asks the loop to tick now. Requests made while a tick is
// pending are merged. Nothing is fetched while the market is closed.
func (c *Collector) RequestRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// Run ticks until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	cfg := c.cfgp.Get()
	from, to := c.clock.Calendar().Coverage()
	c.log.Info("refresh loop started",
		"tickers", cfg.Tickers, "interval_s", cfg.RefreshSeconds,
		"session", c.clock.Session().String(), "zone", c.clock.Location().String(),
		"calendar", c.clock.Calendar().Source(), "coverage_from", from, "coverage_to", to)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-c.refreshCh:
			c.log.Debug("manual refresh")
		}

		wait := c.Tick(ctx, c.now())
		if ctx.Err() != nil {
			return ctx.Err()
		}
		timer.Reset(wait)
	}
}

// Tick runs one cycle at now and returns how long to wait before the next.
func (c *Collector) Tick(ctx context.Context, now time.Time) time.Duration {
	cfg := c.cfgp.Get()
	c.syncTickers(cfg.Tickers)

	today := c.clock.Today(now)
	c.checkCoverage(today)

	interval := time.Duration(cfg.RefreshSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	status := c.clock.Status(now)
	if status != market.StatusOpen {
		c.freeze(cfg, now, status)
		return capWait(interval, c.clock.NextOpen(now), now)
	}

	if c.mem.SessionDate() != today {
		c.startSession(now, today)
	}
	if c.state != OpenActive {
		c.state = OpenActive
		c.log.Info("market open; refreshing", "session", today.String())
	}
	c.mem.SetStatus(true, "")

	c.fetchAll(ctx, cfg, now, today)
	c.publish()

	return capWait(interval, c.clock.NextClose(now), now)
}

// capWait returns min(interval, until next) and at least 1ms.
func capWait(interval time.Duration, next, now time.Time) time.Duration {
	wait := interval
	if !next.IsZero() {
		if d := next.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

func (c *Collector) startSession(now time.Time, today market.Date) {
	open, close := c.clock.Window(now)
	c.mem.Reset(today, open, close)
	if c.db != nil {
		if err := sqlite.UpsertSession(c.db, today.String(), open, close); err != nil {
			c.log.Error("store session", "session", today.String(), "err", err)
		}
	}
	c.log.Info("new trading session started; cleared previous session",
		"session", today.String(), "open", open.Format(time.RFC3339), "close", close.Format(time.RFC3339))
}

func (c *Collector) freeze(cfg config.Config, now time.Time, status market.Status) {
	text := StatusClosedDay
	if status == market.StatusClosedHours {
		next := c.clock.NextOpen(now)
		text = fmt.Sprintf(StatusClosedHoursFmt, next.In(c.clock.Location()).Format("15:04 MST"))
	}

	if c.state == OpenActive {
		c.state = ClosedFrozen
		session := c.mem.SessionDate()
		c.log.Info("market closed; holding last session", "session", session.String())
		if cfg.Archive.Enabled && c.archiver != nil && !session.IsZero() {
			path, err := c.archiver.ArchiveSession(session.String())
			if err != nil {
				c.log.Error("archive session", "session", session.String(), "err", err)
			} else {
				c.log.Info("session archived", "session", session.String(), "path", path)
			}
		}
	}

	if c.mem.SetStatus(false, text) {
		c.log.Info("status", "text", text)
		c.publish()
	}
}

func (c *Collector) fetchAll(ctx context.Context, cfg config.Config, now time.Time, today market.Date) {
	gap := time.Duration(cfg.Finnhub.RequestGapMS) * time.Millisecond
	ts := now.UTC()
	batch := make([]quote.Quote, 0, len(cfg.Tickers))

	for i, sym := range cfg.Tickers {
		if i > 0 && gap > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(gap):
			}
		}

		q, err := c.fetcher.Quote(ctx, sym)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			switch {
			case errors.Is(err, quote.ErrRateLimited):
				c.log.Warn("rate limited", "symbol", sym)
			case errors.Is(err, quote.ErrNoData):
				c.log.Warn("no quote data", "symbol", sym)
			default:
				c.log.Warn("quote error", "symbol", sym, "err", err)
			}
			continue
		}
		// Every ticker of a tick shares the tick time on the x-axis.
		q.Symbol = sym
		q.TS = ts
		if c.mem.Record(q) {
			batch = append(batch, q)
		}
	}
	c.mem.MarkUpdated(now)

	if c.db != nil && len(batch) > 0 {
		if err := sqlite.InsertQuotes(c.db, today.String(), batch); err != nil {
			c.log.Error("store quotes", "session", today.String(), "err", err)
		}
	}
	c.log.Debug("tick", "fetched", len(batch), "tickers", len(cfg.Tickers))
}

func (c *Collector) syncTickers(tickers []string) {
	if slices.Equal(c.mem.Tickers(), tickers) {
		return
	}
	c.mem.SetTickers(tickers)
	c.log.Info("tickers changed", "tickers", tickers)
}

// checkCoverage warns once per day when the holiday data does not describe
// today. Only weekends close the market then.
func (c *Collector) checkCoverage(today market.Date) {
	cal := c.clock.Calendar()
	if cal.Covers(today) || c.coverageWarned == today {
		return
	}
	c.coverageWarned = today
	from, to := cal.Coverage()
	c.log.Warn("date outside holiday calendar coverage; assuming no holidays",
		"date", today.String(), "source", cal.Source(), "coverage_from", from, "coverage_to", to)
}

func (c *Collector) publish() {
	if len(c.renderers) == 0 {
		return
	}
	f := c.mem.Frame()
	for _, r := range c.renderers {
		r.Render(f)
	}
}

// Resume restores today's stored points, or the latest stored session when
// today has none, so a restart shows the same screen as before.
func (c *Collector) Resume(now time.Time) error {
	if c.db == nil {
		return nil
	}
	today := c.clock.Today(now)
	rows, err := sqlite.LoadSession(c.db, today.String())
	if err != nil {
		return fmt.Errorf("load session %s: %w", today, err)
	}
	day := today
	if len(rows) == 0 {
		date, latest, ok, err := sqlite.LatestSession(c.db)
		if err != nil {
			return fmt.Errorf("load latest session: %w", err)
		}
		if !ok {
			return nil
		}
		d, err := market.ParseDate(date)
		if err != nil {
			return err
		}
		day, rows = d, latest
	}

	sess := c.clock.Session()
	loc := c.clock.Location()
	n := c.mem.Load(day, sess.Open.On(day, loc), sess.Close.On(day, loc), rows)
	c.log.Info("resumed stored session", "session", day.String(), "points", n)
	return nil
}
