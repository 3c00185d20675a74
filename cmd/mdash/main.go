package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/pcdogyu/market-dashboard/internal/alpacadata"
	"github.com/pcdogyu/market-dashboard/internal/archive"
	"github.com/pcdogyu/market-dashboard/internal/collector"
	"github.com/pcdogyu/market-dashboard/internal/config"
	"github.com/pcdogyu/market-dashboard/internal/finnhub"
	"github.com/pcdogyu/market-dashboard/internal/holiday"
	"github.com/pcdogyu/market-dashboard/internal/logging"
	"github.com/pcdogyu/market-dashboard/internal/market"
	"github.com/pcdogyu/market-dashboard/internal/memstore"
	"github.com/pcdogyu/market-dashboard/internal/quote"
	"github.com/pcdogyu/market-dashboard/internal/runtimecfg"
	"github.com/pcdogyu/market-dashboard/internal/store/sqlite"
	"github.com/pcdogyu/market-dashboard/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "configs/config.yaml", "config path (YAML)")
	envPath := fs.String("env", ".env", "dotenv file loaded before env overrides (optional)")

	switch cmd {
	case "run":
		_ = fs.Parse(os.Args[2:])
		fatalIf(config.LoadEnvFile(*envPath))
		mgr, err := runtimecfg.Load(*cfgPath)
		fatalIf(err)
		fatalIf(run(mgr))
	case "init-db":
		_ = fs.Parse(os.Args[2:])
		fatalIf(config.LoadEnvFile(*envPath))
		cfg, err := config.Load(*cfgPath)
		fatalIf(err)
		db, err := sqlite.Open(cfg.DBPath)
		fatalIf(err)
		defer db.Close()
		fatalIf(sqlite.Migrate(db))
		slog.Info("db initialized", "path", cfg.DBPath)
	case "export":
		dateStr := fs.String("date", "", "session date (YYYY-MM-DD), default: latest stored session")
		_ = fs.Parse(os.Args[2:])
		fatalIf(config.LoadEnvFile(*envPath))
		cfg, err := config.Load(*cfgPath)
		fatalIf(err)
		fatalIf(export(cfg, *dateStr))
	case "holidays":
		year := fs.Int("year", time.Now().Year(), "calendar year")
		_ = fs.Parse(os.Args[2:])
		fatalIf(config.LoadEnvFile(*envPath))
		cfg, err := config.Load(*cfgPath)
		fatalIf(err)
		fatalIf(printHolidays(os.Stdout, cfg, *year))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  mdash run      -config configs/config.yaml [-env .env]")
	fmt.Fprintln(os.Stderr, "  mdash init-db  -config configs/config.yaml")
	fmt.Fprintln(os.Stderr, "  mdash export   -config configs/config.yaml [-date YYYY-MM-DD]")
	fmt.Fprintln(os.Stderr, "  mdash holidays -config configs/config.yaml [-year YYYY]")
}

func fatalIf(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "mdash:", err)
		os.Exit(1)
	}
}

func run(mgr *runtimecfg.Manager) error {
	cfg := mgr.Get()
	if err := config.RequireCredentials(cfg); err != nil {
		return err
	}
	loc, err := market.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		return err
	}
	session, err := cfg.Session()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlite.Migrate(db); err != nil {
		return err
	}

	cal := buildCalendar(ctx, cfg, time.Now().In(loc).Year(), logger)
	clock := market.NewClock(loc, session, cal)
	mem := memstore.New(cfg.Tickers)

	col := collector.New(mgr, clock, newFetcher(cfg), mem, db, logger)
	col.SetArchiver(archive.NewWriter(db, cfg.Archive.Dir))
	if err := col.Resume(time.Now()); err != nil {
		logger.Warn("resume failed; starting empty", "err", err)
	}

	// Renderers are registered before the loop starts.
	var srv *http.Server
	if cfg.DisplayWeb() {
		hub := newHub(logger)
		col.AddRenderer(hub)
		srv = &http.Server{
			Addr:              cfg.Web.Addr,
			Handler:           newWebServer(mgr, db, mem, col, hub, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	var ui *tui.UI
	if cfg.DisplayTUI() {
		palette := tui.Palette{Tickers: cfg.Display.Colors, Up: cfg.Display.Up, Down: cfg.Display.Down}
		ui = tui.New(ctx, mem.Frame(), palette, col.RequestRefresh, cancel)
		col.AddRenderer(ui)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return col.Run(gctx) })
	g.Go(func() error {
		runCleanupLoop(gctx, mgr, db, loc, logger)
		return nil
	})
	if srv != nil {
		g.Go(func() error {
			logger.Info("web listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	if ui != nil {
		g.Go(func() error {
			err := ui.Run(gctx)
			// Leaving the UI ends the process.
			cancel()
			return err
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("stopped")
	return err
}

// newLogger writes to stderr, or to a file when one is configured or the
// terminal UI owns the screen.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	path := cfg.Logging.File
	if path == "" && cfg.DisplayTUI() {
		path = filepath.Join(filepath.Dir(cfg.DBPath), "mdash.log")
	}
	if path == "" {
		return logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format), func() {}, nil
	}
	f, err := logging.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	var w io.Writer = f
	if !cfg.DisplayTUI() {
		w = io.MultiWriter(os.Stderr, f)
	}
	return logging.New(w, cfg.Logging.Level, cfg.Logging.Format), func() { _ = f.Close() }, nil
}

func newFinnhubClient(cfg config.Config) *finnhub.Client {
	return finnhub.NewClient(finnhub.Options{
		BaseURL:     cfg.Finnhub.BaseURL,
		APIKey:      cfg.Finnhub.APIKey,
		Timeout:     time.Duration(cfg.Finnhub.TimeoutSeconds) * time.Second,
		MaxAttempts: cfg.Finnhub.MaxAttempts,
	})
}

func newAlpacaClient(cfg config.Config) *alpacadata.Client {
	return alpacadata.NewClient(alpacadata.Options{
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
		BaseURL:   cfg.Alpaca.BaseURL,
		Feed:      cfg.Alpaca.Feed,
	})
}

func newFetcher(cfg config.Config) quote.Fetcher {
	if cfg.Provider == "alpaca" {
		return newAlpacaClient(cfg)
	}
	return newFinnhubClient(cfg)
}

func holidaySource(cfg config.Config) market.HolidaySource {
	switch cfg.Holidays.Source {
	case "rules":
		return holiday.NewRules()
	case "finnhub":
		return finnhub.HolidaySource{Client: newFinnhubClient(cfg), Exchange: "US"}
	case "alpaca":
		return newAlpacaClient(cfg)
	default:
		return nil
	}
}

// buildCalendar queries the holiday source once. It never fails: an
// unreachable source degrades to the built-in list.
func buildCalendar(ctx context.Context, cfg config.Config, year int, logger *slog.Logger) *market.TradingCalendar {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	from, to := cfg.Holidays.Range(year)
	return market.BuildTradingCalendar(ctx, holidaySource(cfg), from, to, logger)
}

func export(cfg config.Config, date string) error {
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlite.Migrate(db); err != nil {
		return err
	}

	if date == "" {
		latest, _, ok, err := sqlite.LatestSession(db)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no stored sessions")
		}
		date = latest
	} else if _, err := market.ParseDate(date); err != nil {
		return err
	}

	path, err := archive.NewWriter(db, cfg.Archive.Dir).ArchiveSession(date)
	if err != nil {
		return err
	}
	slog.Info("session exported", "session", date, "path", path)
	return nil
}

func printHolidays(w io.Writer, cfg config.Config, year int) error {
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cal := market.BuildTradingCalendar(ctx, holidaySource(cfg), year, year, logger)
	from, to := cal.Coverage()
	fmt.Fprintf(w, "source=%s degraded=%v coverage=%d-%d\n", cal.Source(), cal.Degraded(), from, to)
	n := 0
	for _, d := range cal.Holidays() {
		if d.Year != year {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", d, d.Weekday())
		n++
	}
	if !cal.Covers(market.Date{Year: year, Month: time.January, Day: 1}) {
		fmt.Fprintf(w, "year %d is outside the calendar coverage; no holidays known\n", year)
	} else if n == 0 {
		fmt.Fprintln(w, "no full-day closures")
	}
	return nil
}
