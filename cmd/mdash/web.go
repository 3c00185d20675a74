package main

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pcdogyu/market-dashboard/internal/config"
	"github.com/pcdogyu/market-dashboard/internal/market"
	"github.com/pcdogyu/market-dashboard/internal/memstore"
	"github.com/pcdogyu/market-dashboard/internal/quote"
	"github.com/pcdogyu/market-dashboard/internal/runtimecfg"
	"github.com/pcdogyu/market-dashboard/internal/store/sqlite"
)

//go:embed web/static/*
var webFS embed.FS

// refresher is the part of the collector the web UI drives.
type refresher interface {
	RequestRefresh()
}

func newWebServer(mgr *runtimecfg.Manager, db *sql.DB, mem *memstore.Store, col refresher, h *hub, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if h == nil {
		h = newHub(logger)
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ws_clients": h.clientCount()})
	})

	mux.HandleFunc("/api/frame", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, mem.Frame())
	})

	mux.HandleFunc("/api/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if col != nil {
			col.RequestRefresh()
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	})

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, toConfigView(mgr.Get()))
		case http.MethodPost:
			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			var p runtimecfg.Patch
			if err := json.Unmarshal(body, &p); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			cfg, err := mgr.Update(p)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			logger.Info("config updated", "tickers", cfg.Tickers, "refresh_seconds", cfg.RefreshSeconds)
			writeJSON(w, http.StatusOK, toConfigView(cfg))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		var (
			rows []quote.Quote
			err  error
		)
		if date == "" {
			var ok bool
			date, rows, ok, err = sqlite.LatestSession(db)
			if err == nil && !ok {
				writeJSON(w, http.StatusNotFound, map[string]any{"error": "no stored sessions"})
				return
			}
		} else {
			if _, perr := market.ParseDate(date); perr != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": perr.Error()})
				return
			}
			rows, err = sqlite.LoadSession(db, date)
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		if rows == nil {
			rows = []quote.Quote{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_date": date, "points": rows})
	})

	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		limit := parseLimit(r.URL.Query().Get("limit"), 30, 365)
		out, err := sqlite.ListSessions(db, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		if out == nil {
			out = []sqlite.SessionSummary{}
		}
		writeJSON(w, http.StatusOK, out)
	})

	var onRefresh func()
	if col != nil {
		onRefresh = col.RequestRefresh
	}
	mux.HandleFunc("/ws", h.serveWS(onRefresh))

	static, _ := fs.Sub(webFS, "web/static")
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		b, err := fs.ReadFile(static, "index.html")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	})

	return logRequests(logger, mux)
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("http", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start))
	})
}

type configView struct {
	DBPath         string   `json:"db_path"`
	Tickers        []string `json:"tickers"`
	Provider       string   `json:"provider"`
	RefreshSeconds int      `json:"refresh_seconds"`

	Market struct {
		Timezone string `json:"timezone"`
		Open     string `json:"open"`
		Close    string `json:"close"`
	} `json:"market"`

	HolidaySource string `json:"holiday_source"`

	Display struct {
		Mode   string            `json:"mode"`
		Colors map[string]string `json:"colors"`
		Up     string            `json:"up"`
		Down   string            `json:"down"`
	} `json:"display"`

	RetentionDays int `json:"retention_days"`

	Cleanup struct {
		Enabled bool   `json:"enabled"`
		RunAt   string `json:"run_at"`
	} `json:"cleanup"`

	Archive struct {
		Enabled bool   `json:"enabled"`
		Dir     string `json:"dir"`
	} `json:"archive"`
}

// toConfigView leaves out credentials.
func toConfigView(cfg config.Config) configView {
	var v configView
	v.DBPath = cfg.DBPath
	v.Tickers = cfg.Tickers
	v.Provider = cfg.Provider
	v.RefreshSeconds = cfg.RefreshSeconds
	v.Market.Timezone = cfg.Market.Timezone
	v.Market.Open = cfg.Market.Open
	v.Market.Close = cfg.Market.Close
	v.HolidaySource = cfg.Holidays.Source
	v.Display.Mode = cfg.Display.Mode
	v.Display.Colors = cfg.Display.Colors
	v.Display.Up = cfg.Display.Up
	v.Display.Down = cfg.Display.Down
	v.RetentionDays = cfg.RetentionDays
	v.Cleanup.Enabled = cfg.Cleanup.Enabled == nil || *cfg.Cleanup.Enabled
	v.Cleanup.RunAt = cfg.Cleanup.RunAt
	v.Archive.Enabled = cfg.Archive.Enabled
	v.Archive.Dir = cfg.Archive.Dir
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func parseLimit(s string, def, max int) int {
	if s == "" {
		return def
	}
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
