package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FINNHUB_API_KEY", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
		"MDASH_DB_PATH", "MDASH_TIMEZONE", "MDASH_TICKERS", "MDASH_REFRESH_SECONDS", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Tickers, []string{"SPY", "DIA", "QQQ"}) {
		t.Fatalf("tickers = %v", cfg.Tickers)
	}
	if cfg.RefreshSeconds != 300 {
		t.Fatalf("refresh = %d", cfg.RefreshSeconds)
	}
	if cfg.Market.Timezone != "America/Chicago" || cfg.Market.Open != "08:30" || cfg.Market.Close != "15:00" {
		t.Fatalf("market = %+v", cfg.Market)
	}
	if cfg.Holidays.Source != "rules" || cfg.Display.Mode != "tui" || cfg.Provider != "finnhub" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Display.Colors["SPY"] != "#1f77b4" {
		t.Fatalf("colors = %v", cfg.Display.Colors)
	}
	s, err := cfg.Session()
	if err != nil || s.String() != "08:30-15:00" {
		t.Fatalf("session = %v err=%v", s, err)
	}
}

func TestLoadNormalizesTickers(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "tickers: [aapl, ' msft ', AAPL]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Tickers, []string{"AAPL", "MSFT"}) {
		t.Fatalf("tickers = %v", cfg.Tickers)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FINNHUB_API_KEY", "k123")
	t.Setenv("MDASH_TICKERS", "iwm,spy")
	t.Setenv("MDASH_REFRESH_SECONDS", "60")
	t.Setenv("MDASH_TIMEZONE", "America/New_York")
	cfg, err := Load(writeConfig(t, "tickers: [QQQ]\nrefresh_seconds: 300\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Finnhub.APIKey != "k123" {
		t.Fatalf("api key not applied")
	}
	if !reflect.DeepEqual(cfg.Tickers, []string{"IWM", "SPY"}) {
		t.Fatalf("tickers = %v", cfg.Tickers)
	}
	if cfg.RefreshSeconds != 60 || cfg.Market.Timezone != "America/New_York" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	t.Setenv("MDASH_REFRESH_SECONDS", "soon")
	if _, err := Load(writeConfig(t, "{}\n")); err == nil {
		t.Fatalf("expected error for bad MDASH_REFRESH_SECONDS")
	}
}

func TestHolidayYearRange(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if from, to := cfg.Holidays.Range(2026); from != 2025 || to != 2029 {
		t.Fatalf("default range = %d-%d", from, to)
	}

	cfg, err = Load(writeConfig(t, "holidays: {years_back: 0, years_ahead: 0}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if from, to := cfg.Holidays.Range(2026); from != 2026 || to != 2026 {
		t.Fatalf("explicit zero range = %d-%d", from, to)
	}
}

func TestResolveLeavesFileUntouched(t *testing.T) {
	clearEnv(t)
	t.Setenv("MDASH_DB_PATH", "/tmp/env.db")
	file, err := LoadFile(writeConfig(t, "db_path: data/file.db\ntickers: [spy]\n"))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := Resolve(file)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/env.db" || !reflect.DeepEqual(cfg.Tickers, []string{"SPY"}) {
		t.Fatalf("resolved = %s %v", cfg.DBPath, cfg.Tickers)
	}
	if file.DBPath != "data/file.db" || file.Tickers[0] != "spy" || file.Display.Colors != nil {
		t.Fatalf("file config modified: %+v", file)
	}
}

func TestValidationErrors(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"bad session":  "market: {open: '16:00', close: '09:00'}\n",
		"bad provider": "provider: yahoo\n",
		"bad source":   "holidays: {source: web}\n",
		"bad mode":     "display: {mode: lcd}\n",
		"bad ticker":   "tickers: ['S P Y']\n",
		"neg refresh":  "refresh_seconds: -5\n",
		"bad run_at":   "cleanup: {run_at: '3am'}\n",
		"neg years":    "holidays: {years_back: -1}\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := Config{}
	if err := NormalizeAndValidate(&cfg); err != nil {
		t.Fatal(err)
	}
	err := RequireCredentials(cfg)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
	cfg.Finnhub.APIKey = "x"
	if err := RequireCredentials(cfg); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	cfg.Holidays.Source = "alpaca"
	if err := RequireCredentials(cfg); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("alpaca calendar without keys: err = %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
	p := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(p, []byte("FINNHUB_API_KEY=fromfile\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set, so unset first.
	os.Unsetenv("FINNHUB_API_KEY")
	if err := LoadEnvFile(p); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("FINNHUB_API_KEY"); got != "fromfile" {
		t.Fatalf("FINNHUB_API_KEY = %q", got)
	}
	os.Unsetenv("FINNHUB_API_KEY")
}
