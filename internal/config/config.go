package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pcdogyu/market-dashboard/internal/market"
	"github.com/pcdogyu/market-dashboard/internal/symbol"
)

// ErrMissingAPIKey is returned when the selected provider has no credentials.
var ErrMissingAPIKey = errors.New("missing API key")

type Config struct {
	DBPath         string   `yaml:"db_path"`
	Tickers        []string `yaml:"tickers"`
	Provider       string   `yaml:"provider"` // "finnhub" | "alpaca"
	RefreshSeconds int      `yaml:"refresh_seconds"`

	Market   MarketConfig  `yaml:"market"`
	Holidays HolidayConfig `yaml:"holidays"`
	Finnhub  FinnhubConfig `yaml:"finnhub"`
	Alpaca   AlpacaConfig  `yaml:"alpaca"`
	Display  DisplayConfig `yaml:"display"`
	Web      WebConfig     `yaml:"web"`
	Logging  LoggingConfig `yaml:"logging"`
	Cleanup  CleanupConfig `yaml:"cleanup"`
	Archive  ArchiveConfig `yaml:"archive"`

	RetentionDays int `yaml:"retention_days"`
}

type MarketConfig struct {
	Timezone string `yaml:"timezone"`
	Open     string `yaml:"open"`  // HH:MM in Timezone
	Close    string `yaml:"close"` // HH:MM in Timezone
}

type HolidayConfig struct {
	// Source: "rules" | "finnhub" | "alpaca" | "builtin".
	Source string `yaml:"source"`
	// Nil means the default; 0 is a valid setting.
	YearsBack  *int `yaml:"years_back"`
	YearsAhead *int `yaml:"years_ahead"`
}

// Range returns the calendar years to load around year.
func (h HolidayConfig) Range(year int) (from, to int) {
	from, to = year, year
	if h.YearsBack != nil {
		from -= *h.YearsBack
	}
	if h.YearsAhead != nil {
		to += *h.YearsAhead
	}
	return from, to
}

type FinnhubConfig struct {
	// APIKey only ever comes from the environment.
	APIKey         string `yaml:"-"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RequestGapMS   int    `yaml:"request_gap_ms"`
	MaxAttempts    int    `yaml:"max_attempts"`
}

type AlpacaConfig struct {
	APIKey    string `yaml:"-"`
	APISecret string `yaml:"-"`
	BaseURL   string `yaml:"base_url"`
	Feed      string `yaml:"feed"`
}

type DisplayConfig struct {
	// Mode: "tui" | "web" | "both" | "none".
	Mode   string            `yaml:"mode"`
	Colors map[string]string `yaml:"colors"`
	Up     string            `yaml:"up"`
	Down   string            `yaml:"down"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" | "json"
	File   string `yaml:"file"`
}

type CleanupConfig struct {
	Enabled *bool  `yaml:"enabled"`
	RunAt   string `yaml:"run_at"` // HH:MM in market timezone
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

var defaultColors = map[string]string{
	"SPY": "#1f77b4",
	"DIA": "#ff7f0e",
	"QQQ": "#2ca02c",
}

// Load reads YAML at path, applies environment overrides, then defaults.
func Load(path string) (Config, error) {
	file, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Resolve(file)
}

// LoadFile parses the YAML at path as written, without environment
// overrides or defaults.
func LoadFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve layers the environment over a file config and validates the
// result. file is not modified.
func Resolve(file Config) (Config, error) {
	cfg := file
	cfg.Tickers = append([]string(nil), file.Tickers...)
	if file.Display.Colors != nil {
		cfg.Display.Colors = make(map[string]string, len(file.Display.Colors))
		for k, v := range file.Display.Colors {
			cfg.Display.Colors[k] = v
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := NormalizeAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv copies credentials and well-known overrides from the environment.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Finnhub.APIKey = v
	}
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("MDASH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MDASH_TIMEZONE"); v != "" {
		cfg.Market.Timezone = v
	}
	if v := os.Getenv("MDASH_TICKERS"); v != "" {
		tickers, err := symbol.SplitList(v)
		if err != nil {
			return fmt.Errorf("MDASH_TICKERS: %w", err)
		}
		cfg.Tickers = tickers
	}
	if v := os.Getenv("MDASH_REFRESH_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MDASH_REFRESH_SECONDS: %w", err)
		}
		cfg.RefreshSeconds = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = "data/mdash.db"
	}
	if len(cfg.Tickers) == 0 {
		cfg.Tickers = []string{"SPY", "DIA", "QQQ"}
	}
	if cfg.Provider == "" {
		cfg.Provider = "finnhub"
	}
	if cfg.RefreshSeconds == 0 {
		cfg.RefreshSeconds = 300
	}
	if cfg.Market.Timezone == "" {
		cfg.Market.Timezone = "America/Chicago"
	}
	if cfg.Market.Open == "" {
		cfg.Market.Open = market.DefaultSession.Open.String()
	}
	if cfg.Market.Close == "" {
		cfg.Market.Close = market.DefaultSession.Close.String()
	}
	if cfg.Holidays.Source == "" {
		cfg.Holidays.Source = "rules"
	}
	if cfg.Holidays.YearsBack == nil {
		v := 1
		cfg.Holidays.YearsBack = &v
	}
	if cfg.Holidays.YearsAhead == nil {
		v := 3
		cfg.Holidays.YearsAhead = &v
	}
	if cfg.Finnhub.BaseURL == "" {
		cfg.Finnhub.BaseURL = "https://finnhub.io/api/v1"
	}
	if cfg.Finnhub.TimeoutSeconds == 0 {
		cfg.Finnhub.TimeoutSeconds = 10
	}
	if cfg.Finnhub.RequestGapMS == 0 {
		cfg.Finnhub.RequestGapMS = 200
	}
	if cfg.Finnhub.MaxAttempts == 0 {
		cfg.Finnhub.MaxAttempts = 3
	}
	if cfg.Alpaca.Feed == "" {
		cfg.Alpaca.Feed = "iex"
	}
	if cfg.Display.Mode == "" {
		cfg.Display.Mode = "tui"
	}
	if cfg.Display.Colors == nil {
		cfg.Display.Colors = make(map[string]string, len(defaultColors))
	}
	for k, v := range defaultColors {
		if _, ok := cfg.Display.Colors[k]; !ok {
			cfg.Display.Colors[k] = v
		}
	}
	if cfg.Display.Up == "" {
		cfg.Display.Up = "#1b5e20"
	}
	if cfg.Display.Down == "" {
		cfg.Display.Down = "#7f1d1d"
	}
	if cfg.Web.Addr == "" {
		cfg.Web.Addr = "127.0.0.1:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Cleanup.RunAt == "" {
		cfg.Cleanup.RunAt = "03:10"
	}
	if cfg.Archive.Dir == "" {
		cfg.Archive.Dir = "data/archive"
	}
}

// NormalizeAndValidate applies defaults and checks invariants.
func NormalizeAndValidate(cfg *Config) error {
	applyDefaults(cfg)

	tickers, err := symbol.NormalizeList(cfg.Tickers)
	if err != nil {
		return fmt.Errorf("tickers: %w", err)
	}
	cfg.Tickers = tickers

	if cfg.RefreshSeconds <= 0 {
		return fmt.Errorf("refresh_seconds must be > 0")
	}
	if cfg.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be >= 1")
	}
	if _, err := market.ParseSession(cfg.Market.Open, cfg.Market.Close); err != nil {
		return fmt.Errorf("market: %w", err)
	}
	if _, err := market.ParseTimeOfDay(cfg.Cleanup.RunAt); err != nil {
		return fmt.Errorf("cleanup.run_at: %w", err)
	}

	cfg.Provider = strings.ToLower(cfg.Provider)
	switch cfg.Provider {
	case "finnhub", "alpaca":
	default:
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	cfg.Holidays.Source = strings.ToLower(cfg.Holidays.Source)
	switch cfg.Holidays.Source {
	case "rules", "finnhub", "alpaca", "builtin":
	default:
		return fmt.Errorf("unknown holidays.source %q", cfg.Holidays.Source)
	}
	if *cfg.Holidays.YearsBack < 0 || *cfg.Holidays.YearsAhead < 0 {
		return fmt.Errorf("holidays.years_back/years_ahead must be >= 0")
	}

	cfg.Display.Mode = strings.ToLower(cfg.Display.Mode)
	switch cfg.Display.Mode {
	case "tui", "web", "both", "none":
	default:
		return fmt.Errorf("unknown display.mode %q", cfg.Display.Mode)
	}

	if cfg.Finnhub.MaxAttempts < 1 {
		cfg.Finnhub.MaxAttempts = 1
	}
	if cfg.Finnhub.RequestGapMS < 0 {
		cfg.Finnhub.RequestGapMS = 0
	}
	return nil
}

// RequireCredentials fails when the selected provider, or an API-backed
// holiday source, has no key. Without one no fetch can succeed.
func RequireCredentials(cfg Config) error {
	needFinnhub := cfg.Provider == "finnhub" || cfg.Holidays.Source == "finnhub"
	needAlpaca := cfg.Provider == "alpaca" || cfg.Holidays.Source == "alpaca"
	if needFinnhub && cfg.Finnhub.APIKey == "" {
		return fmt.Errorf("%w: missing FINNHUB_API_KEY environment variable", ErrMissingAPIKey)
	}
	if needAlpaca && (cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "") {
		return fmt.Errorf("%w: missing APCA_API_KEY_ID / APCA_API_SECRET_KEY environment variables", ErrMissingAPIKey)
	}
	return nil
}

// Session parses the configured market window.
func (c Config) Session() (market.Session, error) {
	return market.ParseSession(c.Market.Open, c.Market.Close)
}

// DisplayTUI reports whether the terminal renderer should run.
func (c Config) DisplayTUI() bool { return c.Display.Mode == "tui" || c.Display.Mode == "both" }

// DisplayWeb reports whether the web server should run.
func (c Config) DisplayWeb() bool { return c.Display.Mode == "web" || c.Display.Mode == "both" }
