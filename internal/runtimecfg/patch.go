package runtimecfg

import (
	"strings"

	"github.com/pcdogyu/market-dashboard/internal/config"
)

// Patch is a partial update for settings exposed in the web UI.
// Fields are pointers so "not set" can be distinguished from zero values.
type Patch struct {
	Tickers        []string          `json:"tickers,omitempty"`
	RefreshSeconds *int              `json:"refresh_seconds,omitempty"`
	Colors         map[string]string `json:"colors,omitempty"`

	RetentionDays  *int  `json:"retention_days,omitempty"`
	CleanupEnabled *bool `json:"cleanup_enabled,omitempty"`
	ArchiveEnabled *bool `json:"archive_enabled,omitempty"`
}

func (p Patch) Apply(cfg *config.Config) {
	if p.Tickers != nil {
		cfg.Tickers = p.Tickers
	}
	if p.RefreshSeconds != nil {
		cfg.RefreshSeconds = *p.RefreshSeconds
	}
	for k, v := range p.Colors {
		if cfg.Display.Colors == nil {
			cfg.Display.Colors = make(map[string]string)
		}
		cfg.Display.Colors[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	if p.RetentionDays != nil {
		cfg.RetentionDays = *p.RetentionDays
	}
	if p.CleanupEnabled != nil {
		v := *p.CleanupEnabled
		cfg.Cleanup.Enabled = &v
	}
	if p.ArchiveEnabled != nil {
		cfg.Archive.Enabled = *p.ArchiveEnabled
	}
}
