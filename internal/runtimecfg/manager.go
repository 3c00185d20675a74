package runtimecfg

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pcdogyu/market-dashboard/internal/config"
)

// Manager holds the live config. Readers call Get on every use, so a
// successful Update takes effect on the next refresh tick.
//
// The file config is kept apart from the live one so that environment
// overrides are never written back to disk.
type Manager struct {
	path string
	mu   sync.RWMutex
	file config.Config
	cfg  config.Config
}

func Load(path string) (*Manager, error) {
	file, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(file)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, file: file, cfg: cfg}, nil
}

// NewStatic wraps cfg without a backing file; updates are kept in memory only.
func NewStatic(cfg config.Config) *Manager {
	return &Manager{file: cfg, cfg: cfg}
}

func (m *Manager) Get() config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Update applies p to the file config, validates, writes the YAML back, and
// re-derives the live config with environment overrides on top. Credentials
// are never written since they carry yaml:"-".
func (m *Manager) Update(p Patch) (config.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := m.file
	file.Tickers = append([]string(nil), m.file.Tickers...)
	file.Display.Colors = copyColors(m.file.Display.Colors)
	p.Apply(&file)
	if err := config.NormalizeAndValidate(&file); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Resolve(file)
	if err != nil {
		return config.Config{}, err
	}

	if m.path != "" {
		if err := save(m.path, file); err != nil {
			return config.Config{}, err
		}
	}
	m.file = file
	m.cfg = cfg
	return cfg, nil
}

func save(path string, cfg config.Config) error {
	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func copyColors(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
