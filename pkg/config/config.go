package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/osd-activate/pkg/activate"
	"github.com/cuemby/osd-activate/pkg/canonical"
	"github.com/cuemby/osd-activate/pkg/log"
	"github.com/cuemby/osd-activate/pkg/mount"
	"github.com/cuemby/osd-activate/pkg/storage"
	"github.com/cuemby/osd-activate/pkg/types"
)

const (
	// DefaultPath is read when no --config flag is given
	DefaultPath = "/etc/ceph/osd-activate.yaml"
)

// Config is the on-disk configuration of osd-activate
type Config struct {
	OSDRoot     string `yaml:"osd_root"`
	TmpRoot     string `yaml:"tmp_root"`
	ActivateKey string `yaml:"activate_key"`
	Init        string `yaml:"init"`

	// MountOptions overrides mount options per filesystem type, ahead of
	// anything the cluster configuration says
	MountOptions map[string]string `yaml:"mount_options"`

	// Empty disables the ledger
	LedgerPath string `yaml:"ledger_path"`

	// Empty disables the textfile export
	MetricsTextfile string `yaml:"metrics_textfile"`

	Log LogConfig `yaml:"log"`
}

// LogConfig is the logging section of the configuration
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		OSDRoot:     canonical.DefaultRoot,
		TmpRoot:     mount.DefaultTmpRoot,
		ActivateKey: activate.DefaultKeyringTemplate,
		LedgerPath:  storage.DefaultPath,
		Log: LogConfig{
			Level: string(log.InfoLevel),
		},
	}
}

// Load reads the configuration at path over the defaults. A missing file
// yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside an activation
func (c *Config) Validate() error {
	roots := []struct {
		key   string
		value string
	}{
		{"osd_root", c.OSDRoot},
		{"tmp_root", c.TmpRoot},
	}
	for _, r := range roots {
		if r.value == "" || !filepath.IsAbs(r.value) {
			return fmt.Errorf("%s must be an absolute path, got %q", r.key, r.value)
		}
	}

	if _, err := types.ParseInitSystem(c.Init); err != nil {
		return err
	}
	if c.Log.Level != "" && log.ParseLevel(c.Log.Level) != log.Level(c.Log.Level) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	return nil
}

// InitSystem returns the configured init system selection
func (c *Config) InitSystem() types.InitSystem {
	initSys, _ := types.ParseInitSystem(c.Init)
	return initSys
}

// LoggerConfig returns the logger configuration
func (c *Config) LoggerConfig() log.Config {
	return log.Config{
		Level:      log.ParseLevel(c.Log.Level),
		JSONOutput: c.Log.JSON,
	}
}
