package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pyrun/internal/pysyntax"
)

// Config holds all pyrun configuration.
// It is built once at startup and passed by value afterwards.
type Config struct {
	// Interpreter used to run staged scripts
	Python PythonConfig `yaml:"python"`

	// Where staged scripts are written
	Staging StagingConfig `yaml:"staging"`

	// Names and markers emitted into synthesized scripts
	Script ScriptConfig `yaml:"script"`

	// Interactive function chooser
	Chooser ChooserConfig `yaml:"chooser"`

	// Run history database
	History HistoryConfig `yaml:"history"`

	// Watch mode
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// StateDir holds the history database and the logs directory.
	StateDir string `yaml:"state_dir"`
}

// PythonConfig configures the interpreter command line.
type PythonConfig struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`
}

// StagingConfig configures the staging directory and its two well-known files.
type StagingConfig struct {
	Dir           string `yaml:"dir"`
	SelectionFile string `yaml:"selection_file"`
	FunctionFile  string `yaml:"function_file"`
}

// ChooserConfig configures the function chooser.
type ChooserConfig struct {
	Prompt string `yaml:"prompt"`
}

// HistoryConfig configures the run history.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	Limit   int  `yaml:"limit"` // default row count for `pyrun history`
	Keep    int  `yaml:"keep"`  // rows retained after each run; 0 keeps everything
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Python: PythonConfig{
			Binary: "python3",
			Args:   []string{"-u"},
		},
		Staging: StagingConfig{
			Dir:           DefaultStagingDir(),
			SelectionFile: "selection.py",
			FunctionFile:  "function.py",
		},
		Script: DefaultScriptConfig(),
		Chooser: ChooserConfig{
			Prompt: "Run function:",
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   20,
			Keep:    500,
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		StateDir: DefaultStateDir(),
	}
}

// DefaultPath returns <user config dir>/pyrun/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".pyrun", "config.yaml")
	}
	return filepath.Join(dir, "pyrun", "config.yaml")
}

// DefaultStateDir returns <user cache dir>/pyrun.
func DefaultStateDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "pyrun")
}

// DefaultStagingDir returns <user cache dir>/pyrun/staging.
func DefaultStagingDir() string {
	return filepath.Join(DefaultStateDir(), "staging")
}

// Load loads configuration from a YAML file over the defaults, then applies
// .env and environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	_ = godotenv.Load()
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if bin := os.Getenv("PYRUN_PYTHON"); bin != "" {
		c.Python.Binary = bin
	}
	if dir := os.Getenv("PYRUN_STAGING_DIR"); dir != "" {
		c.Staging.Dir = dir
	}
	if dir := os.Getenv("PYRUN_STATE_DIR"); dir != "" {
		c.StateDir = dir
	}
	if v := os.Getenv("PYRUN_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if level := os.Getenv("PYRUN_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if v := os.Getenv("PYRUN_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.History.Enabled = b
		}
	}
}

// GetWatchDebounce returns the watch debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// HistoryPath returns the run history database path.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.StateDir, "history.db")
}

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Python.Binary) == "" {
		return fmt.Errorf("python.binary must not be empty")
	}
	if c.Staging.Dir == "" {
		return fmt.Errorf("staging.dir must not be empty")
	}
	for _, name := range []string{c.Staging.SelectionFile, c.Staging.FunctionFile} {
		if name == "" || name != filepath.Base(name) {
			return fmt.Errorf("invalid staging file name %q", name)
		}
	}
	if c.Staging.SelectionFile == c.Staging.FunctionFile {
		return fmt.Errorf("staging.selection_file and staging.function_file must differ")
	}
	if err := c.Script.Validate(); err != nil {
		return err
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history.limit must not be negative: %d", c.History.Limit)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("history.keep must not be negative: %d", c.History.Keep)
	}
	if c.Watch.Debounce != "" {
		if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d <= 0 {
			return fmt.Errorf("invalid watch.debounce %q", c.Watch.Debounce)
		}
	}

	validLevel := c.Logging.Level == ""
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}

	return nil
}

// checkIdentifier reports a config field that must be a Python name.
func checkIdentifier(field, value string) error {
	if !pysyntax.IsIdentifier(value) {
		return fmt.Errorf("%s must be a Python identifier, got %q", field, value)
	}
	return nil
}
