package pattern

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/toml"
)

// Config contains all configuration options for the pattern engine
type Config struct {
	// CacheMaxSize is the maximum number of compiled templates to cache. 0 disables caching.
	CacheMaxSize int
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string
	// MaxCallDepth bounds how deeply <:call:...> may nest at execution time
	MaxCallDepth int
	// MaxNesting bounds how deeply if/for blocks may nest in one pattern
	MaxNesting int
	// StrictMode rejects, at compile time, references to names that are neither
	// declared variables nor resolvable in the initial data root
	StrictMode bool
}

var (
	globalConfig     atomic.Pointer[Config]
	globalConfigOnce sync.Once
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize: 100,
		LogLevel:     "info",
		MaxCallDepth: 100,
		MaxNesting:   64,
	}
}

// envSettings apply PATTERN_* variables. A value that does not parse leaves
// the field alone.
var envSettings = map[string]func(c *Config, val string){
	"PATTERN_CACHE_MAX_SIZE": func(c *Config, val string) { setInt(&c.CacheMaxSize, val) },
	"PATTERN_CACHE_TTL": func(c *Config, val string) {
		if d, err := time.ParseDuration(val); err == nil {
			c.CacheTTL = d
		}
	},
	"PATTERN_LOG_LEVEL":      func(c *Config, val string) { c.LogLevel = val },
	"PATTERN_MAX_CALL_DEPTH": func(c *Config, val string) { setInt(&c.MaxCallDepth, val) },
	"PATTERN_MAX_NESTING":    func(c *Config, val string) { setInt(&c.MaxNesting, val) },
	"PATTERN_STRICT_MODE":    func(c *Config, val string) { c.StrictMode = parseBool(val) },
}

func setInt(dst *int, val string) {
	if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
		*dst = n
	}
}

// ConfigFromEnvironment returns the default configuration with the PATTERN_*
// environment variables applied.
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()
	for name, apply := range envSettings {
		if val, ok := os.LookupEnv(name); ok && val != "" {
			apply(config, val)
		}
	}
	return config
}

// NewConfigWithDefaults copies overrides and fills its zero fields from
// DefaultConfig. Zero cache settings are kept, since they mean "disabled"
// and "no expiry".
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()
	if overrides == nil {
		return defaults
	}

	config := *overrides
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.MaxCallDepth == 0 {
		config.MaxCallDepth = defaults.MaxCallDepth
	}
	if config.MaxNesting == 0 {
		config.MaxNesting = defaults.MaxNesting
	}
	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch {
	case c.CacheMaxSize < 0:
		return errors.New("cache max size cannot be negative")
	case c.CacheTTL < 0:
		return errors.New("cache TTL cannot be negative")
	case c.MaxCallDepth <= 0:
		return errors.New("max call depth must be positive")
	case c.MaxNesting <= 0:
		return errors.New("max nesting must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "off":
		return nil
	}
	return errors.New("invalid log level: " + c.LogLevel)
}

// GetGlobalConfig returns a copy of the process-wide configuration, read
// from the environment on first use.
func GetGlobalConfig() *Config {
	globalConfigOnce.Do(func() {
		globalConfig.CompareAndSwap(nil, ConfigFromEnvironment())
	})
	config := *globalConfig.Load()
	return &config
}

// SetGlobalConfig replaces the process-wide configuration and applies its
// log level to the global logger.
func SetGlobalConfig(config *Config) {
	globalConfigOnce.Do(func() {})
	globalConfig.Store(NewConfigWithDefaults(config))
	UpdateLoggerFromConfig()
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// ConfigFile is the on-disk TOML form of the engine configuration. Besides
// engine settings it can name library templates that other templates call.
//
//	[engine]
//	log-level = "debug"
//	cache-ttl = "5m"
//
//	[templates.header]
//	file = "header.pat"
//	vars = "title, date"
type ConfigFile struct {
	Engine    EngineSection           `toml:"engine"`
	Templates map[string]TemplateSpec `toml:"templates"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// EngineSection mirrors Config with TOML-friendly field types.
type EngineSection struct {
	CacheMaxSize *int   `toml:"cache-max-size"`
	CacheTTL     string `toml:"cache-ttl"`
	LogLevel     string `toml:"log-level"`
	MaxCallDepth int    `toml:"max-call-depth"`
	MaxNesting   int    `toml:"max-nesting"`
	StrictMode   bool   `toml:"strict-mode"`
}

// TemplateSpec names a template file and its declared variables.
type TemplateSpec struct {
	File string `toml:"file"`
	Vars string `toml:"vars"`
}

// LoadConfigFile parses a TOML configuration file.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var cf ConfigFile
	if _, err := toml.Decode(string(data), &cf); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	cf.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	return &cf, nil
}

// Config applies the [engine] section on top of base (DefaultConfig when
// nil) and validates the result.
func (cf *ConfigFile) Config(base *Config) (*Config, error) {
	if base == nil {
		base = DefaultConfig()
	}
	config := *base
	e := cf.Engine

	if e.CacheMaxSize != nil {
		config.CacheMaxSize = *e.CacheMaxSize
	}
	if e.CacheTTL != "" {
		ttl, err := time.ParseDuration(e.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid cache-ttl %q: %w", e.CacheTTL, err)
		}
		config.CacheTTL = ttl
	}
	if e.LogLevel != "" {
		config.LogLevel = strings.ToLower(e.LogLevel)
	}
	if e.MaxCallDepth != 0 {
		config.MaxCallDepth = e.MaxCallDepth
	}
	if e.MaxNesting != 0 {
		config.MaxNesting = e.MaxNesting
	}
	if e.StrictMode {
		config.StrictMode = true
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// TemplatePath returns the absolute path of a named library template.
func (cf *ConfigFile) TemplatePath(name string) (string, bool) {
	spec, ok := cf.Templates[name]
	if !ok {
		return "", false
	}
	if filepath.IsAbs(spec.File) {
		return spec.File, true
	}
	return filepath.Join(cf.Dir, spec.File), true
}
