package pattern

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.CacheMaxSize != 100 {
		t.Errorf("DefaultConfig CacheMaxSize = %d, want 100", config.CacheMaxSize)
	}
	if config.CacheTTL != 0 {
		t.Errorf("DefaultConfig CacheTTL = %v, want 0", config.CacheTTL)
	}
	if config.LogLevel != "info" {
		t.Errorf("DefaultConfig LogLevel = %s, want info", config.LogLevel)
	}
	if config.MaxCallDepth != 100 {
		t.Errorf("DefaultConfig MaxCallDepth = %d, want 100", config.MaxCallDepth)
	}
	if config.MaxNesting != 64 {
		t.Errorf("DefaultConfig MaxNesting = %d, want 64", config.MaxNesting)
	}
	if config.StrictMode {
		t.Errorf("DefaultConfig StrictMode = true, want false")
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, config *Config)
	}{
		{
			name:    "cache max size",
			envVars: map[string]string{"PATTERN_CACHE_MAX_SIZE": "50"},
			check: func(t *testing.T, config *Config) {
				if config.CacheMaxSize != 50 {
					t.Errorf("CacheMaxSize = %d, want 50", config.CacheMaxSize)
				}
			},
		},
		{
			name:    "cache TTL",
			envVars: map[string]string{"PATTERN_CACHE_TTL": "5m"},
			check: func(t *testing.T, config *Config) {
				if config.CacheTTL != 5*time.Minute {
					t.Errorf("CacheTTL = %v, want 5m", config.CacheTTL)
				}
			},
		},
		{
			name: "depth limits",
			envVars: map[string]string{
				"PATTERN_MAX_CALL_DEPTH": "7",
				"PATTERN_MAX_NESTING":    "9",
			},
			check: func(t *testing.T, config *Config) {
				if config.MaxCallDepth != 7 || config.MaxNesting != 9 {
					t.Errorf("MaxCallDepth = %d, MaxNesting = %d", config.MaxCallDepth, config.MaxNesting)
				}
			},
		},
		{
			name:    "strict mode",
			envVars: map[string]string{"PATTERN_STRICT_MODE": "yes"},
			check: func(t *testing.T, config *Config) {
				if !config.StrictMode {
					t.Error("StrictMode = false, want true")
				}
			},
		},
		{
			name:    "invalid number keeps default",
			envVars: map[string]string{"PATTERN_CACHE_MAX_SIZE": "lots"},
			check: func(t *testing.T, config *Config) {
				if config.CacheMaxSize != 100 {
					t.Errorf("CacheMaxSize = %d, want default 100", config.CacheMaxSize)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			tt.check(t, ConfigFromEnvironment())
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"negative cache", func(c *Config) { c.CacheMaxSize = -1 }, "cache max size"},
		{"negative ttl", func(c *Config) { c.CacheTTL = -time.Second }, "cache TTL"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"zero call depth", func(c *Config) { c.MaxCallDepth = 0 }, "max call depth"},
		{"zero nesting", func(c *Config) { c.MaxNesting = 0 }, "max nesting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewConfigWithDefaults(t *testing.T) {
	config := NewConfigWithDefaults(&Config{CacheMaxSize: 5, StrictMode: true})

	if config.CacheMaxSize != 5 || !config.StrictMode {
		t.Errorf("overrides lost: %+v", config)
	}
	if config.LogLevel != "info" || config.MaxCallDepth != 100 || config.MaxNesting != 64 {
		t.Errorf("defaults not applied: %+v", config)
	}
	if NewConfigWithDefaults(nil).MaxNesting != 64 {
		t.Error("nil overrides should yield the defaults")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "pattern.toml", `
[engine]
cache-max-size = 0
cache-ttl = "90s"
log-level = "DEBUG"
max-call-depth = 12
strict-mode = true

[templates.header]
file = "header.pat"
vars = "title, date"

[templates.footer]
file = "/abs/footer.pat"
`)

	cf, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}

	config, err := cf.Config(nil)
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if config.CacheMaxSize != 0 {
		t.Errorf("CacheMaxSize = %d, want explicit 0", config.CacheMaxSize)
	}
	if config.CacheTTL != 90*time.Second {
		t.Errorf("CacheTTL = %v, want 90s", config.CacheTTL)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", config.LogLevel)
	}
	if config.MaxCallDepth != 12 || config.MaxNesting != 64 {
		t.Errorf("MaxCallDepth = %d, MaxNesting = %d", config.MaxCallDepth, config.MaxNesting)
	}
	if !config.StrictMode {
		t.Error("StrictMode = false, want true")
	}

	if spec := cf.Templates["header"]; spec.Vars != "title, date" {
		t.Errorf("header vars = %q", spec.Vars)
	}
	if got, ok := cf.TemplatePath("header"); !ok || got != filepath.Join(cf.Dir, "header.pat") {
		t.Errorf("TemplatePath(header) = %q, %v", got, ok)
	}
	if got, _ := cf.TemplatePath("footer"); got != "/abs/footer.pat" {
		t.Errorf("TemplatePath(footer) = %q", got)
	}
	if _, ok := cf.TemplatePath("missing"); ok {
		t.Error("TemplatePath(missing) found a template")
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfigFile(filepath.Join(dir, "absent.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := writeFile(t, dir, "bad.toml", "[engine\n")
	if _, err := LoadConfigFile(bad); err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("LoadConfigFile(bad) error = %v", err)
	}

	invalid := writeFile(t, dir, "invalid.toml", "[engine]\nlog-level = \"chatty\"\n")
	cf, err := LoadConfigFile(invalid)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cf.Config(nil); err == nil {
		t.Error("expected validation error for unknown log level")
	}

	ttl := writeFile(t, dir, "ttl.toml", "[engine]\ncache-ttl = \"soon\"\n")
	cf, err = LoadConfigFile(ttl)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cf.Config(nil); err == nil || !strings.Contains(err.Error(), "cache-ttl") {
		t.Errorf("Config() error = %v", err)
	}
}

func TestEngineHonoursConfigFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "pattern.toml", "[engine]\nmax-nesting = 1\n")
	cf, err := LoadConfigFile(p)
	if err != nil {
		t.Fatal(err)
	}
	config, err := cf.Config(nil)
	if err != nil {
		t.Fatal(err)
	}

	e, _ := newTestEngine(t, WithConfig(config))
	if _, err := e.Compile("deep", nil, "a", "<:if:a><:if:a>x<.if><.if>"); err == nil {
		t.Error("expected nesting limit from the config file")
	}
}

func TestGlobalConfig(t *testing.T) {
	saved := GetGlobalConfig()
	t.Cleanup(func() { SetGlobalConfig(saved) })

	SetGlobalConfig(&Config{CacheMaxSize: 3, LogLevel: "error"})
	got := GetGlobalConfig()
	if got.CacheMaxSize != 3 || got.MaxCallDepth != 100 {
		t.Errorf("GetGlobalConfig() = %+v", got)
	}
	if GetLogger().Level() != LogError {
		t.Errorf("global logger level = %v, want ERROR", GetLogger().Level())
	}

	// callers get a copy
	got.CacheMaxSize = 99
	if GetGlobalConfig().CacheMaxSize != 3 {
		t.Error("GetGlobalConfig() returned shared state")
	}
}
