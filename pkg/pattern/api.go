package pattern

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Engine compiles templates with a shared configuration, function registry,
// resolver and debug hook, and caches templates compiled from files.
// An Engine is safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	config   *Config
	cache    *TemplateCache
	registry *DefaultFunctionRegistry
	resolver Resolver
	hook     DebugHook
	logger   *Logger
}

// New creates a new engine with the global configuration.
func New() *Engine {
	return NewWithConfig(GetGlobalConfig())
}

// NewWithConfig creates a new engine with a custom configuration.
func NewWithConfig(config *Config) *Engine {
	return NewWithOptions(WithConfig(config))
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig sets the engine configuration. Unset fields take their defaults.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = NewConfigWithDefaults(config)
	}
}

// WithCache sets the cache size (0 disables caching).
func WithCache(maxSize int) Option {
	return func(e *Engine) {
		e.config.CacheMaxSize = maxSize
	}
}

// WithResolver replaces the path resolver used by compiled templates.
func WithResolver(r Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithDebugHook installs the observer for <:debug:...> probes.
func WithDebugHook(hook DebugHook) Option {
	return func(e *Engine) {
		e.hook = hook
	}
}

// WithLogger sets the logger used for compile and runtime messages.
func WithLogger(logger *Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFunction registers a custom condition function.
func WithFunction(fn Function) Option {
	return func(e *Engine) {
		e.registry.RegisterFunction(fn)
	}
}

// NewWithOptions creates a new engine with the specified options.
func NewWithOptions(opts ...Option) *Engine {
	e := &Engine{
		config:   NewConfigWithDefaults(GetGlobalConfig()),
		registry: NewChildRegistry(GetDefaultFunctionRegistry()),
		resolver: DefaultResolver,
		hook:     noopHook,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = GetLogger()
	}
	if e.hook == nil {
		e.hook = noopHook
	}
	if e.resolver == nil {
		e.resolver = DefaultResolver
	}
	e.cache = NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: e.config.CacheMaxSize,
		TTL:     e.config.CacheTTL,
	})
	return e
}

func (e *Engine) settings() *compileSettings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return &compileSettings{
		config:   e.config,
		resolver: e.resolver,
		funcs:    e.registry,
		hook:     e.hook,
		logger:   e.logger,
	}
}

// Compile compiles a pattern. root is the initial data root: names that are
// not declared in vars are looked up there. Calls whose target is found in
// root as a compiled template are checked at compile time.
func (e *Engine) Compile(id string, root interface{}, vars, text string) (*Template, error) {
	return compile(id, root, vars, text, e.settings())
}

// CompileFile compiles the pattern stored at path, using the file name as
// the template identifier. Templates compiled without a root are cached by path
// and variable list; with a root the result depends on it and is not cached.
func (e *Engine) CompileFile(path string, root interface{}, vars string) (*Template, error) {
	load := func() (*Template, error) {
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, WithContext(err, "read template", map[string]interface{}{"path": path})
		}
		tmpl, err := e.Compile(filepath.Base(path), root, vars, string(text))
		if err != nil {
			return nil, WithContext(err, "compile template", map[string]interface{}{"path": path})
		}
		return tmpl, nil
	}

	if root != nil {
		return load()
	}
	return e.cache.GetOrCompile(path+"\x00"+vars, load)
}

// MustCompile is like Compile but panics on error.
func (e *Engine) MustCompile(id string, root interface{}, vars, text string) *Template {
	tmpl, err := e.Compile(id, root, vars, text)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// RegisterFunction adds a custom function for conditions compiled by this
// engine afterwards.
func (e *Engine) RegisterFunction(fn Function) error {
	if fn == nil {
		return fmt.Errorf("function cannot be nil")
	}
	return e.registry.RegisterFunction(fn)
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config
}

// SetConfig updates the engine's configuration for later compiles. The cache
// keeps its size.
func (e *Engine) SetConfig(config *Config) {
	e.mu.Lock()
	e.config = NewConfigWithDefaults(config)
	e.mu.Unlock()
}

// ClearCache removes all templates from the cache.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// CacheStats reports how often CompileFile was served from the cache.
func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}

// Close releases the engine's cached templates.
func (e *Engine) Close() error {
	e.cache.Clear()
	return nil
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// DefaultEngine returns the shared engine used by the package-level functions.
func DefaultEngine() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// Compile compiles a pattern with the default engine.
func Compile(id string, root interface{}, vars, text string) (*Template, error) {
	return DefaultEngine().Compile(id, root, vars, text)
}

// MustCompile compiles a pattern with the default engine and panics on error.
func MustCompile(id string, root interface{}, vars, text string) *Template {
	return DefaultEngine().MustCompile(id, root, vars, text)
}

// CompileFile compiles a pattern file with the default engine.
func CompileFile(path string, root interface{}, vars string) (*Template, error) {
	return DefaultEngine().CompileFile(path, root, vars)
}

// RegisterGlobalFunction adds a custom function to the default engine.
func RegisterGlobalFunction(fn Function) error {
	return DefaultEngine().RegisterFunction(fn)
}

// ClearCache clears the default engine's template cache.
func ClearCache() {
	DefaultEngine().ClearCache()
}
