// Package config carries the process level configuration surface: which
// languages to emit, where translation data lives, and how logging and the
// worker pool behave. Values come from the environment, optionally overlaid
// on a YAML file.
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type contextKey string

func (c contextKey) String() string {
	return "nls/config/" + string(c)
}

const ctxKeyConfiguration = contextKey("configurationKey")

// ToContext adds configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

// FromFile loads configuration from a YAML file and then lets environment
// variables override it.
func FromFile[T any](path string) (T, error) {
	var cfg T
	data, err := os.ReadFile(path) // #nosec G304 -- the config path is operator supplied.
	if err != nil {
		return cfg, err
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err = env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type ConfigurationDefault struct {
	LogLevel          string `envDefault:"info"                      env:"LOG_LEVEL"            yaml:"log_level"`
	LogTimeFormat     string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT"      yaml:"log_time_format"`
	LogColored        bool   `envDefault:"true"                      env:"LOG_COLORED"          yaml:"log_colored"`
	LogShowStackTrace bool   `envDefault:"false"                     env:"LOG_SHOW_STACK_TRACE" yaml:"log_show_stack_trace"`

	Languages       []string `env:"NLS_LANGUAGES"                          yaml:"languages"`
	TranslationsDir string   `envDefault:"i18n" env:"NLS_TRANSLATIONS_DIR" yaml:"translations_dir"`
	ContentBaseDir  string   `env:"NLS_CONTENT_BASE_DIR"                   yaml:"content_base_dir"`
	EmitFlattened   bool     `envDefault:"false" env:"NLS_EMIT_FLATTENED"  yaml:"emit_flattened"`

	WorkerPoolCPUFactorForWorkerCount int    `envDefault:"1"   env:"WORKER_POOL_CPU_FACTOR_FOR_WORKER_COUNT" yaml:"worker_pool_cpu_factor_for_worker_count"`
	WorkerPoolCapacity                int    `envDefault:"100" env:"WORKER_POOL_CAPACITY"                    yaml:"worker_pool_capacity"`
	WorkerPoolCount                   int    `envDefault:"1"   env:"WORKER_POOL_COUNT"                       yaml:"worker_pool_count"`
	WorkerPoolExpiryDuration          string `envDefault:"1s"  env:"WORKER_POOL_EXPIRY_DURATION"             yaml:"worker_pool_expiry_duration"`
}

type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingTimeFormat() string
	LoggingColored() bool
	LoggingShowStackTrace() bool
	LoggingLevelIsDebug() bool
}

var _ ConfigurationLogLevel = new(ConfigurationDefault)

func (c *ConfigurationDefault) LoggingLevel() string {
	return c.LogLevel
}

func (c *ConfigurationDefault) LoggingTimeFormat() string {
	return c.LogTimeFormat
}

func (c *ConfigurationDefault) LoggingColored() bool {
	return c.LogColored
}

func (c *ConfigurationDefault) LoggingShowStackTrace() bool {
	return c.LogShowStackTrace
}

func (c *ConfigurationDefault) LoggingLevelIsDebug() bool {
	return c.LoggingLevel() == "debug" || c.LoggingLevel() == "trace"
}

// ConfigurationLocalization exposes the pipeline's translation surface: the
// requested language list, the translation data root, the optional content
// scope inside each language folder, and the flattened output toggle.
type ConfigurationLocalization interface {
	LanguageList() []string
	TranslationsBaseDir() string
	ContentDir() string
	FlattenedOutput() bool
}

var _ ConfigurationLocalization = new(ConfigurationDefault)

func (c *ConfigurationDefault) LanguageList() []string {
	return c.Languages
}

func (c *ConfigurationDefault) TranslationsBaseDir() string {
	return c.TranslationsDir
}

func (c *ConfigurationDefault) ContentDir() string {
	return c.ContentBaseDir
}

func (c *ConfigurationDefault) FlattenedOutput() bool {
	return c.EmitFlattened
}

type ConfigurationWorkerPool interface {
	GetCPUFactor() int
	GetCapacity() int
	GetCount() int
	GetExpiryDuration() time.Duration
}

var _ ConfigurationWorkerPool = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetCPUFactor() int {
	return c.WorkerPoolCPUFactorForWorkerCount
}

func (c *ConfigurationDefault) GetCapacity() int {
	return c.WorkerPoolCapacity
}

func (c *ConfigurationDefault) GetCount() int {
	return c.WorkerPoolCount
}

func (c *ConfigurationDefault) GetExpiryDuration() time.Duration {
	if c.WorkerPoolExpiryDuration != "" {
		duration, err := time.ParseDuration(c.WorkerPoolExpiryDuration)
		if err == nil {
			return duration
		}
	}

	return time.Second
}
