// Package config loads the updater's runtime configuration.
//
// Values are resolved with the precedence: defaults < config file < environment
// variables (TCY_ prefix) < overrides (usually command line flags).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tcymc/tcy-updater/internal/mirror"
	"github.com/tcymc/tcy-updater/internal/versions"
)

// FileName is the name of the configuration file looked up in the working directory.
const FileName = "tcy-updater.yaml"

const envPrefix = "TCY"

// Configuration keys.
const (
	KeyGameRoot           = "game_root"
	KeyStateFile          = "state_file"
	KeyProvider           = "provider"
	KeyProviderConfig     = "provider_config"
	KeyHistoryURL         = "history_url"
	KeySelfURL            = "self_url"
	KeyUserAgent          = "user_agent"
	KeySource             = "source"
	KeyGatedHost          = "gated_host"
	KeyMirrorPrefix       = "mirror_prefix"
	KeyOrdering           = "ordering"
	KeyInsecureSkipVerify = "insecure_skip_verify"
	KeyRunningVersion     = "running_version"
	KeyTargetVersionName  = "target_version_name"
	KeyRetryAttempts      = "retry.attempts"
	KeyRetryInterval      = "retry.interval"
	KeyTimeoutCheck       = "timeouts.check"
	KeyTimeoutSelfCheck   = "timeouts.self_check"
	KeyLogLevel           = "log.level"
	KeyLogFile            = "log.file"
	KeyServeSocket        = "serve.socket"
	KeyServeAddress       = "serve.address"
	KeyWatchCron          = "watch.cron"
)

// Config holds the runtime configuration.
type Config struct {
	GameRoot       string            `mapstructure:"game_root"       yaml:"game_root"`
	StateFile      string            `mapstructure:"state_file"      yaml:"state_file"`
	Provider       string            `mapstructure:"provider"        yaml:"provider"`
	ProviderConfig map[string]string `mapstructure:"provider_config" yaml:"provider_config"`

	HistoryURL string `mapstructure:"history_url" yaml:"history_url"`
	SelfURL    string `mapstructure:"self_url"    yaml:"self_url"`
	UserAgent  string `mapstructure:"user_agent"  yaml:"user_agent"`

	Source       string `mapstructure:"source"        yaml:"source"`
	GatedHost    string `mapstructure:"gated_host"    yaml:"gated_host"`
	MirrorPrefix string `mapstructure:"mirror_prefix" yaml:"mirror_prefix"`
	Ordering     string `mapstructure:"ordering"      yaml:"ordering"`

	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`

	RunningVersion    string `mapstructure:"running_version"     yaml:"running_version"`
	TargetVersionName string `mapstructure:"target_version_name" yaml:"target_version_name"`

	Retry    Retry    `mapstructure:"retry"    yaml:"retry"`
	Timeouts Timeouts `mapstructure:"timeouts" yaml:"timeouts"`
	Log      Log      `mapstructure:"log"      yaml:"log"`
	Serve    Serve    `mapstructure:"serve"    yaml:"serve"`
	Watch    Watch    `mapstructure:"watch"    yaml:"watch"`
}

// Retry configures download retries.
type Retry struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// Timeouts configures the timeouts of the version checks.
type Timeouts struct {
	Check     time.Duration `mapstructure:"check"      yaml:"check"`
	SelfCheck time.Duration `mapstructure:"self_check" yaml:"self_check"`
}

// Log configures logging.
type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file"  yaml:"file"`
}

// Serve configures the local control API.
type Serve struct {
	Socket  string `mapstructure:"socket"  yaml:"socket"`
	Address string `mapstructure:"address" yaml:"address"`
}

// Watch configures periodic update checks.
type Watch struct {
	Cron string `mapstructure:"cron" yaml:"cron"`
}

type loadSettings struct {
	workingDir string
	configFile string
	overrides  map[string]any
}

// Option configures Load behaviour.
type Option func(*loadSettings)

// WithWorkingDir overrides the directory used to look for the configuration file.
func WithWorkingDir(dir string) Option {
	return func(s *loadSettings) {
		s.workingDir = dir
	}
}

// WithConfigFile explicitly sets the configuration file. It must exist.
func WithConfigFile(path string) Option {
	return func(s *loadSettings) {
		s.configFile = path
	}
}

// WithOverrides injects values typically coming from command line flags.
func WithOverrides(overrides map[string]any) Option {
	return func(s *loadSettings) {
		s.overrides = overrides
	}
}

// Load resolves the configuration.
func Load(opts ...Option) (*Config, error) {
	settings := loadSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}

		settings.workingDir = wd
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	configFile := settings.configFile
	if configFile == "" {
		configFile = filepath.Join(settings.workingDir, FileName)

		_, err := os.Stat(configFile)
		if errors.Is(err, fs.ErrNotExist) {
			configFile = ""
		}
	}

	err := mergeConfigFile(v, configFile)
	if err != nil {
		return nil, err
	}

	for k, val := range settings.overrides {
		v.Set(k, val)
	}

	cfg := Config{}

	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	// Relative game roots are relative to the working directory.
	if !filepath.IsAbs(cfg.GameRoot) {
		cfg.GameRoot = filepath.Join(settings.workingDir, cfg.GameRoot)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	err = v.MergeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyGameRoot, ".")
	v.SetDefault(KeyStateFile, "launcher_settings.json")
	v.SetDefault(KeyProvider, "http")
	v.SetDefault(KeyProviderConfig, map[string]string{})
	v.SetDefault(KeyHistoryURL, "https://tcymc.space/update/latest.json")
	v.SetDefault(KeySelfURL, "https://tcymc.space/update/Updater-latest.json")
	v.SetDefault(KeyUserAgent, "TCYClientUpdater/1.0")
	v.SetDefault(KeySource, mirror.SourceCN)
	v.SetDefault(KeyGatedHost, mirror.DefaultGatedHost)
	v.SetDefault(KeyMirrorPrefix, mirror.DefaultPrefix)
	v.SetDefault(KeyOrdering, string(versions.Lexical))
	v.SetDefault(KeyInsecureSkipVerify, false)
	v.SetDefault(KeyRunningVersion, "")
	v.SetDefault(KeyTargetVersionName, "异界战斗幻想")
	v.SetDefault(KeyRetryAttempts, 5)
	v.SetDefault(KeyRetryInterval, time.Second)
	v.SetDefault(KeyTimeoutCheck, 10*time.Second)
	v.SetDefault(KeyTimeoutSelfCheck, 5*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "launcher_debug.log")
	v.SetDefault(KeyServeSocket, "")
	v.SetDefault(KeyServeAddress, "127.0.0.1:8765")
	v.SetDefault(KeyWatchCron, "*/30 * * * *")
}

// Validate performs basic sanity checks against the configuration.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"http", "github", "local"}, c.Provider) {
		return errors.New("invalid provider '" + c.Provider + "'")
	}

	_, err := versions.ParseOrdering(c.Ordering)
	if err != nil {
		return fmt.Errorf("invalid ordering '%s': %w", c.Ordering, err)
	}

	if c.Source == "" {
		return errors.New("a download source is required")
	}

	if c.Provider == "http" {
		for _, raw := range []string{c.HistoryURL, c.SelfURL} {
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return errors.New("invalid URL '" + raw + "'")
			}
		}
	}

	if c.Retry.Attempts < 1 {
		return errors.New("retry attempts must be at least 1")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		return errors.New("invalid log level '" + c.Log.Level + "'")
	}

	return nil
}

// Path resolves a path relative to the game root.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(c.GameRoot, p)
}

// StatePath returns the location of the persisted state.
func (c *Config) StatePath() string {
	return c.Path(c.StateFile)
}

// LogPath returns the location of the log file, empty when file logging is disabled.
func (c *Config) LogPath() string {
	return c.Path(c.Log.File)
}

// VersionOrdering returns the parsed ordering.
func (c *Config) VersionOrdering() versions.Ordering {
	o, err := versions.ParseOrdering(c.Ordering)
	if err != nil {
		return versions.Lexical
	}

	return o
}
