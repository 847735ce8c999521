package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable Burrow reads
const EnvPrefix = "BURROW"

// Engines
const (
	EngineDocker     = "docker"
	EngineContainerd = "containerd"
)

// Keys match the command line flag names
const (
	KeyStackName           = "stack-name"
	KeyFile                = "file"
	KeyCompose             = "compose"
	KeyEnvFile             = "env-file"
	KeyService             = "service"
	KeyDryRun              = "dry-run"
	KeyLiveCheck           = "live-check"
	KeyEngine              = "engine"
	KeyContainerdSocket    = "containerd-socket"
	KeyContainerdNamespace = "containerd-namespace"
	KeyDataDir             = "data-dir"
	KeyLockTimeout         = "lock-timeout"
	KeyLogLevel            = "log-level"
	KeyLogJSON             = "log-json"
	KeyMetricsFile         = "metrics-file"
	KeyNoColor             = "no-color"
)

var keys = []string{
	KeyStackName, KeyFile, KeyCompose, KeyEnvFile, KeyService, KeyDryRun,
	KeyLiveCheck, KeyEngine, KeyContainerdSocket, KeyContainerdNamespace,
	KeyDataDir, KeyLockTimeout, KeyLogLevel, KeyLogJSON, KeyMetricsFile, KeyNoColor,
}

var (
	// ErrNoStackSource is returned when neither a stack file nor compose files are set
	ErrNoStackSource = errors.New("no stack source: set --file or --compose")

	// ErrLiveCheckWithoutDryRun is returned for --live-check outside dry-run
	ErrLiveCheckWithoutDryRun = errors.New("--live-check requires --dry-run")
)

// Config is the resolved configuration of one invocation
type Config struct {
	StackName           string        `mapstructure:"stack-name"`
	StackFile           string        `mapstructure:"file"`
	ComposeFiles        []string      `mapstructure:"compose"`
	EnvFile             string        `mapstructure:"env-file"`
	Services            []string      `mapstructure:"service"`
	DryRun              bool          `mapstructure:"dry-run"`
	LiveCheck           bool          `mapstructure:"live-check"`
	Engine              string        `mapstructure:"engine"`
	ContainerdSocket    string        `mapstructure:"containerd-socket"`
	ContainerdNamespace string        `mapstructure:"containerd-namespace"`
	DataDir             string        `mapstructure:"data-dir"`
	LockTimeout         time.Duration `mapstructure:"lock-timeout"`
	LogLevel            string        `mapstructure:"log-level"`
	LogJSON             bool          `mapstructure:"log-json"`
	MetricsFile         string        `mapstructure:"metrics-file"`
	NoColor             bool          `mapstructure:"no-color"`
}

// DefaultDataDir is /var/lib/burrow for root and a per-user state directory otherwise
func DefaultDataDir() string {
	if os.Geteuid() == 0 {
		return "/var/lib/burrow"
	}
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "burrow")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "burrow")
	}
	return filepath.Join(os.TempDir(), "burrow")
}

// New creates a viper instance with Burrow's defaults and environment binding
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	v.SetDefault(KeyEngine, EngineDocker)
	v.SetDefault(KeyContainerdSocket, "/run/containerd/containerd.sock")
	v.SetDefault(KeyContainerdNamespace, "burrow")
	v.SetDefault(KeyDataDir, DefaultDataDir())
	v.SetDefault(KeyLockTimeout, storage.DefaultLockTimeout)
	v.SetDefault(KeyLogLevel, string(log.InfoLevel))
	return v
}

// BindFlags makes flags override every other source
func BindFlags(v *viper.Viper, flags ...*pflag.FlagSet) error {
	for _, fs := range flags {
		if err := v.BindPFlags(fs); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	return nil
}

// Load reads the optional config file and decodes the configuration.
// An explicit configFile must exist; the default search locations may not.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		for _, dir := range SearchDirs() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// SearchDirs lists where config.yaml is looked up, most specific first
func SearchDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "burrow"))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "burrow"))
	}
	return append(dirs, "/etc/burrow")
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	switch c.Engine {
	case EngineDocker, EngineContainerd:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q (expected %s or %s)", c.Engine, EngineDocker, EngineContainerd))
	}

	switch {
	case c.StackFile == "" && len(c.ComposeFiles) == 0:
		errs = append(errs, ErrNoStackSource)
	case c.StackFile != "" && len(c.ComposeFiles) > 0:
		errs = append(errs, errors.New("--file and --compose are mutually exclusive"))
	}

	if c.LiveCheck && !c.DryRun {
		errs = append(errs, ErrLiveCheckWithoutDryRun)
	}

	switch log.Level(c.LogLevel) {
	case log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}

	if c.DataDir == "" {
		errs = append(errs, errors.New("data directory is required"))
	}
	if c.LockTimeout < 0 {
		errs = append(errs, errors.New("lock timeout must not be negative"))
	}

	return errors.Join(errs...)
}

// LogConfig returns the logging settings
func (c *Config) LogConfig() log.Config {
	return log.Config{
		Level:      log.Level(c.LogLevel),
		JSONOutput: c.LogJSON,
	}
}
