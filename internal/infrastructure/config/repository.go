package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/viper"

	"sysplug.dev/cli/internal/core/searchpath"
)

const (
	// EnvPrefix prefixes every environment override, e.g. SYSPLUG_BACKEND.
	EnvPrefix = "SYSPLUG"
	// ConfigFileEnvVar points at an alternative configuration file.
	ConfigFileEnvVar = "SYSPLUG_CONFIG_FILE"

	fileName = "config"
	fileType = "yaml"
)

// Loader backends
const (
	BackendNative = "native"
	BackendRPC    = "rpc"
)

// Settings is the resolved sysplug configuration.
type Settings struct {
	Backend          string   `mapstructure:"backend"`
	LogLevel         string   `mapstructure:"log_level"`
	LogJSON          bool     `mapstructure:"log_json"`
	PluginPaths      []string `mapstructure:"plugin_paths"`
	PluginPathEnv    string   `mapstructure:"plugin_path_env"`
	HomePluginDir    string   `mapstructure:"home_plugin_dir"`
	InstallPluginDir string   `mapstructure:"install_plugin_dir"`
	Concurrency      int      `mapstructure:"concurrency"`
}

// Repository loads Settings from defaults, the configuration file and the
// environment, in increasing priority.
type Repository struct {
	configPath string
}

// NewRepository creates a repository reading configPath. An empty path
// falls back to $SYSPLUG_CONFIG_FILE and then ~/.sysplug/config.yaml.
func NewRepository(configPath string) *Repository {
	if configPath == "" {
		configPath = os.Getenv(ConfigFileEnvVar)
	}
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	return &Repository{configPath: configPath}
}

// DefaultConfigPath returns ~/.sysplug/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".sysplug", fileName+"."+fileType)
	}
	return filepath.Join(home, ".sysplug", fileName+"."+fileType)
}

func (r *Repository) ConfigPath() string {
	return r.configPath
}

// Load resolves the configuration. A missing file is not an error.
func (r *Repository) Load() (*Settings, error) {
	v := viper.New()
	r.setDefaults(v)

	v.SetConfigFile(r.configPath)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", r.configPath, err)
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := r.Validate(&settings); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &settings, nil
}

// LoadDefault returns the default configuration
func (r *Repository) LoadDefault() *Settings {
	return &Settings{
		Backend:          BackendNative,
		LogLevel:         "warn",
		LogJSON:          false,
		PluginPaths:      []string{},
		PluginPathEnv:    searchpath.DefaultEnvVar,
		HomePluginDir:    searchpath.DefaultHomeSuffix,
		InstallPluginDir: searchpath.InstallDir,
		Concurrency:      4,
	}
}

func (r *Repository) setDefaults(v *viper.Viper) {
	d := r.LoadDefault()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_json", d.LogJSON)
	v.SetDefault("plugin_paths", d.PluginPaths)
	v.SetDefault("plugin_path_env", d.PluginPathEnv)
	v.SetDefault("home_plugin_dir", d.HomePluginDir)
	v.SetDefault("install_plugin_dir", d.InstallPluginDir)
	v.SetDefault("concurrency", d.Concurrency)
}

// Validate validates the configuration
func (r *Repository) Validate(s *Settings) error {
	if s == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if s.Backend != BackendNative && s.Backend != BackendRPC {
		return fmt.Errorf("unknown backend %q (must be %s or %s)", s.Backend, BackendNative, BackendRPC)
	}

	if hclog.LevelFromString(s.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("unknown log level %q", s.LogLevel)
	}

	if s.PluginPathEnv == "" {
		return fmt.Errorf("plugin path environment variable name is required")
	}

	if s.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be greater than 0")
	}

	return nil
}
