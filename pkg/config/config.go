/*
Package config manages TOML config for placeserve.
*/
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/placeserve/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvData        = "PLACESERVE_DATA"
	EnvConfig      = "PLACESERVE_CONFIG"
	EnvLogLevel    = "PLACESERVE_LOG_LEVEL"
	EnvMetricsAddr = "PLACESERVE_METRICS_ADDR"
	EnvCacheSize   = "PLACESERVE_CACHE_SIZE"
)

// Config holds the entire config structure
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Gazetteer GazetteerConfig `toml:"gazetteer"`
	Cache     CacheConfig     `toml:"cache"`
	CLI       CliConfig       `toml:"cli"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxLimit     int  `toml:"max_limit"`
	DefaultLimit int  `toml:"default_limit"`
	MaxQuery     int  `toml:"max_query"`
	Highlight    bool `toml:"highlight"`
}

// GazetteerConfig points at the district dataset.
type GazetteerConfig struct {
	Path string `toml:"path"`
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	Enabled    bool `toml:"enabled"`
	Size       int  `toml:"size"`
	TTLSeconds int  `toml:"ttl_seconds"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int      `toml:"default_limit"`
	Levels       []string `toml:"levels"`
}

// MetricsConfig enables the prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/placeserve
// 2. ~/Library/Application Support/placeserve (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "placeserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "placeserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag (or PLACESERVE_CONFIG)
// 2. Default path: [UserConfigDir]/placeserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath == "" {
		customConfigPath = os.Getenv(EnvConfig)
	}

	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxLimit:     64,
			DefaultLimit: 20,
			MaxQuery:     60,
			Highlight:    true,
		},
		Gazetteer: GazetteerConfig{
			Path: "data/korea_districts.json",
		},
		Cache: CacheConfig{
			Enabled:    true,
			Size:       512,
			TTLSeconds: 300,
		},
		CLI: CliConfig{
			DefaultLimit: 10,
			Levels:       []string{},
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every section that still decodes and defaults the rest.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "gazetteer"); ok {
		if val, ok := utils.ExtractString(section, "path"); ok {
			config.Gazetteer.Path = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "cache"); ok {
		extractCacheConfig(section, &config.Cache)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	if section, ok := utils.ExtractSection(tempConfig, "metrics"); ok {
		if val, ok := utils.ExtractString(section, "addr"); ok {
			config.Metrics.Addr = val
		}
	}
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		server.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_query"); ok {
		server.MaxQuery = val
	}
	if val, ok := utils.ExtractBool(data, "highlight"); ok {
		server.Highlight = val
	}
}

func extractCacheConfig(data map[string]any, cache *CacheConfig) {
	if val, ok := utils.ExtractBool(data, "enabled"); ok {
		cache.Enabled = val
	}
	if val, ok := utils.ExtractInt64(data, "size"); ok {
		cache.Size = val
	}
	if val, ok := utils.ExtractInt64(data, "ttl_seconds"); ok {
		cache.TTLSeconds = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractStringSlice(data, "levels"); ok {
		cli.Levels = val
	}
}

// LoadEnv reads KEY=value pairs from the given .env files into the process
// environment. Missing files are skipped; existing variables win.
func LoadEnv(files ...string) {
	for _, file := range files {
		if !utils.FileExists(file) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			log.Warnf("Failed to read env file %s: %v", file, err)
			continue
		}
		log.Debugf("Loaded environment from %s", file)
	}
}

// ApplyEnv overrides config values with PLACESERVE_* environment variables.
func (c *Config) ApplyEnv() {
	if val := strings.TrimSpace(os.Getenv(EnvData)); val != "" {
		c.Gazetteer.Path = val
	}
	if val, ok := os.LookupEnv(EnvMetricsAddr); ok {
		c.Metrics.Addr = strings.TrimSpace(val)
	}
	if val := os.Getenv(EnvCacheSize); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			log.Warnf("Ignoring %s=%q: %v", EnvCacheSize, val, err)
		} else {
			c.Cache.Size = size
			c.Cache.Enabled = size > 0
		}
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes the server limits and saves to file.
// An empty configPath only updates the values in memory.
func (c *Config) Update(configPath string, maxLimit, defaultLimit, maxQuery *int, highlight *bool) error {
	server := &c.Server
	if maxLimit != nil {
		server.MaxLimit = *maxLimit
	}
	if defaultLimit != nil {
		server.DefaultLimit = *defaultLimit
	}
	if maxQuery != nil {
		server.MaxQuery = *maxQuery
	}
	if highlight != nil {
		server.Highlight = *highlight
	}
	if configPath == "" {
		return nil
	}
	return SaveConfig(c, configPath)
}
