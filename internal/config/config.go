package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOneInchBaseURL   = "https://api.1inch.dev"
	DefaultTimeout          = 30 * time.Second
	DefaultListenAddr       = ":8000"
	DefaultChainID          = int64(1)
	DefaultExplanationModel = "template-v1"
)

type GlobalFlags struct {
	ConfigPath   string
	EnvFile      string
	ListenAddr   string
	DatabasePath string
	ChainID      int64
	Timeout      string
	Retries      int
	QuoteTTL     string
	LogLevel     string
	LogFormat    string
}

// Settings is resolved once at startup. Credentials are read here and
// injected into clients; rotating them requires a restart.
type Settings struct {
	ListenAddr       string
	DatabasePath     string
	LockPath         string
	ChainID          int64
	Timeout          time.Duration
	Retries          int
	QuoteTTL         time.Duration
	LogLevel         string
	LogFormat        string
	MetricsEnabled   bool
	ExplanationModel string
	OneInchBaseURL   string
	OneInchAPIKey    string
}

type fileConfig struct {
	Listen   string `yaml:"listen"`
	ChainID  *int64 `yaml:"chain_id"`
	Timeout  string `yaml:"timeout"`
	Retries  *int   `yaml:"retries"`
	Database struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"database"`
	Cache struct {
		QuoteTTL string `yaml:"quote_ttl"`
	} `yaml:"cache"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Explain struct {
		Model string `yaml:"model"`
	} `yaml:"explain"`
	Providers struct {
		OneInch struct {
			BaseURL   string `yaml:"base_url"`
			APIKey    string `yaml:"api_key"`
			APIKeyEnv string `yaml:"api_key_env"`
		} `yaml:"oneinch"`
	} `yaml:"providers"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	if err := loadEnvFile(flags.EnvFile); err != nil {
		return Settings{}, err
	}
	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.QuoteTTL < 0 {
		settings.QuoteTTL = 0
	}
	if settings.ChainID <= 0 {
		return Settings{}, fmt.Errorf("chain id must be positive, got %d", settings.ChainID)
	}
	if settings.LockPath == "" {
		settings.LockPath = settings.DatabasePath + ".lock"
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	dbPath, err := defaultDatabasePath()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		ListenAddr:       DefaultListenAddr,
		DatabasePath:     dbPath,
		ChainID:          DefaultChainID,
		Timeout:          DefaultTimeout,
		Retries:          0,
		QuoteTTL:         0,
		LogLevel:         "info",
		LogFormat:        "json",
		MetricsEnabled:   true,
		ExplanationModel: DefaultExplanationModel,
		OneInchBaseURL:   DefaultOneInchBaseURL,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "swapsage", "config.yaml"), nil
}

func defaultDatabasePath() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "swapsage", "swapsage.db"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Listen != "" {
		settings.ListenAddr = cfg.Listen
	}
	if cfg.ChainID != nil {
		settings.ChainID = *cfg.ChainID
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.Database.Path != "" {
		settings.DatabasePath = cfg.Database.Path
	}
	if cfg.Database.LockPath != "" {
		settings.LockPath = cfg.Database.LockPath
	}
	if cfg.Cache.QuoteTTL != "" {
		d, err := time.ParseDuration(cfg.Cache.QuoteTTL)
		if err != nil {
			return fmt.Errorf("config cache.quote_ttl: %w", err)
		}
		settings.QuoteTTL = d
	}
	if cfg.Log.Level != "" {
		settings.LogLevel = strings.ToLower(cfg.Log.Level)
	}
	if cfg.Log.Format != "" {
		settings.LogFormat = strings.ToLower(cfg.Log.Format)
	}
	if cfg.Metrics.Enabled != nil {
		settings.MetricsEnabled = *cfg.Metrics.Enabled
	}
	if cfg.Explain.Model != "" {
		settings.ExplanationModel = cfg.Explain.Model
	}
	if cfg.Providers.OneInch.BaseURL != "" {
		settings.OneInchBaseURL = strings.TrimRight(cfg.Providers.OneInch.BaseURL, "/")
	}
	if cfg.Providers.OneInch.APIKey != "" {
		settings.OneInchAPIKey = cfg.Providers.OneInch.APIKey
	}
	if cfg.Providers.OneInch.APIKeyEnv != "" {
		settings.OneInchAPIKey = os.Getenv(cfg.Providers.OneInch.APIKeyEnv)
	}

	return nil
}

// loadEnvFile exports a dotenv file into the process environment without
// overriding variables that are already set.
func loadEnvFile(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("SWAPSAGE_LISTEN"); v != "" {
		settings.ListenAddr = v
	}
	if v := os.Getenv("SWAPSAGE_DB_PATH"); v != "" {
		settings.DatabasePath = v
	}
	if v := os.Getenv("SWAPSAGE_DB_LOCK_PATH"); v != "" {
		settings.LockPath = v
	}
	if v := os.Getenv("SWAPSAGE_CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			settings.ChainID = n
		}
	}
	if v := os.Getenv("SWAPSAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("SWAPSAGE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("SWAPSAGE_QUOTE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.QuoteTTL = d
		}
	}
	if v := os.Getenv("SWAPSAGE_LOG_LEVEL"); v != "" {
		settings.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SWAPSAGE_LOG_FORMAT"); v != "" {
		settings.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("SWAPSAGE_METRICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.MetricsEnabled = b
		}
	}
	if v := os.Getenv("SWAPSAGE_1INCH_BASE_URL"); v != "" {
		settings.OneInchBaseURL = strings.TrimRight(v, "/")
	}
	// ONEINCH_API_KEY is the name older deployments export.
	if v := os.Getenv("ONEINCH_API_KEY"); v != "" {
		settings.OneInchAPIKey = v
	}
	if v := os.Getenv("SWAPSAGE_1INCH_API_KEY"); v != "" {
		settings.OneInchAPIKey = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.ListenAddr != "" {
		settings.ListenAddr = flags.ListenAddr
	}
	if flags.DatabasePath != "" {
		settings.DatabasePath = flags.DatabasePath
	}
	if flags.ChainID > 0 {
		settings.ChainID = flags.ChainID
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.QuoteTTL != "" {
		d, err := time.ParseDuration(flags.QuoteTTL)
		if err != nil {
			return fmt.Errorf("parse --quote-ttl: %w", err)
		}
		settings.QuoteTTL = d
	}
	if flags.LogLevel != "" {
		settings.LogLevel = strings.ToLower(flags.LogLevel)
	}
	if flags.LogFormat != "" {
		settings.LogFormat = strings.ToLower(flags.LogFormat)
	}
	return nil
}
