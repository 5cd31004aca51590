package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings except the two versioned analysis
// structures (classification rules and thresholds), which are loaded from
// their own files so they can be versioned independently.
type Config struct {
	// Storage configuration
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Index configuration (exact-hash / LSH / path / symbol indices)
	Index IndexConfig `yaml:"index" mapstructure:"index"`

	// GitHub configuration
	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`

	// Logging configuration
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Paths of the versioned analysis configuration files
	RulesFile      string `yaml:"rules_file" mapstructure:"rules_file"`
	ThresholdsFile string `yaml:"thresholds_file" mapstructure:"thresholds_file"`
}

type StorageConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "postgres", "sqlite"
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	LocalPath   string `yaml:"local_path" mapstructure:"local_path"`
}

type IndexConfig struct {
	Type          string        `yaml:"type" mapstructure:"type"` // "bolt", "redis"
	LocalPath     string        `yaml:"local_path" mapstructure:"local_path"`
	RedisHost     string        `yaml:"redis_host" mapstructure:"redis_host"`
	RedisPort     int           `yaml:"redis_port" mapstructure:"redis_port"`
	RedisPassword string        `yaml:"redis_password" mapstructure:"redis_password"`
	BucketTTL     time.Duration `yaml:"bucket_ttl" mapstructure:"bucket_ttl"` // recent-PR window
}

type GitHubConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	RateLimit int    `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	File       string `yaml:"file" mapstructure:"file"`
	JSONFormat bool   `yaml:"json" mapstructure:"json"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".dupehound", "local.db"),
		},
		Index: IndexConfig{
			Type:      "bolt",
			LocalPath: filepath.Join(homeDir, ".dupehound", "index.db"),
			RedisPort: 6379,
			BucketTTL: 14 * 24 * time.Hour,
		},
		GitHub: GitHubConfig{
			RateLimit: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file with env overrides.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("index", cfg.Index)
	v.SetDefault("github", cfg.GitHub)
	v.SetDefault("log", cfg.Log)
	v.SetDefault("rules_file", cfg.RulesFile)
	v.SetDefault("thresholds_file", cfg.ThresholdsFile)

	v.SetEnvPrefix("DUPEHOUND")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".dupehound")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".dupehound"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" && cfg.GitHub.Token == "" {
		cfg.GitHub.Token = token
	}

	return cfg, nil
}

// Validate checks the runtime settings. Rules and thresholds have their own
// validation at load time; this covers the plumbing around them.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("storage.local_path required for sqlite storage")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage.type %q (want sqlite or postgres)", c.Storage.Type)
	}

	switch c.Index.Type {
	case "bolt":
		if c.Index.LocalPath == "" {
			return fmt.Errorf("index.local_path required for bolt index")
		}
	case "redis":
		if c.Index.RedisHost == "" {
			return fmt.Errorf("index.redis_host required for redis index")
		}
	default:
		return fmt.Errorf("unknown index.type %q (want bolt or redis)", c.Index.Type)
	}

	if c.Index.BucketTTL <= 0 {
		return fmt.Errorf("index.bucket_ttl must be positive, got %s", c.Index.BucketTTL)
	}
	if c.GitHub.RateLimit <= 0 {
		return fmt.Errorf("github.rate_limit must be positive, got %d", c.GitHub.RateLimit)
	}

	return nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
}
