// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV override like CLASSIFIER_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Merge environment-specific overrides, e.g. config.production.yaml
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project
// root so tests running in nested packages pick it up too.
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills secrets from the environment if the config
// file left them unset.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Classifier.APIKey == "" {
		if val := os.Getenv("CLASSIFIER_API_KEY"); val != "" {
			cfg.Classifier.APIKey = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "support-orchestrator"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.RequestTimeoutMs == 0 {
		cfg.Server.RequestTimeoutMs = 15000
	}

	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = "gpt-3.5-turbo"
	}
	if cfg.Classifier.MaxTokens == 0 {
		cfg.Classifier.MaxTokens = 150
	}
	if cfg.Classifier.Temperature == 0 {
		cfg.Classifier.Temperature = 0.1
	}
	if cfg.Classifier.ConfidenceThreshold == 0 {
		cfg.Classifier.ConfidenceThreshold = 0.6
	}
	if cfg.Classifier.TimeoutMs == 0 {
		cfg.Classifier.TimeoutMs = 5000
	}
	if cfg.Classifier.ContextTurns == 0 {
		cfg.Classifier.ContextTurns = 3
	}

	if cfg.Session.TimeoutSeconds == 0 {
		cfg.Session.TimeoutSeconds = 1800
	}
	if cfg.Session.MaxQueries == 0 {
		cfg.Session.MaxQueries = 30
	}
	if cfg.Session.ContextTurns == 0 {
		cfg.Session.ContextTurns = 10
	}
	if cfg.Session.SweepIntervalSeconds == 0 {
		cfg.Session.SweepIntervalSeconds = 300
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "memory"
	}

	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 300
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 100
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}

	if cfg.FAQ.MatchThreshold == 0 {
		cfg.FAQ.MatchThreshold = 0.35
	}
	if cfg.FAQ.Backend == "" {
		cfg.FAQ.Backend = "file"
	}
	if cfg.FAQ.Path == "" {
		cfg.FAQ.Path = "data/faq.json"
	}
	if cfg.FAQ.Index == "" {
		cfg.FAQ.Index = "faq"
	}

	if cfg.Database.Transactions.Backend == "" {
		cfg.Database.Transactions.Backend = "csv"
	}
	if cfg.Database.Transactions.Path == "" {
		cfg.Database.Transactions.Path = "data/transactions.csv"
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Classifier.ConfidenceThreshold < 0 || cfg.Classifier.ConfidenceThreshold > 1 {
		return fmt.Errorf("classifier.confidence_threshold must be in [0,1], got %f", cfg.Classifier.ConfidenceThreshold)
	}
	if cfg.FAQ.MatchThreshold < 0 || cfg.FAQ.MatchThreshold > 1 {
		return fmt.Errorf("faq.match_threshold must be in [0,1], got %f", cfg.FAQ.MatchThreshold)
	}
	if cfg.Session.MaxQueries < 1 {
		return fmt.Errorf("session.max_queries must be positive, got %d", cfg.Session.MaxQueries)
	}
	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", cfg.Cache.Backend)
	}
	switch cfg.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.backend must be memory or redis, got %q", cfg.Session.Backend)
	}
	switch cfg.FAQ.Backend {
	case "file", "elasticsearch":
	default:
		return fmt.Errorf("faq.backend must be file or elasticsearch, got %q", cfg.FAQ.Backend)
	}
	switch cfg.Database.Transactions.Backend {
	case "postgres", "csv":
	default:
		return fmt.Errorf("database.transactions.backend must be postgres or csv, got %q", cfg.Database.Transactions.Backend)
	}
	return nil
}
