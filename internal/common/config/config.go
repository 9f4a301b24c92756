// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct. It is built
// once at startup and passed by reference to every constructor; no
// component reads ambient global state.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Session    SessionConfig    `mapstructure:"session"`
	Cache      CacheConfig      `mapstructure:"cache"`
	FAQ        FAQConfig        `mapstructure:"faq"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address          string `mapstructure:"address"`
	RequestTimeoutMs int    `mapstructure:"request_timeout_ms"`
}

// RequestTimeout is the overall per-request deadline: classification
// timeout plus agent processing.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutMs) * time.Millisecond
}

// ClassifierConfig holds settings for the external classification
// service contract.
type ClassifierConfig struct {
	BaseURL             string  `mapstructure:"base_url"`
	APIKey              string  `mapstructure:"api_key"`
	Model               string  `mapstructure:"model"`
	MaxTokens           int     `mapstructure:"max_tokens"`
	Temperature         float64 `mapstructure:"temperature"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	TimeoutMs           int     `mapstructure:"timeout_ms"`
	ContextTurns        int     `mapstructure:"context_turns"`
}

func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type SessionConfig struct {
	TimeoutSeconds       int    `mapstructure:"timeout_seconds"`
	MaxQueries           int    `mapstructure:"max_queries"`
	ContextTurns         int    `mapstructure:"context_turns"`
	SweepIntervalSeconds int    `mapstructure:"sweep_interval_seconds"`
	Backend              string `mapstructure:"backend"` // memory | redis
}

func (s SessionConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (s SessionConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

type CacheConfig struct {
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	MaxEntries int    `mapstructure:"max_entries"`
	Backend    string `mapstructure:"backend"` // memory | redis
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type FAQConfig struct {
	MatchThreshold float64 `mapstructure:"match_threshold"`
	Backend        string  `mapstructure:"backend"` // file | elasticsearch
	Path           string  `mapstructure:"path"`
	Index          string  `mapstructure:"index"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Transactions  TransactionsConfig  `mapstructure:"transactions"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// TransactionsConfig selects the transaction reference data source.
type TransactionsConfig struct {
	Backend string `mapstructure:"backend"` // postgres | csv
	Path    string `mapstructure:"path"`    // csv backend only
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
