package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Guard    GuardConfig    `mapstructure:"guard"`
	Query    QueryConfig    `mapstructure:"query"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Environment       string        `mapstructure:"environment"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	RateLimit         RateLimit     `mapstructure:"rate_limit"`
}

// RateLimit is a fixed window per client
type RateLimit struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig is the application store holding connections and history
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Database       string `mapstructure:"database"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MinConns       int32  `mapstructure:"min_conns"`
	// MigrationsPath is a golang-migrate source URL; empty uses the
	// migrations compiled into the binary
	MigrationsPath string `mapstructure:"migrations_path"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	// JWTSecret enables bearer auth on /api/v1 when set
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	// EncryptionKey protects stored connection passwords
	EncryptionKey string `mapstructure:"encryption_key"`
}

type LLMConfig struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	Timeout         time.Duration   `mapstructure:"timeout"`
	OpenAI          OpenAIConfig    `mapstructure:"openai"`
	Anthropic       AnthropicConfig `mapstructure:"anthropic"`
	Gemini          GeminiConfig    `mapstructure:"gemini"`
	Ollama          OllamaConfig    `mapstructure:"ollama"`
	DeepSeek        DeepSeekConfig  `mapstructure:"deepseek"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

type DeepSeekConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// GuardConfig configures the SQL validation engine
type GuardConfig struct {
	DefaultDialect   string   `mapstructure:"default_dialect"`
	MaxRows          int64    `mapstructure:"max_rows"`
	OverLimitPolicy  string   `mapstructure:"over_limit_policy"`
	MaxSQLBytes      int      `mapstructure:"max_sql_bytes"`
	BlockedFunctions []string `mapstructure:"blocked_functions"`
}

type QueryConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

type MetadataConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables a daily-rotated log file next to stdout
	File   string        `mapstructure:"file"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	return LoadFile(configPath)
}

// LoadFile reads configuration from path. A missing file is not an error;
// defaults and environment variables still apply.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the services cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Guard.MaxRows < 1 || c.Guard.MaxRows > sqlguard.MaxCeiling {
		return fmt.Errorf("guard.max_rows must be between 1 and %d, got %d", sqlguard.MaxCeiling, c.Guard.MaxRows)
	}
	switch sqlguard.OverLimitPolicy(c.Guard.OverLimitPolicy) {
	case sqlguard.OverLimitClamp, sqlguard.OverLimitReject:
	default:
		return fmt.Errorf("guard.over_limit_policy must be %q or %q, got %q",
			sqlguard.OverLimitClamp, sqlguard.OverLimitReject, c.Guard.OverLimitPolicy)
	}
	switch c.Guard.DefaultDialect {
	case sqlguard.DialectPostgres, sqlguard.DialectMySQL, sqlguard.DialectSQLite:
	default:
		return fmt.Errorf("guard.default_dialect %q is not supported", c.Guard.DefaultDialect)
	}
	if c.Guard.MaxSQLBytes < 1 {
		return fmt.Errorf("guard.max_sql_bytes must be positive, got %d", c.Guard.MaxSQLBytes)
	}
	if c.Query.HistoryLimit < 1 {
		return fmt.Errorf("query.history_limit must be positive, got %d", c.Query.HistoryLimit)
	}
	if c.Query.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be positive, got %s", c.Query.Timeout)
	}
	return nil
}

// IsProduction reports whether the server runs with production defaults
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.middleware_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.requests", 60)
	v.SetDefault("server.rate_limit.window", "1m")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "sqlgate")
	v.SetDefault("database.database", "sqlgate")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.migrations_path", "")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.token_ttl", "24h")

	// LLM
	v.SetDefault("llm.default_provider", "ollama")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.anthropic.model", "claude-3-5-sonnet-latest")
	v.SetDefault("llm.gemini.model", "gemini-1.5-flash")
	v.SetDefault("llm.ollama.host", "http://localhost:11434")
	v.SetDefault("llm.ollama.default_model", "llama3")
	v.SetDefault("llm.deepseek.model", "deepseek-chat")
	v.SetDefault("llm.deepseek.base_url", "https://api.deepseek.com/v1")

	// Guard
	v.SetDefault("guard.default_dialect", sqlguard.DialectPostgres)
	v.SetDefault("guard.max_rows", sqlguard.DefaultCeiling)
	v.SetDefault("guard.over_limit_policy", string(sqlguard.OverLimitClamp))
	v.SetDefault("guard.max_sql_bytes", 64*1024)

	// Query
	v.SetDefault("query.timeout", "30s")
	v.SetDefault("query.history_limit", 50)

	// Metadata
	v.SetDefault("metadata.cache_ttl", "1h")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_age", "168h")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.host", "POSTGRES_HOST")
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.encryption_key", "ENCRYPTION_KEY")

	// Guard
	v.BindEnv("guard.max_rows", "SQLGATE_MAX_ROWS")
	v.BindEnv("guard.over_limit_policy", "SQLGATE_OVER_LIMIT_POLICY")

	// LLM API Keys
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("llm.deepseek.api_key", "DEEPSEEK_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")
}
