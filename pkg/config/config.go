// Package config loads service configuration from config.yaml with
// environment variable overrides. Secrets only come from the
// environment, never from YAML.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/vizgen/vizgen-engine/pkg/schema"
)

// Config holds all configuration for vizgen-engine.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Schema   SchemaConfig   `yaml:"schema"`
	Query    QueryConfig    `yaml:"query"`
	Chart    ChartConfig    `yaml:"chart"`
}

// DatabaseConfig holds the analytics database connection settings.
type DatabaseConfig struct {
	Dialect  string `yaml:"dialect" env:"DB_DIALECT" env-default:"postgres"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"vizgen"`
	Password string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DB_NAME" env-default:"vizgen"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"disable"`
	// Path is the database file for the sqlite dialect.
	Path string `yaml:"path" env:"DB_PATH" env-default:"vizgen.db"`
}

// DSN builds the driver connection string for the configured dialect.
func (c DatabaseConfig) DSN() (string, error) {
	switch schema.Dialect(c.Dialect) {
	case schema.DialectPostgres:
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode), nil
	case schema.DialectMySQL, schema.DialectMariaDB:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database), nil
	case schema.DialectSQLite:
		return c.Path, nil
	}
	return "", fmt.Errorf("unsupported dialect %q", c.Dialect)
}

// LLMConfig holds the text-generation service settings.
type LLMConfig struct {
	// Provider selects the client implementation: openai or anthropic.
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	// Endpoint overrides the provider's default base URL. Useful for
	// OpenAI-compatible local servers.
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	// TimeoutSeconds bounds a single generation call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"45"`
}

// Timeout returns the generation call timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SchemaConfig holds schema snapshot settings.
type SchemaConfig struct {
	// CacheTTLMinutes is how long a cached schema snapshot stays fresh.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" env:"SCHEMA_CACHE_TTL_MINUTES" env-default:"60"`
}

// CacheTTL returns the snapshot TTL as a duration.
func (c SchemaConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// QueryConfig bounds chart query execution.
type QueryConfig struct {
	TimeoutMillis int `yaml:"timeout_ms" env:"QUERY_TIMEOUT_MS" env-default:"30000"`
	MaxRows       int `yaml:"max_rows" env:"QUERY_MAX_ROWS" env-default:"1000"`
}

// Timeout returns the query timeout as a duration.
func (c QueryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// ChartConfig holds chart finalization defaults.
type ChartConfig struct {
	Responsive bool   `yaml:"responsive" env:"CHART_RESPONSIVE" env-default:"false"`
	Tooltip    bool   `yaml:"tooltip" env:"CHART_TOOLTIP" env-default:"true"`
	Theme      string `yaml:"theme" env:"CHART_THEME" env-default:""`
}

// Load reads config.yaml with environment overrides and validates it.
func Load(version string) (*Config, error) {
	return LoadFrom("config.yaml", version)
}

// LoadFrom reads the given YAML file with environment overrides.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !schema.Dialect(c.Database.Dialect).Supported() {
		return fmt.Errorf("unsupported database dialect %q", c.Database.Dialect)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if c.Query.MaxRows <= 0 {
		return fmt.Errorf("query max_rows must be positive, got %d", c.Query.MaxRows)
	}
	return nil
}
