// Package config provides unified configuration for the course search service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (COURSESEARCH_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the course search service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Search        SearchConfig        `yaml:"search"`
	Auth          AuthConfig          `yaml:"auth"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 15s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s

	// BaseURL prefixes result links in responses, e.g. "https://moodle.example.com".
	BaseURL string `yaml:"base_url"`

	// MaxQueryLength bounds the search term in runes. default: 255
	MaxQueryLength int `yaml:"max_query_length"`
}

// StorageConfig holds the course database settings.
type StorageConfig struct {
	Type           string        `yaml:"type"`             // "sqlite" or "postgres", default: "sqlite"
	DSN            string        `yaml:"dsn"`              // sqlite default: ":memory:"
	DSNFile        string        `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32         `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool          `yaml:"migrate_on_start"` // default: false
	ConnectTimeout time.Duration `yaml:"connect_timeout"`  // default: 30s

	// SeedFile is a YAML fixture loaded after migrations, mainly for demos.
	// It is skipped when the database already holds the fixture's first
	// course.
	SeedFile string `yaml:"seed_file"`
}

// SearchConfig holds aggregation settings.
type SearchConfig struct {
	AdapterTimeout  time.Duration `yaml:"adapter_timeout"` // default: 5s
	Concurrency     int           `yaml:"concurrency"`     // 0 = all sources in parallel
	GateCacheTTL    time.Duration `yaml:"gate_cache_ttl"`  // default: 30s, 0 disables
	Breaker         BreakerConfig `yaml:"breaker"`
	DisabledSources []string      `yaml:"disabled_sources"`
}

// BreakerConfig holds per-source circuit breaker settings.
type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`              // default: true
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"` // default: 5
	OpenTimeout         time.Duration `yaml:"open_timeout"`         // default: 30s
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"`     // "none", "apikey", "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"` // API key entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string  `yaml:"key" json:"key"`
	KeyFile string  `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject string  `yaml:"subject" json:"subject"`
	Role    string  `yaml:"role" json:"role"`
	Courses []int64 `yaml:"courses" json:"courses"` // empty: every course
}

// JWTConfig configures bearer token validation for type=jwt.
// Either Secret (HMAC) or JWKSURL (RSA) must be set.
type JWTConfig struct {
	Secret       string `yaml:"secret"`
	SecretFile   string `yaml:"secret_file"` // _file variant for secret
	JWKSURL      string `yaml:"jwks_url"`
	Issuer       string `yaml:"issuer"`
	Audience     string `yaml:"audience"`
	RoleClaim    string `yaml:"role_claim"`    // default: "role"
	CoursesClaim string `yaml:"courses_claim"` // default: "courses"
}

// RateLimitConfig holds per-role request limits.
type RateLimitConfig struct {
	// RequestsPerMinute applies to roles without an entry in Roles.
	// 0 disables rate limiting for them.
	RequestsPerMinute int                  `yaml:"requests_per_minute"`
	Burst             int                  `yaml:"burst"`
	Roles             map[string]RoleLimit `yaml:"roles"`
}

// RoleLimit holds the limit for one caller role.
type RoleLimit struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// MCPConfig holds the MCP (Model Context Protocol) endpoint settings.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Path    string `yaml:"path"`    // default: "/mcp"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// TracingConfig holds OpenTelemetry trace export settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`     // OTLP/HTTP collector, e.g. http://localhost:4318
	SampleRatio float64 `yaml:"sample_ratio"` // default: 1.0
	ServiceName string  `yaml:"service_name"` // default: "coursesearch"
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // TRACE, DEBUG, INFO, WARN, ERROR; default: INFO
	Format string `yaml:"format"` // "text" or "json"; default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories or "all"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxQueryLength:  255,
		},
		Storage: StorageConfig{
			Type:           "sqlite",
			MaxConns:       25,
			ConnectTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			AdapterTimeout: 5 * time.Second,
			GateCacheTTL:   30 * time.Second,
			Breaker: BreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
			},
		},
		Auth: AuthConfig{
			Type: "none",
			JWT: JWTConfig{
				RoleClaim:    "role",
				CoursesClaim: "courses",
			},
		},
		MCP: MCPConfig{
			Path: "/mcp",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Tracing: TracingConfig{
				SampleRatio: 1.0,
				ServiceName: "coursesearch",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
