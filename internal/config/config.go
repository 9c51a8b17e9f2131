package config

import "time"

// DefaultStatusCheckInterval is used whenever the configured interval is not
// positive.
const DefaultStatusCheckInterval = 3 * time.Second

// Config holds runtime settings shared by the terminal client and the web
// frontend. The web-only fields are ignored by the terminal client.
type Config struct {
	BackendURL string
	AnonKey    string

	// StatePath is the SQLite file the terminal client keeps its session in.
	StatePath string
	// SessionSecret seals the stored session; required when StatePath is set.
	SessionSecret string

	StatusCheckInterval time.Duration
	RequestTimeout      time.Duration

	// ProfilesDSN switches profile access from the row API to a direct
	// Postgres connection.
	ProfilesDSN string

	LogLevel string
	LogJSON  bool

	HTTPAddr       string
	HealthAddr     string
	AllowedOrigins []string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:54321"
	c.StatePath = "snapgram.db"
	c.StatusCheckInterval = DefaultStatusCheckInterval
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.HTTPAddr = ":8080"
	c.HealthAddr = ":50051"
	c.AllowedOrigins = []string{"http://localhost:8080"}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
