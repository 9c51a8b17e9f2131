package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/snapgram/internal/flagx"
	"github.com/dmitrijs2005/snapgram/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero-valued fields mean "not given" and leave the Config untouched.
type JsonConfig struct {
	BackendURL          string         `json:"backend_url"`
	AnonKey             string         `json:"anon_key"`
	StatePath           string         `json:"state_path"`
	SessionSecret       string         `json:"session_secret"`
	StatusCheckInterval timex.Duration `json:"status_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	ProfilesDSN         string         `json:"profiles_dsn"`
	LogLevel            string         `json:"log_level"`
	LogJSON             *bool          `json:"log_json"`
	HTTPAddr            string         `json:"http_addr"`
	HealthAddr          string         `json:"health_addr"`
	AllowedOrigins      []string       `json:"allowed_origins"`
}

// parseJson overlays Config with values loaded from the JSON file given by
// -c or -config. Without the flag it does nothing. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.BackendURL, jc.BackendURL)
	setString(&cfg.AnonKey, jc.AnonKey)
	setString(&cfg.StatePath, jc.StatePath)
	setString(&cfg.SessionSecret, jc.SessionSecret)
	setString(&cfg.ProfilesDSN, jc.ProfilesDSN)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.HTTPAddr, jc.HTTPAddr)
	setString(&cfg.HealthAddr, jc.HealthAddr)

	if jc.StatusCheckInterval.Duration > 0 {
		cfg.StatusCheckInterval = jc.StatusCheckInterval.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.LogJSON != nil {
		cfg.LogJSON = *jc.LogJSON
	}
	if len(jc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = jc.AllowedOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
