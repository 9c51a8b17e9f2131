package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"cmd"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "http://127.0.0.1:54321", c.BackendURL)
	assert.Equal(t, "snapgram.db", c.StatePath)
	assert.Equal(t, 3*time.Second, c.StatusCheckInterval)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, ":50051", c.HealthAddr)
	assert.Equal(t, []string{"http://localhost:8080"}, c.AllowedOrigins)
}

func TestLoadConfig_DefaultsOnly(t *testing.T) {
	withArgs(t)

	cfg := LoadConfig()
	require.NotNil(t, cfg)

	want := defaults()
	if diff := cmp.Diff(&want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEnv(t *testing.T) {
	withArgs(t)
	t.Setenv("SNAPGRAM_BACKEND_URL", "https://env.example")
	t.Setenv("SNAPGRAM_ANON_KEY", "anon")
	t.Setenv("SNAPGRAM_STATUS_CHECK_INTERVAL", "1500ms")
	t.Setenv("SNAPGRAM_LOG_JSON", "true")
	t.Setenv("SNAPGRAM_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := defaults()
	parseEnv(&cfg)

	assert.Equal(t, "https://env.example", cfg.BackendURL)
	assert.Equal(t, "anon", cfg.AnonKey)
	assert.Equal(t, 1500*time.Millisecond, cfg.StatusCheckInterval)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "snapgram.db", cfg.StatePath)
}

func TestParseEnv_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SNAPGRAM_SESSION_SECRET=from-file\nSNAPGRAM_HTTP_ADDR=:9999\n"), 0o600))

	withArgs(t, "-e", path)
	// t.Setenv registers a restore for variables godotenv sets
	t.Setenv("SNAPGRAM_SESSION_SECRET", "")
	t.Setenv("SNAPGRAM_HTTP_ADDR", ":7000")
	require.NoError(t, os.Unsetenv("SNAPGRAM_SESSION_SECRET"))

	cfg := defaults()
	parseEnv(&cfg)

	assert.Equal(t, "from-file", cfg.SessionSecret)
	// already-set variables are not overridden by the file
	assert.Equal(t, ":7000", cfg.HTTPAddr)
}

func TestParseEnv_BadDurationPanics(t *testing.T) {
	withArgs(t)
	t.Setenv("SNAPGRAM_REQUEST_TIMEOUT", "soon")

	cfg := defaults()
	require.Panics(t, func() { parseEnv(&cfg) })
}

func TestParseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"backend_url":           "https://json.example",
		"status_check_interval": "5s",
		"request_timeout":       int64(2 * time.Second),
		"log_json":              true,
		"allowed_origins":       []string{"https://c.example"},
	})
	withArgs(t, "-c", path)

	cfg := defaults()
	parseJson(&cfg)

	assert.Equal(t, "https://json.example", cfg.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.StatusCheckInterval)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, []string{"https://c.example"}, cfg.AllowedOrigins)
	// keys not in the file keep their value
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestParseJson_NoFlagIsNoop(t *testing.T) {
	withArgs(t, "-b", "https://flag.example")

	cfg := defaults()
	parseJson(&cfg)
	assert.Equal(t, defaults(), cfg)
}

func TestParseJson_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		withArgs(t, "-config", filepath.Join(t.TempDir(), "nope.json"))
		cfg := defaults()
		require.Panics(t, func() { parseJson(&cfg) })
	})

	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		withArgs(t, "-config="+path)
		cfg := defaults()
		require.Panics(t, func() { parseJson(&cfg) })
	})
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectPanic bool
		check       func(t *testing.T, c Config)
	}{
		{
			name: "overrides",
			args: []string{"-b", "https://flag.example", "-k", "key", "-i", "10", "-a", ":9000", "-l", "debug"},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, "https://flag.example", c.BackendURL)
				assert.Equal(t, "key", c.AnonKey)
				assert.Equal(t, 10*time.Second, c.StatusCheckInterval)
				assert.Equal(t, ":9000", c.HTTPAddr)
				assert.Equal(t, "debug", c.LogLevel)
			},
		},
		{
			name: "interval untouched without -i",
			args: []string{"-s", "/tmp/x.db"},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, "/tmp/x.db", c.StatePath)
				assert.Equal(t, 3*time.Second, c.StatusCheckInterval)
			},
		},
		{name: "incorrect check interval", args: []string{"-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, tt.args...)
			cfg := defaults()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(&cfg) })
				return
			}
			require.NotPanics(t, func() { parseFlags(&cfg) })
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"backend_url": "https://json.example",
		"anon_key":    "json-key",
	})
	withArgs(t, "-c", path, "-b", "https://flag.example")
	t.Setenv("SNAPGRAM_BACKEND_URL", "https://env.example")
	t.Setenv("SNAPGRAM_ANON_KEY", "env-key")
	t.Setenv("SNAPGRAM_LOG_LEVEL", "warn")

	cfg := LoadConfig()

	assert.Equal(t, "https://flag.example", cfg.BackendURL) // flags beat json
	assert.Equal(t, "json-key", cfg.AnonKey)                // json beats env
	assert.Equal(t, "warn", cfg.LogLevel)                   // env beats defaults
	assert.Equal(t, "snapgram.db", cfg.StatePath)           // defaults
}
