package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/flagx"
)

// parseFlags populates Config fields from command-line flags (see the
// package doc for the list). Only those flags are looked at; os.Args is
// filtered with flagx.FilterArgs so other loaders' flags pass through.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-b", "-k", "-s", "-i", "-d", "-l", "-a", "-g"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BackendURL, "b", cfg.BackendURL, "backend base url")
	fs.StringVar(&cfg.AnonKey, "k", cfg.AnonKey, "backend anon api key")
	fs.StringVar(&cfg.StatePath, "s", cfg.StatePath, "local state database path")
	statusCheckInterval := fs.Int("i", int(cfg.StatusCheckInterval.Seconds()), "backend status check interval (in seconds)")
	fs.StringVar(&cfg.ProfilesDSN, "d", cfg.ProfilesDSN, "postgres dsn for direct profile access")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "web listen address")
	fs.StringVar(&cfg.HealthAddr, "g", cfg.HealthAddr, "grpc health listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.StatusCheckInterval = time.Duration(*statusCheckInterval) * time.Second
		}
	})
}
