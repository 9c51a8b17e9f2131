// Package config loads runtime configuration for the snapgram terminal
// client and web frontend.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. An optional dotenv file (-e or -env-file, else ./.env when present)
//     and SNAPGRAM_* environment variables.
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override everything before them.
//
// Supported flags
//
//	-b string   backend base URL
//	-k string   backend anon (public) API key
//	-s string   path of the local state database
//	-i int      backend status check interval (seconds)
//	-d string   Postgres DSN for direct profile access (optional)
//	-l string   log level: debug, info, warn, error
//	-a string   web listen address
//	-g string   gRPC health listen address
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds. Empty or missing keys keep the earlier value:
//
//	{
//	  "backend_url": "https://xyz.supabase.co",
//	  "anon_key": "eyJ...",
//	  "state_path": "snapgram.db",
//	  "status_check_interval": "3s",
//	  "request_timeout": "10s",
//	  "http_addr": ":8080",
//	  "allowed_origins": ["http://localhost:8080"]
//	}
package config
