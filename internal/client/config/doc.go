// Package config loads runtime configuration for the foodie CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the sync server ("" disables syncing)
//	-i int      online status check interval (seconds)
//	-d string   local database path (default under $XDG_DATA_HOME/foodie)
//	-l string   log level: debug, info, warn, error
//
// # File schema
//
// Durations are timex.Duration values, so "3s" and integer nanoseconds are
// both accepted:
//
//	server_endpoint_addr: 127.0.0.1:50051
//	online_check_interval: 3s
//	database_path: /var/lib/foodie/foodie.db
//	history_cap: 10
//	thumbnail_size: 300
//	jpeg_quality: 70
//	classify_timeout: 5s
//	simulated_latency: 1.5s
package config
