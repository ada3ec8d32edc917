package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/foodie/internal/flagx"
)

// parseFlags overlays cfg with command-line flags.
//
//	-a string   address and port of the sync server ("" = offline only)
//	-i int      online check interval (in seconds)
//	-d string   path of the local database
//	-l string   log level
//
// Arguments that belong to other layers are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-i", "-d", "-l"})

	fs := flag.NewFlagSet("foodie", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	return nil
}
