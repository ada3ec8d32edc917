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
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   admin HTTP bind address ("" disables it)
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-R string   Redis address for snapshot fan-out
//	-l string   log level
//
// Duration flags are accepted as integers in minutes.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-m", "-d", "-s", "-t", "-r", "-R", "-l"})

	fs := flag.NewFlagSet("foodie-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrGRPC, "a", cfg.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&cfg.AdminAddr, "m", cfg.AdminAddr, "admin HTTP address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(cfg.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidity := fs.Int("r", int(cfg.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&cfg.RedisAddr, "R", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	cfg.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * time.Minute
	return nil
}
