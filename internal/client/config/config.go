package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// AppName names the data directory of the client.
const AppName = "foodie"

var (
	ErrInvalidInterval = errors.New("intervals and timeouts must be positive")
	ErrInvalidCap      = errors.New("history cap must be positive")
	ErrInvalidQuality  = errors.New("jpeg quality must be within 1..100")
	ErrInvalidSize     = errors.New("thumbnail size must be positive")
	ErrInvalidLogLevel = errors.New("log level must be one of debug, info, warn, error")
	ErrNoDatabase      = errors.New("database path is required")
)

// Config holds runtime settings for the foodie CLI.
type Config struct {
	// ServerEndpointAddr is host:port of the sync server. Empty disables
	// the remote layer entirely.
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DatabasePath        string
	LogLevel            string

	HistoryCap       int
	ThumbnailSize    int
	JPEGQuality      int
	CompressTimeout  time.Duration
	ClassifyTimeout  time.Duration
	WriteTimeout     time.Duration
	SimulatedLatency time.Duration
}

// DefaultDatabasePath is foodie.db under the XDG data directory.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = DefaultDatabasePath()
	c.LogLevel = "warn"

	c.HistoryCap = 10
	c.ThumbnailSize = 300
	c.JPEGQuality = 70
	c.CompressTimeout = 5 * time.Second
	c.ClassifyTimeout = 5 * time.Second
	c.WriteTimeout = 5 * time.Second
	c.SimulatedLatency = 1500 * time.Millisecond
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.DatabasePath == "":
		return ErrNoDatabase
	case c.OnlineCheckInterval <= 0, c.CompressTimeout <= 0, c.ClassifyTimeout <= 0, c.WriteTimeout <= 0:
		return ErrInvalidInterval
	case c.SimulatedLatency < 0:
		return ErrInvalidInterval
	case c.HistoryCap <= 0:
		return ErrInvalidCap
	case c.ThumbnailSize <= 0:
		return ErrInvalidSize
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return ErrInvalidQuality
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}

// LoadConfig builds a Config from defaults, then the optional config file
// named by -c/-config, then command-line flags. Later sources win.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
