package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/foodie/internal/flagx"
	"github.com/dmitrijs2005/foodie/internal/timex"
)

// JSONConfig is the on-disk shape of the server config file. Durations use
// timex.Duration, so both "15m" and integer nanoseconds are accepted.
// Empty values keep the current setting.
type JSONConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	AdminAddr                    *string        `json:"admin_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisChannel                 string         `json:"redis_channel"`
	LogLevel                     string         `json:"log_level"`
}

// parseJSON overlays cfg with the JSON file named by -c or -config.
// Without the flag nothing is loaded.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var c JSONConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	c.apply(cfg)
	return nil
}

func (c *JSONConfig) apply(cfg *Config) {
	if c.EndpointAddrGRPC != "" {
		cfg.EndpointAddrGRPC = c.EndpointAddrGRPC
	}
	if c.AdminAddr != nil {
		cfg.AdminAddr = *c.AdminAddr
	}
	if c.DatabaseDSN != "" {
		cfg.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		cfg.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		cfg.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		cfg.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.RedisAddr != "" {
		cfg.RedisAddr = c.RedisAddr
	}
	if c.RedisChannel != "" {
		cfg.RedisChannel = c.RedisChannel
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
}
