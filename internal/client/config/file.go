package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/foodie/internal/flagx"
	"github.com/dmitrijs2005/foodie/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Intervals use
// timex.Duration, so "3s" and integer nanoseconds are both accepted.
// Zero values leave the current setting alone.
type FileConfig struct {
	ServerEndpointAddr  *string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration  `json:"online_check_interval" yaml:"online_check_interval"`
	DatabasePath        string          `json:"database_path" yaml:"database_path"`
	LogLevel            string          `json:"log_level" yaml:"log_level"`
	HistoryCap          int             `json:"history_cap" yaml:"history_cap"`
	ThumbnailSize       int             `json:"thumbnail_size" yaml:"thumbnail_size"`
	JPEGQuality         int             `json:"jpeg_quality" yaml:"jpeg_quality"`
	CompressTimeout     timex.Duration  `json:"compress_timeout" yaml:"compress_timeout"`
	ClassifyTimeout     timex.Duration  `json:"classify_timeout" yaml:"classify_timeout"`
	WriteTimeout        timex.Duration  `json:"write_timeout" yaml:"write_timeout"`
	SimulatedLatency    *timex.Duration `json:"simulated_latency" yaml:"simulated_latency"`
}

// parseFile overlays cfg with the file given by -c/-config. YAML is used
// for .yaml and .yml files, JSON otherwise.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	if fc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *fc.ServerEndpointAddr
	}
	if fc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.DatabasePath != "" {
		cfg.DatabasePath = fc.DatabasePath
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.HistoryCap != 0 {
		cfg.HistoryCap = fc.HistoryCap
	}
	if fc.ThumbnailSize != 0 {
		cfg.ThumbnailSize = fc.ThumbnailSize
	}
	if fc.JPEGQuality != 0 {
		cfg.JPEGQuality = fc.JPEGQuality
	}
	if fc.CompressTimeout.Duration != 0 {
		cfg.CompressTimeout = fc.CompressTimeout.Duration
	}
	if fc.ClassifyTimeout.Duration != 0 {
		cfg.ClassifyTimeout = fc.ClassifyTimeout.Duration
	}
	if fc.WriteTimeout.Duration != 0 {
		cfg.WriteTimeout = fc.WriteTimeout.Duration
	}
	if fc.SimulatedLatency != nil {
		cfg.SimulatedLatency = fc.SimulatedLatency.Duration
	}
}
