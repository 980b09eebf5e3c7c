package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/floodwatch/routing/router"
)

// Config is the optional YAML configuration. Every field has a default, the
// server runs without a config file.
type Config struct {
	Engine struct {
		FloodDepthThresholdM float64 `yaml:"flood-depth-threshold-m"`
		FloodPenalty         float64 `yaml:"flood-penalty"`
		MaxRouteCacheSize    int     `yaml:"max-route-cache-size"`
		DefaultSpeedKPH      float64 `yaml:"default-speed-kph"`
	} `yaml:"engine"`
	Server struct {
		CORSOrigins []string `yaml:"cors-origins"`
	} `yaml:"server"`
}

func ReadConfig(file string) Config {
	var config Config
	if file == "" {
		return config
	}
	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("failed to read config file %s: %v", file, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		log.Fatalf("failed to parse config file %s: %v", file, err)
	}
	return config
}

func (c Config) engineConfig() router.Config {
	return router.Config{
		FloodDepthThresholdM: c.Engine.FloodDepthThresholdM,
		FloodPenalty:         c.Engine.FloodPenalty,
		MaxRouteCacheSize:    c.Engine.MaxRouteCacheSize,
		DefaultSpeedKPH:      c.Engine.DefaultSpeedKPH,
	}
}

func (c Config) corsOrigins() []string {
	if len(c.Server.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return c.Server.CORSOrigins
}
