package main

import (
	"yard-placement-service/internal/config"
)

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if topologyPath != "" {
		cfg.TopologyPath = topologyPath
	}
	if seedPath != "" {
		cfg.SeedPath = seedPath
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	return cfg, nil
}
