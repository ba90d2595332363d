package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Process configuration read from the environment (and .env, when the caller
// loaded it with godotenv).
type Config struct {
	Port         string
	DatabaseURL  string // empty selects the in-memory store
	TopologyPath string
	SeedPath     string
	RedisURL     string // empty disables event publishing
	Alternatives int    // 0 keeps the topology file's value
}

func Load() (Config, error) {
	cfg := Config{
		Port:         Get("PORT", "8080"),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TopologyPath: Get("TOPOLOGY_PATH", "data/topology.yaml"),
		SeedPath:     Get("SEED_PATH", "data/seeds/containers.json"),
		RedisURL:     strings.TrimSpace(os.Getenv("REDIS_URL")),
	}

	if raw := strings.TrimSpace(os.Getenv("ALTERNATIVES")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: ALTERNATIVES must be a positive integer, got %q", raw)
		}
		cfg.Alternatives = n
	}

	return cfg, nil
}

// Get returns the environment value of key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
