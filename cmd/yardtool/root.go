package main

import (
	"github.com/spf13/cobra"
)

var (
	topologyPath string
	seedPath     string
	databaseURL  string
)

var rootCmd = &cobra.Command{
	Use:   "yardtool",
	Short: "Operator tooling for the yard placement service",
	Long: `yardtool prepares the placement database and runs placements from the terminal.

Environment Variables:
  DATABASE_URL   Postgres connection string (empty uses the in-memory store)
  TOPOLOGY_PATH  Yard topology file (default: data/topology.yaml)
  SEED_PATH      Container seed file (default: data/seeds/containers.json)
  REDIS_URL      Redis for placement events and occupancy counts (optional)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&topologyPath, "topology", "", "Yard topology file (overrides TOPOLOGY_PATH)")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "", "Container seed file (overrides SEED_PATH)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (overrides DATABASE_URL)")
}
