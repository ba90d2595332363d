package main

import (
	"fmt"
	"yard-placement-service/internal/config"

	"github.com/spf13/cobra"
)

var checkTopologyCmd = &cobra.Command{
	Use:   "check-topology",
	Short: "Validate the yard topology file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		topo, err := config.LoadTopology(cfg.TopologyPath)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		slots := 0
		for _, z := range topo.Zones {
			n := z.Rows * z.Bays * z.MaxTier
			slots += n
			fmt.Fprintf(w, "zone %-4s rows=%d bays=%d max_tier=%d gate_distance=%d positions=%d\n",
				z.Code, z.Rows, z.Bays, z.MaxTier, z.GateDistance, n)
		}
		fmt.Fprintf(w, "%s: %d zones, %d full-length positions\n", cfg.TopologyPath, len(topo.Zones), slots)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkTopologyCmd)
}
