package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"yard-placement-service/internal/app"
	"yard-placement-service/internal/services"

	"github.com/spf13/cobra"
)

// occupancySource is the published per-zone counts kept by the event publisher.
type occupancySource interface {
	Occupancy(ctx context.Context) (map[string]int64, error)
}

var errOccupancyDrift = errors.New("published occupancy differs from placement records")

var occupancyCmd = &cobra.Command{
	Use:   "occupancy",
	Short: "Compare published zone occupancy with the placement records",
	Long: `Compare the per-zone counts published to Redis with the active placement
records. Requires REDIS_URL. Exits non-zero when any zone differs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.RedisURL == "" {
			return errors.New("occupancy: REDIS_URL is not set")
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return runOccupancy(cmd.Context(), cmd.OutOrStdout(), a.Service, a.Publisher)
	},
}

func init() {
	rootCmd.AddCommand(occupancyCmd)
}

func runOccupancy(ctx context.Context, w io.Writer, svc *services.PlacementService, published occupancySource) error {
	recs, err := svc.ListActive(ctx, "")
	if err != nil {
		return err
	}
	stored := make(map[string]int64)
	for _, r := range recs {
		stored[r.Slot.Zone]++
	}

	counts, err := published.Occupancy(ctx)
	if err != nil {
		return err
	}

	drift := false
	for _, z := range svc.Topology().Zones {
		mark := ""
		if stored[z.Code] != counts[z.Code] {
			mark = "  drift"
			drift = true
		}
		fmt.Fprintf(w, "zone %-4s records=%d published=%d%s\n", z.Code, stored[z.Code], counts[z.Code], mark)
	}
	if drift {
		return errOccupancyDrift
	}
	return nil
}
