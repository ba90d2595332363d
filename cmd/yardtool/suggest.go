package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"yard-placement-service/internal/app"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/services"

	"github.com/spf13/cobra"
)

var (
	confirmPosition string
	confirmSuggest  bool
	placedBy        string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <container-id>",
	Short: "Suggest a slot for a container and optionally confirm it",
	Long: `Suggest a slot for a container.

With --confirm the suggested slot is reserved. With --position a manual
position (for example A-R1-B2-T1 or A-R1-B2-T1-A) is reserved instead.
A rejected confirmation prints the fresh suggestion.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		containerID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || containerID <= 0 {
			return fmt.Errorf("invalid container id %q", args[0])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return runSuggest(cmd.Context(), cmd.OutOrStdout(), a.Service, containerID)
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().BoolVar(&confirmSuggest, "confirm", false, "Reserve the suggested slot")
	suggestCmd.Flags().StringVar(&confirmPosition, "position", "", "Reserve this position instead of the suggestion")
	suggestCmd.Flags().StringVar(&placedBy, "placed-by", "yardtool", "Operator recorded on the placement")
}

func runSuggest(ctx context.Context, w io.Writer, svc *services.PlacementService, containerID int64) error {
	wf := svc.NewWorkflow(containerID)

	sug, err := wf.Start(ctx)
	if err != nil {
		return err
	}
	printSuggestion(w, sug)

	if !confirmSuggest && confirmPosition == "" {
		wf.Cancel()
		return nil
	}

	slot := sug.Suggested
	if confirmPosition != "" {
		if slot, err = domain.ParseSlot(confirmPosition); err != nil {
			return err
		}
	}

	res, err := wf.Confirm(ctx, slot, placedBy)
	if err != nil {
		return err
	}
	if res.Outcome == services.OutcomeCommitted {
		fmt.Fprintf(w, "committed %s at %s (placement %s)\n", res.Record.ContainerNumber, res.Record.Slot, res.Record.ID)
		return nil
	}

	fmt.Fprintf(w, "rejected: %s\n", res.Rejection.Error())
	if res.Resuggestion != nil {
		fmt.Fprint(w, "try instead: ")
		printSuggestion(w, res.Resuggestion)
	}
	return nil
}

func printSuggestion(w io.Writer, sug *domain.Suggestion) {
	alts := make([]string, 0, len(sug.Alternatives))
	for _, a := range sug.Alternatives {
		alts = append(alts, a.String())
	}
	fmt.Fprintf(w, "%s (%s)\n", sug.Suggested, sug.Reason)
	if len(alts) > 0 {
		fmt.Fprintf(w, "  alternatives: %s\n", strings.Join(alts, ", "))
	}
}
