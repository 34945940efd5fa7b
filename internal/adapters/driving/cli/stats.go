package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbingest/internal/app"
	"github.com/custodia-labs/kbingest/internal/core/domain"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored chunk counts by source",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output counts as JSON")
	rootCmd.AddCommand(statsCmd)
}

// statsOutput is the JSON form of the tally.
type statsOutput struct {
	Store   string               `json:"store,omitempty"`
	Sources []domain.SourceCount `json:"sources"`
	Total   int                  `json:"total"`
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := openRuntime(ctx, runtimeOptions(cmd, app.ModeStats))
	if err != nil {
		return err
	}
	defer rt.Close()

	counts, total, err := rt.Ingestion.Tally(ctx)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if statsJSON {
		if counts == nil {
			counts = []domain.SourceCount{}
		}
		data, err := json.MarshalIndent(statsOutput{Store: rt.StoreLocation, Sources: counts, Total: total}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out := newPrinter(cmd.OutOrStdout())
	if rt.StoreLocation != "" {
		out.printf("Store: %s\n", rt.StoreLocation)
	}
	out.tally(counts, total)
	return nil
}
