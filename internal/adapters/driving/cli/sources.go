package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbingest/internal/app"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and whether their files exist",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd.Context(), runtimeOptions(cmd, app.ModePreview))
	if err != nil {
		return err
	}
	defer rt.Close()

	out := newPrinter(cmd.OutOrStdout())
	if rt.DocumentDir != "" {
		out.printf("Document directory: %s\n", rt.DocumentDir)
	}

	width := 0
	for _, src := range rt.Sources {
		width = max(width, len(src.Label))
	}

	for _, src := range rt.Sources {
		path := src.Resolve(rt.DocumentDir)
		status := out.s.render(out.s.success, "ok     ")
		if _, err := os.Stat(path); err != nil {
			status = out.s.render(out.s.failure, "missing")
		}
		out.printf("  %-*s  %s  %s\n", width, src.Label, status, path)
	}
	return nil
}
