package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbingest/internal/app"
)

var (
	ingestSource string
	ingestDryRun bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest configured sources into the knowledge store",
	Long: `Extracts, cleans, chunks and embeds every configured source, replacing
the records previously stored for it. Batches that fail to embed or store
are skipped and reported; the run continues.

With --dry-run nothing is embedded or written: each source is chunked
and a sample of its first chunks is printed.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "ingest only the source with this label")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "preview chunks without embedding or writing")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := newPrinter(cmd.OutOrStdout())

	mode := app.ModeLive
	if ingestDryRun {
		mode = app.ModePreview
	}
	opts := runtimeOptions(cmd, mode)
	opts.Progress = out.progress
	opts.Source = ingestSource
	opts.Extract = true

	rt, err := openRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	out.header(ingestDryRun, ingestSource)
	if rt.Model != "" {
		out.printf("Model: %s\n", rt.Model)
	}

	report, err := rt.Ingestion.Run(ctx, rt.Sources, ingestDryRun)
	if err != nil {
		if report != nil {
			for i := range report.Sources {
				out.source(&report.Sources[i], report.Preview)
			}
		}
		return fmt.Errorf("ingestion aborted: %w", err)
	}

	out.run(report)
	return nil
}
