// Package cli provides the kbingest command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbingest/internal/app"
	"github.com/custodia-labs/kbingest/internal/logger"
)

// version is set by SetVersion from build flags.
var version = "dev"

// Global flags.
var (
	verbose    bool
	configPath string
	envFile    string
)

// openRuntime wires the application. Tests replace it.
var openRuntime = app.Open

var rootCmd = &cobra.Command{
	Use:   "kbingest",
	Short: "Turn textbooks into an embedded knowledge base",
	Long: `kbingest extracts text from long-form documents, cleans it, splits it
into overlapping chunks, embeds each chunk and stores the result for
retrieval. Every ingestion replaces the stored records of a source.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.SetOutput(cmd.ErrOrStderr())
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.kbingest/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of environment variables holding credentials")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// runtimeOptions builds app options from the global flags.
func runtimeOptions(cmd *cobra.Command, mode app.Mode) app.Options {
	return app.Options{
		ConfigPath:      configPath,
		EnvFile:         envFile,
		EnvFileRequired: cmd.Flags().Changed("env-file"),
		Mode:            mode,
	}
}
