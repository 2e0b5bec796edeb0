// Package cli provides the cobra command-line interface for Exegete.
// It is a driving adapter: commands translate flags and arguments into
// calls on the core service ports.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/exegete-labs/exegete/internal/core/ports/driving"
	"github.com/exegete-labs/exegete/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Package-level service handles, set by Wire before Execute or replaced
// by tests.
var (
	answerService    driving.AnswerService
	retrievalService driving.RetrievalService
	libraryService   driving.LibraryService
	ingestService    driving.IngestOrchestrator
)

// Persistent flag values.
var (
	flagVerbose bool
	flagConfig  string
	flagDataDir string
)

var rootCmd = &cobra.Command{
	Use:   "exegete",
	Short: "Grounded question answering over a theological document library",
	Long: `Exegete ingests scripture and treatise texts into a hybrid search
index and answers questions about them with generated text that cites
its sources. Every claim in an answer carries a [n] marker resolving to
a verse range or a page in the library.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)

		// Tests inject services directly; commands that need none
		// (version, help) skip wiring too.
		if answerService != nil || retrievalService != nil || !commandNeedsServices(cmd) {
			return nil
		}
		return wireServices(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose pipeline logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config directory (default ~/.exegete)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.exegete/data)")
}

// commandNeedsServices reports whether a command requires the wired
// service stack.
func commandNeedsServices(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return false
	}
	return true
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context. The
// context is cancelled on interrupt so long-running commands (watch,
// chat, mcp serve) shut down cleanly.
func ExecuteContext(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}
