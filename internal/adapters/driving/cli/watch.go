package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exegete-labs/exegete/internal/adapters/driving/watch"
)

var watchOwner string

var watchCmd = &cobra.Command{
	Use:   "watch [intake-dir]",
	Short: "Watch an intake directory and ingest new files",
	Long: `Watches an intake directory for new source files and ingests them
automatically. The directory must contain a subdirectory per document
type:

  intake/
    scripture/
    treatise/

Dropping a .txt or .md file into a typed subdirectory registers it in
the library and queues it for ingestion. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchOwner, "owner", "", "owner recorded on documents added by the watcher")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if libraryService == nil || ingestService == nil {
		return errors.New("library and ingest services not configured")
	}

	watcher, err := watch.NewWatcher(args[0], watchOwner, libraryService, ingestService)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Stop()

	ctx := cmd.Context()
	watcher.Start(ctx)
	cmd.Printf("Watching %s. Press Ctrl+C to stop.\n", args[0])

	<-ctx.Done()
	return nil
}
