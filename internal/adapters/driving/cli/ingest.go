package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [document-id...]",
	Short: "Run the ingestion pipeline for queued documents",
	Long: `Chunks, embeds and indexes queued documents. With no arguments all
queued documents are ingested. Progress events stream to the terminal
until every named document reaches a terminal state.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil || libraryService == nil {
		return errors.New("ingest service not configured")
	}
	ctx := cmd.Context()

	ids := args
	if len(ids) == 0 {
		docs, err := libraryService.List(ctx)
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}
		for i := range docs {
			if docs[i].Status == domain.StatusQueued {
				ids = append(ids, docs[i].ID)
			}
		}
		if len(ids) == 0 {
			cmd.Println("Nothing to ingest.")
			return nil
		}
	}

	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		if err := ingestService.Enqueue(ctx, id); err != nil {
			return fmt.Errorf("queueing %s: %w", id, err)
		}
		pending[id] = true
		cmd.Printf("Queued %s\n", id)
	}

	// Stream lifecycle events until every requested document settles.
	failed := 0
	for event := range ingestService.Events() {
		if !pending[event.DocumentID] {
			continue
		}
		switch event.Status {
		case domain.StatusProcessing:
			cmd.Printf("%s: processing\n", event.DocumentID)
		case domain.StatusCompleted:
			cmd.Printf("%s: completed (%d chunks embedded)\n", event.DocumentID, event.ChunksEmbedded)
			delete(pending, event.DocumentID)
		case domain.StatusFailed:
			cmd.Printf("%s: failed: %s\n", event.DocumentID, event.Error)
			delete(pending, event.DocumentID)
			failed++
		}
		if len(pending) == 0 {
			break
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d document(s) failed to ingest", failed)
	}
	return nil
}
