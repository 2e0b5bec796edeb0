package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

var (
	libraryAddType  string
	libraryAddTitle string
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the document library",
	Long:  `Commands for adding, listing and removing documents in the library.`,
}

var libraryAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register a source file as a queued document",
	Long: `Registers an uploaded text file in the library. The document is
queued; run "exegete ingest" to chunk and embed it.`,
	Args: cobra.ExactArgs(1),
	RunE: runLibraryAdd,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all documents",
	Args:  cobra.NoArgs,
	RunE:  runLibraryList,
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove [document-id]",
	Short: "Delete a document and all its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryRemove,
}

var libraryReingestCmd = &cobra.Command{
	Use:   "reingest [document-id]",
	Short: "Reset a failed document to queued",
	Long: `Resets a failed document so it can be ingested again. Failed
documents are never retried automatically; this is the explicit
re-trigger. Chunks that already embedded successfully are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runLibraryReingest,
}

func init() {
	libraryAddCmd.Flags().StringVarP(&libraryAddType, "type", "t", "", "document type: scripture, treatise or other (required)")
	libraryAddCmd.Flags().StringVar(&libraryAddTitle, "title", "", "document title (defaults to the file name)")
	_ = libraryAddCmd.MarkFlagRequired("type")

	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
	libraryCmd.AddCommand(libraryReingestCmd)
	rootCmd.AddCommand(libraryCmd)
}

func runLibraryAdd(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	docType := domain.DocumentType(libraryAddType)
	doc, err := libraryService.Add(cmd.Context(), args[0], docType, libraryAddTitle, "")
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}

	cmd.Printf("Added %s document %q\n", doc.Type, doc.Title)
	cmd.Printf("ID: %s\n", doc.ID)
	cmd.Printf("Run \"exegete ingest %s\" to index it.\n", doc.ID)
	return nil
}

func runLibraryList(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	docs, err := libraryService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("Library is empty.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tTITLE")
	for i := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", docs[i].ID, docs[i].Type, docs[i].Status, docs[i].Title)
		if docs[i].Status == domain.StatusFailed && docs[i].Error != "" {
			fmt.Fprintf(w, "\t\t\t  error: %s\n", docs[i].Error)
		}
	}
	return w.Flush()
}

func runLibraryRemove(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	if err := libraryService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	cmd.Printf("Removed document %s\n", args[0])
	return nil
}

func runLibraryReingest(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	if err := libraryService.Reingest(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("reingest failed: %w", err)
	}
	cmd.Printf("Document %s queued for re-ingestion.\n", args[0])
	cmd.Printf("Run \"exegete ingest %s\" to start.\n", args[0])
	return nil
}
