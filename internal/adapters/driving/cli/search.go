package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve ranked passages without generating an answer",
	Long: `Performs hybrid search across all ingested documents.
Combines keyword (BM25) and semantic (vector) search with reciprocal
rank fusion and prints the ranked passages with their citations.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	opts := domain.QueryOptions{TopK: searchLimit}
	result, err := retrievalService.Retrieve(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	return outputSearchText(cmd, result)
}

func outputSearchJSON(cmd *cobra.Command, result *domain.RetrievalResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, result *domain.RetrievalResult) error {
	if len(result.Chunks) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range result.Chunks {
		c := &result.Chunks[i]
		cmd.Printf("  [%d] %s (%.4f)\n", i+1, c.Chunk.Citation.String(), c.Score)
		cmd.Printf("      %s\n", excerpt(c.Chunk.Content, 160))
		cmd.Println()
	}
	return nil
}

// excerpt truncates s to at most n characters on a word boundary.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for i := n - 1; i > n/2; i-- {
		if s[i] == ' ' {
			cut = s[:i]
			break
		}
	}
	return cut + "..."
}
