package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

var (
	askTypes    []string
	askTopK     int
	askRerankTo int
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question of the library",
	Long: `Runs the full query pipeline: hybrid retrieval (BM25 + vector),
re-ranking and grounded generation. The answer cites its sources with
[n] markers; the cited passages are listed below it.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVar(&askTypes, "type", nil, "restrict sources to document types (scripture, treatise, other)")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "candidate budget for hybrid retrieval")
	askCmd.Flags().IntVar(&askRerankTo, "rerank-to", 0, "number of candidates kept by the precision pass")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	opts := domain.QueryOptions{
		TopK:     askTopK,
		RerankTo: askRerankTo,
	}
	for _, t := range askTypes {
		docType := domain.DocumentType(t)
		if !docType.IsValid() {
			return fmt.Errorf("unknown document type %q", t)
		}
		opts.Filters.DocumentTypes = append(opts.Filters.DocumentTypes, docType)
	}

	answer, err := answerService.Ask(cmd.Context(), args[0], nil, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAskJSON(cmd, answer)
	}
	return outputAskText(cmd, answer)
}

func outputAskJSON(cmd *cobra.Command, answer *domain.GroundedAnswer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAskText(cmd *cobra.Command, answer *domain.GroundedAnswer) error {
	cmd.Println(answer.Text)

	if answer.Degraded {
		cmd.Println()
		cmd.Printf("(answered by fallback model %s)\n", answer.ModelName)
	}
	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, c := range answer.Citations {
			cmd.Printf("  [%d] %s\n", c.Marker, c.Citation.String())
		}
	}
	return nil
}
