package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question      string   `json:"question" jsonschema:"the question to answer from the document library"`
	DocumentTypes []string `json:"document_types,omitempty" jsonschema:"restrict sources to these document types (scripture, treatise, other)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer       string           `json:"answer"`
	Citations    []CitationOutput `json:"citations"`
	Insufficient bool             `json:"insufficient"`
	Model        string           `json:"model"`
}

// CitationOutput is one cited source in an answer.
type CitationOutput struct {
	Marker   int    `json:"marker"`
	ChunkID  string `json:"chunk_id"`
	Location string `json:"location"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the query to retrieve ranked source passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 10)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved passage.
type SearchResultOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Location   string  `json:"location"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed theological documents, with citations",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Retrieve ranked source passages without generating an answer",
	}, s.handleSearch)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	opts := domain.QueryOptions{}
	for _, t := range input.DocumentTypes {
		opts.Filters.DocumentTypes = append(opts.Filters.DocumentTypes, domain.DocumentType(t))
	}

	answer, err := s.ports.Answer.Ask(ctx, input.Question, nil, opts)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:       answer.Text,
		Citations:    make([]CitationOutput, len(answer.Citations)),
		Insufficient: answer.Insufficient,
		Model:        answer.ModelName,
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{
			Marker:   c.Marker,
			ChunkID:  c.ChunkID,
			Location: c.Citation.String(),
		}
	}

	return nil, output, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	opts := domain.QueryOptions{TopK: limit}
	result, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(result.Chunks)),
		Count:   len(result.Chunks),
	}
	for i := range result.Chunks {
		c := result.Chunks[i]
		output.Results[i] = SearchResultOutput{
			ChunkID:    c.Chunk.ID,
			DocumentID: c.Chunk.DocumentID,
			Location:   c.Chunk.Citation.String(),
			Score:      c.Score,
			Content:    c.Chunk.Content,
		}
	}

	return nil, output, nil
}
