package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// defaultSearchLimit is used when the caller does not pass a limit.
const defaultSearchLimit = 5

// SearchInput is the input schema for the search_codebase tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"natural language or code to search the codebase for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of fragments to return (default 5)"`
}

// SearchOutput is the output schema for the search_codebase tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved fragment.
type SearchResultOutput struct {
	ID    string  `json:"id"`
	Path  string  `json:"path,omitempty"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer"`
	Scope    string `json:"scope,omitempty" jsonschema:"codebase or documents (default codebase)"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of fragments to ground the answer on (default 3)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string               `json:"answer"`
	Sources []SearchResultOutput `json:"sources"`
}

// GenerateInput is the input schema for the generate_code tool.
type GenerateInput struct {
	Instruction string `json:"instruction" jsonschema:"what the generated code should do"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_codebase",
		Description: "Retrieve the codebase fragments most similar to a query",
	}, s.handleSearch)

	if s.ports.Query != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question grounded in the codebase or uploaded documents",
		}, s.handleAsk)
	}

	if s.ports.Generation != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "generate_code",
			Description: "Generate file changes for an instruction using codebase context",
		}, s.handleGenerate)
	}
}

// handleSearch handles the search_codebase tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits, err := s.ports.Corpus.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	results := toResultOutputs(hits)
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Query.Ask(ctx, input.Question, domain.SearchScope(input.Scope), input.TopK)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:  answer.Answer,
		Sources: toResultOutputs(answer.Sources),
	}, nil
}

// handleGenerate handles the generate_code tool invocation.
func (s *Server) handleGenerate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateInput,
) (*mcp.CallToolResult, domain.GenerationResult, error) {
	result, err := s.ports.Generation.Generate(ctx, input.Instruction)
	if err != nil {
		return nil, domain.GenerationResult{}, err
	}
	return nil, *result, nil
}

func toResultOutputs(hits []domain.SearchHit) []SearchResultOutput {
	out := make([]SearchResultOutput, len(hits))
	for i, h := range hits {
		path := h.MetaString(domain.MetaPath)
		if path == "" {
			path = h.MetaString(domain.MetaFilename)
		}
		out[i] = SearchResultOutput{
			ID:    h.ID,
			Path:  path,
			Score: h.Score,
			Text:  h.Text,
		}
	}
	return out
}
