package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/michele-orsini-71/minerva/internal/search"
)

// ListKnowledgeBasesInput takes no parameters.
type ListKnowledgeBasesInput struct{}

// ListKnowledgeBasesOutput is list_knowledge_bases' result (spec §4.8, §4.9).
type ListKnowledgeBasesOutput struct {
	KnowledgeBases []search.KnowledgeBaseSummary `json:"knowledge_bases"`
	Error          *ToolError                    `json:"error,omitempty"`
}

func (s *Server) handleListKnowledgeBases(ctx context.Context, _ *mcp.CallToolRequest, _ ListKnowledgeBasesInput) (*mcp.CallToolResult, ListKnowledgeBasesOutput, error) {
	summaries, err := s.engine.ListKnowledgeBases(ctx)
	if err != nil {
		return nil, ListKnowledgeBasesOutput{Error: MapError(err)}, nil
	}
	return nil, ListKnowledgeBasesOutput{KnowledgeBases: summaries}, nil
}

// SearchKnowledgeBaseInput is search_knowledge_base's parameters (spec
// §4.9). MaxResults and ContextMode are optional; zero values fall back to
// the server's configured default and to enhanced context, respectively.
type SearchKnowledgeBaseInput struct {
	Query          string `json:"query" jsonschema:"the search query"`
	CollectionName string `json:"collection_name" jsonschema:"which knowledge base to search, from list_knowledge_bases"`
	MaxResults     int    `json:"max_results,omitempty" jsonschema:"maximum results, 1-15; defaults to the server's configured default; lower this if a previous call hit a token limit"`
	ContextMode    string `json:"context_mode,omitempty" jsonschema:"chunk_only or enhanced (default); enhanced also includes each match's neighboring chunks"`
}

// SearchKnowledgeBaseOutput is search_knowledge_base's result.
type SearchKnowledgeBaseOutput struct {
	Results []search.Result `json:"results"`
	Error   *ToolError      `json:"error,omitempty"`
}

func (s *Server) handleSearchKnowledgeBase(ctx context.Context, _ *mcp.CallToolRequest, input SearchKnowledgeBaseInput) (*mcp.CallToolResult, SearchKnowledgeBaseOutput, error) {
	k := input.MaxResults
	if k <= 0 {
		k = s.defaultMaxResults
	}

	mode := search.ContextEnhanced
	if input.ContextMode == string(search.ContextChunkOnly) {
		mode = search.ContextChunkOnly
	}

	results, err := s.engine.Search(ctx, input.CollectionName, input.Query, k, mode)
	if err != nil {
		return nil, SearchKnowledgeBaseOutput{Error: MapError(err)}, nil
	}
	return nil, SearchKnowledgeBaseOutput{Results: results}, nil
}
