package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/marketmind/marketmind/internal/core/domain"
)

// NewDocumentSearchTool creates the financial document search tool backed by
// the knowledge base.
func NewDocumentSearchTool(documents *DocumentService) *domain.Tool {
	return &domain.Tool{
		Name:        "search_financial_documents",
		Description: "Search Amazon's financial documents (annual reports, earnings releases) for relevant information.",
		Parameters: domain.ToolParameters{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query describing what information to find.",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of document chunks to return (default: 5).",
				},
			},
			Required: []string{"query"},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (string, error) {
			query, _ := params["query"].(string)
			maxResults := defaultMaxResults
			// JSON numbers decode as float64.
			if raw, ok := params["max_results"].(float64); ok {
				maxResults = int(raw)
			}

			chunks, err := documents.Search(ctx, query, maxResults)
			if err != nil {
				return fmt.Sprintf("Error searching financial documents: %v", err), nil
			}

			if len(chunks) == 0 {
				return "No relevant information found in financial documents.", nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Found %d relevant document sections:\n\n", len(chunks))
			for i, chunk := range chunks {
				fmt.Fprintf(&b, "[%d] (Relevance: %.2f)\n%s\n\n", i+1, chunk.RelevanceScore, chunk.Content)
			}
			return b.String(), nil
		},
	}
}
