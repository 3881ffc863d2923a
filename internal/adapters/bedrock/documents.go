package bedrock

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

// DocumentRepository runs semantic retrieval against an AWS Bedrock
// knowledge base.
type DocumentRepository struct {
	client          *bedrockagentruntime.Client
	knowledgeBaseID string
	logger          *slog.Logger
}

func NewDocumentRepository(awsCfg aws.Config, knowledgeBaseID string, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{
		client:          bedrockagentruntime.NewFromConfig(awsCfg),
		knowledgeBaseID: knowledgeBaseID,
		logger:          logger,
	}
}

func (r *DocumentRepository) Search(ctx context.Context, query string, maxResults int, minScore float64) ([]domain.DocumentChunk, error) {
	resp, err := r.client.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(r.knowledgeBaseID),
		RetrievalQuery:  &types.KnowledgeBaseQuery{Text: aws.String(query)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(maxResults)),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge base retrieve: %w", err)
	}

	chunks := make([]domain.DocumentChunk, 0, len(resp.RetrievalResults))
	for idx, result := range resp.RetrievalResults {
		var content string
		if result.Content != nil && result.Content.Text != nil {
			content = *result.Content.Text
		}

		// Scores are clamped to [0,1]; some embedding backends report
		// similarity just outside the range.
		score := 0.0
		if result.Score != nil {
			score = math.Max(0, math.Min(1, *result.Score))
		}
		if score < minScore {
			continue
		}

		docID := fmt.Sprintf("doc_%d", idx)
		if result.Location != nil && result.Location.S3Location != nil && result.Location.S3Location.Uri != nil {
			docID = *result.Location.S3Location.Uri
		}

		metadata := make(map[string]interface{}, len(result.Metadata))
		for k, v := range result.Metadata {
			metadata[k] = v
		}

		chunks = append(chunks, domain.DocumentChunk{
			DocumentID:     docID,
			ChunkID:        fmt.Sprintf("%s_chunk_%d", docID, idx),
			Content:        content,
			RelevanceScore: score,
			Metadata:       metadata,
		})
	}

	r.logger.Debug("knowledge base retrieval completed", "query", query, "results", len(chunks))
	return chunks, nil
}

var _ ports.DocumentRepository = (*DocumentRepository)(nil)
