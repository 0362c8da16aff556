package service

import (
	"context"

	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/rag/retrieval"
)

// chunkSearcher adapts the chunk repository's pgvector search to the
// retrieval engine's VectorSearcher contract.
type chunkSearcher struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewChunkSearcher(uowFactory unitofwork.RepositoryFactory) retrieval.VectorSearcher {
	return &chunkSearcher{uowFactory: uowFactory}
}

func (s *chunkSearcher) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]retrieval.SearchResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	scored, err := uow.DocumentChunkRepository().SearchSimilarWithScore(ctx, vector, limit, threshold)
	if err != nil {
		return nil, err
	}

	results := make([]retrieval.SearchResult, 0, len(scored))
	for _, sc := range scored {
		results = append(results, retrieval.SearchResult{
			ChunkID:          sc.Chunk.Id.String(),
			DocumentID:       sc.Chunk.DocumentId.String(),
			Content:          sc.Chunk.Content,
			Similarity:       sc.Similarity,
			TemporalEntities: sc.Chunk.TemporalEntities,
		})
	}
	return results, nil
}
