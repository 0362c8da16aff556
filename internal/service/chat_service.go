package service

import (
	"context"
	"log"

	"docuchat-be/internal/dto"
	"docuchat-be/pkg/events"
	pktNats "docuchat-be/pkg/nats"
	"docuchat-be/pkg/rag/executor"

	"github.com/google/uuid"
)

type IChatService interface {
	Query(ctx context.Context, req *dto.ChatQueryRequest) (*dto.ChatQueryResponse, error)
}

type chatService struct {
	pipeline       *executor.Pipeline
	defaultModel   string
	eventPublisher *pktNats.Publisher
}

func NewChatService(pipeline *executor.Pipeline, defaultModel string, eventPublisher *pktNats.Publisher) IChatService {
	return &chatService{
		pipeline:       pipeline,
		defaultModel:   defaultModel,
		eventPublisher: eventPublisher,
	}
}

func (s *chatService) Query(ctx context.Context, req *dto.ChatQueryRequest) (*dto.ChatQueryResponse, error) {
	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	result := s.pipeline.Execute(ctx, executor.Request{
		Query:         req.Query,
		Model:         model,
		ReasoningMode: req.ReasoningMode,
		MatchCount:    req.MatchCount,
	})

	chunks := make([]dto.ChatQueryResponseChunk, 0, len(result.Chunks))
	for _, chunk := range result.Chunks {
		chunkId, err := uuid.Parse(chunk.ChunkID)
		if err != nil {
			continue
		}
		documentId, err := uuid.Parse(chunk.DocumentID)
		if err != nil {
			continue
		}
		chunks = append(chunks, dto.ChatQueryResponseChunk{
			ChunkId:    chunkId,
			DocumentId: documentId,
			Content:    chunk.Content,
			Similarity: chunk.Similarity,
		})
	}

	if s.eventPublisher != nil {
		evt := events.NewQueryAnswered(req.Query, len(chunks), result.SearchStrategyUsed)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish QUERY_ANSWERED event: %v", err)
		}
	}

	return &dto.ChatQueryResponse{
		Chunks:                chunks,
		RequiredPrecision:     string(result.QueryContext.RequiredPrecision),
		SearchStrategyUsed:    result.SearchStrategyUsed,
		ReasoningApplied:      result.ReasoningApplied,
		TotalChunksConsidered: result.TotalChunksConsidered,
		TemporalFiltered:      result.TemporalFiltered,
	}, nil
}
