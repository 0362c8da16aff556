package dto

import "github.com/google/uuid"

type ChatQueryRequest struct {
	Query         string `json:"query" validate:"required,min=1"`
	Model         string `json:"model" validate:"omitempty,max=128"`
	ReasoningMode bool   `json:"reasoning_mode"`
	MatchCount    int    `json:"match_count" validate:"omitempty,min=1,max=50"`
}

type ChatQueryResponseChunk struct {
	ChunkId    uuid.UUID `json:"chunk_id"`
	DocumentId uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
}

type ChatQueryResponse struct {
	Chunks                []ChatQueryResponseChunk `json:"chunks"`
	RequiredPrecision     string                   `json:"required_precision"`
	SearchStrategyUsed    string                   `json:"search_strategy_used"`
	ReasoningApplied      bool                     `json:"reasoning_applied"`
	TotalChunksConsidered int                      `json:"total_chunks_considered"`
	TemporalFiltered      int                      `json:"temporal_filtered"`
}
