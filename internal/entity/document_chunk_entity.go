package entity

import (
	"time"

	"github.com/google/uuid"

	"docuchat-be/pkg/textmeta"
)

type DocumentChunk struct {
	Id               uuid.UUID
	DocumentId       uuid.UUID
	Content          string
	EmbeddingValue   []float32
	ChunkIndex       int
	TemporalEntities []textmeta.TemporalEntity
	Links            []textmeta.Link
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	DeletedAt        *time.Time
	IsDeleted        bool
}
