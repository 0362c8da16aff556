package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentChunk struct {
	Id               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Content          string          `gorm:"type:text"`
	EmbeddingValue   pgvector.Vector `gorm:"type:vector(768)"` // text-embedding-004 and nomic-embed-text are both 768-dim
	ChunkIndex       int             `gorm:"default:0"`
	TemporalEntities datatypes.JSON  `gorm:"type:jsonb"`
	Links            datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt        time.Time       `gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt  `gorm:"index"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
