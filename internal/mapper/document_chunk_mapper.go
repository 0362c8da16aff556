package mapper

import (
	"encoding/json"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/model"
	"docuchat-be/pkg/textmeta"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentChunkMapper struct{}

func NewDocumentChunkMapper() *DocumentChunkMapper {
	return &DocumentChunkMapper{}
}

func (m *DocumentChunkMapper) ToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	var temporalEntities []textmeta.TemporalEntity
	if len(c.TemporalEntities) > 0 {
		// Corrupt metadata only loses the annotation, not the chunk.
		_ = json.Unmarshal(c.TemporalEntities, &temporalEntities)
	}

	var links []textmeta.Link
	if len(c.Links) > 0 {
		_ = json.Unmarshal(c.Links, &links)
	}

	return &entity.DocumentChunk{
		Id:               c.Id,
		DocumentId:       c.DocumentId,
		Content:          c.Content,
		EmbeddingValue:   c.EmbeddingValue.Slice(),
		ChunkIndex:       c.ChunkIndex,
		TemporalEntities: temporalEntities,
		Links:            links,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        updatedAt,
		DeletedAt:        deletedAt,
		IsDeleted:        c.DeletedAt.Valid,
	}
}

func (m *DocumentChunkMapper) ToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	var temporalEntities datatypes.JSON
	if len(c.TemporalEntities) > 0 {
		if raw, err := json.Marshal(c.TemporalEntities); err == nil {
			temporalEntities = raw
		}
	}

	var links datatypes.JSON
	if len(c.Links) > 0 {
		if raw, err := json.Marshal(c.Links); err == nil {
			links = raw
		}
	}

	return &model.DocumentChunk{
		Id:               c.Id,
		DocumentId:       c.DocumentId,
		Content:          c.Content,
		EmbeddingValue:   pgvector.NewVector(c.EmbeddingValue),
		ChunkIndex:       c.ChunkIndex,
		TemporalEntities: temporalEntities,
		Links:            links,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        updatedAt,
		DeletedAt:        deletedAt,
	}
}

func (m *DocumentChunkMapper) ToEntities(chunks []*model.DocumentChunk) []*entity.DocumentChunk {
	entities := make([]*entity.DocumentChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *DocumentChunkMapper) ToModels(chunks []*entity.DocumentChunk) []*model.DocumentChunk {
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
