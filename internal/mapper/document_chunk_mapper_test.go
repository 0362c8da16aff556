package mapper

import (
	"testing"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/pkg/textmeta"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentChunkMapperKeepsMetadata(t *testing.T) {
	m := NewDocumentChunkMapper()

	chunk := &entity.DocumentChunk{
		Id:             uuid.New(),
		DocumentId:     uuid.New(),
		Content:        "Q1 2024 revenue grew. See https://example.com/report.pdf",
		EmbeddingValue: []float32{0.1, 0.2, 0.3},
		ChunkIndex:     2,
		TemporalEntities: []textmeta.TemporalEntity{
			{Raw: "Q1 2024", Normalized: "Q1 2024"},
		},
		Links: []textmeta.Link{
			{URL: "https://example.com/report.pdf", Category: "document"},
		},
		CreatedAt: time.Now(),
	}

	model := m.ToModel(chunk)
	require.NotNil(t, model)
	require.NotEmpty(t, model.TemporalEntities, "temporal entities must survive as jsonb")
	require.NotEmpty(t, model.Links, "links must survive as jsonb")

	back := m.ToEntity(model)
	require.NotNil(t, back)

	assert.Equal(t, chunk.Id, back.Id)
	assert.Equal(t, chunk.DocumentId, back.DocumentId)
	assert.Equal(t, chunk.Content, back.Content)
	assert.Equal(t, chunk.ChunkIndex, back.ChunkIndex)
	assert.Equal(t, chunk.EmbeddingValue, back.EmbeddingValue)
	assert.Equal(t, chunk.TemporalEntities, back.TemporalEntities)
	assert.Equal(t, chunk.Links, back.Links)
	assert.False(t, back.IsDeleted)
}

func TestDocumentChunkMapperNilSafety(t *testing.T) {
	m := NewDocumentChunkMapper()

	assert.Nil(t, m.ToEntity(nil))
	assert.Nil(t, m.ToModel(nil))
}

func TestDocumentChunkMapperEmptyMetadataStaysEmpty(t *testing.T) {
	m := NewDocumentChunkMapper()

	chunk := &entity.DocumentChunk{
		Id:         uuid.New(),
		DocumentId: uuid.New(),
		Content:    "no periods, no links",
		CreatedAt:  time.Now(),
	}

	model := m.ToModel(chunk)
	require.NotNil(t, model)
	assert.Empty(t, model.TemporalEntities)
	assert.Empty(t, model.Links)

	back := m.ToEntity(model)
	require.NotNil(t, back)
	assert.Nil(t, back.TemporalEntities)
	assert.Nil(t, back.Links)
}
