package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateDocumentRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Source  string `json:"source" validate:"omitempty,max=512"`
	Content string `json:"content" validate:"required"`
}

type CreateDocumentResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShowDocumentResponse struct {
	Id         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Source     string     `json:"source,omitempty"`
	Content    string     `json:"content"`
	Status     string     `json:"status"`
	ChunkCount int        `json:"chunk_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type ListDocumentsResponseItem struct {
	Id         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReindexDocumentResponse struct {
	Id uuid.UUID `json:"id"`
}

// PublishEmbedDocumentMessage is the ingest queue payload.
type PublishEmbedDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
