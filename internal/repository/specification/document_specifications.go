package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByDocumentID filters chunks by their parent document.
type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

// ByStatus filters documents by processing status.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// OrderByChunkIndex keeps chunks in document order.
type OrderByChunkIndex struct{}

func (s OrderByChunkIndex) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("chunk_index ASC")
}
