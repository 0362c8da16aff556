package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document processing statuses.
const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusFailed     = "failed"
)

type Document struct {
	Id         uuid.UUID
	Title      string
	Source     string
	Content    string
	Status     string
	ChunkCount int
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
