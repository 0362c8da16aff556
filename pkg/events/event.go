package events

import "time"

// Event is the contract for everything published on the event bus.
type Event interface {
	// EventType returns the unique code for this event (e.g. "DOCUMENT_UPLOADED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the concrete carrier used by the typed constructors below.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Document lifecycle event codes.
const (
	TypeDocumentUploaded  = "DOCUMENT_UPLOADED"
	TypeDocumentProcessed = "DOCUMENT_PROCESSED"
	TypeDocumentFailed    = "DOCUMENT_FAILED"
	TypeDocumentDeleted   = "DOCUMENT_DELETED"
	TypeQueryAnswered     = "QUERY_ANSWERED"
)

func NewDocumentUploaded(documentID, title string) Event {
	return BaseEvent{
		Type: TypeDocumentUploaded,
		Data: map[string]interface{}{
			"document_id": documentID,
			"title":       title,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentProcessed(documentID string, chunkCount int) Event {
	return BaseEvent{
		Type: TypeDocumentProcessed,
		Data: map[string]interface{}{
			"document_id": documentID,
			"chunk_count": chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentFailed(documentID string, reason string) Event {
	return BaseEvent{
		Type: TypeDocumentFailed,
		Data: map[string]interface{}{
			"document_id": documentID,
			"reason":      reason,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentDeleted(documentID string) Event {
	return BaseEvent{
		Type: TypeDocumentDeleted,
		Data: map[string]interface{}{
			"document_id": documentID,
		},
		OccurredAt: time.Now(),
	}
}

func NewQueryAnswered(query string, chunkCount int, strategy string) Event {
	return BaseEvent{
		Type: TypeQueryAnswered,
		Data: map[string]interface{}{
			"query":       query,
			"chunk_count": chunkCount,
			"strategy":    strategy,
		},
		OccurredAt: time.Now(),
	}
}
