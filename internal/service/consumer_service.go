package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/repository/specification"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/chunker"
	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/events"
	pktNats "docuchat-be/pkg/nats"
	"docuchat-be/pkg/textmeta"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	eventPublisher    *pktNats.Publisher
	chunkOpts         chunker.Options
	embedLimiter      *rate.Limiter
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	eventPublisher *pktNats.Publisher,
	chunkOpts chunker.Options,
	embedRatePerSec float64,
) IConsumerService {
	if embedRatePerSec <= 0 {
		embedRatePerSec = 5
	}
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		eventPublisher:    eventPublisher,
		chunkOpts:         chunkOpts,
		embedLimiter:      rate.NewLimiter(rate.Limit(embedRatePerSec), 1),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Processing embeddings for DocumentId: %s", payload.DocumentId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		log.Printf("[ERROR] Failed to get document %s: %v", payload.DocumentId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if document == nil {
		log.Printf("[ERROR] Document not found: %s", payload.DocumentId)
		msg.Ack() // Document deleted? Ack.
		return
	}

	if err := uow.DocumentRepository().UpdateStatus(ctx, document.Id, entity.DocumentStatusProcessing, document.ChunkCount); err != nil {
		log.Printf("[WARN] Failed to mark document %s processing: %v", document.Id, err)
	}

	content := fmt.Sprintf("Document Title: %s\n\n%s", document.Title, document.Content)

	chunks := chunker.Split(content, cs.chunkOpts)
	log.Printf("[INFO] Content split into %d chunks (strategy=%s)", len(chunks), cs.chunkOpts.Strategy)

	newChunks, err := cs.embedChunks(ctx, document.Id, chunks)
	if err != nil {
		log.Printf("[ERROR] Failed to embed document %s: %v", payload.DocumentId, err)
		cs.markFailed(ctx, uow, document, err)
		msg.Nack()
		return
	}

	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	log.Printf("[INFO] Deleting old chunks for document %s", payload.DocumentId)
	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, document.Id); err != nil {
		log.Printf("[ERROR] Failed to delete old chunks: %v", err)
		msg.Nack()
		return
	}

	log.Printf("[INFO] Creating %d new chunks for document %s", len(newChunks), payload.DocumentId)
	if len(newChunks) > 0 {
		if err := uow.DocumentChunkRepository().CreateBulk(ctx, newChunks); err != nil {
			log.Printf("[ERROR] Failed to create bulk chunks: %v", err)
			msg.Nack()
			return
		}
	}

	if err := uow.DocumentRepository().UpdateStatus(ctx, document.Id, entity.DocumentStatusReady, len(newChunks)); err != nil {
		log.Printf("[ERROR] Failed to update document status: %v", err)
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit transaction: %v", err)
		msg.Nack()
		return
	}

	if cs.eventPublisher != nil {
		evt := events.NewDocumentProcessed(document.Id.String(), len(newChunks))
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish DOCUMENT_PROCESSED event: %v", err)
		}
	}

	log.Printf("[SUCCESS] Document processed: %d chunks for DocumentId: %s", len(newChunks), payload.DocumentId)
	msg.Ack()
}

// embedChunks generates one embedding per chunk, rate limited to stay under
// the provider's quota, and annotates each chunk with extracted metadata.
func (cs *consumerService) embedChunks(ctx context.Context, documentId uuid.UUID, chunks []string) ([]*entity.DocumentChunk, error) {
	var newChunks []*entity.DocumentChunk

	for i, chunk := range chunks {
		if err := cs.embedLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		res, err := cs.embeddingProvider.Generate(chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		newChunks = append(newChunks, &entity.DocumentChunk{
			Id:               uuid.New(),
			DocumentId:       documentId,
			Content:          chunk,
			EmbeddingValue:   res.Embedding.Values,
			ChunkIndex:       i,
			TemporalEntities: textmeta.ExtractTemporalEntities(chunk),
			Links:            textmeta.ExtractLinks(chunk),
			CreatedAt:        time.Now(),
		})
	}

	return newChunks, nil
}

func (cs *consumerService) markFailed(ctx context.Context, uow unitofwork.UnitOfWork, document *entity.Document, cause error) {
	if err := uow.DocumentRepository().UpdateStatus(ctx, document.Id, entity.DocumentStatusFailed, document.ChunkCount); err != nil {
		log.Printf("[WARN] Failed to mark document %s failed: %v", document.Id, err)
	}
	if cs.eventPublisher != nil {
		if err := cs.eventPublisher.Publish(ctx, events.NewDocumentFailed(document.Id.String(), cause.Error())); err != nil {
			log.Printf("[WARN] Failed to publish DOCUMENT_FAILED event: %v", err)
		}
	}
}
