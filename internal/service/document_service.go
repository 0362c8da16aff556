package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/repository/specification"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/events"
	pktNats "docuchat-be/pkg/nats"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Create(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	List(ctx context.Context) ([]*dto.ListDocumentsResponseItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reindex(ctx context.Context, id uuid.UUID) (*dto.ReindexDocumentResponse, error)
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
	}
}

func (s *documentService) Create(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document := entity.Document{
		Id:        uuid.New(),
		Title:     req.Title,
		Source:    req.Source,
		Content:   req.Content,
		Status:    entity.DocumentStatusPending,
		CreatedAt: time.Now(),
	}

	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		return nil, err
	}

	if err := s.enqueueEmbedding(ctx, document.Id); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewDocumentUploaded(document.Id.String(), document.Title))

	return &dto.CreateDocumentResponse{
		Id: document.Id,
	}, nil
}

func (s *documentService) Show(ctx context.Context, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil // Not found
	}

	return &dto.ShowDocumentResponse{
		Id:         document.Id,
		Title:      document.Title,
		Source:     document.Source,
		Content:    document.Content,
		Status:     document.Status,
		ChunkCount: document.ChunkCount,
		CreatedAt:  document.CreatedAt,
		UpdatedAt:  document.UpdatedAt,
	}, nil
}

func (s *documentService) List(ctx context.Context) ([]*dto.ListDocumentsResponseItem, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	documents, err := uow.DocumentRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ListDocumentsResponseItem, 0, len(documents))
	for _, document := range documents {
		items = append(items, &dto.ListDocumentsResponseItem{
			Id:         document.Id,
			Title:      document.Title,
			Status:     document.Status,
			ChunkCount: document.ChunkCount,
			CreatedAt:  document.CreatedAt,
		})
	}
	return items, nil
}

func (s *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if document == nil {
		return fmt.Errorf("document not found")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.publishEvent(ctx, events.NewDocumentDeleted(id.String()))
	return nil
}

// Reindex re-enqueues an existing document for chunking and embedding, used
// after chunking config changes.
func (s *documentService) Reindex(ctx context.Context, id uuid.UUID) (*dto.ReindexDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil
	}

	if err := uow.DocumentRepository().UpdateStatus(ctx, id, entity.DocumentStatusPending, document.ChunkCount); err != nil {
		return nil, err
	}

	if err := s.enqueueEmbedding(ctx, id); err != nil {
		return nil, err
	}

	return &dto.ReindexDocumentResponse{Id: id}, nil
}

func (s *documentService) enqueueEmbedding(ctx context.Context, documentId uuid.UUID) error {
	msgPayload := dto.PublishEmbedDocumentMessage{
		DocumentId: documentId,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return err
	}
	return s.publisherService.Publish(ctx, msgJson)
}

func (s *documentService) publishEvent(ctx context.Context, evt events.Event) {
	if s.eventPublisher == nil {
		return
	}
	// Events feed dashboards; a failed publish must not fail the request.
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		fmt.Printf("[WARN] Failed to publish %s event: %v\n", evt.EventType(), err)
	}
}
