package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docuchat-be/internal/config"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/chunker"
	"docuchat-be/pkg/database"
	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/textmeta"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Ingest CLI: load text files straight into the document store, bypassing the
// REST API and the async queue. Useful for seeding and local testing.
func main() {
	title := flag.String("title", "", "document title (defaults to file name)")
	source := flag.String("source", "", "document source label")
	flag.Parse()

	if flag.NArg() == 0 {
		color.Red("Usage: ingest [-title TITLE] [-source SOURCE] FILE [FILE...]")
		os.Exit(1)
	}

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("Unable to connect to database: %v", err)
		os.Exit(1)
	}

	var provider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	} else {
		provider = embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey)
	}

	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	limiter := rate.NewLimiter(rate.Limit(cfg.Retrieval.EmbedRatePerSec), 1)
	opts := chunkOptions(cfg)

	ctx := context.Background()
	failures := 0

	for _, path := range flag.Args() {
		docTitle := *title
		if docTitle == "" {
			docTitle = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		if err := ingestFile(ctx, uowFactory, provider, limiter, opts, path, docTitle, *source); err != nil {
			color.Red("✗ %s: %v", path, err)
			failures++
			continue
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func ingestFile(
	ctx context.Context,
	uowFactory unitofwork.RepositoryFactory,
	provider embedding.EmbeddingProvider,
	limiter *rate.Limiter,
	opts chunker.Options,
	path, title, source string,
) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	color.Cyan("Ingesting %s (%d bytes)", path, len(raw))

	document := entity.Document{
		Id:        uuid.New(),
		Title:     title,
		Source:    source,
		Content:   string(raw),
		Status:    entity.DocumentStatusProcessing,
		CreatedAt: time.Now(),
	}

	uow := uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		return err
	}

	content := fmt.Sprintf("Document Title: %s\n\n%s", document.Title, document.Content)
	pieces := chunker.Split(content, opts)
	color.White("  split into %d chunks", len(pieces))

	var chunks []*entity.DocumentChunk
	for i, piece := range pieces {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		res, err := provider.Generate(piece, embedding.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		chunks = append(chunks, &entity.DocumentChunk{
			Id:               uuid.New(),
			DocumentId:       document.Id,
			Content:          piece,
			EmbeddingValue:   res.Embedding.Values,
			ChunkIndex:       i,
			TemporalEntities: textmeta.ExtractTemporalEntities(piece),
			Links:            textmeta.ExtractLinks(piece),
			CreatedAt:        time.Now(),
		})
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().CreateBulk(ctx, chunks); err != nil {
		return err
	}
	if err := uow.DocumentRepository().UpdateStatus(ctx, document.Id, entity.DocumentStatusReady, len(chunks)); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	color.Green("✓ %s -> document %s (%d chunks)", path, document.Id, len(chunks))
	return nil
}

func chunkOptions(cfg *config.Config) chunker.Options {
	opts := chunker.DefaultOptions()
	if cfg.Chunking.Strategy == string(chunker.StrategyCharacter) {
		opts.Strategy = chunker.StrategyCharacter
	}
	if cfg.Chunking.MaxTokens > 0 {
		opts.MaxTokens = cfg.Chunking.MaxTokens
	}
	if cfg.Chunking.OverlapTokens > 0 {
		opts.OverlapTokens = cfg.Chunking.OverlapTokens
	}
	if cfg.Chunking.ChunkSize > 0 {
		opts.ChunkSize = cfg.Chunking.ChunkSize
	}
	if cfg.Chunking.ChunkOverlap > 0 {
		opts.ChunkOverlap = cfg.Chunking.ChunkOverlap
	}
	if cfg.Chunking.TokenDivisor > 0 {
		opts.TokenDivisor = cfg.Chunking.TokenDivisor
	}
	return opts
}
