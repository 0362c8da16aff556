package bootstrap

import (
	"log"
	"time"

	"docuchat-be/internal/config"
	"docuchat-be/internal/controller"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/internal/service"
	"docuchat-be/pkg/cache"
	"docuchat-be/pkg/chunker"
	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/llm/factory"
	pktNats "docuchat-be/pkg/nats"
	"docuchat-be/pkg/rag/classify"
	"docuchat-be/pkg/rag/enhance"
	"docuchat-be/pkg/rag/executor"
	"docuchat-be/pkg/rag/retrieval"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// System logger, exposed so main can Sync on shutdown.
	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Embedding Provider
	var embeddingProvider embedding.EmbeddingProvider
	var embeddingModel string
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		embeddingModel = cfg.Ai.OllamaModel
		sysLogger.Info("BOOTSTRAP", "Using Embedding Provider: OLLAMA", map[string]interface{}{"model": cfg.Ai.OllamaModel})
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey)
		embeddingModel = "text-embedding-004"
		sysLogger.Info("BOOTSTRAP", "Using Embedding Provider: GEMINI", nil)
	}

	// Embedding cache keeps repeated query embeddings off the provider.
	embeddingCache := newEmbeddingCache(cfg, sysLogger)
	cacheTTL := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	embeddingProvider = embedding.NewCachedProvider(embeddingProvider, embeddingCache, embeddingModel, cacheTTL)

	// 4. LLM Provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	sysLogger.Info("BOOTSTRAP", "Using LLM Provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 5. NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		natsPub = nil
	}

	// 6. Retrieval Core
	ragLogger := log.Default()
	classifier := classify.NewClassifier(classify.Thresholds{
		Exact:  cfg.Retrieval.ThresholdExact,
		High:   cfg.Retrieval.ThresholdHigh,
		Medium: cfg.Retrieval.ThresholdMedium,
		Low:    cfg.Retrieval.ThresholdLow,
	})
	enhancer := enhance.NewEnhancer(llmProvider, ragLogger)
	searcher := service.NewChunkSearcher(uowFactory)
	engine := retrieval.NewEngine(embeddingProvider, searcher, ragLogger)

	pipeline := executor.NewPipeline(classifier, enhancer, engine, executor.Config{
		MatchCount:        cfg.Retrieval.MatchCount,
		SubSearchTimeout:  time.Duration(cfg.Retrieval.SubSearchTimeoutMS) * time.Millisecond,
		FallbackThreshold: cfg.Retrieval.ThresholdLow,
		EnhancerModel:     cfg.Ai.EnhancerModel,
		EnhancerMaxTokens: cfg.Ai.EnhancerMaxTokens,
		RAGDisabled:       cfg.Retrieval.RAGDisabled,
	}, ragLogger)

	// 7. Services
	publisherService := service.NewPublisherService(cfg.Queue.EmbedDocumentTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Queue.EmbedDocumentTopic,
		uowFactory,
		embeddingProvider,
		natsPub,
		chunkOptions(cfg),
		cfg.Retrieval.EmbedRatePerSec,
	)

	documentService := service.NewDocumentService(uowFactory, publisherService, natsPub)
	chatService := service.NewChatService(pipeline, cfg.Ai.LLMModel, natsPub)

	// 8. Controllers
	return &Container{
		DocumentController: controller.NewDocumentController(documentService),
		ChatController:     controller.NewChatController(chatService),

		ConsumerService: consumerService,
		Logger:          sysLogger,
	}
}

func newEmbeddingCache(cfg *config.Config, sysLogger logger.ILogger) cache.Cache {
	switch cfg.Cache.Backend {
	case "redis":
		redisCache, err := cache.NewRedis(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to init Redis cache, falling back to memory", map[string]interface{}{"error": err.Error()})
			return cache.NewMemory(time.Duration(cfg.Cache.TTLMinutes) * time.Minute)
		}
		return redisCache
	case "none":
		return cache.Noop{}
	default:
		return cache.NewMemory(time.Duration(cfg.Cache.TTLMinutes) * time.Minute)
	}
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
