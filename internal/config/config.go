package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Chunking  ChunkingConfig
	Retrieval RetrievalConfig
	Cache     CacheConfig
	Queue     QueueConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	GeminiAPIKey      string
	LLMProvider       string // "ollama"
	LLMModel          string // chat model, e.g. "qwen2.5"
	EnhancerModel     string // model used for query understanding
	EnhancerMaxTokens int
}

type ChunkingConfig struct {
	Strategy      string // "sentence" or "character"
	MaxTokens     int
	OverlapTokens int
	ChunkSize     int
	ChunkOverlap  int
	TokenDivisor  int
}

type RetrievalConfig struct {
	MatchCount         int
	SubSearchTimeoutMS int
	RAGDisabled        bool
	ThresholdExact     float64
	ThresholdHigh      float64
	ThresholdMedium    float64
	ThresholdLow       float64
	EmbedRatePerSec    float64
}

type CacheConfig struct {
	Backend    string // "memory", "redis" or "none"
	TTLMinutes int
}

type QueueConfig struct {
	EmbedDocumentTopic string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "qwen2.5"),
			EnhancerModel:     getEnv("ENHANCER_MODEL", "qwen2.5"),
			EnhancerMaxTokens: getEnvAsInt("ENHANCER_MAX_TOKENS", 500),
		},
		Chunking: ChunkingConfig{
			Strategy:      getEnv("CHUNK_STRATEGY", "sentence"),
			MaxTokens:     getEnvAsInt("CHUNK_MAX_TOKENS", 400),
			OverlapTokens: getEnvAsInt("CHUNK_OVERLAP_TOKENS", 50),
			ChunkSize:     getEnvAsInt("CHUNK_SIZE", 1500),
			ChunkOverlap:  getEnvAsInt("CHUNK_OVERLAP", 200),
			TokenDivisor:  getEnvAsInt("CHUNK_TOKEN_DIVISOR", 4),
		},
		Retrieval: RetrievalConfig{
			MatchCount:         getEnvAsInt("RETRIEVAL_MATCH_COUNT", 10),
			SubSearchTimeoutMS: getEnvAsInt("RETRIEVAL_SUBSEARCH_TIMEOUT_MS", 10000),
			RAGDisabled:        getEnvAsBool("RAG_DISABLED", false),
			ThresholdExact:     getEnvAsFloat("RETRIEVAL_THRESHOLD_EXACT", 0.75),
			ThresholdHigh:      getEnvAsFloat("RETRIEVAL_THRESHOLD_HIGH", 0.65),
			ThresholdMedium:    getEnvAsFloat("RETRIEVAL_THRESHOLD_MEDIUM", 0.55),
			ThresholdLow:       getEnvAsFloat("RETRIEVAL_THRESHOLD_LOW", 0.45),
			EmbedRatePerSec:    getEnvAsFloat("EMBED_RATE_PER_SEC", 5),
		},
		Cache: CacheConfig{
			Backend:    getEnv("EMBED_CACHE_BACKEND", "memory"),
			TTLMinutes: getEnvAsInt("EMBED_CACHE_TTL_MINUTES", 1440),
		},
		Queue: QueueConfig{
			EmbedDocumentTopic: getEnv("EMBED_DOCUMENT_TOPIC_NAME", "EMBED_DOCUMENT_CONTENT"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
