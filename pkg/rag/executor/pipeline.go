package executor

import (
	"context"
	"log"
	"sort"
	"time"

	"docuchat-be/pkg/rag/classify"
	"docuchat-be/pkg/rag/enhance"
	"docuchat-be/pkg/rag/retrieval"
	"docuchat-be/pkg/rag/temporal"
)

// Config carries pipeline-level tuning, normally sourced from env config.
type Config struct {
	MatchCount        int
	SubSearchTimeout  time.Duration
	FallbackThreshold float64
	EnhancerModel     string
	EnhancerMaxTokens int
	RAGDisabled       bool
}

// Request is one retrieval request on behalf of a chat turn.
type Request struct {
	Query         string
	Model         string
	ReasoningMode bool
	MatchCount    int
}

// Response is the fully post-processed retrieval outcome.
type Response struct {
	Chunks                []retrieval.SearchResult    `json:"chunks"`
	QueryContext          *classify.QueryContext      `json:"query_context"`
	Understanding         *enhance.QueryUnderstanding `json:"understanding,omitempty"`
	ReasoningApplied      bool                        `json:"reasoning_applied"`
	SearchStrategyUsed    string                      `json:"search_strategy_used"`
	TotalChunksConsidered int                         `json:"total_chunks_considered"`
	TemporalFiltered      int                         `json:"temporal_filtered"`
}

// Pipeline wires the query classifier, the LLM enhancer, the retrieval engine
// and the temporal validator into one call. Like the engine underneath it, it
// degrades instead of failing: every request produces a Response.
type Pipeline struct {
	classifier *classify.Classifier
	enhancer   *enhance.Enhancer
	engine     *retrieval.Engine
	cfg        Config
	logger     *log.Logger
}

func NewPipeline(classifier *classify.Classifier, enhancer *enhance.Enhancer, engine *retrieval.Engine, cfg Config, logger *log.Logger) *Pipeline {
	if cfg.MatchCount <= 0 {
		cfg.MatchCount = 10
	}
	return &Pipeline{
		classifier: classifier,
		enhancer:   enhancer,
		engine:     engine,
		cfg:        cfg,
		logger:     logger,
	}
}

// Execute runs the full retrieval flow for one query.
func (p *Pipeline) Execute(ctx context.Context, req Request) *Response {
	qc := p.classifier.Classify(req.Query)
	p.logger.Printf("[PIPELINE] %s", qc.Reasoning)

	matchCount := req.MatchCount
	if matchCount <= 0 {
		matchCount = p.cfg.MatchCount
	}
	opts := retrieval.Options{
		MatchCount:          matchCount,
		SimilarityThreshold: qc.SuggestedThreshold,
		FallbackThreshold:   p.cfg.FallbackThreshold,
		SubSearchTimeout:    p.cfg.SubSearchTimeout,
	}

	var understanding *enhance.QueryUnderstanding
	var result *retrieval.Result

	if enhance.ShouldUseEnhancedRAG(p.cfg.RAGDisabled, req.ReasoningMode, req.Model) {
		understanding = p.enhancer.Understand(ctx, req.Query, p.cfg.EnhancerModel, p.cfg.EnhancerMaxTokens)
		result = p.engine.Retrieve(ctx, req.Query, understanding, opts)
	} else {
		result = p.engine.RetrievePlain(ctx, req.Query, opts)
	}

	chunks, filtered := p.applyTemporalValidation(qc, result.Chunks)

	return &Response{
		Chunks:                chunks,
		QueryContext:          qc,
		Understanding:         understanding,
		ReasoningApplied:      result.ReasoningApplied,
		SearchStrategyUsed:    result.SearchStrategyUsed,
		TotalChunksConsidered: result.TotalChunksConsidered,
		TemporalFiltered:      filtered,
	}
}

// applyTemporalValidation grades each chunk against the query's timeframe.
// Exact-precision temporal queries drop invalid chunks outright; everything
// else is re-weighted so period-matching chunks rise without losing recall.
func (p *Pipeline) applyTemporalValidation(qc *classify.QueryContext, chunks []retrieval.SearchResult) ([]retrieval.SearchResult, int) {
	if !qc.IsTemporalQuery || qc.Timeframe == "" {
		return chunks, 0
	}

	kept := make([]retrieval.SearchResult, 0, len(chunks))
	filtered := 0

	for _, chunk := range chunks {
		var v temporal.Validation
		if len(chunk.TemporalEntities) > 0 {
			v = temporal.Validate(qc, chunk.TemporalEntities)
		} else {
			v = temporal.ValidateContent(qc, chunk.Content)
		}

		if qc.RequireTemporalMatch && !v.Valid {
			p.logger.Printf("[PIPELINE] Dropping chunk %s: %s", chunk.ChunkID, v.Reason)
			filtered++
			continue
		}

		chunk.Similarity *= 0.5 + 0.5*v.Score
		kept = append(kept, chunk)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})

	return kept, filtered
}
