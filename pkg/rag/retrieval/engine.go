package retrieval

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/rag/enhance"
	"docuchat-be/pkg/textmeta"
)

// SearchResult is one retrieved chunk, ranked by similarity descending.
type SearchResult struct {
	ChunkID          string                    `json:"chunk_id"`
	DocumentID       string                    `json:"document_id"`
	Content          string                    `json:"content"`
	Similarity       float64                   `json:"similarity"`
	TemporalEntities []textmeta.TemporalEntity `json:"temporal_entities,omitempty"`
}

// VectorSearcher is the vector-store collaborator. Results come back ranked
// by similarity descending and already filtered to >= threshold; the engine
// trusts that contract and never re-filters.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]SearchResult, error)
}

// Result is the engine's output for one query.
type Result struct {
	Chunks                []SearchResult `json:"chunks"`
	ReasoningApplied      bool           `json:"reasoning_applied"`
	SearchStrategyUsed    string         `json:"search_strategy_used"`
	TotalChunksConsidered int            `json:"total_chunks_considered"`
}

// Strategy labels reported in Result.SearchStrategyUsed.
const (
	StrategyStandard = "standard"
	StrategyFallback = "fallback"
)

// Options tunes one retrieval call.
type Options struct {
	MatchCount          int
	SimilarityThreshold float64
	FallbackThreshold   float64
	SubSearchTimeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MatchCount <= 0 {
		o.MatchCount = 10
	}
	if o.FallbackThreshold <= 0 {
		o.FallbackThreshold = 0.45
	}
	if o.SubSearchTimeout <= 0 {
		o.SubSearchTimeout = 10 * time.Second
	}
	return o
}

// Per-angle caps for the multi-stage fan-out.
const (
	maxConceptSearches   = 2
	maxAlternateSearches = 2
	angleResultCount     = 3
)

// Engine executes one or more similarity searches per query and merges the
// results into a deduplicated ranked set.
type Engine struct {
	embedder embedding.EmbeddingProvider
	searcher VectorSearcher
	logger   *log.Logger
}

func NewEngine(embedder embedding.EmbeddingProvider, searcher VectorSearcher, logger *log.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		searcher: searcher,
		logger:   logger,
	}
}

type subSearch struct {
	query   string
	limit   int
	primary bool
}

// Retrieve runs the reasoning-enhanced multi-angle search. The original query
// is always searched; key concepts and alternative phrasings join the fan-out
// depending on the understanding's strategy. Never returns an error: any
// failure on the primary angle degrades to the single-pass fallback.
func (e *Engine) Retrieve(ctx context.Context, query string, understanding *enhance.QueryUnderstanding, opts Options) *Result {
	opts = opts.withDefaults()
	if understanding == nil {
		understanding = enhance.Fallback(query)
	}

	searches := e.planSearches(query, understanding, opts)
	e.logger.Printf("[RETRIEVAL] Fan-out: %d searches (strategy=%s)", len(searches), understanding.SearchStrategy)

	lists := make([][]SearchResult, len(searches))
	errs := make([]error, len(searches))

	var wg sync.WaitGroup
	for i, s := range searches {
		wg.Add(1)
		go func(i int, s subSearch) {
			defer wg.Done()
			tctx, cancel := context.WithTimeout(ctx, opts.SubSearchTimeout)
			defer cancel()
			lists[i], errs[i] = e.search(tctx, s.query, s.limit, opts.SimilarityThreshold)
		}(i, s)
	}
	wg.Wait()

	// The primary search is index 0 by construction. Its failure triggers
	// the engine-level fallback; a failed optional angle only loses its
	// contribution.
	if errs[0] != nil {
		e.logger.Printf("[WARN] Primary search failed, falling back to single pass: %v", errs[0])
		return e.fallback(ctx, query, opts)
	}
	for i := 1; i < len(errs); i++ {
		if errs[i] != nil {
			e.logger.Printf("[WARN] Sub-search %d failed, dropping its contribution: %v", i, errs[i])
			lists[i] = nil
		}
	}

	merged, considered := merge(lists)
	chunks := rank(merged, opts.MatchCount)

	return &Result{
		Chunks:                chunks,
		ReasoningApplied:      true,
		SearchStrategyUsed:    understanding.SearchStrategy,
		TotalChunksConsidered: considered,
	}
}

// RetrievePlain is the single-pass path used when enhancement is gated off.
func (e *Engine) RetrievePlain(ctx context.Context, query string, opts Options) *Result {
	opts = opts.withDefaults()

	tctx, cancel := context.WithTimeout(ctx, opts.SubSearchTimeout)
	defer cancel()

	results, err := e.search(tctx, query, opts.MatchCount, opts.SimilarityThreshold)
	if err != nil {
		e.logger.Printf("[WARN] Plain search failed, falling back: %v", err)
		return e.fallback(ctx, query, opts)
	}

	merged, considered := merge([][]SearchResult{results})
	return &Result{
		Chunks:                rank(merged, opts.MatchCount),
		ReasoningApplied:      false,
		SearchStrategyUsed:    StrategyStandard,
		TotalChunksConsidered: considered,
	}
}

// fallback is the last line of defense: one plain search at the fallback
// threshold. Even its failure yields an empty result, never an error, because
// an unanswerable query is worse than a mediocre answer.
func (e *Engine) fallback(ctx context.Context, query string, opts Options) *Result {
	tctx, cancel := context.WithTimeout(ctx, opts.SubSearchTimeout)
	defer cancel()

	result := &Result{
		ReasoningApplied:   false,
		SearchStrategyUsed: StrategyFallback,
	}

	results, err := e.search(tctx, query, opts.MatchCount, opts.FallbackThreshold)
	if err != nil {
		e.logger.Printf("[ERROR] Fallback search failed, returning empty result: %v", err)
		return result
	}

	merged, considered := merge([][]SearchResult{results})
	result.Chunks = rank(merged, opts.MatchCount)
	result.TotalChunksConsidered = considered
	return result
}

// planSearches builds the fan-out list; the primary search is always first.
func (e *Engine) planSearches(query string, understanding *enhance.QueryUnderstanding, opts Options) []subSearch {
	searches := []subSearch{{
		query:   query,
		limit:   (opts.MatchCount + 1) / 2,
		primary: true,
	}}

	addAngle := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" || strings.EqualFold(q, query) {
			return
		}
		searches = append(searches, subSearch{query: q, limit: angleResultCount})
	}

	strategy := understanding.SearchStrategy
	if strategy == enhance.StrategyBroad || strategy == enhance.StrategyHybrid {
		for i, concept := range understanding.KeyConcepts {
			if i >= maxConceptSearches {
				break
			}
			addAngle(concept)
		}
	}
	if strategy == enhance.StrategySpecific || strategy == enhance.StrategyHybrid {
		for i, alternate := range understanding.SearchQueries {
			if i >= maxAlternateSearches {
				break
			}
			addAngle(alternate)
		}
	}

	return searches
}

func (e *Engine) search(ctx context.Context, query string, limit int, threshold float64) ([]SearchResult, error) {
	embeddingRes, err := e.embedder.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return e.searcher.Search(ctx, embeddingRes.Embedding.Values, limit, threshold)
}

// merge folds result lists into a best-by-similarity map. It is commutative,
// so the completion order of the fanned-out searches cannot change the
// outcome. The second return value is the pre-dedup total, kept for
// observability.
func merge(lists [][]SearchResult) (map[string]SearchResult, int) {
	best := make(map[string]SearchResult)
	considered := 0

	for _, list := range lists {
		considered += len(list)
		for _, r := range list {
			if existing, ok := best[r.ChunkID]; !ok || r.Similarity > existing.Similarity {
				best[r.ChunkID] = r
			}
		}
	}
	return best, considered
}

// rank sorts merged results by similarity descending (chunk id breaks ties
// for determinism) and truncates to matchCount.
func rank(best map[string]SearchResult, matchCount int) []SearchResult {
	ranked := make([]SearchResult, 0, len(best))
	for _, r := range best {
		ranked = append(ranked, r)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		return ranked[i].ChunkID < ranked[j].ChunkID
	})

	if len(ranked) > matchCount {
		ranked = ranked[:matchCount]
	}
	return ranked
}
