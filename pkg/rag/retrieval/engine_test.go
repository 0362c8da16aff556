package retrieval

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"sync"
	"testing"

	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/rag/enhance"
)

// fakeEmbedder maps each query text to a single-element vector so the fake
// searcher can tell the fanned-out searches apart.
type fakeEmbedder struct {
	ids map[string]float32
	err error
}

func (f *fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.ids[text]
	if !ok {
		id = -1
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{id}},
	}, nil
}

type fakeSearcher struct {
	mu         sync.Mutex
	byID       map[float32][]SearchResult
	errByID    map[float32]error
	failAbove  float64
	calls      int
	thresholds []float64
	limitsByID map[float32]int
}

func (f *fakeSearcher) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.thresholds = append(f.thresholds, threshold)

	id := vector[0]
	if f.limitsByID != nil {
		f.limitsByID[id] = limit
	}
	if err, ok := f.errByID[id]; ok && err != nil {
		return nil, err
	}
	if f.failAbove > 0 && threshold > f.failAbove {
		return nil, errors.New("index unavailable")
	}
	results := f.byID[id]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func chunk(id string, similarity float64) SearchResult {
	return SearchResult{ChunkID: id, DocumentID: "doc-1", Content: "content " + id, Similarity: similarity}
}

func TestMergeKeepsBestSimilarityPerChunk(t *testing.T) {
	lists := [][]SearchResult{
		{chunk("c1", 0.6), chunk("c2", 0.7)},
		{chunk("c1", 0.8)},
	}

	merged, considered := merge(lists)

	if considered != 3 {
		t.Errorf("considered = %d, want 3 (pre-dedup total)", considered)
	}
	if len(merged) != 2 {
		t.Fatalf("merged size = %d, want 2", len(merged))
	}
	if merged["c1"].Similarity != 0.8 {
		t.Errorf("c1 similarity = %v, want 0.8 (best of duplicates)", merged["c1"].Similarity)
	}

	ranked := rank(merged, 10)
	if ranked[0].ChunkID != "c1" || ranked[1].ChunkID != "c2" {
		t.Errorf("rank order = [%s %s], want [c1 c2]", ranked[0].ChunkID, ranked[1].ChunkID)
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	a := []SearchResult{chunk("c1", 0.6), chunk("c3", 0.5)}
	b := []SearchResult{chunk("c1", 0.8), chunk("c2", 0.7)}

	forward, _ := merge([][]SearchResult{a, b})
	backward, _ := merge([][]SearchResult{b, a})

	if !reflect.DeepEqual(forward, backward) {
		t.Errorf("merge depends on list order: %v vs %v", forward, backward)
	}
}

func TestRankTruncatesToMatchCount(t *testing.T) {
	merged, _ := merge([][]SearchResult{{
		chunk("c1", 0.9), chunk("c2", 0.8), chunk("c3", 0.7), chunk("c4", 0.6),
	}})

	ranked := rank(merged, 2)
	if len(ranked) != 2 {
		t.Fatalf("len = %d, want 2", len(ranked))
	}
	if ranked[0].ChunkID != "c1" || ranked[1].ChunkID != "c2" {
		t.Errorf("kept [%s %s], want the two highest-similarity chunks", ranked[0].ChunkID, ranked[1].ChunkID)
	}
}

func TestRetrieveFansOutAndMerges(t *testing.T) {
	embedder := &fakeEmbedder{ids: map[string]float32{
		"original query": 1,
		"concept a":      2,
		"alt phrasing":   3,
	}}
	searcher := &fakeSearcher{
		byID: map[float32][]SearchResult{
			1: {chunk("c1", 0.8), chunk("c2", 0.7)},
			2: {chunk("c2", 0.75), chunk("c3", 0.6)},
			3: {chunk("c4", 0.65)},
		},
		limitsByID: map[float32]int{},
	}
	engine := NewEngine(embedder, searcher, silentLogger())

	understanding := &enhance.QueryUnderstanding{
		KeyConcepts:    []string{"concept a"},
		SearchQueries:  []string{"alt phrasing"},
		SearchStrategy: enhance.StrategyHybrid,
	}

	result := engine.Retrieve(context.Background(), "original query", understanding, Options{
		MatchCount:          10,
		SimilarityThreshold: 0.55,
	})

	if !result.ReasoningApplied {
		t.Error("ReasoningApplied = false, want true on the enhanced path")
	}
	if result.SearchStrategyUsed != enhance.StrategyHybrid {
		t.Errorf("SearchStrategyUsed = %q, want %q", result.SearchStrategyUsed, enhance.StrategyHybrid)
	}
	if result.TotalChunksConsidered != 5 {
		t.Errorf("TotalChunksConsidered = %d, want 5 (pre-dedup sum)", result.TotalChunksConsidered)
	}
	if len(result.Chunks) != 4 {
		t.Fatalf("got %d chunks, want 4 distinct", len(result.Chunks))
	}
	for _, c := range result.Chunks {
		if c.ChunkID == "c2" && c.Similarity != 0.75 {
			t.Errorf("c2 similarity = %v, want best-of-duplicates 0.75", c.Similarity)
		}
	}

	// Primary gets ceil(matchCount/2), angles get a small fixed budget.
	if got := searcher.limitsByID[1]; got != 5 {
		t.Errorf("primary limit = %d, want 5", got)
	}
	if got := searcher.limitsByID[2]; got != angleResultCount {
		t.Errorf("concept limit = %d, want %d", got, angleResultCount)
	}
}

func TestRetrieveOptionalAngleFailureDropsOnlyItsContribution(t *testing.T) {
	embedder := &fakeEmbedder{ids: map[string]float32{
		"q":         1,
		"concept a": 2,
	}}
	searcher := &fakeSearcher{
		byID:    map[float32][]SearchResult{1: {chunk("c1", 0.8)}},
		errByID: map[float32]error{2: errors.New("timeout")},
	}
	engine := NewEngine(embedder, searcher, silentLogger())

	understanding := &enhance.QueryUnderstanding{
		KeyConcepts:    []string{"concept a"},
		SearchStrategy: enhance.StrategyBroad,
	}

	result := engine.Retrieve(context.Background(), "q", understanding, Options{MatchCount: 10, SimilarityThreshold: 0.55})

	if !result.ReasoningApplied {
		t.Error("an optional angle failure must not demote the result to fallback")
	}
	if len(result.Chunks) != 1 || result.Chunks[0].ChunkID != "c1" {
		t.Errorf("chunks = %v, want only the primary contribution", result.Chunks)
	}
}

func TestRetrievePrimaryFailureFallsBack(t *testing.T) {
	embedder := &fakeEmbedder{ids: map[string]float32{"q": 1}}
	// Strict threshold fails, relaxed fallback threshold succeeds.
	searcher := &fakeSearcher{
		byID:      map[float32][]SearchResult{1: {chunk("c1", 0.5)}},
		failAbove: 0.45,
	}
	engine := NewEngine(embedder, searcher, silentLogger())

	result := engine.Retrieve(context.Background(), "q", nil, Options{
		MatchCount:          10,
		SimilarityThreshold: 0.55,
		FallbackThreshold:   0.45,
	})

	if result.ReasoningApplied {
		t.Error("ReasoningApplied = true on the fallback path, want false")
	}
	if result.SearchStrategyUsed != StrategyFallback {
		t.Errorf("SearchStrategyUsed = %q, want %q", result.SearchStrategyUsed, StrategyFallback)
	}
	if len(result.Chunks) != 1 || result.Chunks[0].ChunkID != "c1" {
		t.Errorf("chunks = %v, want the fallback search result", result.Chunks)
	}
}

func TestRetrieveNeverReturnsNilEvenWhenEverythingFails(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}
	engine := NewEngine(embedder, &fakeSearcher{}, silentLogger())

	result := engine.Retrieve(context.Background(), "q", nil, Options{})

	if result == nil {
		t.Fatal("Retrieve returned nil")
	}
	if len(result.Chunks) != 0 {
		t.Errorf("chunks = %v, want empty", result.Chunks)
	}
	if result.SearchStrategyUsed != StrategyFallback {
		t.Errorf("SearchStrategyUsed = %q, want %q", result.SearchStrategyUsed, StrategyFallback)
	}
}

func TestRetrievePlainSinglePass(t *testing.T) {
	embedder := &fakeEmbedder{ids: map[string]float32{"q": 1}}
	searcher := &fakeSearcher{byID: map[float32][]SearchResult{1: {chunk("c1", 0.8)}}}
	engine := NewEngine(embedder, searcher, silentLogger())

	result := engine.RetrievePlain(context.Background(), "q", Options{MatchCount: 5, SimilarityThreshold: 0.55})

	if result.ReasoningApplied {
		t.Error("plain path must report ReasoningApplied = false")
	}
	if result.SearchStrategyUsed != StrategyStandard {
		t.Errorf("SearchStrategyUsed = %q, want %q", result.SearchStrategyUsed, StrategyStandard)
	}
	if searcher.calls != 1 {
		t.Errorf("searcher calls = %d, want exactly one", searcher.calls)
	}
}

func TestPlanSearchesSkipsBlankAndDuplicateAngles(t *testing.T) {
	engine := NewEngine(&fakeEmbedder{}, &fakeSearcher{}, silentLogger())

	understanding := &enhance.QueryUnderstanding{
		KeyConcepts:    []string{"  ", "Original Query", "fresh concept"},
		SearchQueries:  []string{"original query"},
		SearchStrategy: enhance.StrategyHybrid,
	}

	searches := engine.planSearches("original query", understanding, Options{MatchCount: 10}.withDefaults())

	if len(searches) != 2 {
		t.Fatalf("got %d searches, want 2 (primary + one distinct concept)", len(searches))
	}
	if !searches[0].primary || searches[0].query != "original query" {
		t.Errorf("first search must be the primary original query, got %+v", searches[0])
	}
	if searches[1].query != "fresh concept" {
		t.Errorf("angle query = %q, want %q", searches[1].query, "fresh concept")
	}
}
