package enhance

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	"docuchat-be/pkg/llm"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestUnderstandParsesWellFormedResponse(t *testing.T) {
	provider := &fakeLLM{response: `{
		"key_concepts": ["quarterly revenue", "Apple"],
		"search_queries": ["Apple revenue Q1 2024", "Apple first quarter sales"],
		"context_needed": "financial results for the requested quarter",
		"search_strategy": "specific"
	}`}
	e := NewEnhancer(provider, testLogger())

	u := e.Understand(context.Background(), "What was Apple's Q1 2024 revenue?", "qwen2.5", 512)

	if len(u.KeyConcepts) != 2 {
		t.Errorf("key concepts = %v", u.KeyConcepts)
	}
	if u.SearchStrategy != StrategySpecific {
		t.Errorf("strategy = %q, want specific", u.SearchStrategy)
	}
}

func TestUnderstandStripsCodeFences(t *testing.T) {
	provider := &fakeLLM{response: "```json\n{\"key_concepts\":[\"margins\"],\"search_queries\":[\"gross margin trend\"],\"context_needed\":\"margin history\",\"search_strategy\":\"broad\"}\n```"}
	e := NewEnhancer(provider, testLogger())

	u := e.Understand(context.Background(), "how are margins doing", "qwen2.5", 0)

	if u.SearchStrategy != StrategyBroad {
		t.Errorf("strategy = %q, want broad (fence stripping failed?)", u.SearchStrategy)
	}
	if u.KeyConcepts[0] != "margins" {
		t.Errorf("key concepts = %v", u.KeyConcepts)
	}
}

func TestUnderstandFallsBackOnFailures(t *testing.T) {
	query := "what changed since last year"

	tests := []struct {
		name     string
		provider *fakeLLM
	}{
		{"provider error", &fakeLLM{err: fmt.Errorf("connection refused")}},
		{"not JSON", &fakeLLM{response: "I think the user wants to know about changes."}},
		{"JSON missing required fields", &fakeLLM{response: `{"context_needed":"something"}`}},
		{"malformed JSON", &fakeLLM{response: `{"key_concepts": [`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnhancer(tt.provider, testLogger())
			u := e.Understand(context.Background(), query, "qwen2.5", 0)

			if u == nil {
				t.Fatal("understanding must never be nil")
			}
			if len(u.KeyConcepts) != 1 || u.KeyConcepts[0] != query {
				t.Errorf("fallback key concepts = %v, want [%q]", u.KeyConcepts, query)
			}
			if len(u.SearchQueries) != 1 || u.SearchQueries[0] != query {
				t.Errorf("fallback search queries = %v, want [%q]", u.SearchQueries, query)
			}
			if u.SearchStrategy != StrategyHybrid {
				t.Errorf("fallback strategy = %q, want hybrid", u.SearchStrategy)
			}
		})
	}
}

func TestUnderstandNormalizesUnknownStrategy(t *testing.T) {
	provider := &fakeLLM{response: `{"key_concepts":["x"],"search_queries":["y"],"search_strategy":"aggressive"}`}
	e := NewEnhancer(provider, testLogger())

	u := e.Understand(context.Background(), "query", "qwen2.5", 0)

	if u.SearchStrategy != StrategyHybrid {
		t.Errorf("unknown strategy should normalize to hybrid, got %q", u.SearchStrategy)
	}
	if u.ContextNeeded == "" {
		t.Error("missing context_needed should receive a default")
	}
}

func TestShouldUseEnhancedRAG(t *testing.T) {
	tests := []struct {
		name          string
		ragDisabled   bool
		reasoningMode bool
		model         string
		want          bool
	}{
		{"all conditions met", false, true, "qwen2.5", true},
		{"rag disabled", true, true, "qwen2.5", false},
		{"reasoning mode off", false, false, "qwen2.5", false},
		{"model without reasoning", false, true, "tinyllama", false},
		{"unknown model", false, true, "mystery-model", false},
		{"versioned known model", false, true, "qwen2.5:14b", true},
		{"reasoner by name heuristic", false, true, "acme-reasoner-v2", true},
		{"deepseek r1 tag", false, true, "deepseek-r1:32b", true},
		{"empty model", false, true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldUseEnhancedRAG(tt.ragDisabled, tt.reasoningMode, tt.model)
			if got != tt.want {
				t.Errorf("ShouldUseEnhancedRAG(%v, %v, %q) = %v, want %v",
					tt.ragDisabled, tt.reasoningMode, tt.model, got, tt.want)
			}
		})
	}
}
