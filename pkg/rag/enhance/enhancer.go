package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"docuchat-be/pkg/llm"
)

// Search strategies an understanding can request.
const (
	StrategyBroad    = "broad"
	StrategySpecific = "specific"
	StrategyHybrid   = "hybrid"
)

// QueryUnderstanding is the model's pre-retrieval analysis of a query.
// Ephemeral, per query.
type QueryUnderstanding struct {
	KeyConcepts    []string `json:"key_concepts"`
	SearchQueries  []string `json:"search_queries"`
	ContextNeeded  string   `json:"context_needed"`
	SearchStrategy string   `json:"search_strategy"` // "broad" | "specific" | "hybrid"
}

// Enhancer asks a text-generation service to break a query into concepts and
// alternative phrasings before retrieval. Enhancement failure is never fatal:
// every path returns a usable understanding.
type Enhancer struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewEnhancer(llmProvider llm.LLMProvider, logger *log.Logger) *Enhancer {
	return &Enhancer{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Understand analyzes the query with the given model and token budget.
// On any upstream or parse failure it returns the degraded fallback.
func (e *Enhancer) Understand(ctx context.Context, query string, model string, maxTokens int) *QueryUnderstanding {
	prompt := e.buildPrompt(query)

	opts := []llm.Option{llm.WithTemperature(0.0)}
	if model != "" {
		opts = append(opts, llm.WithModel(model))
	}
	if maxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(maxTokens))
	}

	response, err := e.llmProvider.Generate(ctx, prompt, opts...)
	if err != nil {
		e.logger.Printf("[WARN] Query enhancement failed, using fallback: %v", err)
		return Fallback(query)
	}

	understanding, err := parseUnderstanding(response)
	if err != nil {
		e.logger.Printf("[WARN] Enhancement parsing failed, using fallback: %v", err)
		return Fallback(query)
	}

	e.logger.Printf("[ENHANCE] Strategy=%s Concepts=%d Queries=%d",
		understanding.SearchStrategy, len(understanding.KeyConcepts), len(understanding.SearchQueries))

	return understanding
}

// Fallback is the degraded understanding used whenever enhancement cannot
// produce a valid result. Retrieval must still proceed with it.
func Fallback(query string) *QueryUnderstanding {
	return &QueryUnderstanding{
		KeyConcepts:    []string{query},
		SearchQueries:  []string{query},
		ContextNeeded:  "general document context",
		SearchStrategy: StrategyHybrid,
	}
}

func (e *Enhancer) buildPrompt(query string) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a search analyst. Your ONLY job is to break a user question into search inputs.\n")
	prompt.WriteString("You do NOT answer the question.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<user_query>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_query>\n\n")

	prompt.WriteString("<instructions>\n")
	prompt.WriteString("1. Identify the 2-3 key concepts the question is really about.\n")
	prompt.WriteString("2. Write 2-3 alternative phrasings a document might use for the same information.\n")
	prompt.WriteString("3. Describe in one sentence what context a good answer needs.\n")
	prompt.WriteString("4. Pick a search strategy:\n")
	prompt.WriteString("   broad: vague or exploratory question, search by concepts\n")
	prompt.WriteString("   specific: precise question, search by exact phrasings\n")
	prompt.WriteString("   hybrid: both concepts and phrasings are useful\n")
	prompt.WriteString("</instructions>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"key_concepts\": [\"concept\"],\n")
	prompt.WriteString("  \"search_queries\": [\"alternative phrasing\"],\n")
	prompt.WriteString("  \"context_needed\": \"one sentence\",\n")
	prompt.WriteString("  \"search_strategy\": \"broad|specific|hybrid\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseUnderstanding(response string) (*QueryUnderstanding, error) {
	jsonContent := extractJSON(stripCodeFences(response))
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var understanding QueryUnderstanding
	if err := json.Unmarshal([]byte(jsonContent), &understanding); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	// Validate shape: the required fields must carry usable values, the rest
	// get deterministic defaults.
	if len(understanding.KeyConcepts) == 0 || len(understanding.SearchQueries) == 0 {
		return nil, fmt.Errorf("understanding missing key_concepts or search_queries")
	}
	switch understanding.SearchStrategy {
	case StrategyBroad, StrategySpecific, StrategyHybrid:
	default:
		understanding.SearchStrategy = StrategyHybrid
	}
	if understanding.ContextNeeded == "" {
		understanding.ContextNeeded = "general document context"
	}

	return &understanding, nil
}

// stripCodeFences removes a surrounding ```json ... ``` wrapper if present.
func stripCodeFences(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
