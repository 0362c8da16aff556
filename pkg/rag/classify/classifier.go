package classify

import (
	"fmt"
	"regexp"
	"strings"

	"docuchat-be/pkg/textmeta"
)

// Precision describes how exact an answer must be for a query.
type Precision string

const (
	PrecisionLow    Precision = "low"
	PrecisionMedium Precision = "medium"
	PrecisionHigh   Precision = "high"
	PrecisionExact  Precision = "exact"
)

// SearchStrategy selects the retrieval behavior downstream.
type SearchStrategy string

const (
	StrategySemanticOnly  SearchStrategy = "semantic_only"
	StrategyTemporalBoost SearchStrategy = "temporal_boost"
	StrategyExactMatch    SearchStrategy = "exact_match"
	StrategyMultiStage    SearchStrategy = "multi_stage"
)

// QueryContext is the classifier's full analysis of one query. Computed fresh
// per query, never persisted.
type QueryContext struct {
	Query                string         `json:"query"`
	IsTemporalQuery      bool           `json:"is_temporal_query"`
	IsFinancialQuery     bool           `json:"is_financial_query"`
	IsSpecificDataQuery  bool           `json:"is_specific_data_query"`
	Timeframe            string         `json:"timeframe,omitempty"`
	FinancialMetrics     []string       `json:"financial_metrics,omitempty"`
	RequiredPrecision    Precision      `json:"required_precision"`
	SuggestedThreshold   float64        `json:"suggested_threshold"`
	SearchStrategy       SearchStrategy `json:"search_strategy"`
	RequireTemporalMatch bool           `json:"require_temporal_match"`
	Reasoning            string         `json:"reasoning"` // observability only, never control flow
}

// Pattern is one signal in a category table. Confidence is carried for
// observability and future weighting; matching is boolean.
type Pattern struct {
	Expr        *regexp.Regexp
	Confidence  float64
	Description string
}

// The signal tables are data, not control flow: adding a new family member is
// a table edit, not a code change.
var temporalPatterns = []Pattern{
	{regexp.MustCompile(`\bq[1-4]\b`), 0.9, "quarter reference"},
	{regexp.MustCompile(`\b(first|second|third|fourth)\s+quarter\b`), 0.9, "spelled-out quarter"},
	{regexp.MustCompile(`\b(19|20)\d{2}\b`), 0.7, "calendar year"},
	{regexp.MustCompile(`\bfy\s?\d{2,4}\b`), 0.9, "fiscal year token"},
	{regexp.MustCompile(`\bfiscal\s+year\b`), 0.9, "fiscal year phrase"},
	{regexp.MustCompile(`\b(annual|annually|yearly|quarterly|monthly)\b`), 0.6, "period word"},
	{regexp.MustCompile(`\bbetween\s+\S+.*\s+and\s+`), 0.5, "explicit range"},
	{regexp.MustCompile(`\b(last|this|next|previous)\s+(year|quarter|month)\b`), 0.6, "relative period"},
}

var financialPatterns = []Pattern{
	{regexp.MustCompile(`\b(revenue|profit|margin|ebitda|income|earnings|sales|turnover)\b`), 0.9, "metric name"},
	{regexp.MustCompile(`\b(expense|expenses|cost|costs|opex|capex)\b`), 0.8, "cost metric"},
	{regexp.MustCompile(`\b(cash\s+flow|assets|liabilities|equity|dividend|debt)\b`), 0.8, "balance metric"},
	{regexp.MustCompile(`[$€£]\s?\d`), 0.9, "currency amount"},
	{regexp.MustCompile(`\d+(\.\d+)?\s?(million|billion|trillion)\b`), 0.8, "large amount"},
	{regexp.MustCompile(`\d+(\.\d+)?\s?%`), 0.7, "percentage"},
	{regexp.MustCompile(`\b(income\s+statement|balance\s+sheet|cash\s+flow\s+statement|annual\s+report|10-k|10-q)\b`), 0.9, "statement name"},
	{regexp.MustCompile(`\b(growth|decline|increase|decrease|year-over-year|yoy)\b`), 0.6, "performance language"},
}

var specificDataPatterns = []Pattern{
	{regexp.MustCompile(`\bhow\s+much\b`), 0.9, "how much"},
	{regexp.MustCompile(`\bhow\s+many\b`), 0.9, "how many"},
	{regexp.MustCompile(`\bwhat\s+(was|is|were|are)\s+the\b`), 0.8, "what was the"},
	{regexp.MustCompile(`\bwhat\s+(was|were)\b`), 0.8, "what was"},
	{regexp.MustCompile(`\bexact(ly)?\b`), 0.9, "exact"},
	{regexp.MustCompile(`\b(figure|figures)\b`), 0.7, "figure"},
	{regexp.MustCompile(`\b(amount|value|total)\b`), 0.7, "amount or value"},
	{regexp.MustCompile(`\bspecific\b`), 0.7, "specific"},
}

// financialMetricTerms are the known metric names reported back verbatim when
// literally present in the query.
var financialMetricTerms = []string{
	"revenue", "profit", "margin", "ebitda", "income", "earnings", "sales",
	"expenses", "cost", "cash flow", "assets", "liabilities", "equity",
	"dividend", "debt", "growth",
}

// Thresholds maps precision tiers to similarity cutoffs.
type Thresholds struct {
	Exact  float64
	High   float64
	Medium float64
	Low    float64
}

// DefaultThresholds are starting points, tuned empirically rather than derived.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Exact:  0.75,
		High:   0.65,
		Medium: 0.55,
		Low:    0.45,
	}
}

// Classifier analyzes query text into a QueryContext. It performs no I/O and
// never fails: a query matching nothing is a valid low-precision outcome.
type Classifier struct {
	thresholds Thresholds
}

func NewClassifier(thresholds Thresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// Classify runs the signal tables over the lower-cased query and derives the
// retrieval precision requirements.
func (c *Classifier) Classify(query string) *QueryContext {
	lower := strings.ToLower(query)

	temporalHits := matchFamily(temporalPatterns, lower)
	financialHits := matchFamily(financialPatterns, lower)
	specificHits := matchFamily(specificDataPatterns, lower)

	qc := &QueryContext{
		Query:               query,
		IsTemporalQuery:     len(temporalHits) > 0,
		IsFinancialQuery:    len(financialHits) > 0,
		IsSpecificDataQuery: len(specificHits) > 0,
		Timeframe:           textmeta.ExtractTimeframe(lower),
		FinancialMetrics:    matchMetricTerms(lower),
	}

	qc.RequiredPrecision = decidePrecision(qc)
	qc.SuggestedThreshold = c.thresholdFor(qc.RequiredPrecision)
	qc.SearchStrategy = decideStrategy(qc)
	qc.RequireTemporalMatch = qc.RequiredPrecision == PrecisionExact && qc.IsTemporalQuery
	qc.Reasoning = buildReasoning(qc, temporalHits, financialHits, specificHits)

	return qc
}

// decidePrecision applies the decision table top to bottom; first rule wins.
func decidePrecision(qc *QueryContext) Precision {
	switch {
	case qc.IsSpecificDataQuery && (qc.IsTemporalQuery || qc.IsFinancialQuery):
		return PrecisionExact
	case qc.IsTemporalQuery && qc.IsFinancialQuery:
		return PrecisionHigh
	case qc.IsTemporalQuery || qc.IsFinancialQuery:
		return PrecisionMedium
	default:
		return PrecisionLow
	}
}

func decideStrategy(qc *QueryContext) SearchStrategy {
	switch {
	case qc.RequiredPrecision == PrecisionExact:
		return StrategyExactMatch
	case qc.IsTemporalQuery && qc.IsFinancialQuery:
		return StrategyMultiStage
	case qc.IsTemporalQuery:
		return StrategyTemporalBoost
	default:
		return StrategySemanticOnly
	}
}

func (c *Classifier) thresholdFor(p Precision) float64 {
	switch p {
	case PrecisionExact:
		return c.thresholds.Exact
	case PrecisionHigh:
		return c.thresholds.High
	case PrecisionMedium:
		return c.thresholds.Medium
	default:
		return c.thresholds.Low
	}
}

func matchFamily(patterns []Pattern, lower string) []string {
	var hits []string
	for _, p := range patterns {
		if p.Expr.MatchString(lower) {
			hits = append(hits, p.Description)
		}
	}
	return hits
}

func matchMetricTerms(lower string) []string {
	var metrics []string
	for _, term := range financialMetricTerms {
		if strings.Contains(lower, term) {
			metrics = append(metrics, term)
		}
	}
	return metrics
}

func buildReasoning(qc *QueryContext, temporal, financial, specific []string) string {
	var parts []string
	if len(temporal) > 0 {
		parts = append(parts, fmt.Sprintf("temporal signals: %s", strings.Join(temporal, ", ")))
	}
	if len(financial) > 0 {
		parts = append(parts, fmt.Sprintf("financial signals: %s", strings.Join(financial, ", ")))
	}
	if len(specific) > 0 {
		parts = append(parts, fmt.Sprintf("specific-data signals: %s", strings.Join(specific, ", ")))
	}
	if len(parts) == 0 {
		return "no temporal, financial, or specific-data signals; treating as general conversational query"
	}
	if qc.Timeframe != "" {
		parts = append(parts, fmt.Sprintf("timeframe resolved to %s", qc.Timeframe))
	}
	return fmt.Sprintf("%s -> precision %s", strings.Join(parts, "; "), qc.RequiredPrecision)
}
