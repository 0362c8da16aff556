package temporal

import (
	"fmt"
	"strings"

	"docuchat-be/pkg/rag/classify"
	"docuchat-be/pkg/textmeta"
)

// Validation grades how well one chunk's period mentions satisfy the query's
// timeframe. Score feeds the re-ranking weight; Valid gates hard filtering
// when the query demands an exact temporal match.
type Validation struct {
	Valid  bool    `json:"valid"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Score levels. A chunk with no timeframe conflict is a full match; a chunk
// that only shares the year is a partial match; a chunk whose periods all
// disagree is either rejected (exact precision) or heavily demoted.
const (
	ScoreFull     = 1.0
	ScorePartial  = 0.7
	ScoreMismatch = 0.3
	ScoreInvalid  = 0.0
)

// Validate grades chunk period mentions against the classified query context.
func Validate(qc *classify.QueryContext, entities []textmeta.TemporalEntity) Validation {
	if qc == nil || !qc.IsTemporalQuery || qc.Timeframe == "" {
		return Validation{Valid: true, Score: ScoreFull, Reason: "no temporal constraint"}
	}

	for _, entity := range entities {
		if strings.EqualFold(entity.Normalized, qc.Timeframe) {
			return Validation{Valid: true, Score: ScoreFull, Reason: "exact timeframe match: " + entity.Normalized}
		}
	}

	// A bare-year mention still covers a quarter-shaped timeframe at the
	// year level ("Q1 2024" vs a chunk that only says "2024").
	if year := textmeta.QuarterTimeframeYear(qc.Timeframe); year != "" {
		for _, entity := range entities {
			if entity.Normalized == year {
				return Validation{Valid: true, Score: ScorePartial, Reason: "year-level match: " + year}
			}
		}
	}

	reason := fmt.Sprintf("no mention of %s", qc.Timeframe)
	if qc.RequiredPrecision == classify.PrecisionExact {
		return Validation{Valid: false, Score: ScoreInvalid, Reason: reason}
	}
	return Validation{Valid: true, Score: ScoreMismatch, Reason: reason}
}

// ValidateContent extracts period mentions from raw chunk text and grades
// them. Used when chunks arrive without pre-extracted entities.
func ValidateContent(qc *classify.QueryContext, content string) Validation {
	return Validate(qc, textmeta.ExtractTemporalEntities(content))
}
