package temporal

import (
	"testing"

	"docuchat-be/pkg/rag/classify"
	"docuchat-be/pkg/textmeta"
)

func entities(normalized ...string) []textmeta.TemporalEntity {
	out := make([]textmeta.TemporalEntity, 0, len(normalized))
	for _, n := range normalized {
		out = append(out, textmeta.TemporalEntity{Raw: n, Normalized: n})
	}
	return out
}

func TestValidateNonTemporalQueryAlwaysPasses(t *testing.T) {
	qc := &classify.QueryContext{Query: "how does caching work"}

	v := Validate(qc, entities("Q4 2023"))
	if !v.Valid || v.Score != ScoreFull {
		t.Errorf("got valid=%v score=%v, want full pass for non-temporal query", v.Valid, v.Score)
	}
}

func TestValidateExactTimeframeMatch(t *testing.T) {
	qc := &classify.QueryContext{
		IsTemporalQuery:   true,
		Timeframe:         "Q1 2024",
		RequiredPrecision: classify.PrecisionExact,
	}

	v := Validate(qc, entities("Q1 2024", "2023"))
	if !v.Valid || v.Score != ScoreFull {
		t.Errorf("got valid=%v score=%v, want exact match", v.Valid, v.Score)
	}
}

func TestValidateYearLevelPartialMatch(t *testing.T) {
	qc := &classify.QueryContext{
		IsTemporalQuery:   true,
		Timeframe:         "Q1 2024",
		RequiredPrecision: classify.PrecisionHigh,
	}

	v := Validate(qc, entities("2024"))
	if !v.Valid {
		t.Fatal("year-level match must stay valid")
	}
	if v.Score != ScorePartial {
		t.Errorf("score = %v, want %v for a bare-year mention", v.Score, ScorePartial)
	}
}

func TestValidateWrongPeriodRejectedAtExactPrecision(t *testing.T) {
	qc := &classify.QueryContext{
		IsTemporalQuery:   true,
		Timeframe:         "Q1 2024",
		RequiredPrecision: classify.PrecisionExact,
	}

	v := Validate(qc, entities("Q4 2023"))
	if v.Valid {
		t.Error("chunk mentioning only Q4 2023 must be invalid for an exact Q1 2024 query")
	}
	if v.Score != ScoreInvalid {
		t.Errorf("score = %v, want %v", v.Score, ScoreInvalid)
	}
}

func TestValidateWrongPeriodDemotedAtLowerPrecision(t *testing.T) {
	qc := &classify.QueryContext{
		IsTemporalQuery:   true,
		Timeframe:         "Q1 2024",
		RequiredPrecision: classify.PrecisionMedium,
	}

	v := Validate(qc, entities("Q4 2023"))
	if !v.Valid {
		t.Error("below exact precision a mismatch demotes, it does not reject")
	}
	if v.Score != ScoreMismatch {
		t.Errorf("score = %v, want %v", v.Score, ScoreMismatch)
	}
}

func TestValidateContentExtractsEntities(t *testing.T) {
	qc := &classify.QueryContext{
		IsTemporalQuery:   true,
		Timeframe:         "Q1 2024",
		RequiredPrecision: classify.PrecisionExact,
	}

	v := ValidateContent(qc, "Revenue in Q1 2024 grew 12% year over year.")
	if !v.Valid || v.Score != ScoreFull {
		t.Errorf("got valid=%v score=%v, want exact match from extracted entities", v.Valid, v.Score)
	}
}
