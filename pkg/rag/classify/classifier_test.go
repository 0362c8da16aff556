package classify

import (
	"reflect"
	"testing"
)

func TestClassifyPrecisionTable(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	tests := []struct {
		name          string
		query         string
		wantPrecision Precision
		wantStrategy  SearchStrategy
		wantThreshold float64
	}{
		{
			name:          "specific plus temporal plus financial",
			query:         "What was the exact Q2 2023 revenue?",
			wantPrecision: PrecisionExact,
			wantStrategy:  StrategyExactMatch,
			wantThreshold: 0.75,
		},
		{
			name:          "temporal plus financial",
			query:         "revenue trends during fiscal year 2022",
			wantPrecision: PrecisionHigh,
			wantStrategy:  StrategyMultiStage,
			wantThreshold: 0.65,
		},
		{
			name:          "temporal only",
			query:         "summarize the plan for next quarter",
			wantPrecision: PrecisionMedium,
			wantStrategy:  StrategyTemporalBoost,
			wantThreshold: 0.55,
		},
		{
			name:          "financial only",
			query:         "explain the profit margin concept",
			wantPrecision: PrecisionMedium,
			wantStrategy:  StrategySemanticOnly,
			wantThreshold: 0.55,
		},
		{
			name:          "no signals",
			query:         "Tell me a joke",
			wantPrecision: PrecisionLow,
			wantStrategy:  StrategySemanticOnly,
			wantThreshold: 0.45,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc := c.Classify(tt.query)

			if qc.RequiredPrecision != tt.wantPrecision {
				t.Errorf("precision = %s, want %s (%s)", qc.RequiredPrecision, tt.wantPrecision, qc.Reasoning)
			}
			if qc.SearchStrategy != tt.wantStrategy {
				t.Errorf("strategy = %s, want %s", qc.SearchStrategy, tt.wantStrategy)
			}
			if qc.SuggestedThreshold != tt.wantThreshold {
				t.Errorf("threshold = %.2f, want %.2f", qc.SuggestedThreshold, tt.wantThreshold)
			}
		})
	}
}

func TestClassifyAppleQ1Revenue(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	qc := c.Classify("What was Apple's Q1 2024 revenue?")

	if !qc.IsTemporalQuery {
		t.Error("expected temporal query")
	}
	if !qc.IsFinancialQuery {
		t.Error("expected financial query")
	}
	if !qc.IsSpecificDataQuery {
		t.Error("expected specific-data query (due to 'what was the')")
	}
	if qc.RequiredPrecision != PrecisionExact {
		t.Errorf("precision = %s, want exact", qc.RequiredPrecision)
	}
	if qc.Timeframe != "Q1 2024" {
		t.Errorf("timeframe = %q, want %q", qc.Timeframe, "Q1 2024")
	}
	if !qc.RequireTemporalMatch {
		t.Error("exact temporal queries must require a temporal match")
	}

	foundRevenue := false
	for _, m := range qc.FinancialMetrics {
		if m == "revenue" {
			foundRevenue = true
		}
	}
	if !foundRevenue {
		t.Errorf("financial metrics %v should include revenue", qc.FinancialMetrics)
	}
}

func TestClassifyDeterminism(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	query := "How much did EBITDA grow between Q1 2023 and Q2 2023?"

	first := c.Classify(query)
	second := c.Classify(query)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("classifying the same query twice produced different contexts:\n%+v\n%+v", first, second)
	}
}

func TestClassifyNeverRequiresTemporalMatchBelowExact(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	// Temporal + financial but no specific-data phrase: high precision, no
	// hard temporal requirement.
	qc := c.Classify("revenue development across Q3 2022")
	if qc.RequiredPrecision != PrecisionHigh {
		t.Fatalf("precision = %s, want high", qc.RequiredPrecision)
	}
	if qc.RequireTemporalMatch {
		t.Error("high precision must not force a temporal match")
	}
}

func TestClassifyConversationalFallback(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	qc := c.Classify("")
	if qc.RequiredPrecision != PrecisionLow {
		t.Errorf("empty query precision = %s, want low", qc.RequiredPrecision)
	}
	if qc.Timeframe != "" {
		t.Errorf("empty query resolved timeframe %q", qc.Timeframe)
	}
	if qc.Reasoning == "" {
		t.Error("reasoning text must always be populated")
	}
}
