package textmeta

import (
	"testing"
)

func TestExtractLinks(t *testing.T) {
	text := `See the [earnings deck](https://example.com/q1-deck.pdf) and
https://github.com/acme/reports for raw data. Background:
https://en.wikipedia.org/wiki/EBITDA.`

	links := ExtractLinks(text)
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}

	if links[0].URL != "https://example.com/q1-deck.pdf" {
		t.Errorf("unexpected first URL: %s", links[0].URL)
	}
	if links[0].Description != "earnings deck" {
		t.Errorf("markdown description not captured: %q", links[0].Description)
	}
	if links[0].Category != "document" {
		t.Errorf("pdf should categorize as document, got %q", links[0].Category)
	}

	byURL := make(map[string]Link)
	for _, l := range links {
		byURL[l.URL] = l
	}
	if l := byURL["https://github.com/acme/reports"]; l.Category != "code" {
		t.Errorf("github link category = %q, want code", l.Category)
	}
	if l := byURL["https://en.wikipedia.org/wiki/EBITDA"]; l.Category != "reference" {
		t.Errorf("wikipedia link category = %q, want reference", l.Category)
	}
}

func TestExtractTemporalEntities(t *testing.T) {
	text := "Revenue grew in Q1 2024 versus the fourth quarter 2023, per FY24 guidance published in 2022."

	entities := ExtractTemporalEntities(text)

	want := map[string]bool{
		"Q1 2024": true,
		"Q4 2023": true,
		"FY2024":  true,
		"2022":    true,
	}
	for _, e := range entities {
		if !want[e.Normalized] {
			continue
		}
		delete(want, e.Normalized)
	}
	for missing := range want {
		t.Errorf("missing temporal entity %q", missing)
	}
}

func TestExtractTimeframePriority(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"quarter plus year wins", "compare Q2 2023 against fiscal year 2022", "Q2 2023"},
		{"spelled quarter", "what happened in the third quarter of 2021", "Q3 2021"},
		{"fiscal year long form", "fiscal year 2020 summary", "FY2020"},
		{"fiscal year short", "FY19 results", "FY2019"},
		{"bare year", "losses during 2008", "2008"},
		{"no timeframe", "tell me a joke", ""},
		{"case insensitive", "q1 2024 revenue", "Q1 2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTimeframe(tt.query); got != tt.want {
				t.Errorf("ExtractTimeframe(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestQuarterTimeframeYear(t *testing.T) {
	tests := []struct {
		timeframe string
		want      string
	}{
		{"Q1 2024", "2024"},
		{"Q4 1999", "1999"},
		{"FY2024", ""},
		{"2024", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := QuarterTimeframeYear(tt.timeframe); got != tt.want {
			t.Errorf("QuarterTimeframeYear(%q) = %q, want %q", tt.timeframe, got, tt.want)
		}
	}
}
