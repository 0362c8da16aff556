package textmeta

import (
	"fmt"
	"regexp"
	"strings"
)

// Link is a hyperlink extracted from document text.
type Link struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// TemporalEntity is a period mention extracted from text, kept both as
// written and in normalized form (e.g. "first quarter 2024" -> "Q1 2024").
type TemporalEntity struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

var (
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	bareURLPattern      = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

	quarterYearPattern   = regexp.MustCompile(`(?i)\bq([1-4])\s*(?:of\s+)?(\d{4})\b`)
	spelledQuarterFull   = regexp.MustCompile(`(?i)\b(first|second|third|fourth)\s+quarter\s+(?:of\s+)?(\d{4})\b`)
	fiscalYearPattern    = regexp.MustCompile(`(?i)\bfy\s?(\d{2,4})\b`)
	fiscalYearLongForm   = regexp.MustCompile(`(?i)\bfiscal\s+year\s+(\d{4})\b`)
	bareYearPattern      = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	quarterTimeframe     = regexp.MustCompile(`^Q[1-4] (\d{4})$`)
	spelledQuarterNumber = map[string]string{
		"first": "1", "second": "2", "third": "3", "fourth": "4",
	}
)

// ExtractLinks finds markdown and bare hyperlinks in text, categorized by a
// coarse host/extension heuristic.
func ExtractLinks(text string) []Link {
	var links []Link
	seen := make(map[string]bool)

	for _, m := range markdownLinkPattern.FindAllStringSubmatch(text, -1) {
		url := m[2]
		if seen[url] {
			continue
		}
		seen[url] = true
		links = append(links, Link{
			URL:         url,
			Description: strings.TrimSpace(m[1]),
			Category:    categorizeURL(url),
		})
	}

	for _, url := range bareURLPattern.FindAllString(text, -1) {
		url = strings.TrimRight(url, ".,;:")
		if seen[url] {
			continue
		}
		seen[url] = true
		links = append(links, Link{
			URL:      url,
			Category: categorizeURL(url),
		})
	}

	return links
}

func categorizeURL(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "github.com") || strings.Contains(lower, "gitlab.com"):
		return "code"
	case strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be") || strings.Contains(lower, "vimeo.com"):
		return "video"
	case strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "docs.google.com"):
		return "document"
	case strings.Contains(lower, "wikipedia.org"):
		return "reference"
	default:
		return "general"
	}
}

// ExtractTemporalEntities finds all period mentions in text in document order,
// deduplicated by normalized form.
func ExtractTemporalEntities(text string) []TemporalEntity {
	var entities []TemporalEntity
	seen := make(map[string]bool)

	add := func(raw, normalized string) {
		if normalized == "" || seen[normalized] {
			return
		}
		seen[normalized] = true
		entities = append(entities, TemporalEntity{Raw: raw, Normalized: normalized})
	}

	for _, m := range quarterYearPattern.FindAllStringSubmatch(text, -1) {
		add(m[0], fmt.Sprintf("Q%s %s", m[1], m[2]))
	}
	for _, m := range spelledQuarterFull.FindAllStringSubmatch(text, -1) {
		add(m[0], fmt.Sprintf("Q%s %s", spelledQuarterNumber[strings.ToLower(m[1])], m[2]))
	}
	for _, m := range fiscalYearLongForm.FindAllStringSubmatch(text, -1) {
		add(m[0], "FY"+m[1])
	}
	for _, m := range fiscalYearPattern.FindAllStringSubmatch(text, -1) {
		add(m[0], "FY"+expandFiscalYear(m[1]))
	}
	for _, m := range bareYearPattern.FindAllStringSubmatch(text, -1) {
		add(m[0], m[1])
	}

	return entities
}

// ExtractTimeframe resolves the single best-guess timeframe of a query.
// Patterns are tried in priority order; the first match wins. Returns an
// empty string when no pattern matches.
func ExtractTimeframe(text string) string {
	if m := quarterYearPattern.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("Q%s %s", m[1], m[2])
	}
	if m := spelledQuarterFull.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("Q%s %s", spelledQuarterNumber[strings.ToLower(m[1])], m[2])
	}
	if m := fiscalYearLongForm.FindStringSubmatch(text); m != nil {
		return "FY" + m[1]
	}
	if m := fiscalYearPattern.FindStringSubmatch(text); m != nil {
		return "FY" + expandFiscalYear(m[1])
	}
	if m := bareYearPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// expandFiscalYear widens two-digit fiscal years ("FY24" -> "2024").
func expandFiscalYear(digits string) string {
	if len(digits) == 2 {
		return "20" + digits
	}
	return digits
}

// QuarterTimeframeYear returns the year component of a "Q# YYYY" timeframe,
// or "" when the timeframe is not quarter shaped.
func QuarterTimeframeYear(timeframe string) string {
	m := quarterTimeframe.FindStringSubmatch(timeframe)
	if m == nil {
		return ""
	}
	return m[1]
}
