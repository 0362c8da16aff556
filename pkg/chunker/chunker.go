package chunker

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Strategy selects how document text is split into passages.
type Strategy string

const (
	// StrategySentence accumulates blank-line-delimited paragraphs under a
	// token budget, with a paragraph-aligned trailing overlap window.
	StrategySentence Strategy = "sentence"
	// StrategyCharacter walks the text in fixed-size character windows,
	// snapping cuts to sentence boundaries when possible.
	StrategyCharacter Strategy = "character"
)

// minChunkLength is the floor below which a trimmed chunk is discarded as noise.
const minChunkLength = 10

// Options holds the tuning parameters for both splitting strategies.
type Options struct {
	Strategy      Strategy
	MaxTokens     int // sentence strategy: token budget per chunk
	OverlapTokens int // sentence strategy: token budget for the overlap window
	ChunkSize     int // character strategy: window size in runes
	ChunkOverlap  int // character strategy: overlap in runes
	TokenDivisor  int // chars-per-token estimate (default 4)
}

// DefaultOptions returns the production defaults.
// ChunkSize 1500 chars (approx 375 tokens) keeps chunks safe for context limits.
func DefaultOptions() Options {
	return Options{
		Strategy:      StrategySentence,
		MaxTokens:     400,
		OverlapTokens: 50,
		ChunkSize:     1500,
		ChunkOverlap:  200,
		TokenDivisor:  4,
	}
}

// EstimateTokens approximates the token count of a string using the cheap
// chars/divisor heuristic. The ratio is tunable because it does not hold
// across all languages and scripts.
func EstimateTokens(text string, divisor int) int {
	if divisor <= 0 {
		divisor = 4
	}
	return int(math.Ceil(float64(len(text)) / float64(divisor)))
}

// Split converts full document text into an ordered list of bounded passages
// using the configured strategy. It is deterministic and terminates on any
// finite input.
func Split(text string, opts Options) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if opts.Strategy == StrategyCharacter {
		return splitByCharacter(text, opts.ChunkSize, opts.ChunkOverlap)
	}
	return splitBySentence(text, opts)
}

var paragraphSeparator = regexp.MustCompile(`\n[ \t]*\n`)

func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, p := range paragraphSeparator.Split(normalized, -1) {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// splitBySentence accumulates whole paragraphs into a running chunk while the
// estimated token count stays under MaxTokens. On overflow the chunk is closed
// and the next chunk is seeded with a trailing window of whole paragraphs
// under the OverlapTokens budget, so overlap never splits a paragraph.
func splitBySentence(text string, opts Options) []string {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 400
	}
	overlapTokens := opts.OverlapTokens
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	// The overlap window must leave room for at least one new paragraph,
	// otherwise a chunk could consist entirely of carried-over text.
	if overlapTokens >= maxTokens {
		overlapTokens = maxTokens / 2
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	closeChunk := func() {
		chunks = append(chunks, strings.Join(current, "\n\n"))

		// Walk backward through the paragraphs just closed, carrying whole
		// paragraphs into the next chunk until the overlap budget is reached.
		// Paragraphs are never fragmented, so the window may overshoot the
		// budget by at most one paragraph.
		var carry []string
		carryTokens := 0
		for i := len(current) - 1; i >= 0 && carryTokens < overlapTokens; i-- {
			carry = append([]string{current[i]}, carry...)
			carryTokens += EstimateTokens(current[i], opts.TokenDivisor)
		}
		current = carry
		currentTokens = carryTokens
	}

	for _, paragraph := range paragraphs {
		tokens := EstimateTokens(paragraph, opts.TokenDivisor)

		if currentTokens+tokens > maxTokens && len(current) > 0 {
			closeChunk()
		}
		// A single paragraph over the whole budget still becomes its own
		// chunk: paragraphs are the atomic unit and are never split.
		current = append(current, paragraph)
		currentTokens += tokens
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	return chunks
}

// splitByCharacter walks the raw string in fixed-size rune windows. Before
// cutting a window it searches backward for the nearest sentence terminator
// within the last 20% of the window and snaps the cut to just after it.
func splitByCharacter(text string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(text)
	total := len(runes)

	if total <= chunkSize {
		if len(strings.TrimSpace(text)) < minChunkLength {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	start := 0

	for start < total {
		end := start + chunkSize
		if end >= total {
			end = total
		} else if cut := sentenceCut(runes, start, end); cut > start {
			end = cut
		}

		piece := string(runes[start:end])
		if len(strings.TrimSpace(piece)) >= minChunkLength {
			chunks = append(chunks, piece)
		}

		if end == total {
			break
		}

		next := end - overlap
		if next <= start {
			// Overlap would swallow all forward progress (snapped cut or
			// overlap >= chunkSize). Force the start to the cut point.
			next = end
		}
		start = next
	}

	return chunks
}

// sentenceCut searches backward from the proposed window end for a sentence
// terminator followed by whitespace, within the last 20% of the window.
// Returns the index just after the terminator, or -1 if none found.
func sentenceCut(runes []rune, start, end int) int {
	window := end - start
	limit := end - window/5
	if limit < start+1 {
		limit = start + 1
	}

	for i := end - 1; i >= limit; i-- {
		if isSentenceTerminator(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func isSentenceTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
