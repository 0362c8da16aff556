package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// paragraph builds a paragraph of roughly n estimated tokens (n*4 chars).
func paragraph(seed string, tokens int) string {
	sentence := fmt.Sprintf("The %s figure was reported in detail. ", seed)
	var b strings.Builder
	for b.Len() < tokens*4 {
		b.WriteString(sentence)
	}
	return strings.TrimSpace(b.String())
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text    string
		divisor int
		want    int
	}{
		{"", 4, 0},
		{"abcd", 4, 1},
		{"abcde", 4, 2},
		{"abcdefgh", 4, 2},
		{"abcd", 0, 1}, // invalid divisor falls back to 4
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text, tt.divisor); got != tt.want {
			t.Errorf("EstimateTokens(%q, %d) = %d, want %d", tt.text, tt.divisor, got, tt.want)
		}
	}
}

func TestSplitSentenceStrategyOverlapCarry(t *testing.T) {
	// Two paragraphs of ~200 tokens each with a 150 token budget: each
	// paragraph overflows the budget on its own, so the second chunk must be
	// seeded with the tail of the first.
	p1 := paragraph("first quarter revenue", 200)
	p2 := paragraph("second quarter margin", 200)
	text := p1 + "\n\n" + p2

	chunks := Split(text, Options{
		Strategy:      StrategySentence,
		MaxTokens:     150,
		OverlapTokens: 50,
		TokenDivisor:  4,
	})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != p1 {
		t.Errorf("first chunk should be the first paragraph")
	}
	if !strings.HasPrefix(chunks[1], p1) {
		t.Errorf("second chunk should begin with the overlap carried from chunk 1")
	}
	if !strings.Contains(chunks[1], p2) {
		t.Errorf("second chunk should contain the new paragraph")
	}
}

func TestSplitSentenceStrategySmallParagraphs(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 12; i++ {
		paragraphs = append(paragraphs, paragraph(fmt.Sprintf("item %02d", i), 25))
	}
	text := strings.Join(paragraphs, "\n\n")

	opts := Options{
		Strategy:      StrategySentence,
		MaxTokens:     100,
		OverlapTokens: 25,
		TokenDivisor:  4,
	}
	chunks := Split(text, opts)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Coverage: every paragraph must survive in at least one chunk.
	for i, p := range paragraphs {
		found := false
		for _, c := range chunks {
			if strings.Contains(c, p) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("paragraph %d missing from all chunks", i)
		}
	}

	// Bound: the accumulated paragraph estimate never exceeds the budget for
	// multi-paragraph chunks (separator overhead allowed).
	for i, c := range chunks {
		if got := EstimateTokens(c, 4); got > opts.MaxTokens+10 {
			t.Errorf("chunk %d estimate %d exceeds budget %d", i, got, opts.MaxTokens)
		}
	}

	// Forward progress: consecutive chunks must differ, and each chunk after
	// the first must introduce content absent from its predecessor.
	for i := 1; i < len(chunks); i++ {
		if chunks[i] == chunks[i-1] {
			t.Errorf("chunk %d identical to predecessor", i)
		}
		if strings.Contains(chunks[i-1], chunks[i]) {
			t.Errorf("chunk %d adds no new content", i)
		}
	}
}

func TestSplitSentenceStrategyDeterminism(t *testing.T) {
	text := paragraph("alpha", 80) + "\n\n" + paragraph("beta", 80) + "\n\n" + paragraph("gamma", 80)
	opts := Options{Strategy: StrategySentence, MaxTokens: 100, OverlapTokens: 20, TokenDivisor: 4}

	first := Split(text, opts)
	second := Split(text, opts)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("splitting the same text twice produced different chunks")
	}
}

func TestSplitPathologicalInputs(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts Options
		want int // expected chunk count, -1 = any finite count >= 1
	}{
		{
			name: "empty text",
			text: "",
			opts: DefaultOptions(),
			want: 0,
		},
		{
			name: "whitespace only",
			text: "   \n\n   \t\n",
			opts: DefaultOptions(),
			want: 0,
		},
		{
			name: "single giant paragraph no blank lines",
			text: paragraph("giant", 1000),
			opts: Options{Strategy: StrategySentence, MaxTokens: 100, OverlapTokens: 20, TokenDivisor: 4},
			want: 1,
		},
		{
			name: "text shorter than overlap window",
			text: "A short note about Q1 planning.",
			opts: Options{Strategy: StrategySentence, MaxTokens: 100, OverlapTokens: 500, TokenDivisor: 4},
			want: 1,
		},
		{
			name: "character strategy tiny text below floor",
			text: "short",
			opts: Options{Strategy: StrategyCharacter, ChunkSize: 100, ChunkOverlap: 20},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, tt.opts)
			if tt.want >= 0 && len(chunks) != tt.want {
				t.Errorf("got %d chunks, want %d", len(chunks), tt.want)
			}
		})
	}
}

func TestSplitCharacterStrategy(t *testing.T) {
	var b strings.Builder
	var sentences []string
	for i := 0; i < 60; i++ {
		s := fmt.Sprintf("Sentence number %03d closes with a period.", i)
		sentences = append(sentences, s)
		b.WriteString(s)
		b.WriteString(" ")
	}
	text := b.String()

	chunkSize := 300
	chunks := Split(text, Options{
		Strategy:     StrategyCharacter,
		ChunkSize:    chunkSize,
		ChunkOverlap: 60,
	})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Bound: no window exceeds the configured size.
	for i, c := range chunks {
		if n := len([]rune(c)); n > chunkSize {
			t.Errorf("chunk %d has %d runes, exceeds %d", i, n, chunkSize)
		}
	}

	// Sentence snap: every chunk except the last ends on a terminator.
	for i, c := range chunks[:len(chunks)-1] {
		trimmed := strings.TrimRight(c, " \t\n")
		last := trimmed[len(trimmed)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", i, trimmed[len(trimmed)-20:])
		}
	}

	// Coverage: every sentence appears intact in at least one chunk.
	for _, s := range sentences {
		found := false
		for _, c := range chunks {
			if strings.Contains(c, s) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("sentence %q missing from all chunks", s)
		}
	}
}

func TestSplitCharacterStrategyForcedProgress(t *testing.T) {
	// Overlap equal to the window size would never advance without the forced
	// progress guard. The split must still terminate and cover the text.
	text := strings.Repeat("abcdefghij", 50)
	chunks := Split(text, Options{
		Strategy:     StrategyCharacter,
		ChunkSize:    50,
		ChunkOverlap: 50,
	})

	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}
	if len(chunks) > 20 {
		t.Errorf("suspiciously many chunks (%d), overlap should not explode", len(chunks))
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total < len(text) {
		t.Errorf("chunks cover %d chars, original has %d", total, len(text))
	}
}

func TestSplitCharacterStrategyOverlap(t *testing.T) {
	text := strings.Repeat("0123456789", 30)
	overlap := 20
	chunks := Split(text, Options{
		Strategy:     StrategyCharacter,
		ChunkSize:    100,
		ChunkOverlap: overlap,
	})

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if !strings.HasPrefix(cur, prev[len(prev)-overlap:]) {
			t.Errorf("chunk %d does not start with the %d-char tail of its predecessor", i, overlap)
		}
	}
}
