// Package rank scores scanned elements against goal text: a BM25
// lexical ranker, a goal-aware filter/reranker, and the keyword-based
// fallback candidate scorer used when a chosen index goes stale.
package rank

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/wayfind-ai/wayfind/internal/scan"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Scored pairs a target with a score from one ranking stage. Scores are
// ephemeral: they are never carried across queries or scans. Lexical
// keeps the BM25 score when a later stage replaces Score with a signal
// on a different scale (cosine similarity); goal bonuses always stack
// on Lexical.
type Scored struct {
	Target  scan.Target
	Score   float64
	Lexical float64
}

// Tokenize lowercases and splits on anything that is not a letter, digit
// or symbol. Symbols are kept so emoji-only and glyph buttons still
// produce tokens; single-character tokens are kept for the same reason.
func Tokenize(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSymbol(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// document builds the BM25 corpus entry for one target.
func document(t scan.Target) []string {
	return Tokenize(t.Label + " " + t.Text + " " + t.Type + " " + t.AxRole)
}

// BM25 ranks targets against a query, descending by score with ties
// broken by scan index (input order). Zero-overlap targets score 0 but
// stay in the output; exclusion is the filter's job.
func BM25(targets []scan.Target, query string) []Scored {
	docs := make([][]string, len(targets))
	freqs := make([]map[string]int, len(targets))
	df := make(map[string]int)
	var totalLen float64

	for i, t := range targets {
		docs[i] = document(t)
		totalLen += float64(len(docs[i]))
		tf := make(map[string]int, len(docs[i]))
		for _, tok := range docs[i] {
			tf[tok]++
		}
		freqs[i] = tf
		for tok := range tf {
			df[tok]++
		}
	}

	avgLen := 1.0
	if len(targets) > 0 {
		avgLen = totalLen / float64(len(targets))
		if avgLen == 0 {
			avgLen = 1.0
		}
	}

	// De-duplicate query tokens so repeated words carry no extra weight.
	seen := make(map[string]bool)
	var qtokens []string
	for _, tok := range Tokenize(query) {
		if !seen[tok] {
			seen[tok] = true
			qtokens = append(qtokens, tok)
		}
	}

	n := float64(len(targets))
	scored := make([]Scored, len(targets))
	for i, t := range targets {
		var score float64
		docLen := float64(len(docs[i]))
		for _, tok := range qtokens {
			tf := float64(freqs[i][tok])
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[tok])+0.5)/(float64(df[tok])+0.5))
			score += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
		}
		scored[i] = Scored{Target: t, Score: score, Lexical: score}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	return scored
}
