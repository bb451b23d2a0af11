package rank

import (
	"sort"
	"strings"

	"github.com/wayfind-ai/wayfind/internal/scan"
)

// genericLabels carry no intent on their own and are demoted when
// rescoring fallback candidates.
var genericLabels = map[string]bool{
	"click here": true,
	"learn more": true,
	"more":       true,
	"here":       true,
	"submit":     true,
	"ok":         true,
	"next":       true,
}

const (
	candKeywordHit  = 5.0
	candExactLabel  = 10.0
	candGeneric     = -3.0
	candAxMatch     = 2.0
	candSearchInput = 3.0
	candSearchBtn   = -1.0
)

// Candidates rescores the last known targets against a goal and returns
// up to limit element indices, best first, skipping excluded indices.
// This is the fallback attempt list used when the decision-maker's
// literal index cannot be actuated.
func Candidates(targets []scan.Target, goal string, exclude map[int]bool, limit int) []int {
	keywords := ExpandKeywords(GoalKeywords(goal))
	searchGoal := IsSearchGoal(goal)
	goalNorm := strings.ToLower(strings.TrimSpace(goal))

	type cand struct {
		index int
		score float64
	}
	var cands []cand
	for _, t := range targets {
		if exclude[t.Index] {
			continue
		}
		label := strings.ToLower(t.Label)
		if label == "" {
			continue
		}
		var score float64
		for _, kw := range keywords {
			if strings.Contains(label, kw) {
				score += candKeywordHit
			}
		}
		if label == goalNorm {
			score += candExactLabel
		}
		if genericLabels[label] {
			score += candGeneric
		}
		if t.AxMatch {
			score += candAxMatch
		}
		if searchGoal {
			switch t.Type {
			case "input_text", "textarea":
				score += candSearchInput
			case "button", "input_submit":
				score += candSearchBtn
			}
		}
		if score <= 0 {
			continue
		}
		cands = append(cands, cand{index: t.Index, score: score})
	}

	sort.SliceStable(cands, func(a, b int) bool {
		return cands[a].score > cands[b].score
	})
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.index
	}
	return out
}
