package rank

import (
	"sort"
	"strings"

	"github.com/wayfind-ai/wayfind/internal/scan"
	"github.com/wayfind-ai/wayfind/internal/urlutil"
)

// clickableTypes is the closed set of element types the filter will ever
// return. Everything else is dropped regardless of upstream rank.
var clickableTypes = map[string]bool{
	"button":         true,
	"link":           true,
	"input_text":     true,
	"input_password": true,
	"input_submit":   true,
	"select":         true,
	"textarea":       true,
}

const (
	bonusKeyword       = 1.0
	bonusAxMatch       = 2.0
	bonusAriaStyle     = 1.0
	bonusResultsLink   = 3.0
	bonusDomainMatch   = 10.0
	bonusSetupForm     = 1.5
	penaltyTutorial    = 2.0
	penaltyTutorialDL  = 20.0
	positionBonusMax   = 35.0
	positionBonusDecay = 0.35
)

// FilterByGoal applies goal heuristics atop ranker output and returns
// the final candidate set, descending by adjusted score with stable
// ties. Pure function of its inputs.
func FilterByGoal(ranked []Scored, goal, pageURL string) []Scored {
	keywords := ExpandKeywords(GoalKeywords(goal))
	onResults := urlutil.IsSearchResults(pageURL)
	goalDomain := PrimaryDomain(goal)
	setupGoal := IsSetupGoal(goal)

	var out []Scored
	for _, s := range ranked {
		t := s.Target
		if !clickableTypes[t.Type] {
			continue
		}
		if t.Label == "" && !t.AxMatch {
			continue
		}

		// Bonuses stack on the lexical score, never on Score: after a
		// hybrid rerank Score carries cosine values (≤1) on the head and
		// BM25 values on the remainder, which are not comparable. The
		// upstream order survives as the stable tie-break.
		score := s.Lexical
		label := strings.ToLower(t.Label + " " + t.Text)
		for _, kw := range keywords {
			if strings.Contains(label, kw) {
				score += bonusKeyword
			}
		}
		if t.AxMatch {
			score += bonusAxMatch
		}
		if t.Label != "" && t.Label != t.Text {
			// Explicit labeling (aria-label, placeholder) beats bare text.
			score += bonusAriaStyle
		}
		if onResults && t.Type == "link" {
			score += bonusResultsLink
			// Earlier on the page, not earlier in rank order: the scan
			// index is document order, and organic results sit on top.
			if pb := positionBonusMax - positionBonusDecay*float64(t.Index); pb > 0 {
				score += pb
			}
			if IsTutorialLabel(t.Label) {
				score -= penaltyTutorial
			}
		}
		if goalDomain != "" && matchesDomain(t, goalDomain) {
			score += bonusDomainMatch
		}
		if setupGoal {
			switch t.Type {
			case "input_text", "input_password", "input_submit", "select", "textarea":
				score += bonusSetupForm
			}
		}
		out = append(out, Scored{Target: t, Score: score, Lexical: s.Lexical})
	}

	if onResults {
		out = applyDomainLock(out, goalDomain)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})
	return out
}

// applyDomainLock enforces the search-results discipline: when the goal
// names a site and any link matches it, only those links survive;
// otherwise links outrank non-links and tutorial labels sink.
func applyDomainLock(candidates []Scored, goalDomain string) []Scored {
	if goalDomain != "" {
		var locked []Scored
		for _, s := range candidates {
			if s.Target.Type == "link" && matchesDomain(s.Target, goalDomain) {
				locked = append(locked, s)
			}
		}
		if len(locked) > 0 {
			return locked
		}
	}
	out := make([]Scored, len(candidates))
	copy(out, candidates)
	for i := range out {
		if out[i].Target.Type == "link" {
			out[i].Score += bonusResultsLink
			if IsTutorialLabel(out[i].Target.Label) {
				out[i].Score -= penaltyTutorialDL
			}
		}
	}
	return out
}

func matchesDomain(t scan.Target, domain string) bool {
	domain = strings.ToLower(domain)
	if t.Href != "" {
		if host := urlutil.Hostname(t.Href); host != "" {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return true
			}
		}
	}
	text := strings.ToLower(t.Label + " " + t.Text)
	return strings.Contains(text, domain) ||
		strings.Contains(text, siteName(domain))
}

func siteName(domain string) string {
	if i := strings.IndexByte(domain, '.'); i > 0 {
		return domain[:i]
	}
	return domain
}
