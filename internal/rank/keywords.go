package rank

import (
	"regexp"
	"strings"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"to": true, "of": true, "in": true, "on": true, "at": true,
	"for": true, "with": true, "my": true, "me": true, "is": true,
	"it": true, "this": true, "that": true, "then": true, "into": true,
	"go": true, "please": true, "want": true, "i": true,
}

// synonyms expands a goal keyword into terms element labels commonly use
// for the same affordance.
var synonyms = map[string][]string{
	"search":   {"find", "look", "query", "magnifier", "🔍"},
	"find":     {"search", "look"},
	"buy":      {"add to cart", "purchase", "order", "shop"},
	"login":    {"sign in", "log in", "signin", "account"},
	"log":      {"sign in", "login"},
	"sign":     {"login", "log in", "register"},
	"register": {"sign up", "create account", "join"},
	"settings": {"preferences", "options", "account"},
	"delete":   {"remove", "trash", "clear"},
	"download": {"get", "install", "save"},
	"video":    {"watch", "play"},
	"email":    {"mail", "inbox", "compose"},
	"checkout": {"cart", "basket", "pay"},
}

// tutorialMarkers flag generic how-to links that should lose to primary
// sources on a search-results page.
var tutorialMarkers = []string{"how to", "tutorial", "guide", "wikihow", "steps to", "ways to"}

// knownSites maps bare site names appearing in goals to the registrable
// domain a matching link would carry.
var knownSites = map[string]string{
	"amazon":    "amazon.com",
	"google":    "google.com",
	"youtube":   "youtube.com",
	"github":    "github.com",
	"wikipedia": "wikipedia.org",
	"reddit":    "reddit.com",
	"twitter":   "twitter.com",
	"x":         "x.com",
	"facebook":  "facebook.com",
	"ebay":      "ebay.com",
	"netflix":   "netflix.com",
	"linkedin":  "linkedin.com",
}

var domainRe = regexp.MustCompile(`\b([a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:com|org|net|io|co|gov|edu|dev|app|ai))\b`)

// GoalKeywords extracts the ranking keywords from a goal: stopwords
// dropped, short function words dropped, order preserved.
func GoalKeywords(goal string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range Tokenize(goal) {
		if stopwords[tok] || len(tok) < 2 {
			continue
		}
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

// ExpandKeywords appends synonym terms to a keyword list, deduplicated,
// originals first.
func ExpandKeywords(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]bool)
	add := func(w string) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	for _, w := range words {
		add(w)
	}
	for _, w := range words {
		for _, s := range synonyms[strings.ToLower(w)] {
			add(s)
		}
	}
	return out
}

// PrimaryDomain infers the registrable domain a goal is aimed at, from
// an explicit domain token or a known site name. Empty when the goal
// names no site.
func PrimaryDomain(goal string) string {
	g := strings.ToLower(goal)
	if m := domainRe.FindString(g); m != "" {
		return strings.TrimPrefix(m, "www.")
	}
	for _, tok := range Tokenize(g) {
		if d, ok := knownSites[tok]; ok {
			return d
		}
	}
	return ""
}

// RefineSearchTerm reduces a search-flavored goal to the literal query
// text: leading verbs and the trailing site qualifier are stripped.
func RefineSearchTerm(goal string) string {
	s := strings.TrimSpace(strings.ToLower(goal))
	for _, prefix := range []string{
		"search for", "search", "look for", "look up", "find me", "find",
		"buy", "get me", "get", "shop for", "show me",
	} {
		if strings.HasPrefix(s, prefix+" ") {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}
	for _, sep := range []string{" on ", " at ", " in ", " from "} {
		if i := strings.LastIndex(s, sep); i > 0 {
			tail := s[i+len(sep):]
			if PrimaryDomain(tail) != "" || knownSites[strings.TrimSpace(tail)] != "" {
				s = strings.TrimSpace(s[:i])
			}
		}
	}
	return strings.Trim(s, `"' `)
}

// IsSearchGoal reports whether a goal or step instruction is about
// querying a search box.
func IsSearchGoal(goal string) bool {
	g := strings.ToLower(goal)
	for _, w := range []string{"search", "find", "look for", "look up", "query"} {
		if strings.Contains(g, w) {
			return true
		}
	}
	return false
}

// IsSetupGoal reports whether a goal is an account/setup flow, which
// biases the filter toward form elements.
func IsSetupGoal(goal string) bool {
	g := strings.ToLower(goal)
	for _, w := range []string{"sign in", "log in", "login", "sign up", "register", "create account", "set up", "setup", "configure"} {
		if strings.Contains(g, w) {
			return true
		}
	}
	return false
}

// IsTutorialLabel reports whether a link label reads like a how-to /
// tutorial result.
func IsTutorialLabel(label string) bool {
	l := strings.ToLower(label)
	for _, m := range tutorialMarkers {
		if strings.Contains(l, m) {
			return true
		}
	}
	return false
}

// DirectNavigation extracts the target URL from a goal or instruction
// that is itself a bare navigation ("go to amazon.com", "navigate to
// https://x.com", "open github"), or returns false.
func DirectNavigation(text string) (string, bool) {
	s := strings.TrimSpace(strings.ToLower(text))
	for _, prefix := range []string{"navigate to", "go to", "goto", "open", "visit"} {
		if !strings.HasPrefix(s, prefix+" ") {
			continue
		}
		rest := strings.Trim(strings.TrimSpace(s[len(prefix):]), `"' .`)
		if rest == "" || strings.ContainsAny(rest, " \t") {
			return "", false
		}
		if strings.Contains(rest, "://") || domainRe.MatchString(rest) {
			return rest, true
		}
		if d, ok := knownSites[rest]; ok {
			return d, true
		}
	}
	return "", false
}
