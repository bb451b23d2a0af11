// Package urlutil holds the URL heuristics shared by ranking and the
// step planner: normalization for loop detection, search-results and
// restricted-scheme detection.
package urlutil

import (
	"net/url"
	"strings"
)

// restrictedPrefixes are schemes/origins the page agent can never be
// injected into; scanning them is refused up front.
var restrictedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"devtools://",
	"edge://",
	"about:",
	"view-source:",
}

// IsRestricted reports whether a URL belongs to a browser-internal
// surface that cannot be scanned or actuated.
func IsRestricted(raw string) bool {
	u := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range restrictedPrefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return u == ""
}

// EnsureScheme prepends https:// to bare hostnames so "amazon.com" style
// navigation targets parse and load.
func EnsureScheme(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	if strings.Contains(s, "://") || strings.HasPrefix(s, "about:") {
		return s
	}
	return "https://" + s
}

// Normalize reduces a URL to the form used for revisit detection:
// lowercased host without www, path without trailing slash, query kept,
// fragment dropped.
func Normalize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(strings.TrimSpace(raw)), "/")
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimRight(u.Path, "/")
	s := host + path
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	return s
}

// Hostname returns the lowercased host of a URL without the www prefix,
// or "" when the URL does not parse.
func Hostname(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// IsSearchResults reports whether a URL looks like a web search results
// page: a search engine host, or any URL with a /search path and a q=
// query parameter.
func IsSearchResults(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	q := u.Query()
	hasQuery := q.Get("q") != "" || q.Get("query") != "" || q.Get("p") != ""
	if strings.Contains(u.Path, "/search") && hasQuery {
		return true
	}
	switch {
	case strings.HasPrefix(host, "google.") || strings.Contains(host, ".google."):
		return strings.Contains(u.Path, "/search") && hasQuery
	case host == "bing.com":
		return strings.Contains(u.Path, "/search") && hasQuery
	case host == "duckduckgo.com":
		return hasQuery
	}
	return false
}
