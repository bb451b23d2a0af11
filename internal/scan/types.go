// Package scan defines the page-scan data model: the elements collected
// from a single scan pass, the accessibility index used to annotate them,
// and the prompt-facing target summaries built on top of both.
package scan

import "strings"

// Limits enforced by the page-side scanner. Elements past MaxElements are
// dropped greedily; shadow roots are traversed at most MaxDepth deep.
const (
	MaxDepth    = 10
	MaxElements = 300
	TextCap     = 80
)

// Element is one interactive DOM node observed in a single scan pass.
// Index is unique within the pass and invalid after the next scan or a
// navigation; it must never be persisted past one resolution cycle.
type Element struct {
	Index       int    `json:"index"`
	Tag         string `json:"tag"`
	Role        string `json:"role,omitempty"`
	InputType   string `json:"inputType,omitempty"`
	Text        string `json:"text,omitempty"`
	Name        string `json:"name,omitempty"`
	AriaLabel   string `json:"ariaLabel,omitempty"`
	Title       string `json:"title,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Href        string `json:"href,omitempty"`
	XPath       string `json:"xpath"`
	FramePath   string `json:"framePath,omitempty"`
}

// IframeInfo summarizes an iframe found during the scan. Cross-origin
// frames are never traversed; only their identifying attributes appear.
type IframeInfo struct {
	Src         string `json:"src,omitempty"`
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	CrossOrigin bool   `json:"crossOrigin,omitempty"`
}

// PageInfo is the page identity captured alongside a scan.
type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Result is the full payload of one scan pass. Status is "ok" for a
// normal scan and "skipped" when the page-side agent found itself running
// inside an embedded frame (one authoritative scan per top-level page).
type Result struct {
	Status     string       `json:"status"`
	Reason     string       `json:"reason,omitempty"`
	Page       PageInfo     `json:"page"`
	Elements   []Element    `json:"elements"`
	Iframes    []IframeInfo `json:"iframes,omitempty"`
	TextSample string       `json:"textSample,omitempty"`
}

// Skipped reports whether the scan was refused by the page-side agent.
func (r *Result) Skipped() bool {
	return r != nil && r.Status == "skipped"
}

// Classify buckets an element into the type vocabulary the goal filter
// and decision prompts work with.
func Classify(el Element) string {
	tag := strings.ToLower(el.Tag)
	role := strings.ToLower(el.Role)
	switch tag {
	case "a":
		return "link"
	case "button":
		return "button"
	case "select":
		return "select"
	case "textarea":
		return "textarea"
	case "input":
		switch strings.ToLower(el.InputType) {
		case "submit", "image":
			return "input_submit"
		case "password":
			return "input_password"
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		case "button":
			return "button"
		default:
			return "input_text"
		}
	}
	switch role {
	case "button":
		return "button"
	case "link":
		return "link"
	case "checkbox":
		return "checkbox"
	case "textbox", "searchbox":
		return "input_text"
	}
	return "other"
}

// Label returns the best display string for an element, preferring
// explicit accessibility labels over visible text.
func Label(el Element) string {
	for _, s := range []string{el.AriaLabel, el.Text, el.Placeholder, el.Name, el.Title} {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return ""
}
