package scan

import (
	"fmt"
	"strings"
)

// Target is a scanned element reduced to what ranking and decision
// prompts need. Targets carry no scores; each ranking stage returns its
// own (target, score) pairs so stale scores cannot leak between stages.
type Target struct {
	Index   int
	Type    string
	Label   string
	Text    string
	Href    string
	AxMatch bool
	AxRole  string
}

// BuildTargets converts scanned elements into ranking targets, annotating
// each with the accessibility index when one is available. ix may be nil.
func BuildTargets(elements []Element, ix *AXIndex) []Target {
	targets := make([]Target, 0, len(elements))
	for _, el := range elements {
		t := Target{
			Index: el.Index,
			Type:  Classify(el),
			Label: Label(el),
			Text:  el.Text,
			Href:  el.Href,
		}
		if role, ok := ix.Match(t.Label); ok {
			t.AxMatch = true
			t.AxRole = role
		}
		targets = append(targets, t)
	}
	return targets
}

// Groups is the prompt-facing grouping of targets. The same groups feed
// the fallback candidate rescoring when a literal index goes stale.
type Groups struct {
	Buttons []Target
	Links   []Target
	Inputs  []Target
	Other   []Target
}

// groupCap bounds each group in the prompt summary.
const groupCap = 25

// GroupTargets splits targets into prompt groups, capping each group.
func GroupTargets(targets []Target) Groups {
	var g Groups
	for _, t := range targets {
		switch t.Type {
		case "button", "input_submit":
			g.Buttons = appendCapped(g.Buttons, t)
		case "link":
			g.Links = appendCapped(g.Links, t)
		case "input_text", "input_password", "select", "textarea":
			g.Inputs = appendCapped(g.Inputs, t)
		default:
			g.Other = appendCapped(g.Other, t)
		}
	}
	return g
}

// All returns every grouped target in button, link, input, other order.
func (g Groups) All() []Target {
	out := make([]Target, 0, len(g.Buttons)+len(g.Links)+len(g.Inputs)+len(g.Other))
	out = append(out, g.Buttons...)
	out = append(out, g.Links...)
	out = append(out, g.Inputs...)
	out = append(out, g.Other...)
	return out
}

func appendCapped(list []Target, t Target) []Target {
	if len(list) >= groupCap {
		return list
	}
	return append(list, t)
}

// FormatLine renders one target as a numbered prompt line.
func FormatLine(t Target) string {
	label := t.Label
	if label == "" {
		label = "(unlabeled)"
	}
	line := fmt.Sprintf("[%d] %s: %q", t.Index, t.Type, label)
	if t.AxMatch && t.AxRole != "" {
		line += " (ax:" + t.AxRole + ")"
	}
	return line
}

// Summary renders grouped targets as the element listing shown to the
// decision-maker.
func (g Groups) Summary() string {
	var b strings.Builder
	section := func(name string, list []Target) {
		if len(list) == 0 {
			return
		}
		b.WriteString(name + ":\n")
		for _, t := range list {
			b.WriteString("  " + FormatLine(t) + "\n")
		}
	}
	section("Buttons", g.Buttons)
	section("Links", g.Links)
	section("Inputs", g.Inputs)
	section("Other", g.Other)
	return b.String()
}
