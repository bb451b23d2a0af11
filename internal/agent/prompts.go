package agent

import (
	"fmt"
	"strings"

	"github.com/wayfind-ai/wayfind/internal/scan"
)

// systemPrompt fixes the JSON-only contract for every decision call.
const systemPrompt = `You are a browser automation assistant. You observe a web page and decide the single next action toward the user's goal.

Always answer with exactly one JSON object, no prose, no code fences:
{"thought": "<brief reasoning>", "action": {"type": "click|type|navigate|search|feedback|finish", "index": <element index>, "value": "<text to type>", "url": "<address>", "message": "<feedback text>"}}

Rules:
- "click" and "type" must reference an index from the element list you were shown.
- "type" carries the text in "value".
- "navigate" carries a full address in "url".
- "search" means: type the query in "value" into the page's search box and submit.
- "feedback" reports why no action is possible, in "message".
- "finish" only when the goal is visibly complete on the current page.`

// planSystemPrompt fixes the plan contract.
const planSystemPrompt = `You are a browser automation planner. Break the user's goal into a short ordered list of concrete browser steps.

Answer with exactly one JSON array, no prose, no code fences:
[{"id": 1, "act": "<step instruction>", "keys": ["ranking", "keywords"], "url": "<expected url fragment or empty>"}]

Rules:
- The first step is usually "navigate to <site>".
- "keys" are 1-4 words describing the element the step interacts with.
- "url" is a substring expected in the address bar after the step, or "".
- 2 to 6 steps. Fewer is better.`

func planPrompt(goal string) string {
	return fmt.Sprintf("Goal: %s\n\nProduce the plan.", goal)
}

// decideInput is everything one decision prompt is built from.
type decideInput struct {
	Goal       string
	Step       Step
	Page       scan.PageInfo
	Candidates []scan.Target
	History    []HistoryEntry
	Feedback   string
	SearchHint string
}

func decidePrompt(in decideInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", in.Goal)
	fmt.Fprintf(&b, "Current step: %s\n", in.Step.Instruction)
	if len(in.Step.RankingKeywords) > 0 {
		fmt.Fprintf(&b, "Step keywords: %s\n", strings.Join(in.Step.RankingKeywords, ", "))
	}
	fmt.Fprintf(&b, "Page: %s — %q\n", in.Page.URL, in.Page.Title)

	if len(in.Candidates) > 0 {
		b.WriteString("\nInteractive elements (best candidates first):\n")
		shown := in.Candidates
		if len(shown) > promptCandidateCap {
			shown = shown[:promptCandidateCap]
		}
		for _, t := range shown {
			b.WriteString(scan.FormatLine(t) + "\n")
		}
	} else {
		b.WriteString("\nNo interactive elements are available on this page.\n")
	}

	if in.SearchHint != "" {
		b.WriteString("\n" + in.SearchHint + "\n")
	}
	if len(in.History) > 0 {
		b.WriteString("\nRecent actions:\n")
		for _, h := range in.History {
			b.WriteString("- " + h.Line() + "\n")
		}
	}
	if in.Feedback != "" {
		fmt.Fprintf(&b, "\nFeedback from the previous attempt: %s\n", in.Feedback)
	}
	b.WriteString("\nDecide the single next action.")
	return b.String()
}

func verifyPrompt(step Step, page scan.PageInfo, labels []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A browser step was just executed: %s\n", step.Instruction)
	fmt.Fprintf(&b, "The page is now: %s — %q\n", page.URL, page.Title)
	if len(labels) > 0 {
		b.WriteString("Visible interactive elements: " + strings.Join(labels, "; ") + "\n")
	}
	b.WriteString("\nDid the step succeed? Answer with exactly {\"success\": true} or {\"success\": false}.")
	return b.String()
}

func correctionPrompt(goal string, step Step, page scan.PageInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	fmt.Fprintf(&b, "This step failed verification: %s\n", step.Instruction)
	fmt.Fprintf(&b, "The page is now: %s — %q\n", page.URL, page.Title)
	b.WriteString("\nProduce 1 to 3 corrective steps as a JSON array of {\"id\", \"act\", \"keys\", \"url\"} objects, same format as a plan.")
	return b.String()
}

func completionPrompt(goal string, page scan.PageInfo, history []HistoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	fmt.Fprintf(&b, "The page is now: %s — %q\n", page.URL, page.Title)
	if len(history) > 0 {
		b.WriteString("Actions taken:\n")
		for _, h := range history {
			b.WriteString("- " + h.Line() + "\n")
		}
	}
	b.WriteString("\nIs the goal fully achieved? Answer with exactly one JSON object:\n")
	b.WriteString(`{"finished": true} or {"finished": false, "remaining": [{"id", "act", "keys", "url"}, ...]}`)
	return b.String()
}

// Wire shapes for decision-maker JSON. Plans and corrections use short
// keys to survive truncation-prone completions.
type planStepWire struct {
	ID   int      `json:"id"`
	Act  string   `json:"act"`
	Keys []string `json:"keys"`
	URL  string   `json:"url"`
}

type decisionWire struct {
	Thought string `json:"thought"`
	Action  struct {
		Type    string `json:"type"`
		Index   *int   `json:"index"`
		Value   string `json:"value"`
		URL     string `json:"url"`
		XPath   string `json:"xpath"`
		Message string `json:"message"`
	} `json:"action"`
}

type verifyWire struct {
	Success bool `json:"success"`
}

type completionWire struct {
	Finished  bool           `json:"finished"`
	Remaining []planStepWire `json:"remaining"`
}

// normalizeSteps converts wire steps into plan steps, dropping entries
// with no instruction and renumbering ids starting at base.
func normalizeSteps(wire []planStepWire, base int) []Step {
	steps := make([]Step, 0, len(wire))
	for i, w := range wire {
		act := strings.TrimSpace(w.Act)
		if act == "" {
			continue
		}
		id := w.ID
		if id == 0 {
			id = base + i
		}
		keys := make([]string, 0, len(w.Keys))
		for _, k := range w.Keys {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		steps = append(steps, Step{
			StepID:          id,
			Instruction:     act,
			RankingKeywords: keys,
			ExpectedURLPart: strings.TrimSpace(w.URL),
		})
	}
	return steps
}
