// Package agent runs the goal loop: plan, scan, rank, decide, act,
// verify, correct. One controller owns one goal session at a time.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/wayfind-ai/wayfind/internal/browser"
	"github.com/wayfind-ai/wayfind/internal/scan"
)

// State is the controller's position in the step lifecycle.
type State string

const (
	StateIdle                State = "idle"
	StatePlanning            State = "planning"
	StateStepExecuting       State = "step_executing"
	StatePendingConfirmation State = "step_pending_confirmation"
	StateStepVerifying       State = "step_verifying"
	StateCorrecting          State = "correcting"
	StateFinished            State = "finished"
)

const (
	// navLoadWait bounds the readyState poll after a navigation.
	navLoadWait = 30 * time.Second
	// settleDelay lets the page settle after load-complete before scanning.
	settleDelay = 1500 * time.Millisecond
	// confirmDebounce swallows rapid duplicate confirmation signals.
	confirmDebounce = 2 * time.Second
	// maxCorrections bounds corrective attempts per step; past it the
	// step is skipped rather than looped.
	maxCorrections = 2
	// navLoopWindow is how far back a repeated navigation counts as a loop.
	navLoopWindow = 6
	// clickRepeatLimit rejects the Nth click on the same index with no
	// page change.
	clickRepeatLimit = 3
	// maxResolveAttempts caps the resolver attempt list (literal index
	// plus rescored fallbacks).
	maxResolveAttempts = 6
	// promptCandidateCap bounds the candidate lines shown to the
	// decision-maker.
	promptCandidateCap = 35
	// completionRounds bounds how many times a not_done verdict can
	// reopen the goal before the session closes anyway.
	completionRounds = 2
)

// Step is one unit of the plan. StepID is monotonic within a plan with
// gaps allowed after correction splicing. RankingKeywords seed the
// lexical and semantic queries; ExpectedURLPart feeds the cheap
// verification check.
type Step struct {
	StepID          int
	Instruction     string
	RankingKeywords []string
	ExpectedURLPart string
	CorrectionCount int
}

// HistoryEntry records one executed or proposed action. At most one
// pending entry exists at the tail of history at any time.
type HistoryEntry struct {
	Action  string // click / type / navigate / search / feedback / finish
	Status  string // pending / done / rejected
	Thought string
	Index   int
	URL     string
	Value   string
}

// Line renders the entry for history sections of decision prompts.
func (h HistoryEntry) Line() string {
	switch h.Action {
	case "click":
		return fmt.Sprintf("%s [%d] (%s)", h.Action, h.Index, h.Status)
	case "type", "search":
		return fmt.Sprintf("%s [%d] %q (%s)", h.Action, h.Index, h.Value, h.Status)
	case "navigate":
		return fmt.Sprintf("navigate %s (%s)", h.URL, h.Status)
	default:
		return fmt.Sprintf("%s (%s)", h.Action, h.Status)
	}
}

// Page is the narrow browser surface the controller drives. browser.Page
// satisfies it; tests substitute a fake.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Info(ctx context.Context) (scan.PageInfo, error)
	WaitLoadComplete(ctx context.Context, maxWait time.Duration)
	Scan(ctx context.Context) (*scan.Result, error)
	Apply(ctx context.Context, cmd browser.Command) (*browser.ApplyResult, error)
	FindSearchInput(ctx context.Context) (*browser.SearchInput, error)
	ClearHighlight(ctx context.Context)
	AXSnapshot(ctx context.Context) ([]scan.AXNode, error)
}

// Confirmer supplies the external confirmation signals: approval of a
// visually-applied action and the final done/not_done verdict on a goal.
// not_done requires a free-text reason, recorded as feedback.
type Confirmer interface {
	ConfirmAction(step Step, entry HistoryEntry) bool
	ConfirmDone(goal string) (done bool, reason string)
}

// AutoConfirmer approves everything; used with --yes and in scripted runs.
type AutoConfirmer struct{}

func (AutoConfirmer) ConfirmAction(Step, HistoryEntry) bool { return true }
func (AutoConfirmer) ConfirmDone(string) (bool, string)     { return true, "" }

// ErrLoopDetected stops the session outright; the user must start a new
// goal.
type ErrLoopDetected struct {
	Detail string
}

func (e *ErrLoopDetected) Error() string {
	return "loop detected: " + e.Detail
}
