package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wayfind-ai/wayfind/internal/browser"
	"github.com/wayfind-ai/wayfind/internal/devlog"
	"github.com/wayfind-ai/wayfind/internal/provider"
	"github.com/wayfind-ai/wayfind/internal/rank"
	"github.com/wayfind-ai/wayfind/internal/scan"
	"github.com/wayfind-ai/wayfind/internal/semantic"
	"github.com/wayfind-ai/wayfind/internal/store"
	"github.com/wayfind-ai/wayfind/internal/urlutil"
)

// searchFocusDelay settles a search field after the probe, before typing.
const searchFocusDelay = 300 * time.Millisecond

// Controller runs one goal session: single-threaded cooperative
// scheduling, one in-flight step, one pending history entry.
type Controller struct {
	page     Page
	llm      provider.Client
	ranker   *semantic.Ranker // nil disables semantic reranking
	history  *store.Store     // nil disables persistence
	confirm  Confirmer
	enableAX bool

	mu          sync.Mutex
	inFlight    bool
	stopped     bool
	lastConfirm time.Time

	state     State
	goal      string
	sessionID string
	steps     []Step
	current   int
	actions   []HistoryEntry
	feedback  string
	// stallCount tracks consecutive non-advancing decisions on the
	// current step; past clickRepeatLimit the step is skipped.
	stallCount int

	navHistory     []string
	lastClickIndex int
	lastClickURL   string
	clickRepeat    int

	lastElements []scan.Element
	lastTargets  []scan.Target
	lastGroups   scan.Groups
}

// Options wires the controller's collaborators.
type Options struct {
	Ranker   *semantic.Ranker
	Store    *store.Store
	Confirm  Confirmer
	EnableAX bool
}

// NewController builds a controller for one page and decision-maker.
func NewController(page Page, llm provider.Client, opts Options) *Controller {
	confirm := opts.Confirm
	if confirm == nil {
		confirm = AutoConfirmer{}
	}
	return &Controller{
		page:           page,
		llm:            llm,
		ranker:         opts.Ranker,
		history:        opts.Store,
		confirm:        confirm,
		enableAX:       opts.EnableAX,
		state:          StateIdle,
		lastClickIndex: -1,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop ends the session after the current step. In-flight network calls
// are left to time out naturally.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.page.ClearHighlight(context.Background())
}

func (c *Controller) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run executes one goal to completion. LoopDetected errors stop the
// session outright; other pipeline failures leave it resumable by a new
// Run call.
func (c *Controller) Run(ctx context.Context, goal string) error {
	c.goal = goal
	c.openSession(goal)
	c.setState(StatePlanning)

	steps, err := GeneratePlan(ctx, c.llm, goal)
	if err != nil {
		c.closeSession("failed")
		c.setState(StateIdle)
		return err
	}
	c.steps = steps
	c.current = 0

	rounds := 0
	for {
		for c.current < len(c.steps) {
			if err := ctx.Err(); err != nil {
				c.closeSession("failed")
				c.setState(StateIdle)
				return err
			}
			if c.isStopped() {
				c.closeSession("stopped")
				c.setState(StateIdle)
				return nil
			}
			if err := c.runStep(ctx); err != nil {
				// Loop detection ends the session for good; other
				// failures leave it resumable with a fresh Run.
				var loop *ErrLoopDetected
				if errors.As(err, &loop) {
					c.closeSession("failed")
				}
				c.setState(StateIdle)
				return err
			}
		}

		c.setState(StateFinished)
		info, _ := c.page.Info(ctx)
		finished, remaining := c.checkCompletion(ctx, info)
		if !finished && len(remaining) > 0 && rounds < completionRounds {
			rounds++
			devlog.Tagf("Agent", "goal not complete, %d steps appended", len(remaining))
			c.steps = append(c.steps, remaining...)
			continue
		}

		done, reason := c.confirm.ConfirmDone(goal)
		if !done && strings.TrimSpace(reason) != "" && rounds < completionRounds {
			rounds++
			c.record(HistoryEntry{Action: "feedback", Status: "done", Value: reason})
			finished, remaining = c.checkCompletion(ctx, info)
			if !finished && len(remaining) > 0 {
				c.steps = append(c.steps, remaining...)
				continue
			}
		}

		if done {
			c.closeSession("done")
		} else {
			c.closeSession("not_done")
		}
		c.setState(StateIdle)
		return nil
	}
}

// runStep executes the current step. A call while a step is already in
// flight is a no-op.
func (c *Controller) runStep(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	step := &c.steps[c.current]
	c.setState(StateStepExecuting)
	devlog.Tagf("Agent", "step %d/%d: %s", c.current+1, len(c.steps), step.Instruction)

	if url, ok := rank.DirectNavigation(step.Instruction); ok {
		return c.navigateStep(ctx, url)
	}
	return c.pipelineStep(ctx, step)
}

// navigateStep handles a direct "navigate to X" step, bypassing the
// scan pipeline.
func (c *Controller) navigateStep(ctx context.Context, url string) error {
	target := urlutil.EnsureScheme(url)
	if c.isNavLoop(target) {
		return c.loopDetected(target)
	}
	if err := c.page.Navigate(ctx, target); err != nil {
		return err
	}
	c.page.WaitLoadComplete(ctx, navLoadWait)
	c.sleep(ctx, settleDelay)
	c.recordNav(target)
	c.record(HistoryEntry{Action: "navigate", Status: "done", URL: target})
	c.advance()
	return nil
}

// pipelineStep runs the full scan → rank → filter → decide → resolve →
// apply pipeline for one step.
func (c *Controller) pipelineStep(ctx context.Context, step *Step) error {
	info, err := c.page.Info(ctx)
	if err != nil {
		return fmt.Errorf("page info failed: %w", err)
	}

	// Restricted surfaces are never scanned; the decision-maker is told
	// to navigate somewhere scannable first.
	if urlutil.IsRestricted(info.URL) {
		d, err := c.decide(ctx, decideInput{
			Goal:     c.goal,
			Step:     *step,
			Page:     info,
			History:  c.recentHistory(),
			Feedback: "The current page cannot be scanned. Navigate to a normal web page first.",
		})
		if err != nil {
			return err
		}
		return c.executeDecision(ctx, step, d, info)
	}

	result, err := c.page.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if result.Skipped() {
		result.Elements = nil
	}

	var ix *scan.AXIndex
	if c.enableAX {
		if nodes, axErr := c.page.AXSnapshot(ctx); axErr == nil {
			ix = scan.BuildAXIndex(nodes)
			devlog.Tagf("Agent", "ax index: %d interactive labels", ix.Count)
		}
	}

	targets := scan.BuildTargets(result.Elements, ix)
	c.lastElements = result.Elements
	c.lastTargets = targets
	c.lastGroups = scan.GroupTargets(targets)

	query := strings.Join(step.RankingKeywords, " ")
	if query == "" {
		query = step.Instruction
	}
	scored := rank.BM25(targets, query)
	if c.ranker != nil {
		scored = c.ranker.RankHybrid(ctx, scored, c.goal)
	}
	filtered := rank.FilterByGoal(scored, c.goal, result.Page.URL)
	candidates := make([]scan.Target, 0, len(filtered))
	for _, s := range filtered {
		candidates = append(candidates, s.Target)
	}

	searchHint := ""
	if rank.IsSearchGoal(c.goal) || rank.IsSearchGoal(step.Instruction) {
		if si, siErr := c.page.FindSearchInput(ctx); siErr == nil && si.Found {
			searchHint = fmt.Sprintf("A search input is available at index [%d]; for search steps prefer a type action on it.", si.Index)
		}
	}

	d, err := c.decide(ctx, decideInput{
		Goal:       c.goal,
		Step:       *step,
		Page:       result.Page,
		Candidates: candidates,
		History:    c.recentHistory(),
		Feedback:   c.takeFeedback(),
		SearchHint: searchHint,
	})
	if err != nil {
		return err
	}
	return c.executeDecision(ctx, step, d, result.Page)
}

// executeDecision carries out one decision-maker action for a step.
func (c *Controller) executeDecision(ctx context.Context, step *Step, d *decisionWire, page scan.PageInfo) error {
	// On a search-results page, searching or navigating again is almost
	// always the model stalling; force it toward the result links.
	if (d.Action.Type == "navigate" || d.Action.Type == "search") && urlutil.IsSearchResults(page.URL) {
		c.stall("This is already a search-results page. Click one of the result links instead of searching or navigating again.")
		return nil
	}

	switch d.Action.Type {
	case "finish":
		if c.executedActions() == 0 || c.current < len(c.steps)-1 {
			c.stall("finish rejected: the plan is not complete; take the next concrete action")
			return nil
		}
		c.record(HistoryEntry{Action: "finish", Status: "done", Thought: d.Thought})
		c.current = len(c.steps)
		return nil

	case "feedback":
		msg := d.Action.Message
		if msg == "" {
			msg = d.Thought
		}
		c.stall(msg)
		return nil

	case "navigate":
		if d.Action.URL == "" {
			c.stall("navigate action carried no url")
			return nil
		}
		target := urlutil.EnsureScheme(d.Action.URL)
		if c.isNavLoop(target) {
			return c.loopDetected(target)
		}
		if err := c.page.Navigate(ctx, target); err != nil {
			return err
		}
		c.page.WaitLoadComplete(ctx, navLoadWait)
		c.sleep(ctx, settleDelay)
		c.recordNav(target)
		c.record(HistoryEntry{Action: "navigate", Status: "done", URL: target, Thought: d.Thought})
		return c.finishStep(ctx, step, page.URL, false)

	case "click":
		if d.Action.Index != nil && c.repeatedClick(*d.Action.Index, page.URL) {
			c.stall(fmt.Sprintf("clicking [%d] again is not changing the page; pick a different element", *d.Action.Index))
			return nil
		}
		idx, err := c.resolveAndApply(ctx, "click", d.Action.Index, "", false)
		if err != nil {
			return err
		}
		c.noteClick(idx, page.URL)
		return c.awaitAndVerify(ctx, step, page.URL, HistoryEntry{
			Action: "click", Status: "pending", Index: idx, Thought: d.Thought,
		}, true)

	case "type":
		value := d.Action.Value
		submit := c.isSearchTarget(ctx, d.Action.Index)
		idx, err := c.resolveAndApply(ctx, "type", d.Action.Index, value, submit)
		if err != nil {
			return err
		}
		return c.awaitAndVerify(ctx, step, page.URL, HistoryEntry{
			Action: "type", Status: "pending", Index: idx, Value: value, Thought: d.Thought,
		}, false)

	case "search":
		value := d.Action.Value
		if value == "" {
			value = rank.RefineSearchTerm(c.goal)
		}
		var literal *int
		if si, err := c.page.FindSearchInput(ctx); err == nil && si.Found {
			literal = &si.Index
			c.sleep(ctx, searchFocusDelay)
		}
		idx, err := c.resolveAndApply(ctx, "type", literal, value, true)
		if err != nil {
			return err
		}
		return c.awaitAndVerify(ctx, step, page.URL, HistoryEntry{
			Action: "search", Status: "pending", Index: idx, Value: value, Thought: d.Thought,
		}, false)

	default:
		c.stall(fmt.Sprintf("unsupported action type %q", d.Action.Type))
		return nil
	}
}

// awaitAndVerify holds a visually-applied action pending until the
// external confirmation arrives, then runs the verification cascade.
func (c *Controller) awaitAndVerify(ctx context.Context, step *Step, prevURL string, entry HistoryEntry, trustedClick bool) error {
	c.record(entry)
	c.setState(StatePendingConfirmation)

	if !c.confirmAction(*step, entry) {
		c.setLastStatus("rejected")
		c.page.ClearHighlight(ctx)
		c.stall("the user rejected the proposed action; choose a different one")
		return nil
	}
	c.setLastStatus("done")
	c.sleep(ctx, settleDelay)
	return c.finishStep(ctx, step, prevURL, trustedClick)
}

// confirmAction asks the confirmer, enforcing the debounce window
// between consecutive confirmations.
func (c *Controller) confirmAction(step Step, entry HistoryEntry) bool {
	c.mu.Lock()
	wait := confirmDebounce - time.Since(c.lastConfirm)
	c.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
	ok := c.confirm.ConfirmAction(step, entry)
	c.mu.Lock()
	c.lastConfirm = time.Now()
	c.mu.Unlock()
	return ok
}

// resolveAndApply builds the attempt list (literal index first, then
// rescored fallbacks) and applies the first attempt that resolves to a
// live, visible element. Stale indices fall through, never fail hard.
func (c *Controller) resolveAndApply(ctx context.Context, kind string, literal *int, value string, submitAfter bool) (int, error) {
	exclude := make(map[int]bool)
	var attempts []int
	if literal != nil && *literal >= 0 && *literal < len(c.lastTargets) {
		attempts = append(attempts, *literal)
		exclude[*literal] = true
	}
	attempts = append(attempts, rank.Candidates(c.lastGroups.All(), c.goal, exclude, maxResolveAttempts-len(attempts))...)
	if len(attempts) == 0 {
		return -1, fmt.Errorf("no resolvable target for %s", kind)
	}

	for _, idx := range attempts {
		el := c.elementByIndex(idx)
		if el == nil {
			continue
		}
		cmd := browser.Command{
			Kind:        kind,
			Index:       idx,
			XPath:       el.XPath,
			FramePath:   el.FramePath,
			Label:       scan.Label(*el),
			Value:       value,
			SubmitAfter: submitAfter,
		}
		res, err := c.page.Apply(ctx, cmd)
		if err != nil {
			return -1, err
		}
		if res.OK {
			return idx, nil
		}
		devlog.Tagf("Agent", "attempt [%d] failed (%s), trying next", idx, res.Reason)
	}
	return -1, fmt.Errorf("no attempt resolved to a live element for %s", kind)
}

func (c *Controller) elementByIndex(idx int) *scan.Element {
	for i := range c.lastElements {
		if c.lastElements[i].Index == idx {
			return &c.lastElements[i]
		}
	}
	return nil
}

// isSearchTarget reports whether a type action aimed at idx should
// auto-submit with Enter.
func (c *Controller) isSearchTarget(ctx context.Context, idx *int) bool {
	if idx == nil {
		return false
	}
	if si, err := c.page.FindSearchInput(ctx); err == nil && si.Found && si.Index == *idx {
		return true
	}
	return false
}

// stall records a non-advancing outcome as feedback for the next
// decision; three stalls on the same step skip it.
func (c *Controller) stall(msg string) {
	c.feedback = msg
	c.record(HistoryEntry{Action: "feedback", Status: "done", Value: msg})
	c.stallCount++
	if c.stallCount >= clickRepeatLimit {
		devlog.Tagf("Agent", "step stalled %d times, skipping", c.stallCount)
		c.advance()
	}
}

func (c *Controller) advance() {
	c.current++
	c.stallCount = 0
}

// isNavLoop reports whether a normalized-equal URL sits in the recent
// navigation window.
func (c *Controller) isNavLoop(url string) bool {
	norm := urlutil.Normalize(url)
	start := len(c.navHistory) - navLoopWindow
	if start < 0 {
		start = 0
	}
	for _, prev := range c.navHistory[start:] {
		if urlutil.Normalize(prev) == norm {
			return true
		}
	}
	return false
}

func (c *Controller) recordNav(url string) {
	c.navHistory = append(c.navHistory, url)
}

// loopDetected records the rejected revisit as a feedback entry before
// surfacing the terminal error, so the session history shows why the
// run stopped.
func (c *Controller) loopDetected(target string) error {
	detail := "already visited " + target + " recently"
	c.record(HistoryEntry{Action: "feedback", Status: "done", URL: target, Value: detail})
	return &ErrLoopDetected{Detail: detail}
}

// repeatedClick reports whether clicking idx again would be the Nth
// repeat with no page change.
func (c *Controller) repeatedClick(idx int, pageURL string) bool {
	if idx != c.lastClickIndex || urlutil.Normalize(pageURL) != urlutil.Normalize(c.lastClickURL) {
		return false
	}
	return c.clickRepeat+1 >= clickRepeatLimit
}

func (c *Controller) noteClick(idx int, pageURL string) {
	if idx == c.lastClickIndex && urlutil.Normalize(pageURL) == urlutil.Normalize(c.lastClickURL) {
		c.clickRepeat++
		return
	}
	c.lastClickIndex = idx
	c.lastClickURL = pageURL
	c.clickRepeat = 1
}

func (c *Controller) executedActions() int {
	n := 0
	for _, h := range c.actions {
		switch h.Action {
		case "click", "type", "navigate", "search":
			if h.Status == "done" {
				n++
			}
		}
	}
	return n
}

func (c *Controller) recentHistory() []HistoryEntry {
	const recent = 5
	if len(c.actions) <= recent {
		return c.actions
	}
	return c.actions[len(c.actions)-recent:]
}

func (c *Controller) takeFeedback() string {
	fb := c.feedback
	c.feedback = ""
	return fb
}

// record appends a history entry and persists it; persistence failures
// are logged and ignored.
func (c *Controller) record(entry HistoryEntry) {
	c.actions = append(c.actions, entry)
	if c.history == nil || c.sessionID == "" {
		return
	}
	detail, _ := json.Marshal(map[string]any{
		"index":   entry.Index,
		"url":     entry.URL,
		"value":   entry.Value,
		"thought": entry.Thought,
	})
	if err := c.history.AppendAction(store.ActionRecord{
		SessionID: c.sessionID,
		Action:    entry.Action,
		Status:    entry.Status,
		Detail:    detail,
	}); err != nil {
		devlog.Tagf("Agent", "history persist failed: %v", err)
	}
}

func (c *Controller) setLastStatus(status string) {
	if len(c.actions) == 0 {
		return
	}
	c.actions[len(c.actions)-1].Status = status
	if status == "done" && c.history != nil && c.sessionID != "" {
		if err := c.history.MarkLastActionDone(c.sessionID); err != nil {
			devlog.Tagf("Agent", "history update failed: %v", err)
		}
	}
}

func (c *Controller) openSession(goal string) {
	if c.history == nil {
		return
	}
	sess, err := c.history.CreateSession(goal)
	if err != nil {
		devlog.Tagf("Agent", "session create failed: %v", err)
		return
	}
	c.sessionID = sess.ID
}

func (c *Controller) closeSession(status string) {
	if c.history == nil || c.sessionID == "" {
		return
	}
	if err := c.history.SetSessionStatus(c.sessionID, status); err != nil {
		devlog.Tagf("Agent", "session close failed: %v", err)
	}
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
