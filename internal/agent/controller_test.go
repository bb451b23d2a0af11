package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfind-ai/wayfind/internal/browser"
	"github.com/wayfind-ai/wayfind/internal/provider"
	"github.com/wayfind-ai/wayfind/internal/scan"
)

// scripted replays canned completions in order.
type scripted struct {
	responses []string
	prompts   []string
	fail      bool
}

func (s *scripted) ID() string { return "scripted" }

func (s *scripted) Complete(ctx context.Context, system string, history []provider.Message, user string) (string, error) {
	s.prompts = append(s.prompts, user)
	if s.fail || len(s.responses) == 0 {
		return "", fmt.Errorf("script exhausted")
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

// fakePage is an in-memory Page; Navigate updates the URL and Scan
// serves the configured result stamped with it.
type fakePage struct {
	url        string
	title      string
	elements   []scan.Element
	textSample string
	applied    []browser.Command
	applyOK    bool
	navigated  []string
	search     *browser.SearchInput
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	p.url = url
	return nil
}

func (p *fakePage) Info(ctx context.Context) (scan.PageInfo, error) {
	return scan.PageInfo{URL: p.url, Title: p.title}, nil
}

func (p *fakePage) WaitLoadComplete(ctx context.Context, maxWait time.Duration) {}

func (p *fakePage) Scan(ctx context.Context) (*scan.Result, error) {
	return &scan.Result{
		Status:     "ok",
		Page:       scan.PageInfo{URL: p.url, Title: p.title},
		Elements:   p.elements,
		TextSample: p.textSample,
	}, nil
}

func (p *fakePage) Apply(ctx context.Context, cmd browser.Command) (*browser.ApplyResult, error) {
	p.applied = append(p.applied, cmd)
	return &browser.ApplyResult{OK: p.applyOK}, nil
}

func (p *fakePage) FindSearchInput(ctx context.Context) (*browser.SearchInput, error) {
	if p.search != nil {
		return p.search, nil
	}
	return &browser.SearchInput{Found: false, Index: -1}, nil
}

func (p *fakePage) ClearHighlight(ctx context.Context) {}

func (p *fakePage) AXSnapshot(ctx context.Context) ([]scan.AXNode, error) {
	return nil, nil
}

func newTestController(page *fakePage, llm provider.Client) *Controller {
	return NewController(page, llm, Options{})
}

func TestNavigationLoopDetected(t *testing.T) {
	page := &fakePage{applyOK: true}
	c := newTestController(page, &scripted{})
	c.navHistory = []string{"https://amazon.com"}

	err := c.navigateStep(context.Background(), "www.amazon.com/")
	var loop *ErrLoopDetected
	require.ErrorAs(t, err, &loop)
	assert.Empty(t, page.navigated)
	// The rejected revisit lands in history before the run stops.
	require.NotEmpty(t, c.actions)
	last := c.actions[len(c.actions)-1]
	assert.Equal(t, "feedback", last.Action)
	assert.Equal(t, "done", last.Status)
	assert.Contains(t, last.Value, "already visited")
}

func TestDecisionNavigateLoopRecordsFeedback(t *testing.T) {
	page := &fakePage{url: "https://example.com", applyOK: true}
	c := newTestController(page, &scripted{})
	c.steps = []Step{{StepID: 1, Instruction: "go back to amazon"}}
	c.navHistory = []string{"https://amazon.com"}

	d := &decisionWire{}
	d.Action.Type = "navigate"
	d.Action.URL = "amazon.com"

	info, _ := page.Info(context.Background())
	err := c.executeDecision(context.Background(), &c.steps[0], d, info)
	var loop *ErrLoopDetected
	require.ErrorAs(t, err, &loop)
	assert.Empty(t, page.navigated)
	require.NotEmpty(t, c.actions)
	assert.Equal(t, "feedback", c.actions[len(c.actions)-1].Action)
}

func TestNavigationLoopWindowExpires(t *testing.T) {
	page := &fakePage{applyOK: true}
	c := newTestController(page, &scripted{})
	c.navHistory = []string{"https://amazon.com"}
	for i := 0; i < navLoopWindow; i++ {
		c.navHistory = append(c.navHistory, fmt.Sprintf("https://other%d.com", i))
	}
	c.steps = []Step{{StepID: 1, Instruction: "navigate to amazon.com"}}

	err := c.navigateStep(context.Background(), "amazon.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://amazon.com"}, page.navigated)
	assert.Equal(t, 1, c.current)
}

func TestGoogleResultsInterception(t *testing.T) {
	page := &fakePage{url: "https://www.google.com/search?q=wireless+mouse", applyOK: true}
	c := newTestController(page, &scripted{})
	c.goal = "buy a wireless mouse"
	c.steps = []Step{{StepID: 1, Instruction: "open the product page"}}

	d := &decisionWire{}
	d.Action.Type = "navigate"
	d.Action.URL = "https://amazon.com"

	info, _ := page.Info(context.Background())
	require.NoError(t, c.executeDecision(context.Background(), &c.steps[0], d, info))
	assert.Empty(t, page.navigated, "navigation on a results page must convert to feedback")
	assert.NotEmpty(t, c.feedback)
	assert.Equal(t, 0, c.current)
}

func TestFinishOverriddenWithRemainingSteps(t *testing.T) {
	page := &fakePage{url: "https://amazon.com", applyOK: true}
	c := newTestController(page, &scripted{})
	c.goal = "buy a mouse"
	c.steps = []Step{{StepID: 1}, {StepID: 2}}
	c.actions = []HistoryEntry{{Action: "click", Status: "done"}}

	d := &decisionWire{}
	d.Action.Type = "finish"

	info, _ := page.Info(context.Background())
	require.NoError(t, c.executeDecision(context.Background(), &c.steps[0], d, info))
	assert.Equal(t, 0, c.current, "finish with remaining steps must not close the plan")
	assert.NotEmpty(t, c.feedback)
}

func TestFinishOverriddenWithZeroActions(t *testing.T) {
	page := &fakePage{url: "https://amazon.com", applyOK: true}
	c := newTestController(page, &scripted{})
	c.goal = "buy a mouse"
	c.steps = []Step{{StepID: 1}}

	d := &decisionWire{}
	d.Action.Type = "finish"

	info, _ := page.Info(context.Background())
	require.NoError(t, c.executeDecision(context.Background(), &c.steps[0], d, info))
	assert.Equal(t, 0, c.current)
}

func TestRepeatedClickRejected(t *testing.T) {
	page := &fakePage{url: "https://example.com", applyOK: true}
	c := newTestController(page, &scripted{})
	c.goal = "open the menu"
	c.steps = []Step{{StepID: 1, Instruction: "click the menu"}}
	c.lastClickIndex = 3
	c.lastClickURL = "https://example.com"
	c.clickRepeat = clickRepeatLimit - 1

	d := &decisionWire{}
	d.Action.Type = "click"
	idx := 3
	d.Action.Index = &idx

	info, _ := page.Info(context.Background())
	require.NoError(t, c.executeDecision(context.Background(), &c.steps[0], d, info))
	assert.Empty(t, page.applied, "third same-index click with no page change must be rejected")
	assert.NotEmpty(t, c.feedback)
}

func TestResolverFallsBackPastStaleIndex(t *testing.T) {
	page := &fakePage{url: "https://example.com", applyOK: true}
	c := newTestController(page, &scripted{})
	c.goal = "search for shoes"
	c.lastElements = []scan.Element{
		{Index: 0, Tag: "input", InputType: "text", Placeholder: "Search", XPath: "/html/body[1]/input[1]"},
		{Index: 1, Tag: "button", Text: "Go", XPath: "/html/body[1]/button[1]"},
	}
	c.lastTargets = scan.BuildTargets(c.lastElements, nil)
	c.lastGroups = scan.GroupTargets(c.lastTargets)

	// Literal index far out of range: resolver must fall through to the
	// rescored candidates instead of failing.
	stale := 42
	idx, err := c.resolveAndApply(context.Background(), "click", &stale, "", false)
	require.NoError(t, err)
	assert.Contains(t, []int{0, 1}, idx)
	require.NotEmpty(t, page.applied)
}

func TestResolverEmptyPageIsHardFailure(t *testing.T) {
	page := &fakePage{url: "https://example.com", applyOK: true}
	c := newTestController(page, &scripted{})
	c.goal = "click something"

	_, err := c.resolveAndApply(context.Background(), "click", nil, "", false)
	require.Error(t, err)
}

func TestStallSkipsStepAfterRepeats(t *testing.T) {
	page := &fakePage{url: "https://example.com", applyOK: true}
	c := newTestController(page, &scripted{})
	c.steps = []Step{{StepID: 1}, {StepID: 2}}

	c.stall("no viable action")
	c.stall("no viable action")
	assert.Equal(t, 0, c.current)
	c.stall("no viable action")
	assert.Equal(t, 1, c.current, "a persistently stalled step is skipped")
}

func TestRunSearchGoalEndToEnd(t *testing.T) {
	page := &fakePage{
		applyOK: true,
		title:   "Amazon",
		elements: []scan.Element{
			{Index: 0, Tag: "input", InputType: "text", Name: "q", Placeholder: "Search Amazon", XPath: "//*[@id=\"sb\"]"},
			{Index: 1, Tag: "button", Text: "Cart", XPath: "/html/body[1]/button[1]"},
			{Index: 2, Tag: "a", Text: "Today's Deals", XPath: "/html/body[1]/a[1]"},
		},
		textSample: "Search Amazon for anything",
		search:     &browser.SearchInput{Found: true, Index: 0, Placeholder: "Search Amazon"},
	}
	llm := &scripted{responses: []string{
		`[{"id":1,"act":"navigate to amazon.com","keys":[],"url":"amazon.com"},
		  {"id":2,"act":"type the search query into the search box","keys":["search"],"url":""}]`,
		`{"thought":"the search box is element 0","action":{"type":"type","index":0,"value":"wireless mouse"}}`,
		`{"finished": true}`,
	}}
	c := newTestController(page, llm)

	require.NoError(t, c.Run(context.Background(), "search for wireless mouse on amazon.com"))

	require.Equal(t, []string{"https://amazon.com"}, page.navigated)
	require.Len(t, page.applied, 1)
	cmd := page.applied[0]
	assert.Equal(t, "type", cmd.Kind)
	assert.Equal(t, 0, cmd.Index)
	assert.Equal(t, "wireless mouse", cmd.Value)
	assert.True(t, cmd.SubmitAfter, "typing into the search box must auto-submit")

	// The pending entry was confirmed and marked done.
	var typed *HistoryEntry
	for i := range c.actions {
		if c.actions[i].Action == "type" {
			typed = &c.actions[i]
		}
	}
	require.NotNil(t, typed)
	assert.Equal(t, "done", typed.Status)
	assert.Equal(t, StateIdle, c.State())
}

func TestRunStepInFlightIsNoOp(t *testing.T) {
	page := &fakePage{url: "https://example.com", applyOK: true}
	c := newTestController(page, &scripted{})
	c.steps = []Step{{StepID: 1, Instruction: "navigate to example.org"}}
	c.inFlight = true

	require.NoError(t, c.runStep(context.Background()))
	assert.Empty(t, page.navigated, "a step request while one is in flight must be a no-op")
}

type rejectingConfirmer struct{}

func (rejectingConfirmer) ConfirmAction(Step, HistoryEntry) bool { return false }
func (rejectingConfirmer) ConfirmDone(string) (bool, string)    { return true, "" }

func TestRejectedConfirmationKeepsStep(t *testing.T) {
	page := &fakePage{url: "https://example.com", applyOK: true}
	c := NewController(page, &scripted{}, Options{Confirm: rejectingConfirmer{}})
	c.goal = "click the button"
	c.steps = []Step{{StepID: 1, Instruction: "click the button"}}
	c.lastElements = []scan.Element{{Index: 0, Tag: "button", Text: "OK", XPath: "/html/body[1]/button[1]"}}
	c.lastTargets = scan.BuildTargets(c.lastElements, nil)
	c.lastGroups = scan.GroupTargets(c.lastTargets)

	d := &decisionWire{}
	d.Action.Type = "click"
	idx := 0
	d.Action.Index = &idx

	info, _ := page.Info(context.Background())
	require.NoError(t, c.executeDecision(context.Background(), &c.steps[0], d, info))
	assert.Equal(t, 0, c.current, "a rejected action must not advance the step")
	require.NotEmpty(t, c.actions)
	assert.Equal(t, "rejected", c.actions[0].Status)
}
