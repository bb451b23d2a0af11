package agent

import (
	"context"
	"fmt"

	"github.com/wayfind-ai/wayfind/internal/devlog"
	"github.com/wayfind-ai/wayfind/internal/jsonx"
	"github.com/wayfind-ai/wayfind/internal/provider"
	"github.com/wayfind-ai/wayfind/internal/rank"
	"github.com/wayfind-ai/wayfind/internal/scan"
)

// GeneratePlan turns a goal into an ordered step list. A goal that is
// itself a bare navigation ("go to amazon.com") becomes a one-step plan
// without consulting the decision-maker. A plan with zero steps is a
// terminal failure for the attempt.
func GeneratePlan(ctx context.Context, llm provider.Client, goal string) ([]Step, error) {
	if url, ok := rank.DirectNavigation(goal); ok {
		return []Step{{
			StepID:          1,
			Instruction:     "navigate to " + url,
			ExpectedURLPart: url,
		}}, nil
	}

	raw, err := provider.Complete(ctx, llm, planSystemPrompt, nil, planPrompt(goal))
	if err != nil {
		return nil, fmt.Errorf("plan request failed: %w", err)
	}

	var wire []planStepWire
	if err := jsonx.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("plan response was not parseable: %w", err)
	}
	steps := normalizeSteps(wire, 1)
	if len(steps) == 0 {
		return nil, fmt.Errorf("decision-maker returned an empty plan")
	}
	devlog.Tagf("Planner", "plan: %d steps for %q", len(steps), goal)
	return steps, nil
}

// decide asks the decision-maker for the next action on a step. A
// response that survives no repair strategy degrades to a deterministic
// click on the top filtered candidate; with no candidates either, the
// error is surfaced.
func (c *Controller) decide(ctx context.Context, in decideInput) (*decisionWire, error) {
	raw, err := provider.Complete(ctx, c.llm, systemPrompt, nil, decidePrompt(in))
	if err != nil {
		return nil, err
	}

	var d decisionWire
	if err := jsonx.Unmarshal(raw, &d); err == nil && d.Action.Type != "" {
		return &d, nil
	}

	if len(in.Candidates) > 0 {
		devlog.Tagf("Planner", "decision unparseable, falling back to top candidate")
		idx := in.Candidates[0].Index
		fallback := &decisionWire{Thought: "fallback: best ranked candidate"}
		fallback.Action.Type = "click"
		fallback.Action.Index = &idx
		return fallback, nil
	}
	return nil, fmt.Errorf("decision response was not parseable")
}

// requestCorrections asks for 1-3 corrective steps after a failed
// verification. Errors degrade to no corrections.
func (c *Controller) requestCorrections(ctx context.Context, step Step, page scan.PageInfo) []Step {
	raw, err := provider.Complete(ctx, c.llm, planSystemPrompt, nil, correctionPrompt(c.goal, step, page))
	if err != nil {
		devlog.Tagf("Planner", "correction request failed: %v", err)
		return nil
	}
	var wire []planStepWire
	if err := jsonx.Unmarshal(raw, &wire); err != nil {
		devlog.Tagf("Planner", "correction response unparseable: %v", err)
		return nil
	}
	steps := normalizeSteps(wire, step.StepID*100)
	if len(steps) > 3 {
		steps = steps[:3]
	}
	return steps
}

// checkCompletion asks whether the goal is achieved. A failed check
// counts as finished per the optimistic policy; the user confirmation
// still gates the close.
func (c *Controller) checkCompletion(ctx context.Context, page scan.PageInfo) (bool, []Step) {
	raw, err := provider.Complete(ctx, c.llm, systemPrompt, nil, completionPrompt(c.goal, page, c.recentHistory()))
	if err != nil {
		devlog.Tagf("Planner", "completion check failed, assuming finished: %v", err)
		return true, nil
	}
	var w completionWire
	if err := jsonx.Unmarshal(raw, &w); err != nil {
		devlog.Tagf("Planner", "completion response unparseable, assuming finished")
		return true, nil
	}
	if w.Finished {
		return true, nil
	}
	base := 1
	if n := len(c.steps); n > 0 {
		base = c.steps[n-1].StepID + 1
	}
	return false, normalizeSteps(w.Remaining, base)
}
