package agent

import (
	"context"
	"strings"

	"github.com/wayfind-ai/wayfind/internal/devlog"
	"github.com/wayfind-ai/wayfind/internal/jsonx"
	"github.com/wayfind-ai/wayfind/internal/provider"
	"github.com/wayfind-ai/wayfind/internal/scan"
	"github.com/wayfind-ai/wayfind/internal/urlutil"
)

// finishStep runs the verification cascade for a completed step and
// either advances, splices in corrections, or skips past the correction
// cap.
func (c *Controller) finishStep(ctx context.Context, step *Step, prevURL string, trustedClick bool) error {
	c.setState(StateStepVerifying)

	if c.verifyStep(ctx, *step, prevURL, trustedClick) {
		c.advance()
		return nil
	}

	c.setState(StateCorrecting)
	if step.CorrectionCount >= maxCorrections {
		devlog.Tagf("Agent", "step %d failed %d corrections, skipping", step.StepID, step.CorrectionCount)
		c.advance()
		return nil
	}
	step.CorrectionCount++

	info, _ := c.page.Info(ctx)
	corrections := c.requestCorrections(ctx, *step, info)
	for i := range corrections {
		corrections[i].CorrectionCount = step.CorrectionCount
	}
	if len(corrections) > 0 {
		devlog.Tagf("Agent", "splicing %d corrective steps after step %d", len(corrections), step.StepID)
		c.steps = spliceSteps(c.steps, c.current, corrections)
	}
	c.advance()
	return nil
}

// spliceSteps inserts corrections immediately after index current.
func spliceSteps(steps []Step, current int, corrections []Step) []Step {
	out := make([]Step, 0, len(steps)+len(corrections))
	out = append(out, steps[:current+1]...)
	out = append(out, corrections...)
	out = append(out, steps[current+1:]...)
	return out
}

// verifyStep runs the cheap-to-expensive cascade, stopping at the first
// success. Ambiguity resolves optimistically: verification must never
// leave the user blocked.
func (c *Controller) verifyStep(ctx context.Context, step Step, prevURL string, trustedClick bool) bool {
	// A just-applied, user-confirmed click needs no further evidence.
	if trustedClick {
		return true
	}

	info, err := c.page.Info(ctx)
	if err != nil {
		return true
	}
	if urlutil.Normalize(info.URL) != urlutil.Normalize(prevURL) {
		devlog.Tagf("Agent", "verified: url changed")
		return true
	}
	if step.ExpectedURLPart != "" &&
		strings.Contains(strings.ToLower(info.URL), strings.ToLower(step.ExpectedURLPart)) {
		devlog.Tagf("Agent", "verified: expected url part present")
		return true
	}

	// Keyword probe against a fresh snapshot of the page text.
	result, err := c.page.Scan(ctx)
	if err != nil {
		return true
	}
	sample := strings.ToLower(result.TextSample)
	for _, kw := range step.RankingKeywords {
		if kw != "" && strings.Contains(sample, strings.ToLower(kw)) {
			devlog.Tagf("Agent", "verified: keyword %q on page", kw)
			return true
		}
	}

	// Last resort: ask the decision-maker, showing the element labels
	// now visible. Any failure of the check itself counts as success.
	labels := make([]string, 0, 12)
	for _, el := range result.Elements {
		if label := scan.Label(el); label != "" {
			labels = append(labels, label)
		}
		if len(labels) == 12 {
			break
		}
	}
	raw, err := provider.Complete(ctx, c.llm, systemPrompt, nil, verifyPrompt(step, result.Page, labels))
	if err != nil {
		devlog.Tagf("Agent", "verification check failed, assuming success: %v", err)
		return true
	}
	var v verifyWire
	if err := jsonx.Unmarshal(raw, &v); err != nil {
		devlog.Tagf("Agent", "verification response unparseable, assuming success")
		return true
	}
	return v.Success
}
