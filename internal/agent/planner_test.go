package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfind-ai/wayfind/internal/scan"
)

func TestGeneratePlanDirectNavigation(t *testing.T) {
	// A bare navigation goal must not consult the decision-maker at all.
	llm := &scripted{fail: true}
	steps, err := GeneratePlan(context.Background(), llm, "go to amazon.com")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "navigate to amazon.com", steps[0].Instruction)
	assert.Equal(t, "amazon.com", steps[0].ExpectedURLPart)
	assert.Empty(t, llm.prompts)
}

func TestGeneratePlanNormalizesShortKeys(t *testing.T) {
	llm := &scripted{responses: []string{
		`Here is the plan:
		[{"id":1,"act":"navigate to amazon.com","keys":["amazon"],"url":"amazon.com"},
		 {"id":0,"act":" search for a mouse ","keys":[" search ",""],"url":""},
		 {"id":3,"act":"","keys":[],"url":""}]`,
	}}
	steps, err := GeneratePlan(context.Background(), llm, "buy a mouse on amazon")
	require.NoError(t, err)
	require.Len(t, steps, 2, "empty instructions are dropped")

	assert.Equal(t, 1, steps[0].StepID)
	assert.Equal(t, "navigate to amazon.com", steps[0].Instruction)
	assert.Equal(t, []string{"amazon"}, steps[0].RankingKeywords)
	assert.Equal(t, "amazon.com", steps[0].ExpectedURLPart)

	assert.Equal(t, "search for a mouse", steps[1].Instruction)
	assert.Equal(t, []string{"search"}, steps[1].RankingKeywords, "keyword whitespace and blanks are stripped")
	assert.NotZero(t, steps[1].StepID, "a missing id is filled in")
}

func TestGeneratePlanEmptyIsTerminal(t *testing.T) {
	llm := &scripted{responses: []string{`[]`}}
	_, err := GeneratePlan(context.Background(), llm, "do something")
	require.Error(t, err)
}

func TestGeneratePlanUnparseableIsTerminal(t *testing.T) {
	llm := &scripted{responses: []string{`I cannot help with that.`}}
	_, err := GeneratePlan(context.Background(), llm, "do something")
	require.Error(t, err)
}

func TestDecideFallsBackToTopCandidate(t *testing.T) {
	page := &fakePage{url: "https://example.com", applyOK: true}
	c := newTestController(page, &scripted{responses: []string{`total nonsense, no json here`}})
	c.goal = "click the login button"

	in := decideInput{
		Goal:       c.goal,
		Step:       Step{StepID: 1, Instruction: "click login"},
		Candidates: []scan.Target{{Index: 4, Type: "button", Label: "Log in"}},
	}

	d, err := c.decide(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "click", d.Action.Type)
	require.NotNil(t, d.Action.Index)
	assert.Equal(t, 4, *d.Action.Index)
}

func TestDecideNoCandidatesNoJSONFails(t *testing.T) {
	page := &fakePage{url: "https://example.com"}
	c := newTestController(page, &scripted{responses: []string{`nope`}})
	_, err := c.decide(context.Background(), decideInput{Goal: "g", Step: Step{}})
	require.Error(t, err)
}

func TestSpliceSteps(t *testing.T) {
	steps := []Step{{StepID: 1}, {StepID: 2}, {StepID: 3}}
	out := spliceSteps(steps, 1, []Step{{StepID: 200}, {StepID: 201}})
	require.Len(t, out, 5)
	assert.Equal(t, []int{1, 2, 200, 201, 3}, stepIDs(out))
}

func stepIDs(steps []Step) []int {
	ids := make([]int, len(steps))
	for i, s := range steps {
		ids[i] = s.StepID
	}
	return ids
}
