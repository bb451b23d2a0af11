package semantic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfind-ai/wayfind/internal/rank"
	"github.com/wayfind-ai/wayfind/internal/scan"
)

// fakeEmbedder maps known strings to fixed vectors.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    bool
	delay   time.Duration
	calls   int
}

func (f *fakeEmbedder) Model() string { return "fake" }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail {
		return nil, errors.New("embedder down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func scoredFixture() []rank.Scored {
	return []rank.Scored{
		{Target: scan.Target{Index: 0, Label: "Cancel"}, Score: 2.4, Lexical: 2.4},
		{Target: scan.Target{Index: 1, Label: "Search"}, Score: 1.9, Lexical: 1.9},
	}
}

func TestRankHybridReordersBySimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"find things": {1, 0, 0},
		"Search ":     {0.9, 0.1, 0},
		"Cancel ":     {0, 1, 0},
	}}
	r := NewRanker(NewService(emb, nil))
	defer r.Close()

	out := r.RankHybrid(context.Background(), scoredFixture(), "find things")
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Target.Index)
	assert.Greater(t, out[0].Score, out[1].Score)
	// Cosine replaces Score but the lexical score survives for the
	// downstream goal filter.
	assert.Equal(t, 1.9, out[0].Lexical)
	assert.Equal(t, 2.4, out[1].Lexical)
}

func TestRankHybridFallsBackWhenEmbedderFails(t *testing.T) {
	// Warm-up never succeeds, so WaitReady fails and the input order is
	// preserved untouched.
	emb := &fakeEmbedder{fail: true}
	r := NewRanker(NewService(emb, nil))
	defer r.Close()

	in := scoredFixture()
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	out := r.RankHybrid(ctx, in, "anything")
	assert.Equal(t, in, out)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRankHybridSplitsAtTopK(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	r := NewRanker(NewService(emb, nil))
	defer r.Close()

	in := make([]rank.Scored, HybridTopK+5)
	for i := range in {
		in[i] = rank.Scored{Target: scan.Target{Index: i, Label: "item"}, Score: float64(len(in) - i)}
	}
	out := r.RankHybrid(context.Background(), in, "goal")
	require.Len(t, out, len(in))
	// The lexical remainder keeps its order after the reranked head.
	for i := HybridTopK; i < len(in); i++ {
		assert.Equal(t, i, out[i].Target.Index)
	}
}

func TestRankScoresNoCrossResolve(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"goal-a": {1, 0, 0},
		"goal-b": {0, 1, 0},
		"a":      {1, 0, 0},
		"b":      {0, 1, 0},
	}}
	r := NewRanker(NewService(emb, nil))
	defer r.Close()
	require.True(t, r.WaitReady(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		goal, text := "goal-a", "a"
		if i%2 == 1 {
			goal, text = "goal-b", "b"
		}
		go func(goal, text string) {
			defer wg.Done()
			scores, ok := r.rankScores(context.Background(), goal, []string{text})
			if assert.True(t, ok) && assert.Len(t, scores, 1) {
				assert.InDelta(t, 1.0, scores[0], 1e-6)
			}
		}(goal, text)
	}
	wg.Wait()
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}
