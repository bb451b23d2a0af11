package semantic

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wayfind-ai/wayfind/internal/devlog"
	"github.com/wayfind-ai/wayfind/internal/rank"
)

const (
	// ReadyTimeout bounds how long callers wait for the warm-up embed
	// before giving up and ranking lexically.
	ReadyTimeout = 12 * time.Second

	// RequestTimeout bounds one rank round-trip. Expiry resolves with
	// the caller's original order, never an error.
	RequestTimeout = 15 * time.Second

	// HybridTopK is the candidate count above which BM25 pre-filters:
	// only the lexical top K are semantically reranked, the rest are
	// appended unranked.
	HybridTopK = 20
)

type request struct {
	id    string
	goal  string
	texts []string
}

type response struct {
	id     string
	scores []float64
	ok     bool
}

// Ranker owns the embedding worker. Requests are correlated by opaque
// id in a pending map so concurrent callers never cross-resolve.
type Ranker struct {
	svc      *Service
	requests chan request
	ready    chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	pending map[string]chan response
}

// NewRanker starts the worker and begins the readiness warm-up.
func NewRanker(svc *Service) *Ranker {
	r := &Ranker{
		svc:      svc,
		requests: make(chan request, 8),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[string]chan response),
	}
	go r.run()
	return r
}

// Close stops the worker. In-flight callers resolve via their own
// timeouts.
func (r *Ranker) Close() {
	close(r.done)
}

func (r *Ranker) run() {
	// Warm-up: readiness is announced only after one successful embed,
	// mirroring a model load. Failure leaves the ranker not-ready and
	// callers degrade to lexical order.
	warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	_, err := r.svc.Embed(warmCtx, []string{"ready"})
	cancel()
	if err != nil {
		devlog.Tagf("Semantic", "warm-up embed failed, ranker stays unavailable: %v", err)
	} else {
		close(r.ready)
	}

	for {
		select {
		case <-r.done:
			return
		case req := <-r.requests:
			r.deliver(req.id, r.score(req))
		}
	}
}

func (r *Ranker) score(req request) response {
	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()

	vecs, err := r.svc.Embed(ctx, append([]string{req.goal}, req.texts...))
	if err != nil || len(vecs) != len(req.texts)+1 {
		if err != nil {
			devlog.Tagf("Semantic", "embed failed: %v", err)
		}
		return response{id: req.id}
	}
	goalVec := vecs[0]
	scores := make([]float64, len(req.texts))
	for i := range req.texts {
		scores[i] = CosineSimilarity(goalVec, vecs[i+1])
	}
	return response{id: req.id, scores: scores, ok: true}
}

func (r *Ranker) deliver(id string, resp response) {
	r.mu.Lock()
	ch, ok := r.pending[id]
	delete(r.pending, id)
	r.mu.Unlock()
	if !ok {
		// Caller already timed out; drop the late result.
		return
	}
	ch <- resp
}

// rankScores requests similarity scores for texts against goal. The
// boolean is false on timeout, worker shutdown, or embed failure.
func (r *Ranker) rankScores(ctx context.Context, goal string, texts []string) ([]float64, bool) {
	id := uuid.New().String()
	ch := make(chan response, 1)
	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()

	abandon := func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}

	select {
	case r.requests <- request{id: id, goal: goal, texts: texts}:
	case <-r.done:
		abandon()
		return nil, false
	case <-ctx.Done():
		abandon()
		return nil, false
	}

	timer := time.NewTimer(RequestTimeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		if !resp.ok || resp.id != id {
			return nil, false
		}
		return resp.scores, true
	case <-timer.C:
		abandon()
		devlog.Tagf("Semantic", "rank request timed out, keeping lexical order")
		return nil, false
	case <-ctx.Done():
		abandon()
		return nil, false
	}
}

// WaitReady blocks until the warm-up completes, bounded by ReadyTimeout
// and ctx. Returns false when the ranker never became ready.
func (r *Ranker) WaitReady(ctx context.Context) bool {
	if r == nil {
		return false
	}
	timer := time.NewTimer(ReadyTimeout)
	defer timer.Stop()
	select {
	case <-r.ready:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	case <-r.done:
		return false
	}
}

// RankHybrid semantically reranks the lexical top K of scored and
// appends the remainder in lexical order. Any failure returns scored
// unchanged.
func (r *Ranker) RankHybrid(ctx context.Context, scored []rank.Scored, goal string) []rank.Scored {
	if r == nil || len(scored) == 0 {
		return scored
	}
	if !r.WaitReady(ctx) {
		return scored
	}

	head := scored
	var tail []rank.Scored
	if len(scored) > HybridTopK {
		head = scored[:HybridTopK]
		tail = scored[HybridTopK:]
	}

	texts := make([]string, len(head))
	for i, s := range head {
		texts[i] = s.Target.Label + " " + s.Target.Text
	}
	scores, ok := r.rankScores(ctx, goal, texts)
	if !ok {
		return scored
	}

	// Cosine scores order the head; the lexical score rides along so the
	// goal filter keeps adding its bonuses on a single scale.
	reranked := make([]rank.Scored, len(head))
	for i, s := range head {
		reranked[i] = rank.Scored{Target: s.Target, Score: scores[i], Lexical: s.Lexical}
	}
	sort.SliceStable(reranked, func(a, b int) bool {
		return reranked[a].Score > reranked[b].Score
	})
	return append(reranked, tail...)
}
