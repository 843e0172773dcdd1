// Package optimizer orders retrieval candidates so that a sequence already warm
// in the provider's prompt cache leads the context.
//
// Ordering has two stages. First the longest non-expired cached prefix whose
// artifacts are all among the candidates is placed first, in cached order; ties
// in length go to the prefix that led the most historical prompts. Everything
// else is sorted by historical score descending, then semantic distance
// ascending, then input order.
package optimizer

import (
	"math"
	"sort"
	"time"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

// Input is everything the optimizer reads for one turn.
type Input struct {
	// Candidates are ordered closest first.
	Candidates []domain.Candidate
	History    []domain.PromptHistoryEntry
	Metadata   map[string]domain.ArtifactMetadata
	Prefixes   []domain.PrefixCacheEntry
}

// Result is the optimized ordering.
type Result struct {
	Order         []string
	MatchedPrefix domain.PrefixKey
	// Core holds the ids outside the excludable tail of the candidate pool.
	// They are the artifacts a prefix match should not push out of the budget.
	Core []string
}

// Optimizer implements the scorer and prefix matcher.
type Optimizer struct {
	weights          domain.OptimizerWeights
	excludableFactor float64
	logger           ports.Logger
	now              func() time.Time
}

// New builds an Optimizer. excludableFactor is the fraction of the most distant
// candidates considered replaceable.
func New(weights domain.OptimizerWeights, excludableFactor float64, logger ports.Logger) *Optimizer {
	return &Optimizer{
		weights:          weights,
		excludableFactor: excludableFactor,
		logger:           logger,
		now:              time.Now,
	}
}

// WithClock replaces the time source.
func (o *Optimizer) WithClock(now func() time.Time) *Optimizer {
	o.now = now
	return o
}

// Optimize returns the candidate ids in context order and the matched prefix.
func (o *Optimizer) Optimize(in Input) Result {
	candidates := dedupe(in.Candidates)
	if len(candidates) == 0 {
		return Result{}
	}

	present := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		present[c.Artifact.ID()] = struct{}{}
	}

	now := o.now()
	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		meta, ok := in.Metadata[c.Artifact.ID()]
		scores[c.Artifact.ID()] = Score(o.weights, meta, ok, now)
	}

	best := o.bestPrefix(in.Prefixes, in.History, present)
	result := Result{
		MatchedPrefix: best,
		Core:          o.core(candidates),
	}

	prefixIDs := best.Artifacts()
	inPrefix := make(map[string]struct{}, len(prefixIDs))
	for _, id := range prefixIDs {
		inPrefix[id] = struct{}{}
	}

	rest := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := inPrefix[c.Artifact.ID()]; !ok {
			rest = append(rest, c)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		si, sj := scores[rest[i].Artifact.ID()], scores[rest[j].Artifact.ID()]
		if si != sj {
			return si > sj
		}
		return rest[i].Distance < rest[j].Distance
	})

	result.Order = make([]string, 0, len(candidates))
	result.Order = append(result.Order, prefixIDs...)
	for _, c := range rest {
		result.Order = append(result.Order, c.Artifact.ID())
	}

	if o.logger != nil {
		o.logger.Debug("optimizer ordering", map[string]interface{}{
			"candidates":      len(candidates),
			"cached_prefixes": len(in.Prefixes),
			"matched_length":  best.Len(),
		})
	}
	return result
}

// bestPrefix finds the longest fully contained prefix. Equal lengths are
// decided by historical leading-sequence hits, then by key order.
func (o *Optimizer) bestPrefix(prefixes []domain.PrefixCacheEntry, history []domain.PromptHistoryEntry, present map[string]struct{}) domain.PrefixKey {
	var contained []domain.PrefixKey
	maxLen := 0
	for _, entry := range prefixes {
		if entry.Key.IsEmpty() || !containsAll(present, entry.Key.Artifacts()) {
			continue
		}
		contained = append(contained, entry.Key)
		if l := entry.Key.Len(); l > maxLen {
			maxLen = l
		}
	}
	if len(contained) == 0 {
		return ""
	}

	var longest []domain.PrefixKey
	for _, key := range contained {
		if key.Len() == maxLen {
			longest = append(longest, key)
		}
	}
	if len(longest) == 1 {
		return longest[0]
	}

	best := domain.PrefixKey("")
	bestHits := -1
	for _, key := range longest {
		hits := historicalHits(history, key.Artifacts())
		if hits > bestHits || (hits == bestHits && key < best) {
			best, bestHits = key, hits
		}
	}
	return best
}

func (o *Optimizer) core(candidates []domain.Candidate) []string {
	keep := len(candidates) - int(math.Floor(float64(len(candidates))*o.excludableFactor))
	if keep < 0 {
		keep = 0
	}
	ids := make([]string, 0, keep)
	for _, c := range candidates[:keep] {
		ids = append(ids, c.Artifact.ID())
	}
	return ids
}

func historicalHits(history []domain.PromptHistoryEntry, ids []string) int {
	count := 0
	for _, entry := range history {
		if entry.HasLeadingSequence(ids) {
			count++
		}
	}
	return count
}

func containsAll(set map[string]struct{}, ids []string) bool {
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// dedupe keeps the first (closest) occurrence of each artifact id.
func dedupe(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		id := c.Artifact.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, c)
	}
	return out
}
