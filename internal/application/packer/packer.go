// Package packer turns an artifact ordering into context text under a token budget.
package packer

import (
	"strings"

	"github.com/doeshing/dirctx/internal/domain"
)

const (
	// Separator joins packed artifacts.
	Separator = "\n\n"
	// SeparatorTokens is the fixed cost charged per packed artifact.
	SeparatorTokens = 1
)

// Result is the packed context.
type Result struct {
	Text   string
	IDs    []string
	Tokens int
	// Backfilled counts artifacts taken from the relevance ranking after the
	// ordering ran out.
	Backfilled int
}

// Pack walks order and emits artifacts until the next one would exceed budget.
// When order is exhausted without overflow the remaining budget is filled from
// ranking (closest first), again stopping at the first overflow. Ids missing
// from ranking are skipped.
func Pack(order []string, ranking []domain.Candidate, budget int) Result {
	byID := make(map[string]domain.Artifact, len(ranking))
	for _, c := range ranking {
		if _, ok := byID[c.Artifact.ID()]; !ok {
			byID[c.Artifact.ID()] = c.Artifact
		}
	}

	var (
		res      Result
		included = make(map[string]struct{}, len(order))
		parts    []string
	)
	add := func(a domain.Artifact) bool {
		cost := a.Tokens + SeparatorTokens
		if res.Tokens+cost > budget {
			return false
		}
		res.Tokens += cost
		res.IDs = append(res.IDs, a.ID())
		parts = append(parts, a.Text)
		included[a.ID()] = struct{}{}
		return true
	}

	overflow := false
	for _, id := range order {
		a, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := included[id]; dup {
			continue
		}
		if !add(a) {
			overflow = true
			break
		}
	}

	if !overflow {
		for _, c := range ranking {
			if _, dup := included[c.Artifact.ID()]; dup {
				continue
			}
			if !add(c.Artifact) {
				break
			}
			res.Backfilled++
		}
	}

	res.Text = strings.Join(parts, Separator)
	if len(parts) > 0 {
		res.Text += Separator
	}
	return res
}
