package packer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/doeshing/dirctx/internal/domain"
)

func cand(id string, tokens int, distance float64) domain.Candidate {
	return domain.Candidate{Artifact: domain.Artifact{Text: id, Tokens: tokens}, Distance: distance}
}

func TestPackScenarioBudgetFitsTwo(t *testing.T) {
	ranking := []domain.Candidate{cand("A", 10, 0.1), cand("B", 10, 0.3), cand("C", 10, 0.9)}

	res := Pack([]string{"A", "B", "C"}, ranking, 2*(10+SeparatorTokens))

	assert.Equal(t, []string{"A", "B"}, res.IDs)
	assert.Equal(t, "A\n\nB\n\n", res.Text)
	assert.Equal(t, 22, res.Tokens)
	assert.Zero(t, res.Backfilled)
}

func TestPackStopsAtFirstOverflow(t *testing.T) {
	ranking := []domain.Candidate{cand("big", 50, 0.1), cand("small", 1, 0.2), cand("tiny", 1, 0.3)}

	res := Pack([]string{"small", "big", "tiny"}, ranking, 20)

	assert.Equal(t, []string{"small"}, res.IDs)
	assert.Zero(t, res.Backfilled, "backfill only runs when the ordering is exhausted")
}

func TestPackBackfillsFromRanking(t *testing.T) {
	ranking := []domain.Candidate{cand("a", 5, 0.1), cand("b", 5, 0.2), cand("c", 5, 0.3), cand("d", 50, 0.4)}

	res := Pack([]string{"b"}, ranking, 18)

	assert.Equal(t, []string{"b", "a", "c"}, res.IDs)
	assert.Equal(t, 2, res.Backfilled)
}

func TestPackSkipsUnknownAndRepeatedIDs(t *testing.T) {
	ranking := []domain.Candidate{cand("a", 1, 0.1)}

	res := Pack([]string{"ghost", "a", "a"}, ranking, 100)

	assert.Equal(t, []string{"a"}, res.IDs)
}

func TestPackEmpty(t *testing.T) {
	res := Pack(nil, nil, 100)
	assert.Empty(t, res.IDs)
	assert.Empty(t, res.Text)

	res = Pack([]string{"a"}, []domain.Candidate{cand("a", 1, 0)}, 0)
	assert.Empty(t, res.IDs)
}

func TestPackNeverExceedsBudget(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		ranking := make([]domain.Candidate, 0, n)
		order := make([]string, 0, n)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("art-%d", i)
			ranking = append(ranking, cand(id, rapid.IntRange(0, 200).Draw(rt, "tokens"), float64(i)))
			if rapid.Bool().Draw(rt, "ordered") {
				order = append(order, id)
			}
		}
		budget := rapid.IntRange(0, 2000).Draw(rt, "budget")

		res := Pack(order, ranking, budget)

		total := 0
		seen := map[string]bool{}
		byID := map[string]int{}
		for _, c := range ranking {
			byID[c.Artifact.ID()] = c.Artifact.Tokens
		}
		for _, id := range res.IDs {
			require.False(rt, seen[id], "duplicate id %s", id)
			seen[id] = true
			total += byID[id] + SeparatorTokens
		}
		assert.LessOrEqual(rt, total, budget)
		assert.Equal(rt, total, res.Tokens)
	})
}
