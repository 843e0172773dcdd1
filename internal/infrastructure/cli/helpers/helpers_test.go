package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/dirctx/internal/domain"
)

func TestCalculateTopArtifacts(t *testing.T) {
	meta := map[string]domain.ArtifactMetadata{
		"a": {Frequency: 1, Positions: []int{0}},
		"b": {Frequency: 3, Positions: []int{0, 1, 2}},
		"c": {Frequency: 3, Positions: []int{1, 1, 1}, LastModified: time.Now()},
	}

	top := CalculateTopArtifacts(meta, 2)

	assert.Equal(t, []ArtifactStatistic{
		{ID: "b", Count: 3, AveragePosition: 1},
		{ID: "c", Count: 3, AveragePosition: 1},
	}, top)
	assert.Len(t, CalculateTopArtifacts(meta, 0), 3)
}

func TestArtifactLabel(t *testing.T) {
	chunk := "---------------\n\nUser file '/src/main.go' lines 10-42:\n\nfunc main() {}\n"
	assert.Equal(t, "/src/main.go:10-42", ArtifactLabel(chunk))
	assert.Equal(t, "plain text", ArtifactLabel("plain\n  text"))
}

func TestPrefixLabels(t *testing.T) {
	key := domain.NewPrefixKey([]string{"x", "User file 'a.go' lines 1-2:"})
	assert.Equal(t, []string{"x", "a.go:1-2"}, PrefixLabels(key))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", Preview("abc", 5))
	assert.Equal(t, "ab...", Preview("abcdefgh", 5))
	assert.Equal(t, "ab", Preview("abcdefgh", 2))
	assert.Equal(t, "héllo wörld", Preview("héllo\twörld", 0))
}
