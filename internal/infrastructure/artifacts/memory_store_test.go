package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dirctx/internal/domain"
)

func chunk(path, text string) domain.Artifact {
	return domain.Artifact{Text: text, Filepath: path, Tokens: len(text)}
}

func TestReplaceFileRetractsOldArtifacts(t *testing.T) {
	s := NewMemoryStore()
	_, first := s.ReplaceFile("a.go", []domain.Artifact{chunk("a.go", "one"), chunk("a.go", "two")})
	require.Equal(t, []int{0, 1}, first)

	removed, added := s.ReplaceFile("a.go", []domain.Artifact{chunk("a.go", "three")})

	assert.Equal(t, []int{0, 1}, removed)
	assert.Equal(t, []int{2}, added)
	_, ok := s.ByRef(0)
	assert.False(t, ok)
	_, ok = s.ByID("one")
	assert.False(t, ok)
	got, ok := s.ByRef(2)
	require.True(t, ok)
	assert.Equal(t, "three", got.Text)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.Files())
}

func TestIdenticalTextAcrossFiles(t *testing.T) {
	s := NewMemoryStore()
	s.ReplaceFile("a.go", []domain.Artifact{chunk("a.go", "shared")})
	s.ReplaceFile("b.go", []domain.Artifact{chunk("b.go", "shared")})

	got, ok := s.ByID("shared")
	require.True(t, ok)
	assert.Equal(t, "a.go", got.Filepath)

	s.ReplaceFile("a.go", nil)
	got, ok = s.ByID("shared")
	require.True(t, ok)
	assert.Equal(t, "b.go", got.Filepath)
	assert.Equal(t, 1, s.Files())
}

func TestByRefOutOfRange(t *testing.T) {
	s := NewMemoryStore()
	_, ok := s.ByRef(-1)
	assert.False(t, ok)
	_, ok = s.ByRef(5)
	assert.False(t, ok)
}
