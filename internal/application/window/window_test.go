package window

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/pkg/logger"
)

// runeCounter charges one token per rune.
type runeCounter struct{ calls int }

func (c *runeCounter) CountTokens(text string, _ domain.Role) int {
	c.calls++
	return utf8.RuneCountInString(text)
}

func roles(msgs []domain.Message) []domain.Role {
	out := make([]domain.Role, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Role)
	}
	return out
}

func TestAppendKeepsSystemAndEvictsOldest(t *testing.T) {
	w := New(&runeCounter{}, "sys", 30, 15, logger.NewNop())

	w.Append("hello", "")
	w.Commit("0123456789")
	w.Append("again", "")
	w.Commit("abcdefghij")

	res := w.Append("third", "")

	msgs := w.Messages()
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.LessOrEqual(t, w.Total(), 30)
	assert.Equal(t, "third", msgs[len(msgs)-1].Content)
	assert.Positive(t, res.Evicted)
	assert.NotEqual(t, domain.RoleAssistant, msgs[1].Role, "no assistant message right after system")
}

func TestAppendDropsLeadingAssistantMessages(t *testing.T) {
	w := New(&runeCounter{}, "", 20, 10, logger.NewNop())
	w.Append("aaaa", "")
	w.Commit("bbbb")

	// 4 + 4 + 14 = 22 > 20: evicting the user leaves the assistant reply leading.
	w.Append("cccccccccccccc", "")

	assert.Equal(t, []domain.Role{domain.RoleUser}, roles(w.Messages()))
	assert.Equal(t, 14, w.Total())
}

func TestAppendTruncatesSingleOversizedMessage(t *testing.T) {
	counter := &runeCounter{}
	w := New(counter, "sys", 100, 50, logger.NewNop())

	res := w.Append(strings.Repeat("x", 500), "")

	msgs := w.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, res.Truncated)
	assert.Equal(t, 50, msgs[1].Tokens)
	assert.Equal(t, strings.Repeat("x", 50), msgs[1].Content)
	// binary search: far fewer counts than runes
	assert.Less(t, counter.calls, 30)
}

func TestTruncationRespectsMultibyteRunes(t *testing.T) {
	w := New(&runeCounter{}, "", 10, 4, logger.NewNop())

	w.Append(strings.Repeat("é", 20), "")

	msgs := w.Messages()
	assert.Equal(t, strings.Repeat("é", 4), msgs[0].Content)
	assert.True(t, utf8.ValidString(msgs[0].Content))
}

func TestCommitCompactsUserMessage(t *testing.T) {
	w := New(&runeCounter{}, "sys", 1000, 500, logger.NewNop())

	w.Append("question", "CONTEXT\n\n")
	assert.Equal(t, "CONTEXT\n\nquestion", w.Messages()[1].Content)

	w.Commit("answer")

	msgs := w.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "question", msgs[1].Content)
	assert.Equal(t, 8, msgs[1].Tokens)
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: "answer", Tokens: 6}, msgs[2])
}

func TestRollbackRestoresWindow(t *testing.T) {
	w := New(&runeCounter{}, "sys", 20, 10, logger.NewNop())
	w.Append("abc", "")
	w.Commit("def")
	before := w.Messages()

	w.Append(strings.Repeat("z", 40), "")
	require.NotEqual(t, before, w.Messages())
	w.Rollback()

	assert.Equal(t, before, w.Messages())
}

func TestForkDoesNotMutateWindow(t *testing.T) {
	w := New(&runeCounter{}, "sys", 100, 50, logger.NewNop())
	before := w.Messages()

	msgs := w.Fork("guidance please")

	assert.Len(t, msgs, 2)
	assert.Equal(t, before, w.Messages())
}
