// Package window keeps the rolling chat history under the model context size.
package window

import (
	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

// AppendResult reports what fitting the new user message cost.
type AppendResult struct {
	Evicted   int
	Truncated bool
	// Tokens is the window total after fitting.
	Tokens int
}

// Manager owns one session's conversation. It is not safe for concurrent use.
type Manager struct {
	counter        ports.TokenCounter
	logger         ports.Logger
	contextSize    int
	truncateBudget int

	messages []domain.Message

	pending       bool
	pendingPrompt string
	snapshot      []domain.Message
}

// New starts a window holding only the system instructions (if any).
// truncateBudget is the token limit a lone oversized message is cut down to.
func New(counter ports.TokenCounter, systemInstructions string, contextSize, truncateBudget int, logger ports.Logger) *Manager {
	m := &Manager{
		counter:        counter,
		logger:         logger,
		contextSize:    contextSize,
		truncateBudget: truncateBudget,
	}
	if systemInstructions != "" {
		m.messages = append(m.messages, domain.Message{
			Role:    domain.RoleSystem,
			Content: systemInstructions,
			Tokens:  counter.CountTokens(systemInstructions, domain.RoleSystem),
		})
	}
	return m
}

// Messages returns a copy of the current window.
func (m *Manager) Messages() []domain.Message {
	return append([]domain.Message(nil), m.messages...)
}

// Total is the token sum of the window.
func (m *Manager) Total() int {
	return total(m.messages)
}

// Append adds the user turn (context followed by prompt) and fits the window.
// The change is provisional until Commit or Rollback.
func (m *Manager) Append(prompt, context string) AppendResult {
	if m.pending {
		m.Rollback()
	}
	m.snapshot = m.Messages()
	m.pending = true
	m.pendingPrompt = prompt

	content := context + prompt
	m.messages = append(m.messages, domain.Message{
		Role:    domain.RoleUser,
		Content: content,
		Tokens:  m.counter.CountTokens(content, domain.RoleUser),
	})

	var res AppendResult
	m.messages, res = m.fit(m.messages)
	return res
}

// Fork returns the current window plus a user message without changing the
// window. It serves one-off completions whose exchange is not kept.
func (m *Manager) Fork(content string) []domain.Message {
	msgs := append(m.Messages(), domain.Message{
		Role:    domain.RoleUser,
		Content: content,
		Tokens:  m.counter.CountTokens(content, domain.RoleUser),
	})
	msgs, _ = m.fit(msgs)
	return msgs
}

// Commit accepts the pending turn. The user message keeps only the bare
// prompt and the assistant reply is appended.
func (m *Manager) Commit(reply string) {
	if !m.pending {
		return
	}
	if last := len(m.messages) - 1; last >= 0 && m.messages[last].Role == domain.RoleUser {
		m.messages[last].Content = m.pendingPrompt
		m.messages[last].Tokens = m.counter.CountTokens(m.pendingPrompt, domain.RoleUser)
	}
	m.messages = append(m.messages, domain.Message{
		Role:    domain.RoleAssistant,
		Content: reply,
		Tokens:  m.counter.CountTokens(reply, domain.RoleAssistant),
	})
	m.clearPending()
}

// Rollback restores the window as it was before the pending Append.
func (m *Manager) Rollback() {
	if !m.pending {
		return
	}
	m.messages = m.snapshot
	m.clearPending()
}

func (m *Manager) clearPending() {
	m.pending = false
	m.pendingPrompt = ""
	m.snapshot = nil
}

// fit evicts from the front, keeping a leading system message, until the
// window fits. A lone remaining message that is still too large is truncated.
func (m *Manager) fit(msgs []domain.Message) ([]domain.Message, AppendResult) {
	var res AppendResult

	first := 0
	if len(msgs) > 0 && msgs[0].Role == domain.RoleSystem {
		first = 1
	}

	for total(msgs) > m.contextSize && len(msgs)-first > 1 {
		msgs = append(msgs[:first], msgs[first+1:]...)
		res.Evicted++
	}
	for len(msgs)-first > 1 && msgs[first].Role == domain.RoleAssistant {
		msgs = append(msgs[:first], msgs[first+1:]...)
		res.Evicted++
	}

	if total(msgs) > m.contextSize && len(msgs) > first {
		last := len(msgs) - 1
		limit := m.truncateBudget
		if first == 1 {
			if room := m.contextSize - msgs[0].Tokens; room < limit {
				limit = room
			}
		}
		if limit < 0 {
			limit = 0
		}
		before := msgs[last].Tokens
		msgs[last].Content = m.truncate(msgs[last].Content, msgs[last].Role, limit)
		msgs[last].Tokens = m.counter.CountTokens(msgs[last].Content, msgs[last].Role)
		res.Truncated = true
		if m.logger != nil {
			m.logger.Warn("message exceeds context window, truncated", map[string]interface{}{
				"tokens_before": before,
				"tokens_after":  msgs[last].Tokens,
				"context_size":  m.contextSize,
			})
		}
	}

	res.Tokens = total(msgs)
	return msgs, res
}

// truncate returns the longest rune prefix of text that counts at most limit
// tokens.
func (m *Manager) truncate(text string, role domain.Role, limit int) string {
	runes := []rune(text)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if m.counter.CountTokens(string(runes[:mid]), role) <= limit {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}

func total(msgs []domain.Message) int {
	sum := 0
	for _, msg := range msgs {
		sum += msg.Tokens
	}
	return sum
}
