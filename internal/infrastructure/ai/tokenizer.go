package ai

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

const (
	defaultEncoding = "cl100k_base"
	// runesPerToken is the estimate used when no encoding is available.
	runesPerToken = 4
)

// TiktokenCounter counts tokens with a tiktoken encoding. The encoding is
// loaded on first use (it may be downloaded); if that fails the counter falls
// back to a rune-based estimate.
type TiktokenCounter struct {
	model    string
	encoding string
	logger   ports.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTiktokenCounter picks encoding, or the encoding of model when empty.
func NewTiktokenCounter(model, encoding string, logger ports.Logger) *TiktokenCounter {
	return &TiktokenCounter{model: model, encoding: encoding, logger: logger}
}

func (t *TiktokenCounter) init() {
	t.once.Do(func() {
		var (
			enc *tiktoken.Tiktoken
			err error
		)
		switch {
		case t.encoding != "":
			enc, err = tiktoken.GetEncoding(t.encoding)
		case t.model != "":
			enc, err = tiktoken.EncodingForModel(t.model)
			if err != nil {
				enc, err = tiktoken.GetEncoding(defaultEncoding)
			}
		default:
			enc, err = tiktoken.GetEncoding(defaultEncoding)
		}
		if err != nil {
			if t.logger != nil {
				t.logger.Warn("tiktoken unavailable, estimating token counts", map[string]interface{}{
					"model":    t.model,
					"encoding": t.encoding,
					"error":    err.Error(),
				})
			}
			return
		}
		t.enc = enc
	})
}

// CountTokens counts the tokens of text.
func (t *TiktokenCounter) CountTokens(text string, _ domain.Role) int {
	t.init()
	if t.enc == nil {
		return EstimateTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// EstimateTokens approximates a token count from the rune count.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + runesPerToken - 1) / runesPerToken
}

var _ ports.TokenCounter = (*TiktokenCounter)(nil)
