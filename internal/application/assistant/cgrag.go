package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/doeshing/dirctx/internal/application/packer"
	"github.com/doeshing/dirctx/internal/application/retrieval"
)

const guidancePrompt = `What information related to the included files is important to answering the following user prompt?

User prompt: '%s'

Respond with only a list of information and concepts. Include everything needed to answer the prompt, both what the
included files contain and what they do not. The list will be embedded to search for the files that answer the prompt,
and more relevant files than the ones included may exist, so name the most important concepts and information. A long
list is better than a short one. If the prompt is about code, list specific class, function and variable names.
`

// guidance runs the first CGRAG pass: a one-off completion over the closest
// artifacts asking which information the prompt needs. Nothing is recorded.
func (ss *Session) guidance(ctx context.Context, prompt string) (string, error) {
	svc := ss.svc
	budget := svc.Config.FileBudget(svc.Model)

	candidates, err := svc.Retriever.Retrieve(ctx, prompt, svc.Config.MaxNeighbors(svc.Model), svc.Config.Context.CGRAGMaxDistance)
	if err != nil {
		return "", fmt.Errorf("retrieve for guidance: %w", err)
	}
	packed := packer.Pack(nil, retrieval.Pool(candidates, budget), budget)

	messages := ss.window.Fork(packed.Text + fmt.Sprintf(guidancePrompt, prompt))
	guidance, err := ss.complete(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("guidance: %w", err)
	}
	svc.Logger.Debug("cgrag guidance", map[string]interface{}{
		"session":   ss.id,
		"artifacts": len(packed.IDs),
		"chars":     len(guidance),
	})
	return guidance, nil
}

type nopMetrics struct{}

func (nopMetrics) ObserveTurn(string) {}
func (nopMetrics) ObservePrefix(bool) {}
func (nopMetrics) ObservePackedTokens(int) {}
func (nopMetrics) ObserveTruncation() {}
func (nopMetrics) ObserveIndexedFiles(int, time.Duration) {}
