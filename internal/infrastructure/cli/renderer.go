package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/dirctx/internal/application/assistant"
)

// RenderGuidance prints the CGRAG guidance ahead of the answer.
func RenderGuidance(out io.Writer, guidance string) {
	fmt.Fprintln(out, "CGRAG guidance:")
	for _, line := range strings.Split(strings.TrimSpace(guidance), "\n") {
		fmt.Fprintf(out, "  %s\n", line)
	}
	fmt.Fprintln(out)
}

// RenderTurnSummary prints a one-line summary of the assembled context.
func RenderTurnSummary(out io.Writer, res assistant.TurnResult) {
	parts := []string{
		fmt.Sprintf("%d files", len(res.ArtifactIDs)),
		fmt.Sprintf("%s context tokens", humanize.Comma(int64(res.ContextTokens))),
	}
	if !res.MatchedPrefix.IsEmpty() {
		parts = append(parts, fmt.Sprintf("cached prefix of %d", res.MatchedPrefix.Len()))
	}
	if res.Displaced > 0 {
		parts = append(parts, fmt.Sprintf("%d displaced", res.Displaced))
	}
	if res.Backfilled > 0 {
		parts = append(parts, fmt.Sprintf("%d backfilled", res.Backfilled))
	}
	if res.Evicted > 0 {
		parts = append(parts, fmt.Sprintf("%d messages evicted", res.Evicted))
	}
	if res.Truncated {
		parts = append(parts, "prompt truncated")
	}
	fmt.Fprintf(out, "[%s]\n", strings.Join(parts, ", "))
}
