package indexer

import (
	"fmt"
	"strings"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

// Chunker splits file contents into chunks that fit the embedding model.
// Every chunk starts with a header naming the file and its line range.
type Chunker struct {
	counter ports.TokenCounter
	size    int
}

// NewChunker limits chunks to size tokens as counted by counter.
func NewChunker(counter ports.TokenCounter, size int) *Chunker {
	return &Chunker{counter: counter, size: size}
}

func chunkHeader(path string, first, last int) string {
	return fmt.Sprintf("---------------\n\nUser file '%s' lines %d-%d:\n\n", path, first, last)
}

// Chunk accumulates whole lines while the chunk fits. A single line too
// large for an empty chunk is split at the longest prefix that fits.
func (c *Chunker) Chunk(path, contents string) []string {
	if contents == "" {
		return nil
	}
	lines := strings.Split(contents, "\n")

	var (
		chunks  []string
		current strings.Builder
		start   = 1
	)
	for number, line := range lines {
		number++
		rest := line
		for {
			header := chunkHeader(path, start, number)
			proposed := current.String() + rest + "\n"
			if c.tokens(header+proposed) <= c.size {
				current.Reset()
				current.WriteString(proposed)
				break
			}
			if current.Len() == 0 {
				split := c.splitPoint(header, rest)
				current.WriteString(string([]rune(rest)[:split]) + "\n")
				rest = string([]rune(rest)[split:])
				if rest == "" {
					break
				}
				chunks = append(chunks, header+current.String())
				current.Reset()
				start = number
				continue
			}
			chunks = append(chunks, chunkHeader(path, start, number-1)+current.String())
			current.Reset()
			start = number
			if rest == "" {
				break
			}
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, chunkHeader(path, start, len(lines))+current.String())
	}
	return chunks
}

// splitPoint is the longest rune prefix of line that fits with header,
// never less than one rune so the chunker always advances.
func (c *Chunker) splitPoint(header, line string) int {
	runes := []rune(line)
	lo, hi := 1, len(runes)
	if hi <= 1 {
		return hi
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.tokens(header+string(runes[:mid])+"\n") <= c.size {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func (c *Chunker) tokens(text string) int {
	return c.counter.CountTokens(text, domain.RoleUser)
}
