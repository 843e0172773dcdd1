package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/doeshing/dirctx/internal/domain"
)

// streamWriter prints completion deltas as they arrive. The spinner, when
// set, is stopped before the first delta.
type streamWriter struct {
	out     io.Writer
	spinner *Spinner
	once    sync.Once
	wrote   bool
}

// NewStreamWriter builds a streamWriter for stdout.
func NewStreamWriter(out io.Writer, spinner *Spinner) domain.StreamWriter {
	return &streamWriter{out: out, spinner: spinner}
}

func (s *streamWriter) WriteChunk(text string) {
	if text == "" {
		return
	}
	s.stopSpinner()
	s.wrote = true
	fmt.Fprint(s.out, text)
}

func (s *streamWriter) Done() {
	s.stopSpinner()
	if s.wrote {
		fmt.Fprintln(s.out)
	}
}

func (s *streamWriter) stopSpinner() {
	s.once.Do(func() {
		if s.spinner != nil {
			s.spinner.Stop()
		}
	})
}
