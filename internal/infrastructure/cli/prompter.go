package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Prompter reads chat prompts line by line. The prompt marker is only shown
// when input comes from a terminal.
type Prompter struct {
	in          *bufio.Scanner
	out         io.Writer
	interactive bool
}

// NewPrompter constructs a prompter referencing stdio.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	interactive := false
	if in == nil {
		in = os.Stdin
		interactive = isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}
	if out == nil {
		out = os.Stdout
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Prompter{in: scanner, out: out, interactive: interactive}
}

// Interactive reports whether input comes from a terminal.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// Next returns the next non-empty prompt. It returns io.EOF when input ends.
func (p *Prompter) Next() (string, error) {
	for {
		if p.interactive {
			fmt.Fprint(p.out, "> ")
		}
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		if line := strings.TrimSpace(p.in.Text()); line != "" {
			return line, nil
		}
	}
}
