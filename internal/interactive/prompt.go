// Package interactive provides interactive prompts for user confirmation.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Response represents the user's response to a prompt.
type Response int

const (
	ResponseYes  Response = iota // Proceed with this item
	ResponseNo                   // Skip this item
	ResponseAll                  // Approve all remaining items
	ResponseQuit                 // Abort
)

// Prompter handles interactive prompts for destructive asset operations.
type Prompter struct {
	in         io.Reader
	out        io.Writer
	scanner    *bufio.Scanner
	approveAll bool
}

// NewPrompter creates a prompter with stdin/stdout.
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stdout)
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:      in,
		out:     out,
		scanner: bufio.NewScanner(in),
	}
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsFileTerminal checks if f is a terminal, e.g. before drawing progress bars.
func IsFileTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// prompt displays a question and reads the response.
func (p *Prompter) prompt(format string, args ...interface{}) Response {
	if p.approveAll {
		return ResponseYes
	}

	_, _ = fmt.Fprintf(p.out, format, args...)
	_, _ = fmt.Fprint(p.out, " [y/n/a/q] ")

	if !p.scanner.Scan() {
		return ResponseQuit
	}

	input := strings.ToLower(strings.TrimSpace(p.scanner.Text()))
	switch input {
	case "y", "yes":
		return ResponseYes
	case "n", "no":
		return ResponseNo
	case "a", "all":
		p.approveAll = true
		return ResponseYes
	case "q", "quit":
		return ResponseQuit
	default:
		// Default to no for invalid input
		_, _ = fmt.Fprintln(p.out, "Invalid response, skipping.")
		return ResponseNo
	}
}

// Confirm asks a single yes/no question.
func (p *Prompter) Confirm(question string) bool {
	_, _ = fmt.Fprintf(p.out, "%s [y/n] ", question)
	if !p.scanner.Scan() {
		return false
	}
	input := strings.ToLower(strings.TrimSpace(p.scanner.Text()))
	return input == "y" || input == "yes"
}

// SelectRemovals asks about each asset in turn and returns the approved
// names, or false if the user quit.
func (p *Prompter) SelectRemovals(names []string, builtin func(string) bool) ([]string, bool) {
	var approved []string

	for _, name := range names {
		what := "asset"
		if builtin(name) {
			what = "version record of built-in"
		}

		switch p.prompt("  -> Remove %s %s?", what, name) {
		case ResponseYes:
			approved = append(approved, name)
		case ResponseNo:
			_, _ = fmt.Fprintf(p.out, "    %s Skipped\n", skipSymbol)
		case ResponseQuit:
			_, _ = fmt.Fprintln(p.out, "\nAborted.")
			return nil, false
		}
	}

	if len(approved) == 0 {
		_, _ = fmt.Fprintln(p.out, "Nothing selected.")
	}
	return approved, true
}

const skipSymbol = "-"
