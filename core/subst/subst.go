// Package subst performs command substitution, in both the $(...) and
// backquote forms, on an input line before the line is parsed for
// execution. Substitutions are expanded innermost first; any failure
// aborts the whole expansion so a broken substitution never produces a
// half-expanded command.
package subst

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
	"unicode/utf8"

	shlex "github.com/anmitsu/go-shlex"
	"mvdan.cc/sh/v3/syntax"
)

// DefaultMaxOutput caps captured substitution output at 10 MiB.
const DefaultMaxOutput = 10 << 20

var (
	// ErrSyntax is the base error for input the substitution layer
	// cannot parse at all.
	ErrSyntax = errors.New("syntax error")
	// ErrOutputTooLarge is returned when a substitution produces more
	// output than the configured ceiling.
	ErrOutputTooLarge = errors.New("command substitution output too large")
	// ErrOutputNotUTF8 is returned when the captured output is not valid
	// UTF-8 and therefore cannot be spliced into the command line.
	ErrOutputNotUTF8 = errors.New("command substitution output is not valid UTF-8")
)

// Expander runs embedded commands and splices their output into the line.
type Expander struct {
	// Stderr receives the embedded commands' diagnostic output unchanged.
	Stderr io.Writer
	// Env is the environment for embedded commands; nil means inherit.
	Env []string
	// MaxOutput overrides DefaultMaxOutput when positive.
	MaxOutput int
}

func (e *Expander) maxOutput() int {
	if e.MaxOutput > 0 {
		return e.MaxOutput
	}
	return DefaultMaxOutput
}

// span is one outermost $(...) occurrence in the input.
type span struct {
	start, end int // byte offsets of `$(` and the matching `)`
	inner      string
}

// Expand replaces every command substitution in line with the output of
// its embedded command. Nested substitutions are resolved innermost
// first by recursion. Lines without substitutions come back unchanged.
func (e *Expander) Expand(line string) (string, error) {
	spans, err := findSpans(line)
	if err != nil {
		return "", err
	}
	if len(spans) == 0 {
		return line, nil
	}

	var out strings.Builder
	prev := 0
	for _, sp := range spans {
		inner, err := e.Expand(sp.inner)
		if err != nil {
			return "", err
		}
		captured, err := e.run(inner)
		if err != nil {
			return "", err
		}
		out.WriteString(line[prev:sp.start])
		out.WriteString(captured)
		prev = sp.end + 1
	}
	out.WriteString(line[prev:])
	return out.String(), nil
}

// findSpans locates the outermost CmdSubst nodes in the line, in both
// the `$(...)` and backquote forms. Quoting is honored: a '$(' inside
// single quotes is literal text, not a span.
func findSpans(line string) ([]span, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	file, err := parser.Parse(strings.NewReader(line), "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	var spans []span
	syntax.Walk(file, func(node syntax.Node) bool {
		cs, ok := node.(*syntax.CmdSubst)
		if !ok {
			return true
		}
		start := int(cs.Pos().Offset())
		end := int(cs.End().Offset()) - 1
		open := 2 // "$("
		if cs.Backquotes {
			open = 1
		}
		if start < 0 || end >= len(line) || start+open > end {
			return false
		}
		spans = append(spans, span{
			start: start,
			end:   end,
			inner: line[start+open : end],
		})
		return false // nested substitutions are handled by recursion
	})

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans, nil
}

// run executes one fully-expanded embedded command and returns its
// captured standard output with trailing newlines removed.
func (e *Expander) run(command string) (string, error) {
	fields, err := shlex.Split(command, true)
	if err != nil {
		return "", fmt.Errorf("split substitution %q: %w", command, err)
	}
	if len(fields) == 0 {
		return "", nil
	}

	path, err := exec.LookPath(fields[0])
	if errors.Is(err, exec.ErrNotFound) {
		return "", fmt.Errorf("%s: command not found", fields[0])
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", fields[0], err)
	}

	capture := &cappedBuffer{max: e.maxOutput()}
	cmd := &exec.Cmd{
		Path:   path,
		Args:   fields,
		Env:    e.Env,
		Stdout: capture,
		Stderr: e.Stderr,
	}
	if err := cmd.Run(); err != nil {
		if capture.overflowed {
			return "", fmt.Errorf("%s: %w", fields[0], ErrOutputTooLarge)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s: exit status %d", fields[0], exitErr.ExitCode())
		}
		return "", fmt.Errorf("%s: %w", fields[0], err)
	}

	out := capture.buf.Bytes()
	if !utf8.Valid(out) {
		return "", fmt.Errorf("%s: %w", fields[0], ErrOutputNotUTF8)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// cappedBuffer stops accepting data past max so a runaway producer is
// cut off instead of exhausting memory. The write error also terminates
// the stdout copier, which surfaces through cmd.Run.
type cappedBuffer struct {
	buf        bytes.Buffer
	max        int
	overflowed bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.buf.Len()+len(p) > b.max {
		b.overflowed = true
		return 0, ErrOutputTooLarge
	}
	return b.buf.Write(p)
}
