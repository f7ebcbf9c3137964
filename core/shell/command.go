// Package shell holds the parsed command model: pipelines of command
// segments with their redirections, produced from a single expanded
// command line and consumed by the pipeline executor.
package shell

import (
	"fmt"
	"strings"
)

// RedirMode describes what a redirection does with its target file.
type RedirMode int

const (
	// RedirTruncate is `>`: create the target or truncate it.
	RedirTruncate RedirMode = iota
	// RedirAppend is `>>`: create the target or append to it.
	RedirAppend
	// RedirInput is `<`: open the target read-only; it must exist.
	RedirInput
)

func (m RedirMode) String() string {
	switch m {
	case RedirTruncate:
		return ">"
	case RedirAppend:
		return ">>"
	case RedirInput:
		return "<"
	default:
		return fmt.Sprintf("RedirMode(%d)", int(m))
	}
}

// Redirection attaches one of a segment's file descriptors to a file.
type Redirection struct {
	// FD is the file descriptor being redirected: 0, 1 or 2.
	FD int
	// Mode selects truncate, append or input semantics.
	Mode RedirMode
	// Target is the path of the file, already fully expanded.
	Target string
}

// Segment is one program invocation within a pipeline.
type Segment struct {
	// Name is the program to run. Never empty in a valid pipeline.
	Name string
	// Args are the program arguments, not including Name.
	Args []string
	// Index is the segment's 0-based position within its pipeline.
	Index int
	// Redirs are the segment's redirections in source order.
	Redirs []Redirection
}

// Argv returns the full argument vector including the program name.
func (s *Segment) Argv() []string {
	return append([]string{s.Name}, s.Args...)
}

// Pipeline is an ordered, non-empty chain of segments plus pipeline-level
// flags. Raw keeps the original line for job listings and diagnostics.
type Pipeline struct {
	Segments   []Segment
	Background bool
	Raw        string
}

// String returns the pipeline in a canonical `a | b | c` form.
func (p *Pipeline) String() string {
	var parts []string
	for i := range p.Segments {
		seg := &p.Segments[i]
		words := seg.Argv()
		for _, r := range seg.Redirs {
			switch {
			case r.FD == 2:
				words = append(words, "2"+r.Mode.String()+" "+r.Target)
			default:
				words = append(words, r.Mode.String()+" "+r.Target)
			}
		}
		parts = append(parts, strings.Join(words, " "))
	}
	out := strings.Join(parts, " | ")
	if p.Background {
		out += " &"
	}
	return out
}

// Validate checks the model invariants the executor relies on: at least
// one segment, no empty program names, contiguous indexes.
func (p *Pipeline) Validate() error {
	if len(p.Segments) == 0 {
		return fmt.Errorf("%w: empty pipeline", ErrSyntax)
	}
	for i := range p.Segments {
		seg := &p.Segments[i]
		if seg.Name == "" {
			return fmt.Errorf("%w: empty command in segment %d", ErrSyntax, i)
		}
		if seg.Index != i {
			return fmt.Errorf("%w: segment index %d out of order", ErrSyntax, seg.Index)
		}
	}
	return nil
}
