package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrSyntax is the base error for lines this core cannot execute: empty
// pipelines, compound commands, unsupported redirection operators.
var ErrSyntax = errors.New("syntax error")

// Parse turns one fully-expanded command line into a Pipeline. The line
// must contain exactly one (possibly backgrounded) pipeline; compound
// commands, heredocs and unresolved expansions are rejected.
func Parse(line string) (*Pipeline, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	file, err := parser.Parse(strings.NewReader(line), "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	stmts := file.Stmts
	if len(stmts) == 0 {
		return nil, fmt.Errorf("%w: empty pipeline", ErrSyntax)
	}
	if len(stmts) > 1 {
		return nil, fmt.Errorf("%w: expected a single pipeline", ErrSyntax)
	}

	stmt := stmts[0]
	p := &Pipeline{
		Background: stmt.Background,
		Raw:        strings.TrimSpace(line),
	}
	if err := flattenPipeline(p, stmt); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// flattenPipeline walks `a | b | c`, which the AST nests to the right,
// appending one Segment per stage in pipeline order.
func flattenPipeline(p *Pipeline, stmt *syntax.Stmt) error {
	switch cmd := stmt.Cmd.(type) {
	case *syntax.CallExpr:
		return appendSegment(p, stmt, cmd)
	case *syntax.BinaryCmd:
		if cmd.Op != syntax.Pipe {
			return fmt.Errorf("%w: unsupported operator %q", ErrSyntax, cmd.Op.String())
		}
		if err := flattenPipeline(p, cmd.X); err != nil {
			return err
		}
		return flattenPipeline(p, cmd.Y)
	case nil:
		return fmt.Errorf("%w: empty command", ErrSyntax)
	default:
		return fmt.Errorf("%w: compound commands are not supported", ErrSyntax)
	}
}

func appendSegment(p *Pipeline, stmt *syntax.Stmt, call *syntax.CallExpr) error {
	if len(call.Assigns) > 0 {
		return fmt.Errorf("%w: assignments should be resolved before execution", ErrSyntax)
	}

	seg := Segment{Index: len(p.Segments)}
	for i, word := range call.Args {
		text, err := evalWord(word)
		if err != nil {
			return err
		}
		if i == 0 {
			seg.Name = text
		} else {
			seg.Args = append(seg.Args, text)
		}
	}
	if seg.Name == "" {
		return fmt.Errorf("%w: empty command in segment %d", ErrSyntax, seg.Index)
	}

	for _, redir := range stmt.Redirs {
		r, err := evalRedirect(redir)
		if err != nil {
			return err
		}
		seg.Redirs = append(seg.Redirs, r)
	}

	p.Segments = append(p.Segments, seg)
	return nil
}

func evalRedirect(redir *syntax.Redirect) (Redirection, error) {
	var r Redirection
	switch redir.Op {
	case syntax.RdrOut:
		r.Mode = RedirTruncate
		r.FD = 1
	case syntax.AppOut:
		r.Mode = RedirAppend
		r.FD = 1
	case syntax.RdrIn:
		r.Mode = RedirInput
		r.FD = 0
	default:
		return r, fmt.Errorf("%w: unsupported redirection %q", ErrSyntax, redir.Op.String())
	}

	if redir.N != nil {
		fd, err := strconv.Atoi(redir.N.Value)
		if err != nil || fd < 0 || fd > 2 {
			return r, fmt.Errorf("%w: bad file descriptor %q", ErrSyntax, redir.N.Value)
		}
		if r.Mode == RedirInput && fd != 0 {
			return r, fmt.Errorf("%w: input redirection on fd %d", ErrSyntax, fd)
		}
		if r.Mode != RedirInput && fd == 0 {
			return r, fmt.Errorf("%w: output redirection on fd 0", ErrSyntax)
		}
		r.FD = fd
	}

	target, err := evalWord(redir.Word)
	if err != nil {
		return r, err
	}
	if target == "" {
		return r, fmt.Errorf("%w: missing redirection target", ErrSyntax)
	}
	r.Target = target
	return r, nil
}

// evalWord concatenates the literal and quoted parts of a word. Anything
// that still needs expansion at this point is an upstream bug, so it is
// rejected rather than passed through verbatim.
func evalWord(word *syntax.Word) (string, error) {
	if word == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, part := range word.Parts {
		if err := evalWordPart(&sb, part); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func evalWordPart(sb *strings.Builder, part syntax.WordPart) error {
	switch part := part.(type) {
	case *syntax.Lit:
		sb.WriteString(part.Value)
		return nil
	case *syntax.SglQuoted:
		sb.WriteString(part.Value)
		return nil
	case *syntax.DblQuoted:
		for _, sub := range part.Parts {
			if err := evalWordPart(sb, sub); err != nil {
				return err
			}
		}
		return nil
	case *syntax.CmdSubst:
		return fmt.Errorf("%w: unexpanded command substitution", ErrSyntax)
	case *syntax.ParamExp:
		return fmt.Errorf("%w: unexpanded parameter $%s", ErrSyntax, paramName(part))
	default:
		return fmt.Errorf("%w: unsupported word at column %d", ErrSyntax, part.Pos().Col())
	}
}

func paramName(part *syntax.ParamExp) string {
	if part.Param != nil {
		return part.Param.Value
	}
	return "?"
}
