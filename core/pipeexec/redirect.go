package pipeexec

import (
	"fmt"
	"os"

	"github.com/gosh-shell/gosh/core/shell"
)

// openRedirections opens a segment's redirection targets and substitutes
// them into the standard-stream slots. `>` truncates-or-creates, `>>`
// creates-or-appends, `<` opens read-only and fails on a missing target
// or a directory. Opened files are returned even on failure so the
// caller can close them.
func openRedirections(seg *shell.Segment, stdin, stdout, stderr **os.File) ([]*os.File, error) {
	var opened []*os.File

	for _, r := range seg.Redirs {
		var f *os.File
		var err error

		switch r.Mode {
		case shell.RedirInput:
			f, err = openInput(r.Target)
		case shell.RedirTruncate:
			f, err = os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		case shell.RedirAppend:
			f, err = os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		default:
			err = fmt.Errorf("unsupported redirection mode %v", r.Mode)
		}
		if err != nil {
			return opened, err
		}
		opened = append(opened, f)

		switch r.FD {
		case 0:
			*stdin = f
		case 1:
			*stdout = f
		case 2:
			*stderr = f
		default:
			return opened, fmt.Errorf("bad file descriptor %d", r.FD)
		}
	}

	return opened, nil
}

func openInput(target string) (*os.File, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", target)
	}
	return os.Open(target)
}
