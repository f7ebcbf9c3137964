// Package term owns the controlling terminal: exactly one process group
// holds it at a time, and every hand-off to a job must be paired with a
// hand-back to the shell.
package term

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Controller transfers controlling-terminal ownership between the shell's
// process group and job process groups. A Controller built without a real
// terminal (stdin is a pipe, tests, CI) is a no-op so that execution and
// job bookkeeping still work without a tty.
type Controller struct {
	tty       *os.File
	shellPGID int
}

// NewController wraps the given tty, typically os.Stdin. If the file is
// not a terminal the controller is disabled.
func NewController(tty *os.File) *Controller {
	c := &Controller{}
	if tty == nil || !term.IsTerminal(int(tty.Fd())) {
		return c
	}
	c.tty = tty
	c.shellPGID = unix.Getpgrp()
	return c
}

// Enabled reports whether a real terminal is attached.
func (c *Controller) Enabled() bool {
	return c.tty != nil
}

// SetForeground makes pgid the terminal's foreground process group.
func (c *Controller) SetForeground(pgid int) error {
	if c.tty == nil {
		return nil
	}
	if err := unix.IoctlSetPointerInt(int(c.tty.Fd()), unix.TIOCSPGRP, pgid); err != nil {
		return fmt.Errorf("hand terminal to pgid %d: %w", pgid, err)
	}
	return nil
}

// Reclaim returns the terminal to the shell's own process group. Callers
// must invoke this unconditionally after foreground waiting, including on
// error paths, so the shell never loses the terminal.
func (c *Controller) Reclaim() error {
	if c.tty == nil {
		return nil
	}
	if err := unix.IoctlSetPointerInt(int(c.tty.Fd()), unix.TIOCSPGRP, c.shellPGID); err != nil {
		return fmt.Errorf("reclaim terminal: %w", err)
	}
	return nil
}
