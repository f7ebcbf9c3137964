package pipeexec

import "golang.org/x/sys/unix"

// Exit codes follow the POSIX shell convention.
const (
	ExitSuccess = 0
	// ExitFailure is the generic shell-level error: empty pipeline,
	// unopenable redirection, spawn failure other than not-found.
	ExitFailure = 1
	// ExitNotFound is returned when the program cannot be located.
	ExitNotFound = 127
	// SignalBase + n is the status of a process terminated by signal n.
	SignalBase = 128
)

// StatusFromWait converts a wait status into the shell's numeric exit
// code: the process's own status when it exited, 128+n when signaled or
// stopped by signal n.
func StatusFromWait(ws unix.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return SignalBase + int(ws.Signal())
	case ws.Stopped():
		return SignalBase + int(ws.StopSignal())
	default:
		return ExitFailure
	}
}
