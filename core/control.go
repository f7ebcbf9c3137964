package core

// Control tells the interactive loop how to proceed after a line. It is
// carried in the Result instead of shell-global state so builtins like
// exit compose with whatever ran them.
type Control int

const (
	// ControlNormal continues with the next line.
	ControlNormal Control = iota
	// ControlBreak and ControlContinue escape enclosing loops. At the
	// top level they degrade to a warning.
	ControlBreak
	ControlContinue
	// ControlExit terminates the shell with Result.Status.
	ControlExit
)

// Result is the outcome of interpreting one input line.
type Result struct {
	Control Control
	// Status is the exit status of the line, or the shell's exit code
	// when Control is ControlExit.
	Status int
}
