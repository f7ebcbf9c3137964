// Package pipeexec spawns pipelines: one OS process per command segment,
// adjacent segments joined by anonymous pipes, all segments started
// before any wait so they stream concurrently.
package pipeexec

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/gosh-shell/gosh/core/logger"
	"github.com/gosh-shell/gosh/core/shell"
	"github.com/gosh-shell/gosh/core/term"
)

// Executor runs pipelines against a set of standard streams. The streams
// must be real files so children inherit them directly; the zero value is
// not usable, construct with New.
type Executor struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Terminal is used to hand the controlling terminal to foreground
	// jobs. May be a disabled controller but must not be nil.
	Terminal *term.Controller

	// Log records executed commands and spawn failures.
	Log *logger.Logger
}

// New returns an Executor bound to the shell's own standard streams.
func New(tc *term.Controller, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Terminal: tc,
		Log:      log,
	}
}

// Proc is one spawned (or failed-to-spawn) pipeline member.
type Proc struct {
	PID  int
	Name string

	status int
	done   bool
}

// Started is a pipeline whose members have all been spawned. The parent's
// pipe descriptors are already closed; only waiting remains.
type Started struct {
	Pipeline *shell.Pipeline
	PGID     int
	Procs    []*Proc
}

// LivePIDs returns the member processes that have not been reaped.
func (st *Started) LivePIDs() []int {
	var out []int
	for _, p := range st.Procs {
		if !p.done && p.PID != 0 {
			out = append(out, p.PID)
		}
	}
	return out
}

// Outcome is the result of foreground-waiting on a started pipeline.
type Outcome struct {
	// Status is the exit status of the last segment.
	Status int
	// Stopped is set when any member received a stop signal instead of
	// exiting; the caller should register the pipeline as a stopped job.
	Stopped bool
}

// Execute runs the pipeline in the foreground and returns the last
// segment's exit status. Validation failures return 1 without spawning.
func (e *Executor) Execute(p *shell.Pipeline) int {
	st, err := e.Start(p)
	if err != nil {
		fmt.Fprintf(e.Stderr, "gosh: %v\n", err)
		return ExitFailure
	}
	return e.WaitForeground(st).Status
}

// Start validates the pipeline and spawns every segment. Per-segment
// spawn failures (bad redirection, command not found) are reported on
// stderr and recorded in the segment's status; the remaining segments
// still run. Only pipeline-level problems return an error.
func (e *Executor) Start(p *shell.Pipeline) (*Started, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty pipeline", shell.ErrSyntax)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	e.Log.RunCommand(p.Raw, len(p.Segments), p.Background)

	n := len(p.Segments)
	pipes := make([][2]*os.File, n-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			for j := 0; j < i; j++ {
				pipes[j][0].Close()
				pipes[j][1].Close()
			}
			return nil, fmt.Errorf("create pipe: %w", err)
		}
		pipes[i] = [2]*os.File{r, w}
	}

	st := &Started{Pipeline: p}
	var redirFiles []*os.File

	for i := range p.Segments {
		seg := &p.Segments[i]
		proc := &Proc{Name: seg.Name, status: ExitSuccess}
		st.Procs = append(st.Procs, proc)

		stdin, stdout, stderr := e.Stdin, e.Stdout, e.Stderr
		if i > 0 {
			stdin = pipes[i-1][0]
		}
		if i < n-1 {
			stdout = pipes[i][1]
		}

		opened, err := openRedirections(seg, &stdin, &stdout, &stderr)
		redirFiles = append(redirFiles, opened...)
		if err != nil {
			e.reportSpawnError(proc, seg, ExitFailure, err)
			continue
		}

		path, err := exec.LookPath(seg.Name)
		switch {
		case errors.Is(err, exec.ErrNotFound):
			e.reportNotFound(proc, seg)
			continue
		case err != nil:
			e.reportSpawnError(proc, seg, ExitFailure, err)
			continue
		}

		cmd := &exec.Cmd{
			Path:   path,
			Args:   seg.Argv(),
			Stdin:  stdin,
			Stdout: stdout,
			Stderr: stderr,
			// Every member joins one process group so the terminal
			// driver and fg/bg can signal the pipeline as a unit.
			SysProcAttr: &syscall.SysProcAttr{Setpgid: true, Pgid: st.PGID},
		}
		if err := cmd.Start(); err != nil {
			e.reportSpawnError(proc, seg, ExitFailure, err)
			continue
		}
		proc.PID = cmd.Process.Pid
		if st.PGID == 0 {
			st.PGID = proc.PID
		}
	}

	// The children own the pipe and redirection descriptors now. Closing
	// the parent's copies is what lets readers see EOF.
	for _, pr := range pipes {
		pr[0].Close()
		pr[1].Close()
	}
	for _, f := range redirFiles {
		f.Close()
	}

	return st, nil
}

// WaitForeground hands the terminal to the pipeline's process group,
// waits for every member in segment order, and hands the terminal back.
// The hand-back is unconditional: it runs even if waiting errors.
func (e *Executor) WaitForeground(st *Started) Outcome {
	if st.PGID != 0 && e.Terminal != nil {
		if err := e.Terminal.SetForeground(st.PGID); err == nil {
			defer e.Terminal.Reclaim()
		}
	}

	stopped := false
	for _, proc := range st.Procs {
		if proc.done {
			continue
		}
		if waitProc(proc) {
			stopped = true
		}
	}

	last := st.Procs[len(st.Procs)-1]
	return Outcome{Status: last.status, Stopped: stopped}
}

// waitProc blocks until the process exits or stops. It reports true when
// the process stopped (and is therefore still alive).
func waitProc(proc *Proc) (stoppedNow bool) {
	for {
		var ws unix.WaitStatus
		_, err := unix.Wait4(proc.PID, &ws, unix.WUNTRACED, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			// ECHILD: reaped elsewhere; treat as exited.
			proc.done = true
			return false
		case ws.Stopped():
			proc.status = StatusFromWait(ws)
			return true
		case ws.Exited(), ws.Signaled():
			proc.status = StatusFromWait(ws)
			proc.done = true
			return false
		}
	}
}

func (e *Executor) reportNotFound(proc *Proc, seg *shell.Segment) {
	proc.status = ExitNotFound
	proc.done = true
	fmt.Fprintf(e.Stderr, "gosh: %s: command not found\n", seg.Name)
	e.Log.SpawnError(seg.Name, "command not found")
}

func (e *Executor) reportSpawnError(proc *Proc, seg *shell.Segment, status int, err error) {
	proc.status = status
	proc.done = true
	fmt.Fprintf(e.Stderr, "gosh: %s: %v\n", seg.Name, err)
	e.Log.SpawnError(seg.Name, err.Error())
}
