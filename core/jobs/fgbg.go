package jobs

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"github.com/gosh-shell/gosh/core/pipeexec"
	"github.com/gosh-shell/gosh/core/term"
)

// Foreground brings a job to the foreground: the controlling terminal is
// handed to its process group, a stopped job is continued, and the shell
// waits for every remaining member. With no spec the most recent job is
// used. The terminal hand-back is unconditional.
func (m *Manager) Foreground(spec string, tc *term.Controller, w io.Writer) (int, error) {
	id, err := ResolveSpec(spec)
	if err != nil {
		return pipeexec.ExitFailure, err
	}
	job, err := m.lookup(id, false)
	if err != nil {
		return pipeexec.ExitFailure, err
	}

	fmt.Fprintln(w, job.Cmd)

	if tc != nil {
		if err := tc.SetForeground(job.PGID); err == nil {
			defer tc.Reclaim()
		}
	}

	if job.Status == Stopped {
		if err := unix.Kill(-job.PGID, unix.SIGCONT); err != nil {
			return pipeexec.ExitFailure,
				fmt.Errorf("continue job %d (pgid %d): %w", job.ID, job.PGID, err)
		}
	}
	m.SetStatus(job, Running)

	status, stoppedAgain := m.waitMembers(job)
	if stoppedAgain {
		m.SetStatus(job, Stopped)
		fmt.Fprintf(w, "[%d] Stopped %s\n", job.ID, job.Cmd)
		return status, nil
	}
	m.Remove(job.ID)
	return status, nil
}

// Background resumes a stopped job without giving it the terminal. With
// no spec the most recently stopped job is used.
func (m *Manager) Background(spec string, w io.Writer) (int, error) {
	id, err := ResolveSpec(spec)
	if err != nil {
		return pipeexec.ExitFailure, err
	}
	job, err := m.lookup(id, true)
	if err != nil {
		return pipeexec.ExitFailure, err
	}

	if job.Status == Stopped {
		if err := unix.Kill(-job.PGID, unix.SIGCONT); err != nil {
			return pipeexec.ExitFailure,
				fmt.Errorf("continue job %d (pgid %d): %w", job.ID, job.PGID, err)
		}
	}
	m.SetStatus(job, Running)
	fmt.Fprintf(w, "[%d] %s &\n", job.ID, job.Cmd)
	return pipeexec.ExitSuccess, nil
}

// waitMembers blocks on each remaining member in segment order. It
// returns the status of the last member to report and whether any member
// stopped instead of exiting. Stopped members stay in job.PIDs.
func (m *Manager) waitMembers(job *Job) (int, bool) {
	m.mu.Lock()
	pids := append([]int(nil), job.PIDs...)
	status := job.lastStatus
	m.mu.Unlock()

	stopped := false
	var live []int
	for _, pid := range pids {
	wait:
		for {
			var ws unix.WaitStatus
			_, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
			switch {
			case err == unix.EINTR:
				continue
			case err != nil:
				// ECHILD: already reaped, keep the prior status.
				break wait
			case ws.Stopped():
				stopped = true
				live = append(live, pid)
				status = pipeexec.StatusFromWait(ws)
				break wait
			case ws.Exited(), ws.Signaled():
				status = pipeexec.StatusFromWait(ws)
				break wait
			}
		}
	}

	m.mu.Lock()
	job.PIDs = live
	job.lastStatus = status
	m.mu.Unlock()
	return status, stopped
}
