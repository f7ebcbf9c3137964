// Package core wires the shell together: the interactive loop, builtin
// dispatch, command substitution, pipeline execution and job control.
package core

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"

	"github.com/gosh-shell/gosh/core/config"
	"github.com/gosh-shell/gosh/core/jobs"
	"github.com/gosh-shell/gosh/core/logger"
	"github.com/gosh-shell/gosh/core/pipeexec"
	"github.com/gosh-shell/gosh/core/shell"
	"github.com/gosh-shell/gosh/core/subst"
	"github.com/gosh-shell/gosh/core/term"
)

type Shell struct {
	Config   *config.Configuration
	Readline *readline.Instance
	Terminal *term.Controller
	Jobs     *jobs.Manager
	Exec     *pipeexec.Executor
	Subst    *subst.Expander
	Log      *logger.Logger

	// Stdout and Stderr carry the shell's own output: prompts aside,
	// that is job notifications, builtin output and error messages.
	// They default to the process streams.
	Stdout io.Writer
	Stderr io.Writer

	lastStatus int
	history    []string
	oldpwd     string
	toClose    listCloser
}

// NewShell builds an interactive shell on the process's own standard
// streams. The shell ignores the terminal's job-control signals so that
// ^C, ^Z and terminal-access stops only ever reach the children.
func NewShell(cfg *config.Configuration, log *logger.Logger) (*Shell, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.Nop()
	}

	if cfg.Path != "" {
		if err := os.Setenv("PATH", cfg.Path); err != nil {
			return nil, err
		}
	}

	tc := term.NewController(os.Stdin)
	if tc.Enabled() {
		signal.Ignore(syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP,
			syscall.SIGTTOU, syscall.SIGTTIN)
	}

	rlCfg := &readline.Config{
		Prompt:          cfg.Prompt,
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
	}
	if err := rlCfg.Init(); err != nil {
		return nil, err
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return nil, err
	}

	s := &Shell{
		Config:   cfg,
		Readline: rl,
		Terminal: tc,
		Jobs:     jobs.NewManager(log),
		Exec:     pipeexec.New(tc, log),
		Subst: &subst.Expander{
			Stderr:    os.Stderr,
			MaxOutput: cfg.SubstMaxBytes,
		},
		Log: log,
	}
	s.toClose = append(s.toClose, rl)
	return s, nil
}

func (s *Shell) stdout() io.Writer {
	if s.Stdout != nil {
		return s.Stdout
	}
	return os.Stdout
}

func (s *Shell) stderr() io.Writer {
	if s.Stderr != nil {
		return s.Stderr
	}
	return os.Stderr
}

// LastStatus returns the exit status of the most recent pipeline.
func (s *Shell) LastStatus() int { return s.lastStatus }

// Prompt renders the configured prompt, colored when the output is a
// terminal and color is enabled.
func (s *Shell) Prompt() string {
	prompt := s.Config.Prompt
	if s.Config.ColorOutput && s.Terminal.Enabled() {
		prompt = color.New(color.FgGreen, color.Bold).Sprint(prompt)
	}
	return prompt
}

// Run is the interactive loop. It returns the shell's exit code.
func (s *Shell) Run() int {
	for {
		s.Jobs.Reap(s.stdout())
		s.Readline.SetPrompt(s.Prompt())

		line, err := s.Readline.Readline()
		switch {
		case err == io.EOF:
			return s.lastStatus
		case err == readline.ErrInterrupt:
			continue
		case err != nil:
			fmt.Fprintf(s.stderr(), "gosh: read: %v\n", err)
			return pipeexec.ExitFailure
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		res := s.Interpret(line)
		switch res.Control {
		case ControlExit:
			return res.Status
		case ControlBreak:
			fmt.Fprintln(s.stderr(), "gosh: break: only meaningful in a loop")
		case ControlContinue:
			fmt.Fprintln(s.stderr(), "gosh: continue: only meaningful in a loop")
		}
	}
}

// Interpret expands, parses and executes one input line.
func (s *Shell) Interpret(line string) Result {
	s.history = append(s.history, line)

	expanded, err := subst.ExpandStatus(line, s.lastStatus)
	if err == nil {
		expanded, err = s.Subst.Expand(expanded)
	}
	if err != nil {
		fmt.Fprintf(s.stderr(), "gosh: %v\n", err)
		s.lastStatus = pipeexec.ExitFailure
		return Result{Status: s.lastStatus}
	}

	p, err := shell.Parse(expanded)
	if err != nil {
		fmt.Fprintf(s.stderr(), "gosh: %v\n", err)
		s.lastStatus = pipeexec.ExitFailure
		return Result{Status: s.lastStatus}
	}

	if res, handled := s.runBuiltin(p); handled {
		return res
	}

	if p.Background {
		s.runBackground(p)
	} else {
		s.runForeground(p)
	}
	return Result{Status: s.lastStatus}
}

// runBuiltin dispatches a bare single-segment command to the builtin
// table. Builtins inside pipelines or with redirections run as external
// commands would, which for builtins means not at all.
func (s *Shell) runBuiltin(p *shell.Pipeline) (Result, bool) {
	if len(p.Segments) != 1 || p.Background {
		return Result{}, false
	}
	seg := &p.Segments[0]
	if len(seg.Redirs) != 0 {
		return Result{}, false
	}
	builtin, ok := AllBuiltins[seg.Name]
	if !ok {
		return Result{}, false
	}

	res := builtin.Main(s, seg.Argv())
	s.lastStatus = res.Status
	return res, true
}

func (s *Shell) runForeground(p *shell.Pipeline) {
	st, err := s.Exec.Start(p)
	if err != nil {
		fmt.Fprintf(s.stderr(), "gosh: %v\n", err)
		s.lastStatus = pipeexec.ExitFailure
		return
	}

	out := s.Exec.WaitForeground(st)
	s.lastStatus = out.Status
	if out.Stopped {
		job := s.Jobs.Add(st.PGID, st.LivePIDs(), p.String())
		s.Jobs.SetStatus(job, jobs.Stopped)
		fmt.Fprintf(s.stdout(), "[%d] Stopped %s\n", job.ID, job.Cmd)
	}
}

func (s *Shell) runBackground(p *shell.Pipeline) {
	st, err := s.Exec.Start(p)
	if err != nil {
		fmt.Fprintf(s.stderr(), "gosh: %v\n", err)
		s.lastStatus = pipeexec.ExitFailure
		return
	}

	live := st.LivePIDs()
	if len(live) == 0 {
		// Every segment failed to spawn; nothing to supervise.
		s.lastStatus = s.Exec.WaitForeground(st).Status
		return
	}

	job := s.Jobs.Add(st.PGID, live, p.String())
	fmt.Fprintf(s.stdout(), "[%d] %d\n", job.ID, st.PGID)
	s.lastStatus = pipeexec.ExitSuccess
}

func (s *Shell) Close() error {
	return s.toClose.Close()
}

type listCloser []io.Closer

func (lc listCloser) Close() error {
	var lastErr error
	for _, v := range lc {
		if err := v.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
