package core

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"

	"github.com/gosh-shell/gosh/core/jobs"
	"github.com/gosh-shell/gosh/core/pipeexec"
)

// AllBuiltins holds a list of all registered shell builtins.
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) Result
}

type ShellBuiltinFunc func(s *Shell, args []string) Result

func (f ShellBuiltinFunc) Main(s *Shell, args []string) Result {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

func ok() Result   { return Result{Status: pipeexec.ExitSuccess} }
func fail() Result { return Result{Status: pipeexec.ExitFailure} }

// Cd is the cd shell builtin. `cd` alone goes home, `cd -` returns to
// the previous directory.
func Cd(s *Shell, args []string) Result {
	var target string
	switch len(args) {
	case 1:
		target = os.Getenv("HOME")
		if target == "" {
			fmt.Fprintf(s.stderr(), "%s: HOME not set\n", args[0])
			return fail()
		}
	case 2:
		target = args[1]
		if target == "-" {
			if s.oldpwd == "" {
				fmt.Fprintf(s.stderr(), "%s: OLDPWD not set\n", args[0])
				return fail()
			}
			target = s.oldpwd
			fmt.Fprintln(s.stdout(), target)
		}
	default:
		fmt.Fprintf(s.stderr(), "%s: too many arguments\n", args[0])
		return fail()
	}

	prev, _ := os.Getwd()
	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(s.stderr(), "%s: %v\n", args[0], err)
		return fail()
	}
	s.oldpwd = prev
	return ok()
}

// Exit quits the shell. With no argument the last pipeline's status is
// the shell's exit code.
func Exit(s *Shell, args []string) Result {
	code := s.lastStatus
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.stderr(), "%s: %s: numeric argument required\n", args[0], args[1])
			return Result{Control: ControlExit, Status: pipeexec.ExitFailure}
		}
		code = n & 0xff
	}
	return Result{Control: ControlExit, Status: code}
}

// Fg resumes a job in the foreground and waits for it.
func Fg(s *Shell, args []string) Result {
	spec := ""
	if len(args) > 1 {
		spec = args[1]
	}
	status, err := s.Jobs.Foreground(spec, s.Terminal, s.stdout())
	if err != nil {
		fmt.Fprintf(s.stderr(), "%s: %v\n", args[0], err)
	}
	return Result{Status: status}
}

// Bg resumes a stopped job in the background.
func Bg(s *Shell, args []string) Result {
	spec := ""
	if len(args) > 1 {
		spec = args[1]
	}
	status, err := s.Jobs.Background(spec, s.stdout())
	if err != nil {
		fmt.Fprintf(s.stderr(), "%s: %v\n", args[0], err)
	}
	return Result{Status: status}
}

// Jobs lists the job table.
func Jobs(s *Shell, args []string) Result {
	opts := getopt.New()
	longFmt := opts.Bool('l', "also show process group ids")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: jobs [-l]")
		fmt.Fprintln(w, "List the shell's background and stopped jobs.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return fail()
	}

	for _, job := range s.Jobs.List() {
		suffix := ""
		if job.Status == jobs.Running {
			suffix = " &"
		}
		if *longFmt {
			fmt.Fprintf(s.stdout(), "[%d]%c %d %s\t%s%s\n",
				job.ID, s.Jobs.Marker(job.ID), job.PGID, job.Status, job.Cmd, suffix)
		} else {
			fmt.Fprintf(s.stdout(), "[%d]%c %s\t%s%s\n",
				job.ID, s.Jobs.Marker(job.ID), job.Status, job.Cmd, suffix)
		}
	}
	return ok()
}

// History displays or clears the interactive history.
func History(s *Shell, args []string) Result {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "Display or manipulate the history list.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return fail()
	}

	if *clear {
		s.Readline.Operation.ResetHistory()
		s.history = nil
		return ok()
	}

	for i, line := range s.history {
		fmt.Fprintf(s.stdout(), "% 5d  %s\n", i+1, line)
	}
	return ok()
}

func Help(s *Shell, args []string) Result {
	w := s.stdout()
	fmt.Fprintln(w, "These shell commands are defined internally. Type `help' to see this list.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)

	var builtins []string
	for k := range AllBuiltins {
		builtins = append(builtins, k)
	}
	sort.Strings(builtins)

	fmt.Fprintln(w, strings.Join(builtins, "\n"))

	return ok()
}

// Break and Continue only carry control flow; the top-level loop warns
// when there is no enclosing loop to escape.
func Break(s *Shell, args []string) Result {
	return Result{Control: ControlBreak, Status: pipeexec.ExitSuccess}
}

func Continue(s *Shell, args []string) Result {
	return Result{Control: ControlContinue, Status: pipeexec.ExitSuccess}
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["fg"] = ShellBuiltinFunc(Fg)
	AllBuiltins["bg"] = ShellBuiltinFunc(Bg)
	AllBuiltins["jobs"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["break"] = ShellBuiltinFunc(Break)
	AllBuiltins["continue"] = ShellBuiltinFunc(Continue)
}
