// Package jobs tracks pipelines running in the background or stopped by
// a terminal signal. The Manager exclusively owns the job table; builtins
// and the shell loop go through it for every mutation.
package jobs

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/gosh-shell/gosh/core/logger"
	"github.com/gosh-shell/gosh/core/pipeexec"
)

// Status is a job's lifecycle state.
type Status int

const (
	Running Status = iota
	Stopped
	Done
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Job is one background or suspended pipeline under shell supervision.
type Job struct {
	ID   int
	PGID int
	// PIDs holds the member processes that have not been reaped, in
	// segment order.
	PIDs []int
	// Cmd is the pipeline's original text, for listings and messages.
	Cmd    string
	Status Status

	// lastStatus remembers the most recent exit status of the job's
	// final member, reported by fg when the job finishes.
	lastStatus int
}

var (
	ErrInvalidJobID  = errors.New("invalid job id")
	ErrNoSuchJob     = errors.New("no such job")
	ErrNoCurrentJob  = errors.New("no current job")
	ErrNoStoppedJobs = errors.New("no stopped jobs")
)

// Manager owns the job table. All operations are serialized by a single
// mutex; job-table operations are infrequent and short.
type Manager struct {
	mu      sync.Mutex
	jobs    map[int]*Job
	recency []int // job ids, least recent first
	nextID  int
	log     *logger.Logger
}

// NewManager returns an empty job table. Pass nil to disable logging.
func NewManager(log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		jobs:   make(map[int]*Job),
		nextID: 1,
		log:    log,
	}
}

// Add registers a running job and returns it. Ids increase monotonically
// while the table is non-empty and restart at 1 once it empties.
func (m *Manager) Add(pgid int, pids []int, cmd string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) == 0 {
		m.nextID = 1
	}
	job := &Job{
		ID:     m.nextID,
		PGID:   pgid,
		PIDs:   append([]int(nil), pids...),
		Cmd:    strings.TrimSuffix(strings.TrimSpace(cmd), "&"),
		Status: Running,
	}
	job.Cmd = strings.TrimSpace(job.Cmd)
	m.nextID++
	m.jobs[job.ID] = job
	m.recency = append(m.recency, job.ID)
	m.log.JobTransition(job.ID, job.PGID, job.Status.String(), job.Cmd)
	return job
}

// Get looks up a job by id.
func (m *Manager) Get(id int) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	return job, ok
}

// List returns the jobs in ascending id order.
func (m *Manager) List() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove deletes a job from the table. It reports whether the id existed.
func (m *Manager) Remove(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(id)
}

func (m *Manager) removeLocked(id int) bool {
	if _, ok := m.jobs[id]; !ok {
		return false
	}
	delete(m.jobs, id)
	for i, jid := range m.recency {
		if jid == id {
			m.recency = append(m.recency[:i], m.recency[i+1:]...)
			break
		}
	}
	return true
}

// Current returns the most recently added or state-changed job.
func (m *Manager) Current() (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recency) == 0 {
		return nil, false
	}
	job := m.jobs[m.recency[len(m.recency)-1]]
	return job, job != nil
}

// MostRecentStopped returns the most recently stopped job.
func (m *Manager) MostRecentStopped() (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.recency) - 1; i >= 0; i-- {
		if job := m.jobs[m.recency[i]]; job != nil && job.Status == Stopped {
			return job, true
		}
	}
	return nil, false
}

// SetStatus transitions a job and refreshes its recency. Done jobs are
// terminal; the manager never resurrects them.
func (m *Manager) SetStatus(job *Job, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.Status == Done {
		return
	}
	job.Status = status
	for i, jid := range m.recency {
		if jid == job.ID {
			m.recency = append(m.recency[:i], m.recency[i+1:]...)
			break
		}
	}
	m.recency = append(m.recency, job.ID)
	m.log.JobTransition(job.ID, job.PGID, status.String(), job.Cmd)
}

// Marker returns the bash-style job marker: '+' for the current job,
// '-' for the previous one, space otherwise.
func (m *Manager) Marker(id int) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.recency)
	switch {
	case n > 0 && m.recency[n-1] == id:
		return '+'
	case n > 1 && m.recency[n-2] == id:
		return '-'
	default:
		return ' '
	}
}

// Reap polls every job's members without blocking, marks jobs whose
// members have all exited as Done, reports them to w as
// `[id] Done command`, and removes them from the table.
func (m *Manager) Reap(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range append([]int(nil), m.recency...) {
		job := m.jobs[id]
		if job == nil || job.Status == Stopped {
			continue
		}

		live := job.PIDs[:0]
		for _, pid := range job.PIDs {
			var ws unix.WaitStatus
			reaped, err := unix.Wait4(pid, &ws, unix.WNOHANG|unix.WUNTRACED, nil)
			switch {
			case err != nil:
				// ECHILD: gone already, drop it.
			case reaped == 0:
				live = append(live, pid)
			case ws.Stopped():
				live = append(live, pid)
				job.Status = Stopped
			default:
				job.lastStatus = pipeexec.StatusFromWait(ws)
			}
		}
		job.PIDs = live

		if len(job.PIDs) == 0 {
			job.Status = Done
			m.log.JobTransition(job.ID, job.PGID, job.Status.String(), job.Cmd)
			if w != nil {
				fmt.Fprintf(w, "[%d] Done %s\n", job.ID, job.Cmd)
			}
			m.removeLocked(job.ID)
		}
	}
}

// ResolveSpec parses a job-spec argument: "%1" or "1". An empty spec
// returns 0, meaning "use the default job".
func ResolveSpec(spec string) (int, error) {
	if spec == "" {
		return 0, nil
	}
	spec = strings.TrimPrefix(spec, "%")
	id, err := strconv.Atoi(spec)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidJobID, spec)
	}
	return id, nil
}

// lookup resolves an explicit or defaulted job target.
func (m *Manager) lookup(id int, stoppedDefault bool) (*Job, error) {
	if id != 0 {
		job, ok := m.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrNoSuchJob, id)
		}
		return job, nil
	}
	if stoppedDefault {
		job, ok := m.MostRecentStopped()
		if !ok {
			return nil, ErrNoStoppedJobs
		}
		return job, nil
	}
	job, ok := m.Current()
	if !ok {
		return nil, ErrNoCurrentJob
	}
	return job, nil
}
