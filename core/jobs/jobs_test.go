package jobs

import (
	"bytes"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAssignsSequentialIDs(t *testing.T) {
	m := NewManager(nil)

	j1 := m.Add(101, []int{101}, "sleep 1 &")
	j2 := m.Add(102, []int{102}, "sleep 2 &")
	j3 := m.Add(103, []int{103}, "sleep 3 &")

	assert.Equal(t, 1, j1.ID)
	assert.Equal(t, 2, j2.ID)
	assert.Equal(t, 3, j3.ID)
}

func TestIDsResetWhenTableEmpties(t *testing.T) {
	m := NewManager(nil)

	j1 := m.Add(101, []int{101}, "a")
	j2 := m.Add(102, []int{102}, "b")

	// While any job remains, ids keep growing even after removals.
	m.Remove(j1.ID)
	j3 := m.Add(103, []int{103}, "c")
	assert.Equal(t, 3, j3.ID)

	m.Remove(j2.ID)
	m.Remove(j3.ID)
	j4 := m.Add(104, []int{104}, "d")
	assert.Equal(t, 1, j4.ID)
}

func TestAddTrimsBackgroundSuffix(t *testing.T) {
	m := NewManager(nil)
	job := m.Add(101, []int{101}, "  sleep 10 &  ")
	assert.Equal(t, "sleep 10", job.Cmd)
}

func TestListOrdersByID(t *testing.T) {
	m := NewManager(nil)
	m.Add(101, []int{101}, "a")
	m.Add(102, []int{102}, "b")
	m.Add(103, []int{103}, "c")

	var ids []int
	for _, job := range m.List() {
		ids = append(ids, job.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestCurrentAndMarkers(t *testing.T) {
	m := NewManager(nil)
	j1 := m.Add(101, []int{101}, "a")
	j2 := m.Add(102, []int{102}, "b")

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, j2.ID, cur.ID)
	assert.Equal(t, byte('+'), m.Marker(j2.ID))
	assert.Equal(t, byte('-'), m.Marker(j1.ID))

	// Touching j1 makes it current again.
	m.SetStatus(j1, Stopped)
	cur, ok = m.Current()
	require.True(t, ok)
	assert.Equal(t, j1.ID, cur.ID)
	assert.Equal(t, byte('+'), m.Marker(j1.ID))
	assert.Equal(t, byte('-'), m.Marker(j2.ID))
}

func TestMostRecentStopped(t *testing.T) {
	m := NewManager(nil)

	_, ok := m.MostRecentStopped()
	assert.False(t, ok)

	j1 := m.Add(101, []int{101}, "a")
	j2 := m.Add(102, []int{102}, "b")
	m.Add(103, []int{103}, "c")

	m.SetStatus(j1, Stopped)
	m.SetStatus(j2, Stopped)

	got, ok := m.MostRecentStopped()
	require.True(t, ok)
	assert.Equal(t, j2.ID, got.ID)
}

func TestResolveSpec(t *testing.T) {
	cases := []struct {
		spec    string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"1", 1, false},
		{"%3", 3, false},
		{"%0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"%", 0, true},
	}

	for _, tc := range cases {
		got, err := ResolveSpec(tc.spec)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidJobID, tc.spec)
		} else {
			require.NoError(t, err, tc.spec)
			assert.Equal(t, tc.want, got, tc.spec)
		}
	}
}

func TestForegroundEmptyTable(t *testing.T) {
	m := NewManager(nil)
	var out bytes.Buffer

	_, err := m.Foreground("", nil, &out)
	assert.ErrorIs(t, err, ErrNoCurrentJob)

	_, err = m.Foreground("7", nil, &out)
	assert.ErrorIs(t, err, ErrNoSuchJob)
}

func TestBackgroundRequiresStoppedJob(t *testing.T) {
	m := NewManager(nil)
	var out bytes.Buffer

	_, err := m.Background("", &out)
	assert.ErrorIs(t, err, ErrNoStoppedJobs)
}

// startChild launches a real process in its own process group so the
// manager's wait and signal calls have something to act on.
func startChild(t *testing.T, args ...string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		cmd.Wait()
	})
	return cmd
}

func TestReapReportsDoneJobs(t *testing.T) {
	m := NewManager(nil)

	cmd := startChild(t, "true")
	job := m.Add(cmd.Process.Pid, []int{cmd.Process.Pid}, "true &")

	var out bytes.Buffer
	require.Eventually(t, func() bool {
		m.Reap(&out)
		_, present := m.Get(job.ID)
		return !present
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "[1] Done true\n", out.String())
}

func TestReapLeavesRunningJobs(t *testing.T) {
	m := NewManager(nil)

	cmd := startChild(t, "sleep", "30")
	job := m.Add(cmd.Process.Pid, []int{cmd.Process.Pid}, "sleep 30 &")

	var out bytes.Buffer
	m.Reap(&out)

	got, present := m.Get(job.ID)
	require.True(t, present)
	assert.Equal(t, Running, got.Status)
	assert.Empty(t, out.String())
}

func TestForegroundWaitsAndRemoves(t *testing.T) {
	m := NewManager(nil)

	cmd := startChild(t, "sh", "-c", "exit 7")
	job := m.Add(cmd.Process.Pid, []int{cmd.Process.Pid}, "sh -c 'exit 7'")

	var out bytes.Buffer
	status, err := m.Foreground("", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 7, status)

	_, present := m.Get(job.ID)
	assert.False(t, present)
	assert.Contains(t, out.String(), "sh -c 'exit 7'")
}

func TestForegroundResumesStoppedJob(t *testing.T) {
	m := NewManager(nil)

	cmd := startChild(t, "sleep", "0.2")
	require.NoError(t, syscall.Kill(-cmd.Process.Pid, syscall.SIGSTOP))

	job := m.Add(cmd.Process.Pid, []int{cmd.Process.Pid}, "sleep 0.2")
	m.SetStatus(job, Stopped)

	var out bytes.Buffer
	status, err := m.Foreground("", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	_, present := m.Get(job.ID)
	assert.False(t, present)
}

func TestBackgroundResumesStoppedJob(t *testing.T) {
	m := NewManager(nil)

	cmd := startChild(t, "sleep", "30")
	require.NoError(t, syscall.Kill(-cmd.Process.Pid, syscall.SIGSTOP))

	job := m.Add(cmd.Process.Pid, []int{cmd.Process.Pid}, "sleep 30")
	m.SetStatus(job, Stopped)

	var out bytes.Buffer
	status, err := m.Background("", &out)
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "[1] sleep 30 &\n", out.String())

	got, present := m.Get(job.ID)
	require.True(t, present)
	assert.Equal(t, Running, got.Status)
}
