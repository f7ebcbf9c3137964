package core

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/gosh-shell/gosh/core/jobs"
	"github.com/gosh-shell/gosh/core/logger"
)

func TestJobsBuiltinListing(t *testing.T) {
	var out bytes.Buffer
	s := &Shell{
		Jobs:   jobs.NewManager(logger.Nop()),
		Stdout: &out,
		Stderr: &bytes.Buffer{},
	}

	s.Jobs.Add(101, []int{101}, "sleep 100 &")
	s.Jobs.Add(202, []int{202}, "cat notes.txt | wc -l &")
	stopped := s.Jobs.Add(303, []int{303}, "vim notes.txt")
	s.Jobs.SetStatus(stopped, jobs.Stopped)

	res := Jobs(s, []string{"jobs"})
	require.Equal(t, 0, res.Status)

	g := goldie.New(t)
	g.Assert(t, "jobs_list", out.Bytes())
}

func TestJobsBuiltinLongListing(t *testing.T) {
	var out bytes.Buffer
	s := &Shell{
		Jobs:   jobs.NewManager(logger.Nop()),
		Stdout: &out,
		Stderr: &bytes.Buffer{},
	}

	s.Jobs.Add(4242, []int{4242}, "sleep 5 &")

	res := Jobs(s, []string{"jobs", "-l"})
	require.Equal(t, 0, res.Status)

	g := goldie.New(t)
	g.Assert(t, "jobs_list_long", out.Bytes())
}

func TestJobsBuiltinEmptyTable(t *testing.T) {
	var out bytes.Buffer
	s := &Shell{
		Jobs:   jobs.NewManager(logger.Nop()),
		Stdout: &out,
		Stderr: &bytes.Buffer{},
	}

	res := Jobs(s, []string{"jobs"})
	require.Equal(t, 0, res.Status)
	require.Empty(t, out.String())
}
