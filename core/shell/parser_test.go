package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleCommand(t *testing.T) {
	p, err := Parse("ls -l /tmp")
	require.NoError(t, err)

	require.Len(t, p.Segments, 1)
	assert.Equal(t, "ls", p.Segments[0].Name)
	assert.Equal(t, []string{"-l", "/tmp"}, p.Segments[0].Args)
	assert.False(t, p.Background)
}

func TestParseQuoting(t *testing.T) {
	cases := []struct {
		name string
		line string
		want []string
	}{
		{"single quotes", `echo 'hello world'`, []string{"echo", "hello world"}},
		{"double quotes", `echo "a b" c`, []string{"echo", "a b", "c"}},
		{"mixed word", `echo pre'fix'"ed"`, []string{"echo", "prefixed"}},
		{"empty arg", `printf '' x`, []string{"printf", "", "x"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Parse(tc.line)
			require.NoError(t, err)
			require.Len(t, p.Segments, 1)
			assert.Equal(t, tc.want, p.Segments[0].Argv())
		})
	}
}

func TestParsePipeline(t *testing.T) {
	p, err := Parse("cat /etc/passwd | grep root | wc -l")
	require.NoError(t, err)

	require.Len(t, p.Segments, 3)
	assert.Equal(t, "cat", p.Segments[0].Name)
	assert.Equal(t, "grep", p.Segments[1].Name)
	assert.Equal(t, "wc", p.Segments[2].Name)
	for i, seg := range p.Segments {
		assert.Equal(t, i, seg.Index)
	}
}

func TestParseBackground(t *testing.T) {
	p, err := Parse("sleep 100 &")
	require.NoError(t, err)
	assert.True(t, p.Background)

	p, err = Parse("sleep 1 | cat &")
	require.NoError(t, err)
	assert.True(t, p.Background)
	assert.Len(t, p.Segments, 2)
}

func TestParseRedirections(t *testing.T) {
	cases := []struct {
		name   string
		line   string
		fd     int
		mode   RedirMode
		target string
	}{
		{"truncate", "echo hi > out.txt", 1, RedirTruncate, "out.txt"},
		{"append", "echo hi >> out.txt", 1, RedirAppend, "out.txt"},
		{"input", "wc -l < in.txt", 0, RedirInput, "in.txt"},
		{"stderr", "cc main.c 2> errs", 2, RedirTruncate, "errs"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Parse(tc.line)
			require.NoError(t, err)
			require.Len(t, p.Segments, 1)
			require.Len(t, p.Segments[0].Redirs, 1)

			r := p.Segments[0].Redirs[0]
			assert.Equal(t, tc.fd, r.FD)
			assert.Equal(t, tc.mode, r.Mode)
			assert.Equal(t, tc.target, r.Target)
		})
	}
}

func TestParseRedirectionsPerSegment(t *testing.T) {
	p, err := Parse("sort < in.txt | uniq > out.txt")
	require.NoError(t, err)

	require.Len(t, p.Segments, 2)
	require.Len(t, p.Segments[0].Redirs, 1)
	assert.Equal(t, RedirInput, p.Segments[0].Redirs[0].Mode)
	require.Len(t, p.Segments[1].Redirs, 1)
	assert.Equal(t, RedirTruncate, p.Segments[1].Redirs[0].Mode)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"trailing pipe", "ls |"},
		{"leading pipe", "| ls"},
		{"two statements", "ls; pwd"},
		{"and list", "ls && pwd"},
		{"subshell", "(ls)"},
		{"missing target", "echo hi >"},
		{"bad fd", "echo hi 9> out"},
		{"input on stdout", "cat 1< in"},
		{"unexpanded subst", "echo $(date)"},
		{"unexpanded param", "echo $HOME"},
		{"assignment", "FOO=1 env"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestPipelineString(t *testing.T) {
	p, err := Parse("cat notes.txt|wc -l &")
	require.NoError(t, err)
	assert.Equal(t, "cat notes.txt | wc -l &", p.String())

	p, err = Parse("sort < in.txt | uniq >> out.txt")
	require.NoError(t, err)
	assert.Equal(t, "sort < in.txt | uniq >> out.txt", p.String())
}
