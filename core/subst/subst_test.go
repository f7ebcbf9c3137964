package subst

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExpander() *Expander {
	return &Expander{Stderr: &bytes.Buffer{}}
}

func TestExpandNoSubstitution(t *testing.T) {
	e := testExpander()

	for _, line := range []string{
		"ls -l",
		"echo 'literal $(date)'",
		"echo hi | wc -c",
	} {
		out, err := e.Expand(line)
		require.NoError(t, err, line)
		assert.Equal(t, line, out)
	}
}

func TestExpandSimple(t *testing.T) {
	e := testExpander()

	out, err := e.Expand("echo $(echo hello)")
	require.NoError(t, err)
	assert.Equal(t, "echo hello", out)
}

func TestExpandStripsTrailingNewlines(t *testing.T) {
	e := testExpander()

	out, err := e.Expand("echo $(printf 'hi\\n\\n\\n')")
	require.NoError(t, err)
	assert.Equal(t, "echo hi", out)
}

func TestExpandPreservesInnerNewlines(t *testing.T) {
	e := testExpander()

	out, err := e.Expand(`echo "$(printf 'a\nb\n')"`)
	require.NoError(t, err)
	assert.Equal(t, "echo \"a\nb\"", out)
}

func TestExpandNested(t *testing.T) {
	e := testExpander()

	out, err := e.Expand("echo $(echo $(echo deep))")
	require.NoError(t, err)
	assert.Equal(t, "echo deep", out)
}

func TestExpandMultiple(t *testing.T) {
	e := testExpander()

	out, err := e.Expand("echo $(echo a) mid $(echo b)")
	require.NoError(t, err)
	assert.Equal(t, "echo a mid b", out)
}

func TestExpandAdjacentText(t *testing.T) {
	e := testExpander()

	out, err := e.Expand("echo pre$(echo fix)ed")
	require.NoError(t, err)
	assert.Equal(t, "echo prefixed", out)
}

func TestExpandEmptyCommand(t *testing.T) {
	e := testExpander()

	out, err := e.Expand("echo [$()]")
	require.NoError(t, err)
	assert.Equal(t, "echo []", out)
}

func TestExpandCommandNotFound(t *testing.T) {
	e := testExpander()

	_, err := e.Expand("echo $(definitely-not-a-command-4e7a)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not found")
}

func TestExpandNonZeroExitAborts(t *testing.T) {
	e := testExpander()

	_, err := e.Expand("echo $(false)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestExpandFailureAbortsWholeLine(t *testing.T) {
	e := testExpander()

	// The first substitution would succeed; the failing one still
	// aborts everything.
	_, err := e.Expand("echo $(echo ok) $(false)")
	require.Error(t, err)
}

func TestExpandOutputTooLarge(t *testing.T) {
	e := testExpander()
	e.MaxOutput = 4

	_, err := e.Expand("echo $(echo toolongforthis)")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutputTooLarge)
}

func TestExpandStderrPassesThrough(t *testing.T) {
	var stderr bytes.Buffer
	e := &Expander{Stderr: &stderr}

	out, err := e.Expand(`echo $(sh -c 'echo captured; echo passed >&2')`)
	require.NoError(t, err)
	assert.Equal(t, "echo captured", out)
	assert.Equal(t, "passed\n", stderr.String())
}

func TestExpandStatus(t *testing.T) {
	cases := []struct {
		name   string
		line   string
		status int
		want   string
	}{
		{"plain", "echo $?", 0, "echo 0"},
		{"nonzero", "echo $?", 127, "echo 127"},
		{"double quoted", `echo "$?"`, 1, `echo "1"`},
		{"single quoted stays", `echo '$?'`, 1, `echo '$?'`},
		{"no param", "echo hi", 9, "echo hi"},
		{"inside subst", "echo $(echo $?)", 3, "echo $(echo 3)"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ExpandStatus(tc.line, tc.status)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{max: 8}

	_, err := b.Write([]byte("12345678"))
	require.NoError(t, err)

	_, err = b.Write([]byte("9"))
	require.Error(t, err)
	assert.True(t, b.overflowed)
	assert.Equal(t, "12345678", b.buf.String())
}

func TestExpandRejectsUnbalanced(t *testing.T) {
	e := testExpander()

	_, err := e.Expand("echo $(echo hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestExpandBackquotes(t *testing.T) {
	e := testExpander()

	out, err := e.Expand("echo `echo hi`")
	require.NoError(t, err)
	assert.Equal(t, "echo hi", out)
}

func TestExpandBackquotesKeepFirstCharacter(t *testing.T) {
	e := testExpander()

	// The program name must come through whole, not minus its first
	// byte.
	out, err := e.Expand("echo `printf first-char-intact`")
	require.NoError(t, err)
	assert.Equal(t, "echo first-char-intact", out)
}

func TestExpandBackquotesFailureAborts(t *testing.T) {
	e := testExpander()

	_, err := e.Expand("echo `false`")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
}
