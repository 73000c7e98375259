package main

import (
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/commonlog"

	"github.com/nf/nic/intcode"
)

func TestMain(m *testing.M) {
	commonlog.Configure(-4, nil)
	os.Exit(m.Run())
}

// addProg reads two inputs and prints their sum.
const addProg = "3,13,3,14,1,13,14,15,4,15,99"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

type lines []string

func (l *lines) Readline() (string, error) {
	if len(*l) == 0 {
		return "", io.EOF
	}
	s := (*l)[0]
	*l = (*l)[1:]
	return s, nil
}

func TestParsePatch(t *testing.T) {
	p, err := parsePatch("1 = -12")
	require.NoError(t, err)
	assert.Equal(t, patch{Addr: 1, Value: -12}, p)

	for _, s := range []string{"1", "x=1", "1=y", ""} {
		_, err := parsePatch(s)
		assert.Error(t, err, "parsePatch(%q)", s)
	}
}

func TestParseInts(t *testing.T) {
	vs, err := parseInts(" 1, -2 3\t4,,")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, -2, 3, 4}, vs)

	vs, err = parseInts("")
	require.NoError(t, err)
	assert.Empty(t, vs)

	_, err = parseInts("1,a")
	assert.Error(t, err)
}

func TestLoadRunFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "add.ic", addProg)
	rf := writeFile(t, dir, "add.toml", `
program = "add.ic"
inputs = [3, 4]
policy = "input"

[[patch]]
addr = 15
value = 9

[labels]
sum = 15
start = 0

[screen]
png = "out.png"
`)
	c, err := configFor(rf)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "add.ic"), c.Program)
	assert.Equal(t, []int64{3, 4}, c.Inputs)
	assert.Equal(t, "input", c.Policy)
	assert.Equal(t, []patch{{Addr: 15, Value: 9}}, c.Patches)
	assert.Equal(t, map[string]int{"sum": 15, "start": 0}, c.Labels)
	assert.True(t, c.Screen.Enabled, "png implies screen")
	assert.Equal(t, 8, c.Screen.Scale)

	m, err := c.load()
	require.NoError(t, err)
	v, err := m.Load(15)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
	assert.Equal(t, 2, m.InputLen())
}

func TestLoadRunFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := configFor(writeFile(t, dir, "bad.toml", "program = ["))
	assert.Error(t, err)

	_, err = configFor(writeFile(t, dir, "empty.toml", "inputs = [1]"))
	assert.ErrorContains(t, err, "no program")

	c, err := configFor(writeFile(t, dir, "bad.ic", "1,2,x"))
	require.NoError(t, err)
	_, err = c.load()
	var perr *intcode.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	c, err := configFor(writeFile(t, dir, "add.ic", addProg))
	require.NoError(t, err)
	c.Inputs = []int64{3, 4}

	for _, policy := range []string{"halt", "output", "input"} {
		t.Run(policy, func(t *testing.T) {
			c := *c
			c.Policy = policy
			var out bytes.Buffer
			require.NoError(t, run(&c, &out, nil))
			assert.Equal(t, "7\n", out.String())
		})
	}
}

func TestRunWithoutInput(t *testing.T) {
	dir := t.TempDir()
	c, err := configFor(writeFile(t, dir, "add.ic", addProg))
	require.NoError(t, err)
	c.Inputs = []int64{3}

	var out bytes.Buffer
	assert.ErrorIs(t, run(c, &out, nil), errFaulted)

	c.Policy = "input"
	assert.ErrorContains(t, run(c, &out, nil), "needs more input")
	assert.Empty(t, out.String())
}

func TestRunInteractive(t *testing.T) {
	dir := t.TempDir()
	c, err := configFor(writeFile(t, dir, "add.ic", addProg))
	require.NoError(t, err)

	in := &lines{"", "x", "3", "4"}
	var out bytes.Buffer
	require.NoError(t, run(c, &out, in))
	assert.Equal(t, "7\n", out.String())
	assert.Empty(t, *in)

	in = &lines{"3"}
	assert.ErrorContains(t, run(c, &out, in), "end of input")
}

func TestRunScreen(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "draw.ic",
		"104,0,104,0,104,1,104,2,104,1,104,4,104,-1,104,0,104,7,99")
	c, err := configFor(prog)
	require.NoError(t, err)
	c.Screen.Enabled = true
	c.Screen.PNG = filepath.Join(dir, "out.png")
	c.Screen.Scale = 2

	var out bytes.Buffer
	require.NoError(t, run(c, &out, nil))
	assert.Equal(t, "#  \n  o\nscore: 7\n", out.String())

	f, err := os.Open(c.Screen.PNG)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Width)
	assert.Equal(t, 4, cfg.Height)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"-q"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "add.ic", addProg)

	out, err := execute(t, "run", "-i", "3,4", prog)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	// An immediate OUT prints the address of the sum.
	out, err = execute(t, "run", "-i", "3,4", "--set", "8=104", prog)
	require.NoError(t, err)
	assert.Equal(t, "15\n", out)

	_, err = execute(t, "run", "--policy", "sometimes", prog)
	assert.Error(t, err)

	_, err = execute(t, "run", "-i", "1", prog)
	assert.ErrorIs(t, err, errFaulted)
}

func TestRunCmdFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "add.ic", addProg)
	rf := writeFile(t, dir, "add.toml", `
program = "add.ic"
inputs = [1, 1]
`)
	out, err := execute(t, "run", rf)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = execute(t, "run", "-i", "20", "-i", "22", rf)
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
}

func TestAmpCmd(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "amp.ic", "3,15,3,16,1002,16,10,16,1,16,15,15,4,15,99,0,0")
	out, err := execute(t, "amp", prog)
	require.NoError(t, err)
	assert.Equal(t, "43210 4,3,2,1,0\n", out)

	prog = writeFile(t, dir, "loop.ic", "3,26,1001,26,-4,26,3,27,1002,27,2,27,1,27,26,"+
		"27,4,27,1001,28,-1,28,1005,28,6,99,0,0,5")
	out, err = execute(t, "amp", "--feedback", prog)
	require.NoError(t, err)
	assert.Equal(t, "139629729 9,8,7,6,5\n", out)
}

func TestWatchedPaths(t *testing.T) {
	assert.Equal(t, []string{"a.ic"}, watchedPaths("a.ic", &runConfig{Program: "a.ic"}))
	assert.Equal(t, []string{"r/a.toml", "r/a.ic"}, watchedPaths("r/a.toml", &runConfig{Program: "r/a.ic"}))
}

func TestFit(t *testing.T) {
	assert.Equal(t, image.Rect(0, 10, 100, 60), fit(image.Rect(0, 0, 100, 70), image.Rect(0, 0, 20, 10)))
	assert.Equal(t, image.Rect(25, 0, 75, 50), fit(image.Rect(0, 0, 100, 50), image.Rect(0, 0, 10, 10)))
	assert.Equal(t, image.Rect(0, 0, 5, 5), fit(image.Rect(0, 0, 5, 5), image.Rectangle{}))
}

func TestJoystick(t *testing.T) {
	var g gui
	assert.Equal(t, int64(0), g.joystick())
	g.left = true
	assert.Equal(t, int64(-1), g.joystick())
	g.right = true
	assert.Equal(t, int64(0), g.joystick())
	g.left = false
	assert.Equal(t, int64(1), g.joystick())
}
