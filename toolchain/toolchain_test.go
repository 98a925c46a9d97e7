package toolchain

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTools(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		err      *Error
		expected string
	}{
		{&Error{Tool: "nasm", Err: ErrNotFound}, "nasm not found"},
		{&Error{Tool: "ld", Err: errors.New("exit status 1")}, "ld failed: exit status 1"},
		{
			&Error{Tool: "nasm", Output: "prog.asm:3: error: symbol `x' not defined\n", Err: errors.New("exit status 1")},
			"nasm failed: exit status 1\nprog.asm:3: error: symbol `x' not defined",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.err.Error())
	}
}

func TestBuildMissingTool(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "prog")

	tc := New()
	tc.Nasm = "kiln-missing-nasm"
	tc.Runtime = dir

	err := tc.Build(context.Background(), "section .text\n", output)
	require.EqualError(t, err, "kiln-missing-nasm not found")

	var buildErr *Error
	require.True(t, errors.As(err, &buildErr))
	assert.ErrorIs(t, err, ErrNotFound)

	asm, err := os.ReadFile(output + ".asm")
	require.NoError(t, err, "assembly stays for inspection after a failed build")
	assert.Equal(t, "section .text\n", string(asm))
}

func TestBuildMissingRuntime(t *testing.T) {
	requireTools(t, "true")

	tc := New()
	tc.Nasm = "true"
	tc.Ld = "true"
	tc.Runtime = t.TempDir()

	err := tc.Build(context.Background(), "", filepath.Join(t.TempDir(), "prog"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), runtimeArchive)
}

func TestBuildToolFails(t *testing.T) {
	requireTools(t, "true", "false")

	runtime := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(runtime, runtimeArchive), nil, 0o644))

	tc := New()
	tc.Nasm = "false"
	tc.Ld = "true"
	tc.Runtime = runtime

	err := tc.Build(context.Background(), "", filepath.Join(t.TempDir(), "prog"))
	assert.EqualError(t, err, "false failed: exit status 1")

	tc.Nasm = "true"
	tc.Ld = "false"
	output := filepath.Join(t.TempDir(), "prog")
	err = tc.Build(context.Background(), "", output)
	assert.EqualError(t, err, "false failed: exit status 1")
	assert.FileExists(t, output+".asm")
}

func TestBuildCleansUp(t *testing.T) {
	requireTools(t, "true")

	runtime := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(runtime, runtimeArchive), nil, 0o644))

	dir := t.TempDir()
	tc := New()
	tc.Nasm = "true"
	tc.Ld = "true"
	tc.Runtime = runtime

	require.NoError(t, tc.Build(context.Background(), "", filepath.Join(dir, "prog")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	tc.LeaveAsm = true
	require.NoError(t, tc.Build(context.Background(), "", filepath.Join(dir, "prog")))
	assert.FileExists(t, filepath.Join(dir, "prog.asm"))
}
