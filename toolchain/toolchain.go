// Package toolchain turns generated assembly into an executable by running
// nasm and ld against the kiln runtime.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
)

const (
	DefaultNasm    = "nasm"
	DefaultLd      = "ld"
	DefaultRuntime = "~/.kiln/runtime"

	runtimeArchive = "runtime.a"
	runtimeInclude = "runtime.inc"
)

var ErrNotFound = errors.New("not found")

// Error is a failure of one of the external tools. It is kept apart from
// compile errors: the assembly was fine, building it was not.
type Error struct {
	Tool   string
	Output string
	Err    error
}

func (e *Error) Error() string {
	if errors.Is(e.Err, ErrNotFound) {
		return e.Tool + " not found"
	}

	msg := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Toolchain struct {
	Nasm    string
	Ld      string
	Runtime string // directory holding runtime.a and runtime.inc

	// LeaveAsm keeps the .asm file next to the executable.
	LeaveAsm bool
	Logger   zerolog.Logger
}

func New() *Toolchain {
	return &Toolchain{
		Nasm:    DefaultNasm,
		Ld:      DefaultLd,
		Runtime: DefaultRuntime,
		Logger:  zerolog.Nop(),
	}
}

// Build assembles asm and links it with the runtime into output. The
// assembly is written to output.asm first and stays there if the build
// fails.
func (t *Toolchain) Build(ctx context.Context, asm, output string) (err error) {
	asmFile := output + ".asm"
	if err := os.WriteFile(asmFile, []byte(asm), 0o644); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			t.Logger.Info().Str("file", asmFile).Msg("assembly kept")
			return
		}
		if !t.LeaveAsm {
			os.Remove(asmFile)
		}
	}()

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	objFile := filepath.Join(filepath.Dir(output), "."+filepath.Base(output)+"-"+id.String()+".o")
	defer os.Remove(objFile)

	runtime, err := homedir.Expand(t.Runtime)
	if err != nil {
		return err
	}
	runtime = filepath.Clean(runtime)
	archive := filepath.Join(runtime, runtimeArchive)

	nasm, err := lookup(t.Nasm)
	if err != nil {
		return err
	}
	ld, err := lookup(t.Ld)
	if err != nil {
		return err
	}
	if err := readable(archive); err != nil {
		return &Error{Tool: t.Ld, Err: fmt.Errorf("runtime archive %s: %w", archive, err)}
	}

	if err := t.run(ctx, nasm,
		"-o", objFile,
		"-f", "elf64",
		"-I", runtime+string(filepath.Separator),
		"-p", runtimeInclude,
		asmFile); err != nil {
		return err
	}

	return t.run(ctx, ld, "-o", output, objFile, archive)
}

func lookup(tool string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", &Error{Tool: tool, Err: ErrNotFound}
	}
	return path, nil
}

func (t *Toolchain) run(ctx context.Context, tool string, args ...string) error {
	var out bytes.Buffer

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	t.Logger.Debug().Str("tool", tool).Strs("args", args).Msg("running")

	if err := cmd.Run(); err != nil {
		return &Error{Tool: filepath.Base(tool), Output: out.String(), Err: err}
	}
	return nil
}
