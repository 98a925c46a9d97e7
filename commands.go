package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"kiln/asmgen"
	"kiln/evaluator"
	"kiln/repl"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const entryPoint = "main"

var replCmd = &cobra.Command{
	Use:   "repl [files...]",
	Short: "Load files and start an interactive session",
	RunE:  replHandler,
}

var runCmd = &cobra.Command{
	Use:   "run files...",
	Short: "Load files and evaluate (main)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHandler,
}

var asmCmd = &cobra.Command{
	Use:   "asm files...",
	Short: "Print the assembly of the target symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE:  asmHandler,
}

var buildCmd = &cobra.Command{
	Use:   "build files...",
	Short: "Compile and link an executable",
	Args:  cobra.MinimumNArgs(1),
	RunE:  buildHandler,
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols [files...]",
	Short: "List the global symbols after loading files",
	RunE:  symbolsHandler,
}

func init() {
	for _, cmd := range []*cobra.Command{asmCmd, buildCmd} {
		cmd.Flags().StringSliceP("target", "t", []string{entryPoint}, "symbols to compile")
	}
	asmCmd.Flags().StringP("output", "o", "", "write the assembly to a file")
	buildCmd.Flags().StringP("output", "o", "a.out", "executable to write")
	buildCmd.Flags().Bool("leave-asm", false, "keep the generated .asm file")
}

// load imports files into a fresh environment. Without files and with
// stdin not a terminal, the source is read from stdin.
func load(files []string, stdin bool) (*evaluator.Environment, error) {
	env := evaluator.New(os.Stdout)

	if len(files) == 0 && stdin && !isTerminal(os.Stdin) {
		source, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		return env, env.ImportSource(string(source))
	}

	for _, file := range files {
		if err := env.ImportFile(file); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func replHandler(cmd *cobra.Command, args []string) error {
	if _, _, err := loadConfig(); err != nil {
		return err
	}

	if len(args) == 0 && !isTerminal(os.Stdin) {
		return runHandler(cmd, args)
	}

	env, err := load(args, false)
	if err != nil {
		return err
	}
	return repl.New(env, os.Stdout).Start(os.Stdin)
}

func runHandler(cmd *cobra.Command, args []string) error {
	if _, _, err := loadConfig(); err != nil {
		return err
	}

	env, err := load(args, true)
	if err != nil {
		return err
	}
	if _, ok := env.Symbols().Get(entryPoint); !ok {
		return fmt.Errorf("no %s defined", entryPoint)
	}
	_, err = env.InterpretLine("(" + entryPoint + ")")
	return err
}

func compile(cmd *cobra.Command, args []string, logger zerolog.Logger) (string, error) {
	env, err := load(args, true)
	if err != nil {
		return "", err
	}

	targets, err := cmd.Flags().GetStringSlice("target")
	if err != nil {
		return "", err
	}

	c := asmgen.New(env.Symbols(), asmgen.WithLogger(logger))
	return c.Assemble(targets...)
}

func asmHandler(cmd *cobra.Command, args []string) error {
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}

	asm, err := compile(cmd, args, logger)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err = io.WriteString(os.Stdout, asm)
		return err
	}
	return os.WriteFile(output, []byte(asm), 0o644)
}

func buildHandler(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	asm, err := compile(cmd, args, logger)
	if err != nil {
		return err
	}

	tc := cfg.Toolchain(logger)
	if leave, _ := cmd.Flags().GetBool("leave-asm"); leave {
		tc.LeaveAsm = true
	}

	output, _ := cmd.Flags().GetString("output")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := tc.Build(ctx, asm, output); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return errors.New("build interrupted")
		}
		return err
	}
	logger.Info().Str("output", output).Msg("built")
	return nil
}

func symbolsHandler(cmd *cobra.Command, args []string) error {
	if _, _, err := loadConfig(); err != nil {
		return err
	}

	env, err := load(args, true)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(env.Symbols().Names(), "\n"))
	return nil
}
