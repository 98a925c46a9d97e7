package main

import (
	"fmt"
	"os"

	"kiln/config"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var red = color.New(color.FgRed).SprintFunc()

var rootCmd = &cobra.Command{
	Use:   "kiln [files...]",
	Short: "Lisp to x86-64 compiler",
	Long: `kiln interprets and compiles a small Lisp. Functions are
compiled to NASM assembly and linked against the kiln runtime.

Without arguments an interactive session is started.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          replHandler,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String(config.KeyConfig, "", "config file (default ./kiln.yaml or ~/.kiln/kiln.yaml)")
	flags.BoolP(config.KeyVerbose, "v", false, "verbose logging")
	flags.String(config.KeyRuntime, "", "runtime directory holding runtime.a and runtime.inc")
	flags.String(config.KeyNasm, "", "nasm executable")
	flags.String(config.KeyLd, "", "ld executable")
	flags.Bool("no-color", false, "disable colored output")

	for _, key := range []string{config.KeyConfig, config.KeyVerbose, config.KeyRuntime, config.KeyNasm, config.KeyLd, "no-color"} {
		if err := viper.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(replCmd, runCmd, asmCmd, buildCmd, symbolsCmd)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", red(err.Error()))
	os.Exit(1)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// loadConfig reads the configuration and sets up the logger it asks for.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	if viper.GetBool("no-color") {
		color.NoColor = true
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	level := zerolog.WarnLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: color.NoColor || !isTerminal(os.Stderr),
	}).Level(level).With().Timestamp().Logger()

	if cfg.File != "" {
		logger.Debug().Str("file", cfg.File).Msg("config loaded")
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}
