// Package config assembles the kiln settings from command line flags, the
// environment and an optional kiln.yaml.
package config

import (
	"errors"
	"fmt"

	"kiln/toolchain"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/xyproto/env/v2"
)

// keys shared with the command line flags
const (
	KeyConfig   = "config"
	KeyRuntime  = "runtime"
	KeyNasm     = "nasm"
	KeyLd       = "ld"
	KeyLeaveAsm = "leave-asm"
	KeyVerbose  = "verbose"
)

type Config struct {
	Runtime  string
	Nasm     string
	Ld       string
	LeaveAsm bool
	Verbose  bool

	// File is the config file that was read, if any.
	File string
}

// Load reads the configuration from v. Flags bound to v take precedence
// over the config file, which takes precedence over KILN_* variables.
func Load(v *viper.Viper) (*Config, error) {
	// env caches the environment on first use
	env.Load()

	v.SetDefault(KeyRuntime, env.Str("KILN_RUNTIME", toolchain.DefaultRuntime))
	v.SetDefault(KeyNasm, env.Str("KILN_NASM", toolchain.DefaultNasm))
	v.SetDefault(KeyLd, env.Str("KILN_LD", toolchain.DefaultLd))
	v.SetDefault(KeyLeaveAsm, env.Bool("KILN_LEAVE_ASM"))

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	runtime, err := homedir.Expand(v.GetString(KeyRuntime))
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}

	return &Config{
		Runtime:  runtime,
		Nasm:     v.GetString(KeyNasm),
		Ld:       v.GetString(KeyLd),
		LeaveAsm: v.GetBool(KeyLeaveAsm),
		Verbose:  v.GetBool(KeyVerbose),
		File:     v.ConfigFileUsed(),
	}, nil
}

func readConfigFile(v *viper.Viper) error {
	if file := v.GetString(KeyConfig); file != "" {
		path, err := homedir.Expand(file)
		if err != nil {
			return err
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("kiln")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home + "/.kiln")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Toolchain returns a toolchain set up from the configuration.
func (c *Config) Toolchain(logger zerolog.Logger) *toolchain.Toolchain {
	return &toolchain.Toolchain{
		Nasm:     c.Nasm,
		Ld:       c.Ld,
		Runtime:  c.Runtime,
		LeaveAsm: c.LeaveAsm,
		Logger:   logger,
	}
}
