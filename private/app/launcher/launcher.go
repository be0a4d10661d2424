// Copyright 2026 The securityd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package launcher wires the common command line harness of the securityd
// binaries: config loading, logging setup, signal handling and the sample
// subcommand.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/metrics"
	"github.com/securityd/securityd/pkg/private/serrors"
	"github.com/securityd/securityd/private/app/command"
	libconfig "github.com/securityd/securityd/private/config"
)

// Configuration keys shared between the TOML file, the flags and the
// environment.
const (
	cfgConfigFile       = "config"
	cfgLogConsoleLevel  = "log.console.level"
	cfgLogConsoleFormat = "log.console.format"
)

var logEntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lib_log_emitted_entries_total",
		Help: "Total number of log entries emitted.",
	},
	[]string{"level"},
)

// Application models a securityd binary.
type Application struct {
	// TOMLConfig holds the application-specific TOML configuration. It is
	// loaded, defaulted and validated before Main runs.
	TOMLConfig libconfig.Config

	// ShortName is the human readable name of the application. If empty,
	// the executable name is used.
	ShortName string

	// EnvPrefix names the environment variables consulted for flags. With
	// prefix "securityd" the config file can be set through
	// SECURITYD_CONFIG.
	EnvPrefix string

	// Commands are additional subcommands attached to the root command.
	Commands []func(command.Pather) *cobra.Command

	// Main is the custom logic of the application, started by the run
	// subcommand. The context is cancelled on SIGINT or SIGTERM.
	Main func(ctx context.Context) error

	// ErrorWriter specifies where error output should be printed. If nil,
	// os.Stderr is used.
	ErrorWriter io.Writer

	config *viper.Viper
}

// Run executes the command line in os.Args and exits the process with a
// non-zero code on failure.
func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := a.Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(a.errorWriter(), "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// Execute runs the command line args against the root command.
func (a *Application) Execute(ctx context.Context, args []string) error {
	cmd := a.Command(filepath.Base(os.Args[0]))
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// Command builds the root command named executable.
func (a *Application) Command(executable string) *cobra.Command {
	shortName := a.ShortName
	if shortName == "" {
		shortName = executable
	}
	a.config = viper.New()
	a.config.SetDefault(cfgLogConsoleLevel, "info")
	a.config.SetDefault(cfgLogConsoleFormat, "human")
	if a.EnvPrefix != "" {
		a.config.SetEnvPrefix(a.EnvPrefix)
	}

	cmd := &cobra.Command{
		Use:           executable,
		Short:         shortName,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
	}
	cmd.PersistentFlags().String(cfgConfigFile, "", "Configuration file (required for run)")
	// Binding errors only happen for nil flags.
	_ = a.config.BindPFlag(cfgConfigFile, cmd.PersistentFlags().Lookup(cfgConfigFile))
	_ = a.config.BindEnv(cfgConfigFile)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: fmt.Sprintf("Run the %s", shortName),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.executeCommand(cmd.Context(), shortName)
			},
		},
		newSample(cmd, a.TOMLConfig),
		command.NewGendocs(cmd),
	)
	for _, f := range a.Commands {
		cmd.AddCommand(f(cmd))
	}
	return cmd
}

// ConfigFile returns the configured config file location.
func (a *Application) ConfigFile() string {
	return a.config.GetString(cfgConfigFile)
}

func (a *Application) executeCommand(ctx context.Context, shortName string) error {
	file := a.ConfigFile()
	if file == "" {
		return serrors.New("no config file specified",
			"flag", "--"+cfgConfigFile, "env", a.envName(cfgConfigFile))
	}
	// The launcher keys are read from the same file as the application
	// configuration.
	a.config.SetConfigType("toml")
	a.config.SetConfigFile(file)
	if err := a.config.ReadInConfig(); err != nil {
		return serrors.Wrap("loading generic config from file", err, "file", file)
	}
	if err := libconfig.LoadFile(file, a.TOMLConfig); err != nil {
		return err
	}
	a.TOMLConfig.InitDefaults()

	counter := metrics.NewPromCounter(logEntriesTotal)
	opt := log.WithEntriesCounter(log.EntriesCounter{
		Debug: counter.With("level", "debug"),
		Info:  counter.With("level", "info"),
		Error: counter.With("level", "error"),
	})
	if err := log.Setup(a.logging(), opt); err != nil {
		return serrors.Wrap("initialize logging", err)
	}
	defer log.Flush()
	defer log.HandlePanic()

	if err := a.TOMLConfig.Validate(); err != nil {
		log.Error("Invalid configuration", "err", err)
		return serrors.Wrap("validating config", err)
	}
	log.Info("Starting", "service", shortName, "config", file)
	if a.Main == nil {
		return nil
	}
	if err := a.Main(ctx); err != nil {
		log.Error("Application failed", "err", err)
		return err
	}
	log.Info("Stopped", "service", shortName)
	return nil
}

func (a *Application) logging() log.Config {
	return log.Config{
		Console: log.ConsoleConfig{
			Level:  a.config.GetString(cfgLogConsoleLevel),
			Format: a.config.GetString(cfgLogConsoleFormat),
		},
	}
}

func (a *Application) envName(key string) string {
	if a.EnvPrefix == "" {
		return ""
	}
	return strings.ToUpper(a.EnvPrefix + "_" + key)
}

func (a *Application) errorWriter() io.Writer {
	if a.ErrorWriter != nil {
		return a.ErrorWriter
	}
	return os.Stderr
}

func newSample(pather command.Pather, cfg libconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Display a sample configuration file",
		Example: fmt.Sprintf("  %s sample > securityd.toml",
			pather.CommandPath()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Sample(cmd.OutOrStdout(), nil, nil)
			return nil
		},
	}
}
