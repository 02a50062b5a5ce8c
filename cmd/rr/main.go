package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/3cpo-dev/rr/internal/core"
	"github.com/3cpo-dev/rr/internal/project"
)

var (
	version   = "0.1.0"
	commit    = ""
	buildDate = ""
)

const statusUsage = 2

// exitError carries the status the process exits with. err may be nil when a
// task failed and already reported its own output.
type exitError struct {
	status int
	err    error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.status)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type options struct {
	color       string
	list        bool
	projectPath string
	showProject bool
	configPath  string
	logLevel    string

	cfg core.Config
}

// Create the root command
func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "rr [flags] [TASK [ARGS...]]",
		Short: "Run a configured task or a script installed for this project",
		Long: "rr runs tasks defined in the [tool.pyproject-runner.tasks] table of the nearest\n" +
			"pyproject.toml, or scripts installed in the project's virtual environment.",
		Version: version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(fmt.Sprintf("rr %s (%s) %s\n", version, commit, buildDate))
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &exitError{status: statusUsage, err: fmt.Errorf("%w\nSee 'rr --help' for usage", err)}
	})

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVar(&opts.color, "color", "", "Control colors in output: auto, always, never")
	flags.BoolVarP(&opts.list, "list", "l", false, "List tasks from project")
	flags.StringVar(&opts.projectPath, "project", "", "Use this pyproject.toml file or directory")
	flags.BoolVar(&opts.showProject, "show-project", false, "Print project information and exit")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/rr/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log", "", "Set log level. Available: trace, debug, info, warn, error, fatal")

	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		cfg, err := core.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		opts.cfg = cfg
		level := opts.logLevel
		if level == "" {
			level = cfg.Log
		}
		switch level {
		case "trace":
			zerolog.SetGlobalLevel(zerolog.TraceLevel)
		case "debug":
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		case "info":
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		case "", "warn":
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		case "error":
			zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		case "fatal":
			zerolog.SetGlobalLevel(zerolog.FatalLevel)
		default:
			return &exitError{status: statusUsage, err: fmt.Errorf("invalid log level %q", level)}
		}
		mode := opts.color
		if mode == "" {
			mode = cfg.Color
		}
		if err := setupColor(mode); err != nil {
			return &exitError{status: statusUsage, err: err}
		}
		return nil
	}
	return cmd
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	p, err := project.Open(opts.projectPath)
	if err != nil {
		return err
	}
	log.Debug().Str("project", p.Name).Str("root", p.Root).Msg("Loaded project")

	user, err := core.LoadUserEnv(opts.cfg)
	if err != nil {
		return err
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	runner := core.NewRunner(p.Tasks(), p.RunContext(wd, os.Environ(), user))
	out := newPrinter(cmd.OutOrStdout())

	switch {
	case opts.showProject:
		return out.project(p, runner)
	case opts.list:
		out.tasks(runner.Table)
		return nil
	case len(args) == 0:
		out.overview(runner.Table, p.Scripts())
		return nil
	}

	status, err := runner.Run(cmd.Context(), args[0], args[1:])
	if err != nil || status != 0 {
		return &exitError{status: status, err: err}
	}
	return nil
}

// Setup the logger
func setupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

// Main entry point
func main() {
	setupLogger()
	root := newRootCmd()
	ctx, cancel := context.WithCancel(context.Background())
	root.SetContext(ctx)
	err := root.Execute()
	cancel()
	if err != nil {
		os.Exit(report(os.Stderr, err))
	}
}

// report prints err and returns the exit status for it.
func report(w io.Writer, err error) int {
	status := 1
	var exit *exitError
	if errors.As(err, &exit) {
		status = exit.status
		err = exit.err
	}
	if err != nil {
		fmt.Fprintln(w, formatError(err))
	}
	if status == 0 {
		status = 1
	}
	return status
}
