// Package cmd implements the multibuild CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/multibuild/internal/clierr"
	"github.com/twiced-technology-gmbh/multibuild/internal/config"
	"github.com/twiced-technology-gmbh/multibuild/internal/logging"
	"github.com/twiced-technology-gmbh/multibuild/internal/orchestrator"
	"github.com/twiced-technology-gmbh/multibuild/internal/output"
)

// version is set at build time via ldflags.
var version = "dev"

// Global flags.
var (
	flagInputs      []string
	flagSymlinkDir  string
	flagOutputDir   string
	flagQuiet       bool
	flagMonitor     bool
	flagConfig      string
	flagQuietPeriod time.Duration
	flagJSON        bool
	flagNoColor     bool
	flagDebug       bool
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "multibuild [flags] [filenames...]",
		Short: "Build several Sphinx source directories as one document",
		Long: `multibuild merges multiple Sphinx source directories into a single tree of
symlinks and builds it with sphinx-build. With --monitor it keeps watching the
inputs and rebuilds after changes settle.

The sphinx-build options (-b, -M, -D and the rest listed below) are passed
through to sphinx-build; positional arguments are sphinx-build filenames.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runBuild,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if !logging.ColorEnabled(os.Stderr, flagNoColor) {
				logging.DisableColor()
				output.DisableColor()
			}
		},
	}

	f := c.Flags()
	f.SortFlags = false
	f.StringArrayVarP(&flagInputs, "input", "i", nil, "input directory (repeatable)")
	f.StringVarP(&flagSymlinkDir, "symlink-dir", "s", "", "directory where the merged symlinks are placed")
	f.StringVarP(&flagOutputDir, "output-dir", "o", "", "directory where the build output is placed")
	f.BoolVarP(&flagQuiet, "quiet", "q", false, "only print warnings and errors")
	f.BoolVarP(&flagMonitor, "monitor", "m", false, "monitor the inputs for changes and rebuild")
	f.StringVar(&flagConfig, "config", "", "path to "+config.ConfigFileName+" (default: search upward from the working directory)")
	f.DurationVar(&flagQuietPeriod, "quiet-period", config.DefaultQuietPeriod, "how long changes must settle before a rebuild")
	f.BoolVar(&flagJSON, "json", false, "print the run summary and errors as JSON")
	f.BoolVar(&flagNoColor, "no-color", false, "disable color output")
	f.BoolVar(&flagDebug, "debug", false, "log every filesystem event and link operation")
	registerPassthrough(f)
	return c
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	// The build tool's exit status, already reported.
	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	if output.Detect(flagJSON) == output.FormatJSON {
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			output.JSONError(os.Stdout, cliErr.Code, cliErr.Message, cliErr.Details)
			os.Exit(cliErr.ExitCode())
		}
		output.JSONError(os.Stdout, clierr.InternalError, err.Error(), nil)
		os.Exit(clierr.ExitInternal)
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(clierr.ExitGeneral)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return clierr.Wrap(clierr.InvalidInput, err, "configuration")
	}

	log := logging.New(os.Stderr, logging.Options{
		Quiet: cfg.Quiet,
		Color: logging.ColorEnabled(os.Stderr, flagNoColor),
		Debug: flagDebug,
	})
	if cfg.Path() != "" {
		log.Debug("Loaded config", "path", cfg.Path())
	}

	opts := orchestrator.Options{
		Inputs:      cfg.Inputs,
		StagingDir:  cfg.SymlinkDir,
		OutputDir:   cfg.OutputDir,
		Monitor:     cfg.Monitor,
		QuietPeriod: cfg.QuietDuration(),
		Command:     cfg.BuildCommand,
		Passthrough: append(append([]string(nil), cfg.BuildArgs...), collectPassthrough(cmd.Flags())...),
		Filenames:   args,
		Logger:      log,
	}
	if !cfg.Quiet {
		opts.Banner = os.Stderr
	}

	o, err := orchestrator.New(opts)
	if err != nil {
		return err
	}
	defer o.Close()
	log.Debug("Prepared symlink directory",
		"symlink_dir", o.StagingDir(), "output_dir", o.OutputDir(), "inputs", o.Inputs())
	log.Debug("Build command", "argv", o.Argv())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := o.Run(ctx)
	if err != nil {
		return err
	}

	if output.Detect(flagJSON) == output.FormatJSON {
		if err := output.JSON(os.Stdout, o.Summary()); err != nil {
			return err
		}
	} else if !cfg.Quiet {
		output.Outcome(os.Stderr, code)
	}

	if code != 0 {
		return &clierr.SilentError{Code: code}
	}
	return nil
}

// loadConfig reads the config file, if any, and applies the flags on top.
// Flag paths are taken relative to the working directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	cfg := config.NewDefault()
	path := flagConfig
	if path == "" {
		if found, err := config.FindFile(cwd); err == nil {
			path = found
		} else if !errors.Is(err, config.ErrNotFound) {
			return nil, err
		}
	}
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return nil, clierr.Wrap(clierr.InvalidInput, err, "loading config")
		}
	}

	flags := cmd.Flags()
	if len(flagInputs) > 0 {
		cfg.Inputs = append([]string(nil), flagInputs...)
	}
	if flags.Changed("symlink-dir") {
		cfg.SymlinkDir = flagSymlinkDir
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = flagOutputDir
	}
	if flags.Changed("quiet") {
		cfg.Quiet = flagQuiet
	}
	if flags.Changed("monitor") {
		cfg.Monitor = flagMonitor
	}
	if flags.Changed("quiet-period") {
		cfg.QuietPeriod = config.Duration(flagQuietPeriod)
	}

	if err := cfg.Resolve(cwd); err != nil {
		return nil, clierr.Wrap(clierr.InvalidInput, err, "resolving paths")
	}
	return cfg, nil
}
