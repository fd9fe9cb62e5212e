package commands

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/weave-lang/weave/internal/cli/config"
	"github.com/weave-lang/weave/internal/cli/ui"
	"github.com/weave-lang/weave/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool
	noColor    bool
)

// errReported is returned once a command has already printed its failure.
var errReported = errors.New("weaving failed")

// configError marks a configuration that could not be loaded or applied.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "weave",
		Short: "Contracts, aspects and delegation for Go source",
		Long: color.CyanString(`Weave - design by contract and aspect weaving for Go

Weave reads //weave: directives in Go source and writes woven copies of the
annotated files together with an overlay for go build -overlay.

Features:
  • requires / ensures / invariant contracts with old() captures
  • Before, Around and After advice from registered aspects
  • delegation, decoration, mocks and interface composition
  • a companion registry sharing definitions between packages`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: ./weave.yml)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "", "Log format: console or json")
	flags.BoolVar(&jsonOutput, "json", false, "Output results and errors in JSON format")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewGenCommand())
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewCompanionCommand())
	rootCmd.AddCommand(NewInitCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the weave version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(out, "Weave version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// environment is what every command needs after flag parsing
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
}

// setup loads the configuration, applies the persistent flag overrides and
// installs the logger as the zap global for the runtime packages.
func setup() (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, &configError{err}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, &configError{err}
	}
	zap.ReplaceGlobals(logger)

	return &environment{cfg: cfg, logger: logger}, nil
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	err := rootCmd.Execute()
	if err != nil {
		reportError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

// reportError prints err unless the command already did.
func reportError(w io.Writer, err error) {
	var cfgErr *configError
	switch {
	case errors.Is(err, errReported):
	case errors.As(err, &cfgErr):
		fmt.Fprintln(w, ui.ConfigError(cfgErr.Error(), color.NoColor))
	default:
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(w, "Error: %v\n", err)
	}
}
