package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/weave-lang/weave/internal/cli/ui"
	"github.com/weave-lang/weave/internal/companion"
	"github.com/weave-lang/weave/internal/utils"
	"github.com/weave-lang/weave/internal/watch"
	"github.com/weave-lang/weave/internal/weaver/contract"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
	"github.com/weave-lang/weave/internal/weaver/gen"
)

var (
	genOutDir      string
	genOverride    string
	genConcurrency int
	genNoAutostart bool
	genWatch       bool
)

// NewGenCommand creates the gen command
func NewGenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen [package dirs...]",
		Short: "Weave annotated Go packages",
		Long: `Weave every //weave: directive in the given package directories.

The run:
  1. Loads each package directory (default: the current directory)
  2. Registers //weave:register and //weave:mount declarations with the companion registry
  3. Weaves contracts, advice, delegation, decoration, mocks and compositions
  4. Writes the woven files and an overlay.json for go build -overlay`,
		Example: `  # Weave the current package
  weave gen

  # Weave several packages; packages that register aspects must be included
  weave gen ./logs ./app

  # Weave every package below the current directory and keep watching
  weave gen --watch ./...

  # Strip every contract for a release build
  weave gen --override disable ./app

  # Machine-readable report
  weave gen --json ./app`,
		RunE: runGen,
	}

	addGenFlags(cmd)
	cmd.Flags().BoolVarP(&genWatch, "watch", "w", false, "Weave again whenever a Go source changes")
	return cmd
}

func addGenFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&genOutDir, "out", "o", "", "Output directory for woven files (default: gen.out_dir)")
	cmd.Flags().StringVar(&genOverride, "override", "", "Force every contract: disable, debug or log")
	cmd.Flags().IntVar(&genConcurrency, "concurrency", 0, "Files woven at once (default: gen.concurrency or GOMAXPROCS)")
	cmd.Flags().BoolVar(&genNoAutostart, "no-autostart", false, "Fail instead of starting the companion registry")
}

func runGen(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	err = genOnce(cmd.Context(), cmd, env, args)
	if !genWatch {
		return err
	}
	if err != nil && err != errReported {
		return err
	}
	return watchAndWeave(cmd, env, args)
}

// genOnce runs a single weave and prints its outcome
func genOnce(ctx context.Context, cmd *cobra.Command, env *environment, args []string) error {
	start := time.Now()
	report, err := weave(ctx, cmd.ErrOrStderr(), env, args)
	if err != nil {
		return reportFailure(cmd, err)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), genResult{Success: true, Report: report, Warnings: report.Warnings})
	}

	out := cmd.OutOrStdout()
	if len(report.Warnings) > 0 {
		ui.WriteErrorList(cmd.ErrOrStderr(), report.Warnings, noColor)
	}
	if len(report.Files) > 0 {
		table := ui.NewTable(out, noColor, "SOURCE", "WOVEN")
		for _, f := range report.Files {
			table.AddRow(f.Source, f.Output)
		}
		table.Render()
	}
	ui.WriteSuccess(out, fmt.Sprintf("Wove %d file(s) in %s, overlay %s",
		len(report.Files), time.Since(start).Round(time.Millisecond), report.Overlay), noColor)
	return nil
}

// watchAndWeave weaves again on every settled batch of source changes
// until interrupted. Failed runs are reported and watching continues.
func watchAndWeave(cmd *cobra.Command, env *environment, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dirs, err := packageDirs(args)
	if err != nil {
		return err
	}

	fw, err := watch.NewFileWatcher(dirs, watch.DefaultDebounce, env.logger, func(files []string) error {
		env.logger.Info("sources changed, weaving again", zap.Strings("files", files))
		if err := genOnce(ctx, cmd, env, args); err != nil && err != errReported {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), ui.Info(fmt.Sprintf("Watching %d package(s), press Ctrl+C to stop", len(dirs)), noColor))
	return fw.Run(ctx)
}

// genResult is the --json form of a run
type genResult struct {
	Success  bool              `json:"success"`
	Report   *gen.Report       `json:"report,omitempty"`
	Errors   werrors.ErrorList `json:"errors,omitempty"`
	Warnings werrors.ErrorList `json:"warnings,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// weave connects to the registry and runs the generator over dirs
func weave(ctx context.Context, progress io.Writer, env *environment, args []string) (*gen.Report, error) {
	dirs, err := packageDirs(args)
	if err != nil {
		return nil, err
	}

	opts, err := genOptions(env)
	if err != nil {
		return nil, err
	}
	opts.Dirs = dirs

	client, err := connect(ctx, progress, env, !genNoAutostart)
	if err != nil {
		return nil, err
	}
	opts.Registry = client

	return gen.Generate(ctx, opts)
}

// packageDirs expands the package arguments, defaulting to the current
// directory
func packageDirs(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	dirs, err := utils.ExpandPackageDirs(args)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no Go packages match %v", args)
	}
	return dirs, nil
}

// genOptions merges the gen flags over the configuration
func genOptions(env *environment) (gen.Options, error) {
	opts := gen.Options{
		OutDir:      env.cfg.Gen.OutDir,
		Override:    env.cfg.Override(),
		Concurrency: env.cfg.Gen.Concurrency,
		Logger:      env.logger,
	}
	if genOutDir != "" {
		opts.OutDir = genOutDir
	}
	if genConcurrency > 0 {
		opts.Concurrency = genConcurrency
	}
	if genOverride != "" {
		o, err := contract.ParseOverride(genOverride)
		if err != nil {
			return opts, err
		}
		opts.Override = o
	}
	return opts, nil
}

// connect returns a client for the configured registry, starting the
// registry first when autostart is on and nothing answers.
func connect(ctx context.Context, progress io.Writer, env *environment, autostart bool) (*companion.Client, error) {
	cc := env.cfg.Companion
	if !autostart || !cc.Autostart {
		return companion.NewClient(cc.Addr, companion.WithTimeout(cc.Timeout)), nil
	}

	bc := companion.DefaultBootstrapConfig()
	bc.Addr = cc.Addr
	bc.Logger = env.logger
	if configPath != "" {
		bc.Args = []string{"--config", configPath}
	}

	err := ui.WithSpinner(progress, "Connecting to registry at "+cc.Addr, noColor, func() error {
		_, err := companion.Bootstrap(ctx, bc)
		return err
	})
	if err != nil {
		return nil, werrors.NewRegistryUnavailable(cc.Addr, err)
	}
	env.logger.Debug("registry ready", zap.String("addr", cc.Addr))
	return companion.NewClient(cc.Addr, companion.WithTimeout(cc.Timeout)), nil
}

// reportFailure prints err in the selected output format
func reportFailure(cmd *cobra.Command, err error) error {
	var list werrors.ErrorList
	switch e := err.(type) {
	case werrors.ErrorList:
		list = e
	case *werrors.CompilerError:
		list = werrors.ErrorList{e}
	default:
		if jsonOutput {
			writeJSON(cmd.OutOrStdout(), genResult{Message: err.Error()})
			return errReported
		}
		return err
	}

	if jsonOutput {
		writeJSON(cmd.OutOrStdout(), genResult{Errors: list.Errors(), Warnings: warningsOf(list)})
		return errReported
	}
	ui.WriteErrorList(cmd.ErrOrStderr(), list, noColor)
	return errReported
}

func warningsOf(list werrors.ErrorList) werrors.ErrorList {
	var out werrors.ErrorList
	for _, e := range list {
		if e.Severity == werrors.SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
