package commands

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/weave-lang/weave/internal/cli/ui"
)

// goCommand runs the go tool; replaced in tests
var goCommand = func(ctx context.Context, stdout, stderr io.Writer, args ...string) error {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// NewBuildCommand creates the build command
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [package dirs...] [-- go build args...]",
		Short: "Weave packages and run go build with the overlay",
		Long: `Run weave gen over the given package directories, then go build with
-overlay pointing at the generated overlay.json. Arguments after -- are
passed to go build unchanged.`,
		Example: `  # Weave and build the current module
  weave build

  # Weave two packages and build a binary
  weave build ./logs ./app -- -o bin/app ./cmd/app`,
		RunE: runBuild,
	}

	addGenFlags(cmd)
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	dirs, goArgs := splitBuildArgs(args, cmd.ArgsLenAtDash())

	report, err := weave(cmd.Context(), cmd.ErrOrStderr(), env, dirs)
	if err != nil {
		return reportFailure(cmd, err)
	}
	if len(report.Warnings) > 0 {
		ui.WriteErrorList(cmd.ErrOrStderr(), report.Warnings, noColor)
	}

	buildArgs := append([]string{"build", "-overlay", report.Overlay}, goArgs...)
	env.logger.Debug("running go", zap.Strings("args", buildArgs))
	if err := goCommand(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), buildArgs...); err != nil {
		return fmt.Errorf("go build failed: %w", err)
	}

	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Built with %d woven file(s)", len(report.Files)), noColor)
	return nil
}

// splitBuildArgs separates package dirs from go build arguments at "--"
func splitBuildArgs(args []string, dash int) ([]string, []string) {
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}
