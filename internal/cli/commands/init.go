package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weave-lang/weave/internal/cli/config"
	"github.com/weave-lang/weave/internal/cli/ui"
	"github.com/weave-lang/weave/internal/companion"
	"github.com/weave-lang/weave/internal/weaver/contract"
	"github.com/weave-lang/weave/internal/weaver/gen"
)

var (
	initYes      bool
	initForce    bool
	initBackend  string
	initOverride string
	initOutDir   string
)

// initAnswers are the settings weave init writes
type initAnswers struct {
	Backend  string
	Override string
	OutDir   string
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a weave.yml for a module",
		Example: `  # Answer a few questions
  weave init

  # Accept every default
  weave init --yes

  # Share the registry through redis
  weave init --yes --backend redis`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}

	cmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Use defaults instead of prompting")
	cmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing weave.yml")
	cmd.Flags().StringVar(&initBackend, "backend", "", "Registry store: memory, redis or sql")
	cmd.Flags().StringVar(&initOverride, "override", "", "Contract override: none, disable, debug or log")
	cmd.Flags().StringVar(&initOutDir, "out", "", "Output directory for woven files")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	path := filepath.Join(dir, config.FileName)

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	answers := initAnswers{Backend: initBackend, Override: initOverride, OutDir: initOutDir}
	if !initYes {
		if err := askInit(&answers); err != nil {
			return err
		}
	}
	if err := writeInitConfig(path, answers); err != nil {
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(), "Wrote "+path, noColor)
	return nil
}

// askInit prompts for every answer not given on the command line
func askInit(a *initAnswers) error {
	if a.Backend == "" {
		prompt := &survey.Select{
			Message: "Registry store:",
			Options: []string{"memory", "redis", "sql"},
			Default: "memory",
		}
		if err := survey.AskOne(prompt, &a.Backend); err != nil {
			return err
		}
	}
	if a.Override == "" {
		prompt := &survey.Select{
			Message: "Contract override:",
			Options: []string{"none", "disable", "debug", "log"},
			Default: "none",
		}
		if err := survey.AskOne(prompt, &a.Override); err != nil {
			return err
		}
	}
	if a.OutDir == "" {
		prompt := &survey.Input{
			Message: "Output directory for woven files:",
			Default: gen.DefaultOutDir,
		}
		if err := survey.AskOne(prompt, &a.OutDir, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	return nil
}

// writeInitConfig validates the answers and writes them as YAML
func writeInitConfig(path string, a initAnswers) error {
	if a.Backend == "" {
		a.Backend = "memory"
	}
	if a.Override == "none" {
		a.Override = ""
	}
	if a.OutDir == "" {
		a.OutDir = gen.DefaultOutDir
	}

	switch a.Backend {
	case "memory", "redis", "sql":
	default:
		return fmt.Errorf("unknown store backend %q (want memory, redis or sql)", a.Backend)
	}
	if _, err := contract.ParseOverride(a.Override); err != nil {
		return err
	}

	store := companion.DefaultStoreConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("companion.addr", companion.DefaultAddr)
	v.Set("companion.autostart", true)
	v.Set("companion.store.backend", a.Backend)
	v.Set("companion.store.prefix", store.Prefix)
	switch a.Backend {
	case "redis":
		v.Set("companion.store.redis.addr", store.Redis.Addr)
		v.Set("companion.store.redis.db", store.Redis.DB)
	case "sql":
		v.Set("companion.store.sql.driver", store.SQL.Driver)
		v.Set("companion.store.sql.dsn", store.SQL.DSN)
	}
	v.Set("contracts.override", a.Override)
	v.Set("gen.out_dir", a.OutDir)
	v.Set("log.level", "info")
	v.Set("log.format", "console")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
